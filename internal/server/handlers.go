package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/store"
)

// maxUploadBytes caps the total size of one multipart upload request.
const maxUploadBytes = 64 << 20

type chatRequest struct {
	Message string `json:"message"`
}

type resetRequest struct {
	Memory *bool `json:"memory,omitempty"`
	Index  *bool `json:"index,omitempty"`
}

// handleUpload accepts one or more files in the "files" multipart field,
// saves them under the uploads directory, and indexes them as one batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files provided")
		return
	}
	for _, fh := range files {
		if extract.DetectFormat(fh.Filename) == extract.FormatUnknown {
			s.respondError(w, http.StatusBadRequest,
				fmt.Sprintf("unsupported file type: %s", filepath.Base(fh.Filename)))
			return
		}
	}
	if err := os.MkdirAll(s.config.Storage.UploadsDir, 0750); err != nil {
		s.logger.Error("create uploads dir failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var paths, names []string
	for _, fh := range files {
		path, err := s.saveUpload(fh)
		if err != nil {
			s.logger.Error("save upload failed", zap.String("file", fh.Filename), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		paths = append(paths, path)
		names = append(names, filepath.Base(fh.Filename))
	}
	s.logger.Debug("upload request", zap.Int("files", len(paths)))

	result, err := s.assistant.Ingest(r.Context(), paths)
	if err != nil {
		if errors.Is(err, ingest.ErrNoContent) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"files":               names,
		"documents_processed": result.DocumentsProcessed,
		"chunks_count":        result.ChunksCount,
		"status":              "indexed",
	})
}

func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	dest := filepath.Join(s.config.Storage.UploadsDir, filepath.Base(fh.Filename))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return dest, nil
}

// handleChat answers a question against the indexed documents.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}
	s.logger.Debug("chat request", zap.Int("message_len", len(req.Message)))
	result := s.assistant.Ask(r.Context(), req.Message)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"response": result.Answer,
		"sources":  result.Sources,
	})
}

// handleReset clears the conversation, the index, or both. An empty body
// resets both.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resetMemory := req.Memory == nil || *req.Memory
	resetIndex := req.Index == nil || *req.Index

	if resetMemory {
		s.assistant.ClearConversation()
	}
	if resetIndex {
		if err := s.assistant.ResetIndex(r.Context()); err != nil {
			s.logger.Error("index reset failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.logger.Info("reset", zap.Bool("memory", resetMemory), zap.Bool("index", resetIndex))
	s.respondJSON(w, http.StatusOK, map[string]bool{
		"memory_cleared": resetMemory,
		"index_cleared":  resetIndex,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	turns := s.assistant.History()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"turns": turns})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chunkCount, err := s.store.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sourceCount, err := s.store.CountSources(ctx)
	if err != nil {
		s.logger.Error("status: count sources failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"sources":    sourceCount,
		"chunks":     chunkCount,
		"index_size": s.assistant.IndexSize(),
		"turns":      s.assistant.TurnCount(),
	}
	configInfo := map[string]interface{}{
		"chunk_size":      s.config.Chat.ChunkSize,
		"chunk_overlap":   s.config.Chat.ChunkOverlap,
		"top_k":           s.config.Chat.TopK,
		"embedding_model": s.config.LLM.EmbeddingModel,
		"chat_model":      s.config.LLM.ChatModel,
		"database_path":   s.config.Storage.DatabasePath,
		"uploads_dir":     s.config.Storage.UploadsDir,
	}
	diskBytes, err := store.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.UploadsDir,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
