// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/assistant"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/memory"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

const defaultServerURL = "http://localhost:8090"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "kotae server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "ask":
		runAsk()
	case "history":
		runHistory()
	case "reset":
		runReset()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, chat requests, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	a := components.Assistant
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Watch.Directory != "" {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(
			cfg.Watch.Directory,
			cfg.Watch.Extensions,
			func(path string) {
				if _, err := a.Ingest(context.Background(), []string{path}); err != nil {
					logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(a, components.Store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae upload [flags] <file> [file ...]")
		os.Exit(1)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", path, err)
			os.Exit(1)
		}
		part, err := mw.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to attach %s: %v\n", path, err)
			os.Exit(1)
		}
	}
	if err := mw.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to finalize upload: %v\n", err)
		os.Exit(1)
	}

	resp, err := http.Post(*serverURL+"/api/v1/upload", mw.FormDataContentType(), body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Upload failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		DocumentsProcessed int `json:"documents_processed"`
		ChunksCount        int `json:"chunks_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d document(s), %d chunk(s)\n", out.DocumentsProcessed, out.ChunksCount)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	payload, _ := json.Marshal(map[string]string{"message": question})
	resp, err := http.Post(*serverURL+"/api/v1/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Ask failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Response string   `json:"response"`
		Sources  []string `json:"sources"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.Response)
	if len(out.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(out.Sources, ", "))
	}
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/history")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "History failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Turns []struct {
			Role    string   `json:"role"`
			Text    string   `json:"text"`
			Sources []string `json:"sources,omitempty"`
		} `json:"turns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		for _, turn := range out.Turns {
			label := "You"
			if turn.Role == "assistant" {
				label = "Kotae"
			}
			fmt.Printf("%s: %s\n", label, turn.Text)
			if len(turn.Sources) > 0 {
				fmt.Printf("      [%s]\n", strings.Join(turn.Sources, ", "))
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runReset() {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	memoryOnly := fs.Bool("memory-only", false, "clear only the conversation, keep the index")
	indexOnly := fs.Bool("index-only", false, "clear only the index, keep the conversation")
	_ = fs.Parse(os.Args[2:])

	resetMemory := !*indexOnly
	resetIndex := !*memoryOnly
	payload, _ := json.Marshal(map[string]bool{"memory": resetMemory, "index": resetIndex})
	resp, err := http.Post(*serverURL+"/api/v1/reset", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Reset failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Reset done (memory: %t, index: %t)\n", resetMemory, resetIndex)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status struct {
		Sources        int64  `json:"sources"`
		Chunks         int64  `json:"chunks"`
		IndexSize      int    `json:"index_size"`
		Turns          int    `json:"turns"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
		Config         *struct {
			ChunkSize      int    `json:"chunk_size"`
			ChunkOverlap   int    `json:"chunk_overlap"`
			TopK           int    `json:"top_k"`
			EmbeddingModel string `json:"embedding_model"`
			ChatModel      string `json:"chat_model"`
			DatabasePath   string `json:"database_path"`
			UploadsDir     string `json:"uploads_dir"`
		} `json:"config,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("sources:       %d   # distinct uploaded documents\n", status.Sources)
		fmt.Printf("chunks:        %d   # indexed text chunks\n", status.Chunks)
		fmt.Printf("index_size:    %d   # vectors in the in-memory index\n", status.IndexSize)
		fmt.Printf("turns:         %d   # conversation turns\n", status.Turns)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage:    %d bytes\n", *status.DiskUsageBytes)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			fmt.Printf("chunk_size:      %d\n", status.Config.ChunkSize)
			fmt.Printf("chunk_overlap:   %d\n", status.Config.ChunkOverlap)
			fmt.Printf("top_k:           %d\n", status.Config.TopK)
			fmt.Printf("embedding_model: %s\n", status.Config.EmbeddingModel)
			fmt.Printf("chat_model:      %s\n", status.Config.ChatModel)
			fmt.Printf("database_path:   %s\n", status.Config.DatabasePath)
			fmt.Printf("uploads_dir:     %s\n", status.Config.UploadsDir)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store     *store.SQLiteStore
	Assistant *assistant.Assistant
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	st, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder llm.Embedder
	var generator llm.Generator
	if cfg.LLM.APIKey != "" {
		client := llm.NewOpenAIClient(
			cfg.LLM.APIKey,
			cfg.LLM.BaseURL,
			cfg.LLM.EmbeddingModel,
			cfg.LLM.ChatModel,
			time.Duration(cfg.LLM.TimeoutSeconds)*time.Second,
		)
		embedder = client
		generator = client
	} else {
		// No API key: run with deterministic mock models so the server still
		// works for local development.
		logger.Warn("no API key configured, using mock embedding and generation")
		embedder = llm.NewMockEmbedder(0)
		generator = &llm.MockGenerator{}
	}

	index := vector.NewIndex(embedder, st, logger)
	if err := index.Load(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}

	pipeline := ingest.NewPipeline(
		extract.NewExtractor(),
		ingest.NewChunker(cfg.Chat.ChunkSize, cfg.Chat.ChunkOverlap),
		index,
		logger,
	)
	a := assistant.New(index, memory.New(), generator, pipeline, cfg.Chat.TopK, logger)

	return &Components{Store: st, Assistant: a}, nil
}

func printUsage() {
	fmt.Println(`kotae - Conversational assistant over your documents

Usage:
  kotae server [flags]              Start the HTTP server
  kotae upload [flags] <file> ...   Upload and index documents
  kotae ask [flags] <question>      Ask a question about the documents
  kotae history [flags]             Show the conversation so far
  kotae reset [flags]               Clear the conversation and the index
  kotae status [flags]              Show index/storage status
  kotae version                     Show version
  kotae help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (file events, chat requests, etc.)

Upload/Ask/History/Reset/Status Flags:
  --server string    Server URL (default: http://localhost:8090)

Reset Flags:
  --memory-only      Clear only the conversation, keep the index
  --index-only       Clear only the index, keep the conversation

History/Status Flags:
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae upload report.pdf notes.docx
  kotae ask what does the report say about revenue?
  kotae history
  kotae reset --memory-only
  kotae status --output json`)
}
