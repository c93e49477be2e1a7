package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// rtfSkipGroups are destination groups whose content is formatting metadata,
// not document text.
var rtfSkipGroups = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"header":     true,
	"footer":     true,
}

// extractRTF converts RTF bytes to plain text by walking the token stream:
// control words are dropped (\par, \line and \tab map to whitespace, \'hh and
// \uN escapes are decoded), destination groups such as \fonttbl are skipped
// entirely, and remaining literal characters are kept. Raw CR/LF in the input
// is ignored, as RTF writers wrap lines freely.
func extractRTF(content []byte) (string, error) {
	if !bytes.HasPrefix(content, []byte(`{\rtf`)) {
		return "", fmt.Errorf("extract RTF: missing {\\rtf header")
	}
	var b strings.Builder
	depth := 0
	skipDepth := -1 // depth at which a skipped group started; -1 when not skipping
	i := 0
	for i < len(content) {
		ch := content[i]
		switch ch {
		case '{':
			depth++
			i++
		case '}':
			if skipDepth >= 0 && depth == skipDepth {
				skipDepth = -1
			}
			depth--
			i++
		case '\r', '\n':
			i++
		case '\\':
			adv, text, group := rtfControl(content[i:])
			i += adv
			if skipDepth >= 0 {
				continue
			}
			if group != "" && (rtfSkipGroups[group] || group == "*") {
				skipDepth = depth
				continue
			}
			b.WriteString(text)
		default:
			if skipDepth < 0 {
				b.WriteByte(ch)
			}
			i++
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// rtfControl decodes one control word or symbol starting at the backslash in
// data. It returns the number of bytes consumed, any literal text the control
// produces, and the control word name (for group skipping).
func rtfControl(data []byte) (adv int, text string, word string) {
	if len(data) < 2 {
		return len(data), "", ""
	}
	c := data[1]
	// Control symbols.
	switch c {
	case '\\', '{', '}':
		return 2, string(c), ""
	case '~':
		return 2, " ", ""
	case '*':
		return 2, "", "*"
	case '\'':
		if len(data) >= 4 {
			if n, err := strconv.ParseUint(string(data[2:4]), 16, 8); err == nil {
				// Treat the byte as Latin-1; close enough for cp1252 text.
				return 4, string(rune(n)), ""
			}
		}
		return 2, "", ""
	}
	if !isASCIILetter(c) {
		// Unknown control symbol: consume and drop it.
		return 2, "", ""
	}
	// Control word: letters, optional signed numeric parameter, optional
	// single trailing space that belongs to the control word.
	j := 1
	for j < len(data) && isASCIILetter(data[j]) {
		j++
	}
	name := string(data[1:j])
	numStart := j
	if j < len(data) && data[j] == '-' {
		j++
	}
	for j < len(data) && data[j] >= '0' && data[j] <= '9' {
		j++
	}
	param := string(data[numStart:j])
	if j < len(data) && data[j] == ' ' {
		j++
	}
	switch name {
	case "par", "line":
		return j, "\n", ""
	case "tab":
		return j, "\t", ""
	case "u":
		// \uN is a 16-bit signed code point followed by one fallback
		// character for old readers, which must be dropped.
		if n, err := strconv.Atoi(param); err == nil {
			if n < 0 {
				n += 65536
			}
			if j < len(data) && data[j] != '\\' && data[j] != '{' && data[j] != '}' {
				j++
			}
			return j, string(rune(n)), ""
		}
		return j, "", ""
	}
	return j, "", name
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
