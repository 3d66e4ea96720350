package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/quote-repost/internal/types"
)

// readInvocations reads invocations from a JSON object, a JSON array or
// newline-delimited JSON. Blank lines in JSONL input are skipped.
func readInvocations(r io.Reader) ([]types.Invocation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read invocations: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no invocations in input")
	}

	if trimmed[0] == '[' {
		var invs []types.Invocation
		if err := json.Unmarshal(trimmed, &invs); err != nil {
			return nil, fmt.Errorf("failed to parse invocation array: %w", err)
		}
		return invs, nil
	}

	// a single pretty-printed object spans many lines
	var single types.Invocation
	if err := json.Unmarshal(trimmed, &single); err == nil {
		return []types.Invocation{single}, nil
	}

	var invs []types.Invocation
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var inv types.Invocation
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse invocation: %w", line, err)
		}
		invs = append(invs, inv)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invocations: %w", err)
	}
	return invs, nil
}

// readInvocationsFile reads invocations from path, or stdin when path is "-"
func readInvocationsFile(path string) ([]types.Invocation, error) {
	if path == "-" {
		return readInvocations(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return readInvocations(f)
}

// readText returns text, or the contents of path when text is empty
func readText(text, path string) (string, error) {
	if text != "" || path == "" {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// writeJSON writes v as indented JSON followed by a newline
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
