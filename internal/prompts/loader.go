// Package prompts provides a loader for externalized LLM prompt templates.
// Prompts are stored as JSON files and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// DraftingFile holds the quote-repost drafting prompts
const DraftingFile = "drafting.json"

// Keys in DraftingFile
const (
	KeySystem     = "system"
	KeyModeNormal = "mode-normal"
	KeyModeLong   = "mode-long"
	KeyUser       = "user"
	KeyRevision   = "revision"
)

// ScoringFile holds the rubric re-scoring prompts
const ScoringFile = "scoring.json"

// Keys in ScoringFile
const (
	KeyRubricSystem = "rubric-system"
	KeyRubricUser   = "rubric-user"
)

// cache stores parsed prompt files to avoid repeated JSON parsing
var (
	cache   = make(map[string]map[string]string)
	cacheMu sync.RWMutex
)

// Get retrieves a prompt by filename and key.
// The filename should not include the path (e.g., "drafting.json").
// Returns an error if the file or key is not found.
func Get(filename, key string) (string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return prompt, nil
}

// placeholderPattern matches {{.Key}} placeholders in a template
var placeholderPattern = regexp.MustCompile(`\{\{\.([A-Za-z0-9_]+)\}\}`)

// Format replaces template placeholders in the form {{.Key}} with values from data.
// Substitution is a single pass, so placeholder-like text inside a value is left as is.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(data))
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Placeholders returns the distinct keys a template refers to, in order of first use
func Placeholders(template string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// Render looks up a prompt and fills it from data. It fails if the template
// uses a key data does not supply, so a renamed field cannot leak into a prompt.
func Render(filename, key string, data map[string]string) (string, error) {
	template, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	for _, name := range Placeholders(template) {
		if _, ok := data[name]; !ok {
			return "", fmt.Errorf("prompt %s/%s: unfilled placeholder {{.%s}}", filename, key, name)
		}
	}
	return Format(template, data), nil
}

// loadFile loads and caches a prompt file.
func loadFile(filename string) (map[string]string, error) {
	// Check cache first
	cacheMu.RLock()
	if prompts, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return prompts, nil
	}
	cacheMu.RUnlock()

	// Load from embedded filesystem
	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	// Cache the result
	cacheMu.Lock()
	cache[filename] = prompts
	cacheMu.Unlock()

	return prompts, nil
}

// ClearCache clears the prompt cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	cacheMu.Unlock()
}
