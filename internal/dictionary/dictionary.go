// Package dictionary loads the word list that chunks draw their hidden words from.
package dictionary

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed words/default.txt
var defaultFS embed.FS

// MinWordLength is the shortest word a list may contain.
const MinWordLength = 2

// ErrEmpty is returned when a source yields no usable words.
var ErrEmpty = errors.New("dictionary contains no usable words")

// yamlFile is the layout of a YAML dictionary.
type yamlFile struct {
	Words []string `yaml:"words"`
}

// Default returns the embedded word list.
func Default() ([]string, error) {
	data, err := defaultFS.ReadFile("words/default.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded word list: %w", err)
	}
	return ParseText(data)
}

// Load reads a word list from path. An empty path selects the embedded list.
// Files ending in .yaml or .yml are read as YAML with a top-level "words" list;
// anything else is read as plain text, one word per line.
func Load(path string) ([]string, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}

	var words []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		words, err = ParseYAML(data)
	default:
		words, err = ParseText(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("words", len(words)).Msg("dictionary loaded")
	return words, nil
}

// ParseText parses one word per line. Blank lines and lines starting with # are skipped.
func ParseText(data []byte) ([]string, error) {
	var raw []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan word list: %w", err)
	}
	return Normalize(raw)
}

// ParseYAML parses a YAML document of the form `words: [...]`.
func ParseYAML(data []byte) ([]string, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid YAML word list: %w", err)
	}
	return Normalize(file.Words)
}

// Normalize uppercases and deduplicates words, keeping first-seen order.
// Entries that are too short or contain anything other than A-Z are dropped.
func Normalize(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	words := make([]string, 0, len(raw))
	for _, entry := range raw {
		word := strings.ToUpper(strings.TrimSpace(entry))
		if !isWord(word) {
			log.Warn().Str("entry", entry).Msg("dropping dictionary entry")
			continue
		}
		if seen[word] {
			continue
		}
		seen[word] = true
		words = append(words, word)
	}
	if len(words) == 0 {
		return nil, ErrEmpty
	}
	return words, nil
}

// LongerThan returns the words that can never fit in a chunk of the given size.
func LongerThan(words []string, size int) []string {
	var long []string
	for _, w := range words {
		if len(w) > size {
			long = append(long, w)
		}
	}
	return long
}

func isWord(word string) bool {
	if len(word) < MinWordLength {
		return false
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'A' || word[i] > 'Z' {
			return false
		}
	}
	return true
}
