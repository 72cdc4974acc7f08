// Package vocab holds the drawable label vocabulary, the banned-label
// set, and the shuffled target queue a round-session draws its prompts
// from.
package vocab

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed words.yaml
var wordsYAML []byte

// wordsFile mirrors the YAML layout of the embedded vocabulary.
type wordsFile struct {
	Words  []string `yaml:"words"`
	Banned []string `yaml:"banned"`
}

// Vocabulary is the fixed index -> label mapping of drawable categories
// plus the banned set. Immutable once built.
type Vocabulary struct {
	words    []string
	index    map[string]int
	banned   map[string]struct{}
	drawable []string
}

// New builds a Vocabulary from the embedded word list, or from an
// override file / banned set supplied through options.
func New(opts ...Option) (*Vocabulary, error) {
	cfg := settings{}
	for _, opt := range opts {
		opt(&cfg)
	}

	raw := wordsYAML
	if cfg.wordsPath != "" {
		data, err := os.ReadFile(cfg.wordsPath)
		if err != nil {
			return nil, fmt.Errorf("vocab: read words file: %w", err)
		}
		raw = data
	}

	var parsed wordsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("vocab: parse words file: %w", err)
	}
	if len(parsed.Words) == 0 {
		return nil, ErrEmptyVocabulary
	}

	bannedList := parsed.Banned
	if cfg.banned != nil {
		bannedList = cfg.banned
	}

	v := &Vocabulary{
		words:  make([]string, 0, len(parsed.Words)),
		index:  make(map[string]int, len(parsed.Words)),
		banned: make(map[string]struct{}, len(bannedList)),
	}
	for _, w := range parsed.Words {
		if _, dup := v.index[w]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, w)
		}
		v.index[w] = len(v.words)
		v.words = append(v.words, w)
	}
	for _, b := range bannedList {
		if _, known := v.index[b]; !known {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBannedLabel, b)
		}
		v.banned[b] = struct{}{}
	}

	v.drawable = make([]string, 0, len(v.words)-len(v.banned))
	for _, w := range v.words {
		if _, skip := v.banned[w]; !skip {
			v.drawable = append(v.drawable, w)
		}
	}
	if len(v.drawable) == 0 {
		return nil, ErrEmptyVocabulary
	}
	return v, nil
}

// Len returns the full vocabulary size, banned labels included.
func (v *Vocabulary) Len() int { return len(v.words) }

// Label returns the label at index i.
func (v *Vocabulary) Label(i int) (string, bool) {
	if i < 0 || i >= len(v.words) {
		return "", false
	}
	return v.words[i], true
}

// Index returns the numeric index of a label.
func (v *Vocabulary) Index(label string) (int, bool) {
	i, ok := v.index[label]
	return i, ok
}

// IsBanned reports whether a label is in the banned set.
func (v *Vocabulary) IsBanned(label string) bool {
	_, ok := v.banned[label]
	return ok
}

// Banned returns a copy of the banned-label set.
func (v *Vocabulary) Banned() map[string]struct{} {
	out := make(map[string]struct{}, len(v.banned))
	for b := range v.banned {
		out[b] = struct{}{}
	}
	return out
}

// Words returns the full label list in index order.
func (v *Vocabulary) Words() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}

// Drawable returns the vocabulary minus the banned set, in index order.
func (v *Vocabulary) Drawable() []string {
	out := make([]string, len(v.drawable))
	copy(out, v.drawable)
	return out
}
