package vocab

type settings struct {
	wordsPath string
	banned    []string
}

// Option applies a configuration option when building a Vocabulary.
type Option func(*settings)

// WithWordsFile loads the vocabulary from a YAML file on disk instead
// of the embedded default.
func WithWordsFile(path string) Option {
	return func(s *settings) {
		if path != "" {
			s.wordsPath = path
		}
	}
}

// WithBannedLabels replaces the banned set from the words file. Every
// label must exist in the vocabulary.
func WithBannedLabels(banned []string) Option {
	return func(s *settings) {
		if banned != nil {
			s.banned = banned
		}
	}
}
