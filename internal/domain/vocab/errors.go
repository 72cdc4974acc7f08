package vocab

import "errors"

// Sentinel kinds for vocabulary errors.
var (
	ErrEmptyVocabulary    = errors.New("vocabulary has no drawable words")
	ErrDuplicateLabel     = errors.New("duplicate label in vocabulary")
	ErrUnknownBannedLabel = errors.New("banned label not in vocabulary")
)
