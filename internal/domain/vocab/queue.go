package vocab

import "math/rand"

// Queue is a shuffled, deduplicated sequence of target words for one
// round-session. The cursor only ever advances; wraparound is not
// handled because sessions are time-boxed far below vocabulary size.
type Queue struct {
	targets []string
	cursor  int
}

// Build produces a fresh Queue over the drawable vocabulary using a
// uniform Fisher-Yates shuffle driven by rng.
func (v *Vocabulary) Build(rng *rand.Rand) *Queue {
	targets := v.Drawable()
	for i := len(targets) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		targets[i], targets[j] = targets[j], targets[i]
	}
	return &Queue{targets: targets}
}

// Current returns the word at the cursor.
func (q *Queue) Current() string {
	if q.cursor >= len(q.targets) {
		return ""
	}
	return q.targets[q.cursor]
}

// Advance moves the cursor to the next word.
func (q *Queue) Advance() {
	if q.cursor < len(q.targets) {
		q.cursor++
	}
}

// Index returns the cursor position.
func (q *Queue) Index() int { return q.cursor }

// Remaining returns how many words are left, the current one included.
func (q *Queue) Remaining() int { return len(q.targets) - q.cursor }

// Targets returns the full shuffled sequence.
func (q *Queue) Targets() []string {
	out := make([]string, len(q.targets))
	copy(out, q.targets)
	return out
}
