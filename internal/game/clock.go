package game

import "time"

// Clock abstracts wall time so round timing is testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
