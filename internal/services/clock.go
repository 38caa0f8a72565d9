package services

import "time"

// Clock is the single source of "now" for every time-budget decision.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func SystemClock() Clock { return systemClock{} }
