package adapters

import (
	"time"

	"multinic-bond/internal/domain/interfaces"
)

// RealClock is a Clock backed by the system wall clock
type RealClock struct{}

// NewRealClock creates a new RealClock
func NewRealClock() interfaces.Clock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}
