// Package clock abstracts wall-clock access so that TTL and expiry
// logic can be tested deterministically.  Production code uses System;
// tests substitute a fixed or manually advanced implementation.
package clock

import "time"

// Clock supplies the current time.  All core components take a Clock
// rather than calling time.Now directly.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.  Now always returns UTC so that
// timestamps compare consistently with values stored in the database.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }
