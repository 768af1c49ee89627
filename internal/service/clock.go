// Package service implements the business rules on top of the repositories.
package service

import "time"

// Clock supplies the current unix timestamp in seconds. All timecreated,
// timemodified and timelastsent fields derive from it, so tests can inject a
// fixed clock.
type Clock func() int64

// SystemClock is the production Clock.
func SystemClock() int64 {
	return time.Now().Unix()
}
