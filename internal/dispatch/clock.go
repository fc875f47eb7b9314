package dispatch

import "time"

// Clock supplies timestamps for locally created envelopes, in milliseconds
// since epoch to match the wire format all writers share.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time in milliseconds since epoch.
func (SystemClock) Now() int64 {
	return time.Now().UnixMilli()
}
