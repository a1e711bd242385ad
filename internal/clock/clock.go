// Package clock sets the local system clock from a measured clock offset.
package clock

import (
	"time"

	"github.com/pkg/errors"
)

// ErrNotSupported is returned when setting the system clock is not
// supported on the current platform.
var ErrNotSupported = errors.New("clock: setting the system time is not supported on this platform")

// Setter sets the local clock.
type Setter interface {
	SetTime(t time.Time) error
}

// System implements Setter for the system clock. This requires elevated
// privileges.
type System struct{}

// SetTime sets the system clock to t.
func (System) SetTime(t time.Time) error {
	return setSystemTime(t)
}

// Apply sets the clock of s to now corrected by the given offset and
// returns the time that was set.
func Apply(s Setter, now time.Time, offsetMs float64) (time.Time, error) {
	t := now.Add(time.Duration(offsetMs * float64(time.Millisecond)))
	if err := s.SetTime(t); err != nil {
		return time.Time{}, errors.Wrap(err, "set time error")
	}
	return t, nil
}
