//go:build !linux && !darwin

package clock

import "time"

func setSystemTime(t time.Time) error {
	return ErrNotSupported
}
