package resource

import "time"

// SetNow freezes the clock of the service and returns the function restoring it.
func SetNow(now time.Time) func() {
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	return func() { nowFunc = orig }
}
