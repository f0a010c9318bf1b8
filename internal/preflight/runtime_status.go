package preflight

import (
	"fmt"

	"github.com/gofrs/flock"
)

// DaemonRunning reports whether an auto daemon holds lockPath. The probe
// takes and immediately releases the lock when it is free.
func DaemonRunning(lockPath string) (bool, error) {
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	if err := lock.Unlock(); err != nil {
		return false, fmt.Errorf("release daemon lock probe: %w", err)
	}
	return false, nil
}
