package sheet

import (
	"errors"
	"io/fs"
	"syscall"
)

// isLocked reports whether err means another program holds the file open.
func isLocked(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	for _, e := range lockErrnos {
		if errno == e {
			return true
		}
	}
	return false
}
