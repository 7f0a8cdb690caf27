//go:build !windows

package sheet

import "syscall"

var lockErrnos []syscall.Errno
