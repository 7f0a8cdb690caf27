package sheet

import "syscall"

// ERROR_SHARING_VIOLATION and ERROR_LOCK_VIOLATION, returned while Excel has the workbook open.
var lockErrnos = []syscall.Errno{32, 33}
