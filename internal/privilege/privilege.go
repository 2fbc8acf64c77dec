// Package privilege reports whether the process runs with elevated rights.
package privilege

import "os"

// IsElevated reports whether the effective user is root. Always false on
// platforms without POSIX user ids.
func IsElevated() bool {
	return os.Geteuid() == 0
}

// RootSafety reports whether root safety mode applies: enabled in
// configuration and the process is elevated.
func RootSafety(enabled, elevated bool) bool {
	return enabled && elevated
}
