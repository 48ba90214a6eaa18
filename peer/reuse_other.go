//go:build !unix

package peer

import "syscall"

// Without SO_REUSEPORT only one peer per host can join the group.
func reuseControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
