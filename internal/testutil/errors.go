package testutil

import (
	"net"
	"os"
	"syscall"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// TimeoutError returns a net.Error whose Timeout method reports true.
func TimeoutError() net.Error {
	return timeoutError{}
}

// ConnReset returns the error a read on a reset TCP connection produces.
func ConnReset() error {
	return &net.OpError{
		Op:  "read",
		Net: "tcp",
		Err: &os.SyscallError{Syscall: "read", Err: syscall.ECONNRESET},
	}
}
