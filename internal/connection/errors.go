package connection

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady      = errors.New("connection has no identity yet")
	ErrAddressing    = errors.New("target is neither self nor peer")
	ErrNoPeer        = errors.New("no peer connected")
	ErrPeerBusy      = errors.New("already connected to a peer")
	ErrConnectFailed = errors.New("connection failed")
	ErrClosed        = errors.New("connection closed")
)

// ConnError records the operation and target that failed.
type ConnError struct {
	Op     string
	Target string
	Err    error
}

func (e *ConnError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

func newError(op, target string, err error) *ConnError {
	return &ConnError{Op: op, Target: target, Err: err}
}
