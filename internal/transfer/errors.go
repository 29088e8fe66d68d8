package transfer

import (
	"errors"
	"fmt"
)

var (
	ErrChannelNotOpen   = errors.New("channel not open")
	ErrChannelClosed    = errors.New("channel closed")
	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrSignalingError   = errors.New("signaling server error")
	ErrTimeout          = errors.New("timeout")

	// ErrLinkUnavailable covers a join answered with room-full or an
	// invalid room id before any data was received.
	ErrLinkUnavailable = errors.New("link expired or busy")

	// ErrInterrupted covers a connection lost mid-transfer, after the
	// session produced at least one complete file.
	ErrInterrupted = errors.New("connection interrupted")
)

type TransferError struct {
	Op      string
	File    string
	Err     error
	Details string
}

func (e *TransferError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *TransferError {
	return &TransferError{Op: op, Err: err}
}

func NewFileError(op, file string, err error) *TransferError {
	return &TransferError{Op: op, File: file, Err: err}
}

func WrapError(op string, err error, details string) *TransferError {
	return &TransferError{Op: op, Err: err, Details: details}
}
