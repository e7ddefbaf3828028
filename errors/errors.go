package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrHandshakeTimeout = fmt.Errorf("no identity handshake within the allowed delay")
	ErrMalformedMessage = fmt.Errorf("frame payload cannot be parsed into a message")
	ErrInvalidAddress   = fmt.Errorf("private message without a usable receiver")
	ErrUnknownGroup     = fmt.Errorf("group has no membership records")
	ErrUnknownMode      = fmt.Errorf("unsupported addressing mode")
	ErrStoreFailure     = fmt.Errorf("durable queue operation failed")
	ErrSessionClosed    = fmt.Errorf("session is closed")
	ErrFrameTooLarge    = fmt.Errorf("frame exceeds the configured maximum size")
)
