package avutil

import (
	"errors"
	"fmt"
	"syscall"
)

// Error taxonomy. Every error raised by vidgraph packages wraps one of these.
var (
	// ErrConfiguration reports invalid or missing construction arguments.
	ErrConfiguration = errors.New("vidgraph: configuration error")
	// ErrResource reports a missing codec or a container that could not be
	// opened or allocated.
	ErrResource = errors.New("vidgraph: resource error")
	// ErrGraph reports a malformed filter graph.
	ErrGraph = errors.New("vidgraph: graph error")
	// ErrStreamDispatch reports a stream that cannot be routed to a handler.
	ErrStreamDispatch = errors.New("vidgraph: stream dispatch error")
)

// Common FFmpeg error codes (AVERROR values).
const (
	AVERROR_EOF               int32 = -541478725
	AVERROR_EAGAIN            int32 = -int32(syscall.EAGAIN)
	AVERROR_EINVAL            int32 = -int32(syscall.EINVAL)
	AVERROR_ENOMEM            int32 = -int32(syscall.ENOMEM)
	AVERROR_DECODER_NOT_FOUND int32 = -1128613112
	AVERROR_ENCODER_NOT_FOUND int32 = -1129203192
	AVERROR_MUXER_NOT_FOUND   int32 = -1481985528
	AVERROR_INVALIDDATA       int32 = -1094995529
)

// Error is a failed FFmpeg call.
type Error struct {
	Code    int32
	Message string
	Op      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// Describe turns an FFmpeg error code into text. The ffmpeg package replaces
// it with av_strerror once the libraries are loaded.
var Describe = func(code int32) string {
	switch code {
	case AVERROR_EOF:
		return "end of file"
	case AVERROR_EAGAIN:
		return "resource temporarily unavailable"
	case AVERROR_EINVAL:
		return "invalid argument"
	case AVERROR_ENOMEM:
		return "cannot allocate memory"
	case AVERROR_INVALIDDATA:
		return "invalid data found when processing input"
	}
	return "unknown error"
}

// NewError returns nil for non-negative codes and an *Error otherwise.
func NewError(code int32, op string) error {
	if code >= 0 {
		return nil
	}
	return &Error{Code: code, Message: Describe(code), Op: op}
}

// IsEOF reports whether err carries AVERROR_EOF.
func IsEOF(err error) bool {
	return Code(err) == AVERROR_EOF
}

// IsAgain reports whether err carries AVERROR(EAGAIN).
func IsAgain(err error) bool {
	return Code(err) == AVERROR_EAGAIN
}

// Code returns the FFmpeg error code from err, or 0.
func Code(err error) int32 {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Code
	}
	return 0
}
