package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a pipeline failure for logs, metrics and clients
type ErrorKind string

const (
	KindDecode               ErrorKind = "decode"
	KindTranscriptionService ErrorKind = "transcription_service"
	KindBackendHTTP          ErrorKind = "backend_http"
	KindBackendProtocol      ErrorKind = "backend_protocol"
	KindSynthesisService     ErrorKind = "synthesis_service"
	KindTimeout              ErrorKind = "timeout"
	KindInternal             ErrorKind = "internal"
)

// DecodeError means the input container could not be turned into canonical audio
type DecodeError struct {
	Format string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s audio", e.Format)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TranscriptionServiceError is a connectivity or authentication failure of
// the recognizer. An unrecognized utterance is not an error.
type TranscriptionServiceError struct {
	Provider string
	Err      error
}

func (e *TranscriptionServiceError) Error() string {
	return fmt.Sprintf("transcription service %s: %v", e.Provider, e.Err)
}

func (e *TranscriptionServiceError) Unwrap() error { return e.Err }

// BackendHTTPError is a non-success status from the completion backend
type BackendHTTPError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendHTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("completion backend error: %s", e.Message)
	}
	return fmt.Sprintf("completion backend error (status %d): %s", e.StatusCode, e.Message)
}

func (e *BackendHTTPError) Unwrap() error { return e.Err }

// BackendProtocolError is a success response missing expected fields
type BackendProtocolError struct {
	Reason string
}

func (e *BackendProtocolError) Error() string {
	return "unexpected completion backend response: " + e.Reason
}

// SynthesisServiceError is any failure of the synthesis backend, including
// an unknown voice
type SynthesisServiceError struct {
	Voice      string
	StatusCode int
	Message    string
	Err        error
}

func (e *SynthesisServiceError) Error() string {
	msg := "synthesis service"
	if e.Voice != "" {
		msg += fmt.Sprintf(" (voice %q)", e.Voice)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SynthesisServiceError) Unwrap() error { return e.Err }

// TimeoutError means a stage exceeded its deadline
type TimeoutError struct {
	Stage   string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Stage, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Kind returns the taxonomy bucket of err. Timeouts win over whatever the
// adapter wrapped the deadline in.
func Kind(err error) ErrorKind {
	var (
		timeoutErr   *TimeoutError
		decodeErr    *DecodeError
		transErr     *TranscriptionServiceError
		httpErr      *BackendHTTPError
		protocolErr  *BackendProtocolError
		synthesisErr *SynthesisServiceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &transErr):
		return KindTranscriptionService
	case errors.As(err, &httpErr):
		return KindBackendHTTP
	case errors.As(err, &protocolErr):
		return KindBackendProtocol
	case errors.As(err, &synthesisErr):
		return KindSynthesisService
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}
