// Package api defines the public contracts of rackhost: plugin
// descriptors, the normalized instance interface, MIDI events, and the
// error taxonomy shared by both plugin architectures.
package api

import (
	"errors"
	"fmt"
)

// Code is the numeric result code used at the native boundary. Zero is
// success, small negative values are adapter-level errors, and values
// at or below NativeErrorBase carry a forwarded native status code.
type Code int32

const (
	CodeOK             Code = 0
	CodeGeneric        Code = -1
	CodeNotFound       Code = -2
	CodeInvalidParam   Code = -3
	CodeNotInitialized Code = -4

	// NativeErrorBase is the offset under which native status codes are
	// forwarded: encoded = NativeErrorBase + status, so the original
	// status round-trips as encoded - NativeErrorBase.
	NativeErrorBase Code = -1000
)

// Sentinel errors for the adapter-level taxonomy. Native/backend errors
// are represented by NativeError so the original status survives.
var (
	ErrGeneric        = errors.New("plugin operation failed")
	ErrNotFound       = errors.New("plugin not found")
	ErrInvalidParam   = errors.New("invalid parameter")
	ErrNotInitialized = errors.New("plugin not initialized")

	// ErrPresetNotLoadable reports that no programmatic preset-loading
	// strategy worked for this plugin. This is an expected outcome for
	// some plugins, not an adapter failure.
	ErrPresetNotLoadable = errors.New("preset not programmatically loadable")

	// ErrGUIUnsupported reports that the plugin or platform offers no
	// embeddable view. Like ErrPresetNotLoadable, this is an expected
	// best-effort outcome.
	ErrGUIUnsupported = errors.New("plugin GUI not supported on this platform")
)

// NativeError wraps a status code returned by the underlying plugin
// framework. The status is preserved verbatim so callers can log or
// match architecture-specific conditions.
type NativeError struct {
	Arch   Architecture
	Status int32
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("%s native error: status %d", e.Arch, e.Status)
}

// Code returns the offset-encoded form of the native status.
func (e *NativeError) Code() Code {
	return NativeErrorBase + Code(e.Status)
}

// ErrorFromCode converts a native boundary result code into the
// corresponding Go error. CodeOK yields nil.
func ErrorFromCode(code Code, arch Architecture) error {
	switch {
	case code == CodeOK:
		return nil
	case code == CodeGeneric:
		return ErrGeneric
	case code == CodeNotFound:
		return ErrNotFound
	case code == CodeInvalidParam:
		return ErrInvalidParam
	case code == CodeNotInitialized:
		return ErrNotInitialized
	case code <= NativeErrorBase:
		return &NativeError{Arch: arch, Status: int32(code - NativeErrorBase)}
	default:
		return fmt.Errorf("%w: unknown result code %d", ErrGeneric, code)
	}
}

// CodeOf maps an error back to its boundary code. Unrecognized errors
// collapse to CodeGeneric; nil maps to CodeOK.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var native *NativeError
	switch {
	case errors.As(err, &native):
		return native.Code()
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidParam):
		return CodeInvalidParam
	case errors.Is(err, ErrNotInitialized):
		return CodeNotInitialized
	default:
		return CodeGeneric
	}
}
