package libkoki

import (
	"errors"
	"fmt"
)

var (
	// ErrLibraryLoad is returned when libkoki.so is absent or fails to load.
	ErrLibraryLoad = errors.New("library load failed")

	// ErrSymbolBinding is returned when a required symbol is missing or its
	// declared signature does not match the native records.
	ErrSymbolBinding = errors.New("symbol binding failed")

	// ErrDevice is returned when the capture device rejects a request.
	ErrDevice = errors.New("device error")

	// ErrForeignCall is returned when a native call breaks its return contract.
	ErrForeignCall = errors.New("foreign call error")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("library is closed")

	// ErrInvalidArgument is returned for arguments rejected before any native call.
	ErrInvalidArgument = errors.New("invalid argument")
)

// LoadError describes a failure to load the shared library.
type LoadError struct {
	Path   string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error { return ErrLibraryLoad }

// SymbolError describes a symbol that could not be bound.
type SymbolError struct {
	Symbol string
	Reason string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("bind %s: %s", e.Symbol, e.Reason)
}

func (e *SymbolError) Unwrap() error { return ErrSymbolBinding }

// DeviceError carries the status a device call returned.
type DeviceError struct {
	Op     string
	Device string
	Status int32
}

func (e *DeviceError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("%s %s: status %d", e.Op, e.Device, e.Status)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

func (e *DeviceError) Unwrap() error { return ErrDevice }

// ForeignCallError describes a native result that violates its contract.
type ForeignCallError struct {
	Symbol string
	Reason string
}

func (e *ForeignCallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Symbol, e.Reason)
}

func (e *ForeignCallError) Unwrap() error { return ErrForeignCall }
