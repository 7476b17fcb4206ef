package stack

import (
	"fmt"

	"github.com/usbhoststack/usbhost/usb"
)

// UsbErrorKind enumerates the stack-level error conditions (spec §7),
// distinct from the pipe engine's HostError.
type UsbErrorKind uint8

const (
	ErrAddressExhausted UsbErrorKind = iota
	ErrAddressAlreadySet
	ErrInvalidConfiguration
	ErrDescriptorTooBig
	ErrInvalidDescriptor
	ErrTooManyDevices
	ErrTooManyDrivers
	ErrTooManyEndpoints
	ErrGetDescriptor
	ErrSetAddress
	ErrSetConfiguration
	ErrSetInterface
	ErrBulkIn
	ErrBulkOut
	ErrInterrupt
	ErrTransferTypeMismatch
	ErrDirectionMismatch
)

func (k UsbErrorKind) String() string {
	switch k {
	case ErrAddressExhausted:
		return "address pool exhausted"
	case ErrAddressAlreadySet:
		return "address already set"
	case ErrInvalidConfiguration:
		return "invalid configuration number"
	case ErrDescriptorTooBig:
		return "descriptor exceeds internal buffer"
	case ErrInvalidDescriptor:
		return "malformed descriptor"
	case ErrTooManyDevices:
		return "too many devices"
	case ErrTooManyDrivers:
		return "too many drivers"
	case ErrTooManyEndpoints:
		return "too many endpoints"
	case ErrGetDescriptor:
		return "GET_DESCRIPTOR failed"
	case ErrSetAddress:
		return "SET_ADDRESS failed"
	case ErrSetConfiguration:
		return "SET_CONFIGURATION failed"
	case ErrSetInterface:
		return "SET_INTERFACE failed"
	case ErrBulkIn:
		return "bulk IN failed"
	case ErrBulkOut:
		return "bulk OUT failed"
	case ErrInterrupt:
		return "interrupt transfer failed"
	case ErrTransferTypeMismatch:
		return "transfer type mismatch"
	case ErrDirectionMismatch:
		return "direction mismatch"
	default:
		return "unknown stack error"
	}
}

// UsbError is the stack-level error type. Endpoint is non-nil for the
// wrapped-transfer-error kinds (GetDescriptor, SetAddress, ...); Err holds
// the underlying HostError in that case.
type UsbError struct {
	Kind     UsbErrorKind
	Endpoint *usb.Endpoint
	Err      error
}

func (e *UsbError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *UsbError) Unwrap() error { return e.Err }

// NewTransferError wraps a pipe-engine error with its stack-level context.
// Drivers use this to surface a failed Run-time transfer (BulkIn, BulkOut,
// Interrupt) through Device.Err with the same context the lifecycle FSM
// itself uses for GetDescriptor/SetAddress/SetConfiguration/SetInterface.
func NewTransferError(kind UsbErrorKind, ep *usb.Endpoint, err error) *UsbError {
	return &UsbError{Kind: kind, Endpoint: ep, Err: err}
}

// NewError constructs a stack-level error with no endpoint/transfer
// context, e.g. a collection overflow or a malformed descriptor.
func NewError(kind UsbErrorKind) *UsbError {
	return &UsbError{Kind: kind}
}
