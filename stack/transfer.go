package stack

import (
	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/usb"
)

// BulkIn performs one bulk IN transfer on ep, validating its transfer type
// and direction before dispatch and wrapping any non-NAK transfer error as
// UsbError{Kind: ErrBulkIn} (spec §7). A NAK is returned unwrapped so
// callers can keep testing it with pipe.IsNak.
func BulkIn(ctrl pipe.HostController, ep *usb.Endpoint, buf []byte) (int, error) {
	if ep.Type != usb.TransferBulk {
		return 0, NewError(ErrTransferTypeMismatch)
	}
	if !ep.Address.IsIn() {
		return 0, NewError(ErrDirectionMismatch)
	}
	n, err := ctrl.InTransfer(ep, buf)
	if err != nil && !pipe.IsNak(err) {
		return n, NewTransferError(ErrBulkIn, ep, err)
	}
	return n, err
}

// BulkOut performs one bulk OUT transfer on ep, with the same validation
// and wrapping as BulkIn, surfacing UsbError{Kind: ErrBulkOut}.
func BulkOut(ctrl pipe.HostController, ep *usb.Endpoint, buf []byte) (int, error) {
	if ep.Type != usb.TransferBulk {
		return 0, NewError(ErrTransferTypeMismatch)
	}
	if ep.Address.IsIn() {
		return 0, NewError(ErrDirectionMismatch)
	}
	n, err := ctrl.OutTransfer(ep, buf)
	if err != nil && !pipe.IsNak(err) {
		return n, NewTransferError(ErrBulkOut, ep, err)
	}
	return n, err
}

// Interrupt performs one interrupt IN transfer on ep, with the same
// validation and wrapping as BulkIn, surfacing UsbError{Kind: ErrInterrupt}.
func Interrupt(ctrl pipe.HostController, ep *usb.Endpoint, buf []byte) (int, error) {
	if ep.Type != usb.TransferInterrupt {
		return 0, NewError(ErrTransferTypeMismatch)
	}
	if !ep.Address.IsIn() {
		return 0, NewError(ErrDirectionMismatch)
	}
	n, err := ctrl.InTransfer(ep, buf)
	if err != nil && !pipe.IsNak(err) {
		return n, NewTransferError(ErrInterrupt, ep, err)
	}
	return n, err
}
