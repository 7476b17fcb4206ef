// Package usbfslinux implements pipe.HostController against Linux's usbfs
// (/dev/bus/usb/BBB/DDD), letting this stack drive an already-enumerated
// real device without chip-specific register access. It is a demo/test
// backend, not the silicon-level driver spec §1 scopes out: the kernel's
// usb-core performs the actual bus reset and enumeration that a bare-metal
// backend's HostController FSM would otherwise own.
package usbfslinux

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// usbdevfs ioctl request codes, built the same way the teacher's usbfs
// package built them: IOWR/IOW/IOR/IO construct the request-code integer,
// the actual ioctl is a raw syscall (see backend.go).
var (
	reqControl        = ioctl.IOWR('U', 0, unsafe.Sizeof(usbdevfsCtrlTransfer{}))
	reqBulk           = ioctl.IOWR('U', 2, unsafe.Sizeof(usbdevfsBulkTransfer{}))
	reqSetInterface   = ioctl.IOR('U', 4, unsafe.Sizeof(usbdevfsSetInterface{}))
	reqClaimInterface = ioctl.IOR('U', 15, unsafe.Sizeof(uint32(0)))
	reqReset          = ioctl.IO('U', 20)
	reqClearHalt      = ioctl.IOR('U', 21, unsafe.Sizeof(uint32(0)))
)

// usbdevfsCtrlTransfer mirrors struct usbdevfs_ctrltransfer from
// linux/usbdevice_fs.h. Passed to the kernel by raw pointer (syscall.Syscall
// in backend.go), so its field layout must match the kernel ABI; Go's
// natural alignment for this field set matches the C struct's on amd64/arm64.
type usbdevfsCtrlTransfer struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
	Timeout     uint32
	Data        uintptr
}

// usbdevfsBulkTransfer mirrors struct usbdevfs_bulktransfer.
type usbdevfsBulkTransfer struct {
	Endpoint uint32
	Length   uint32
	Timeout  uint32
	Data     uintptr
}

// usbdevfsSetInterface mirrors struct usbdevfs_setinterface.
type usbdevfsSetInterface struct {
	Interface  uint32
	AltSetting uint32
}
