package usbfslinux

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/usb"
)

// ioctlTimeoutMillis bounds every individual usbfs ioctl call; sync_tx's own
// NAK-retry/soft-timeout logic in the pipe package does not apply here
// since usbfs performs the whole transfer (including retry) in the kernel.
const ioctlTimeoutMillis = 1000

// Backend drives one already-connected Linux USB device through usbfs. It
// implements pipe.HostController directly rather than composing a
// pipe.Engine: usbfs's ioctls already perform the full SETUP/DATA/STATUS
// staging and toggle bookkeeping in the kernel driver, so there is no
// lower-level RawBus for Engine to sit on.
type Backend struct {
	fd    int
	start time.Time
	stage uint8
}

const (
	stageReset uint8 = iota
	stageReady
	stageDone
)

// Open opens /dev/bus/usb/<bus>/<device> for read-write ioctl access.
func Open(bus, device int) (*Backend, error) {
	path := fmt.Sprintf("/dev/bus/usb/%03d/%03d", bus, device)
	fd, err := syscall.Open(path, syscall.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("usbfslinux: open %s: %w", path, err)
	}
	return &Backend{fd: fd, start: time.Now()}, nil
}

// Close releases the underlying file descriptor.
func (b *Backend) Close() error {
	return syscall.Close(b.fd)
}

// Update reports the device as freshly reset then ready exactly once, since
// usbfs hands us an already-enumerated device with no IRQ stream of our own
// to poll: one call drives EventReset (UsbStack drops any prior device and
// arms a fresh one), the next drives EventReady (UsbStack enrolls it and
// starts the lifecycle FSM), every call after that is EventNone.
func (b *Backend) Update() pipe.HostEvent {
	switch b.stage {
	case stageReset:
		b.stage = stageReady
		return pipe.EventReset
	case stageReady:
		b.stage = stageDone
		return pipe.EventReady
	default:
		return pipe.EventNone
	}
}

func (b *Backend) MaxHostPacketSize() uint16 { return 64 } // full-speed default

func (b *Backend) Now() uint64 { return uint64(time.Since(b.start).Milliseconds()) }

func (b *Backend) AfterMillis(ms uint64) uint64 { return b.Now() + ms }

// ControlTransfer issues one USBDEVFS_CONTROL ioctl.
func (b *Backend) ControlTransfer(ep *usb.Endpoint, reqType usb.RequestType, reqCode uint8, value usb.WValue, index uint16, buf []byte) (int, error) {
	arg := usbdevfsCtrlTransfer{
		RequestType: uint8(reqType),
		Request:     reqCode,
		Value:       uint16(value),
		Index:       index,
		Length:      uint16(len(buf)),
		Timeout:     ioctlTimeoutMillis,
	}
	if len(buf) > 0 {
		arg.Data = uintptr(unsafe.Pointer(&buf[0]))
	}
	n, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(b.fd), uintptr(reqControl), uintptr(unsafe.Pointer(&arg)))
	if errno != 0 {
		return int(n), translateErrno(errno)
	}
	return int(n), nil
}

// InTransfer issues one USBDEVFS_BULK ioctl reading into buf.
func (b *Backend) InTransfer(ep *usb.Endpoint, buf []byte) (int, error) {
	return b.bulkTransfer(ep, buf)
}

// OutTransfer issues one USBDEVFS_BULK ioctl writing buf.
func (b *Backend) OutTransfer(ep *usb.Endpoint, buf []byte) (int, error) {
	return b.bulkTransfer(ep, buf)
}

func (b *Backend) bulkTransfer(ep *usb.Endpoint, buf []byte) (int, error) {
	arg := usbdevfsBulkTransfer{
		Endpoint: uint32(ep.Address),
		Length:   uint32(len(buf)),
		Timeout:  ioctlTimeoutMillis,
	}
	if len(buf) > 0 {
		arg.Data = uintptr(unsafe.Pointer(&buf[0]))
	}
	n, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(b.fd), uintptr(reqBulk), uintptr(unsafe.Pointer(&arg)))
	if errno != 0 {
		return int(n), translateErrno(errno)
	}
	return int(n), nil
}

// ClaimInterface claims iface exclusively, required by usbfs before any
// transfer addressed to one of its endpoints succeeds.
func (b *Backend) ClaimInterface(iface int) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(b.fd), uintptr(reqClaimInterface), uintptr(iface))
	if errno != 0 {
		return translateErrno(errno)
	}
	return nil
}

// SetInterface issues USBDEVFS_SETINTERFACE; this stack's SET_INTERFACE
// control request (usb.ReqSetInterface) already does the wire-level
// equivalent, but usbfs additionally wants this ioctl so the kernel updates
// its own endpoint bookkeeping for subsequent bulk/interrupt transfers.
func (b *Backend) SetInterface(iface, altSetting int) error {
	arg := usbdevfsSetInterface{Interface: uint32(iface), AltSetting: uint32(altSetting)}
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(b.fd), uintptr(reqSetInterface), uintptr(unsafe.Pointer(&arg)))
	if errno != 0 {
		return translateErrno(errno)
	}
	return nil
}

// Reset issues USBDEVFS_RESET, used when a device's control pipe has
// stalled badly enough that clearing the individual endpoint halt isn't
// enough to recover it.
func (b *Backend) Reset() error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(b.fd), uintptr(reqReset), 0)
	if errno != 0 {
		return translateErrno(errno)
	}
	return nil
}

// ClearHalt issues USBDEVFS_CLEAR_HALT on ep, resetting its data toggle and
// lifting a STALL condition latched in the kernel's endpoint state.
func (b *Backend) ClearHalt(ep *usb.Endpoint) error {
	epAddr := uint32(ep.Address)
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(b.fd), uintptr(reqClearHalt), uintptr(unsafe.Pointer(&epAddr)))
	if errno != 0 {
		return translateErrno(errno)
	}
	return nil
}

// translateErrno maps a usbfs ioctl errno to the pipe package's HostError
// kinds (spec §7), the boundary between this backend's OS-level failures
// and the stack's device-agnostic error model. An errno not listed below is
// returned wrapped in a plain error, not as a HostError.
func translateErrno(errno syscall.Errno) error {
	switch errno {
	case syscall.EPIPE:
		return pipe.NewHostError(pipe.ErrStall)
	case syscall.ETIMEDOUT:
		return pipe.NewHostError(pipe.ErrHardTimeout)
	case syscall.EAGAIN, syscall.EBUSY:
		return pipe.NewHostError(pipe.ErrNak)
	case syscall.EPROTO, syscall.EILSEQ:
		return pipe.NewHostError(pipe.ErrCrc)
	case syscall.EOVERFLOW:
		return pipe.NewHostError(pipe.ErrFail)
	default:
		return fmt.Errorf("usbfslinux: ioctl: %w", errno)
	}
}
