package pipe

import "github.com/usbhoststack/usbhost/usb"

// Token is the packet type the host puts on the bus to initiate a
// transaction.
type Token uint8

const (
	TokenSetup Token = iota
	TokenIn
	TokenOut
)

func (t Token) String() string {
	switch t {
	case TokenSetup:
		return "SETUP"
	case TokenIn:
		return "IN"
	case TokenOut:
		return "OUT"
	default:
		return "?"
	}
}

// HostEvent is emitted by a HostController's Update, translating hardware
// IRQ state into the one event the stack cares about per call.
type HostEvent uint8

const (
	EventNone HostEvent = iota
	EventReset
	EventReady
)

// HostController is the abstract bus interface the stack requires from any
// silicon backend (spec §6). Implementations own the actual register/DMA
// access; this package only calls through the interface.
type HostController interface {
	// Update drives one step of IRQ processing and returns at most one
	// HostEvent.
	Update() HostEvent

	// MaxHostPacketSize is the default control-pipe packet size for the
	// attached device's negotiated speed (8 for low-speed, 64 for
	// full-speed).
	MaxHostPacketSize() uint16

	// Now returns the current absolute tick count in milliseconds. The
	// stack never reads a real-time clock directly.
	Now() uint64

	// AfterMillis returns Now()+ms, letting backends redefine what
	// "tick" means without the stack depending on wall-clock time.
	AfterMillis(ms uint64) uint64

	// ControlTransfer runs a full SETUP/DATA/STATUS control transaction
	// against ep (the device's control endpoint). buf is the DATA-stage
	// payload; nil/empty means no DATA stage. It returns the number of
	// bytes transferred during the DATA stage.
	ControlTransfer(ep *usb.Endpoint, reqType usb.RequestType, reqCode uint8, value usb.WValue, index uint16, buf []byte) (int, error)

	// InTransfer issues one or more IN tokens on ep until buf is full or
	// a short packet terminates the transfer, per the short-packet
	// policy (spec §4.4).
	InTransfer(ep *usb.Endpoint, buf []byte) (int, error)

	// OutTransfer issues one or more OUT tokens on ep until buf is fully
	// sent. No short-packet early exit; the host defines the boundary.
	OutTransfer(ep *usb.Endpoint, buf []byte) (int, error)
}

// Timing constants from spec §6.
const (
	NakLimit           = 15
	UsbTimeoutMillis   = 5000
	PostResetSettleMs  = 20
	PostAddressSettle  = 10
	PostConfigSettleMs = 10
)
