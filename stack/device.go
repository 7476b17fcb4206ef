package stack

import "github.com/usbhoststack/usbhost/usb"

// MaxDevices, MaxDrivers bound the stack's fixed-capacity collections
// (spec §5 "Allocation: none").
const (
	MaxDevices = 16
	MaxDrivers = 4

	// MaxConfigDescriptorSize bounds the per-device scratch buffer that
	// holds one GET_DESCRIPTOR(Configuration) response. Descriptor sets
	// larger than this are rejected with ErrDescriptorTooBig rather than
	// growing the buffer.
	MaxConfigDescriptorSize = 512
)

// DeviceStateKind is the lifecycle FSM's state tag (spec §3/§4.2).
type DeviceStateKind uint8

const (
	StateSetAddress DeviceStateKind = iota
	StateSetConfig
	StateSetInterface
	// StateDriverStep is the optional {SetReport | SetIdle}? leg between
	// SetInterface and Running (spec §3): a driver that needs one or
	// more class-specific follow-up requests before it is ready returns
	// this from StateAfterConfigSet, then walks SubState forward via
	// AdvanceState until it returns StateRunning.
	StateDriverStep
	StateRunning
	StateOrphan
)

func (k DeviceStateKind) String() string {
	switch k {
	case StateSetAddress:
		return "SetAddress"
	case StateSetConfig:
		return "SetConfig"
	case StateSetInterface:
		return "SetInterface"
	case StateDriverStep:
		return "DriverStep"
	case StateRunning:
		return "Running"
	case StateOrphan:
		return "Orphan"
	default:
		return "?"
	}
}

// DeviceState carries the payload each lifecycle state needs: a settle
// deadline for SetConfig/SetInterface/DriverStep, the target interface
// number for SetInterface, and a driver-private SubState counter for
// DriverStep.
type DeviceState struct {
	Kind     DeviceStateKind
	Deadline uint64
	Iface    uint8
	SubState uint8
}

// Device is one attached USB device as tracked by the lifecycle FSM. No
// driver ever holds a Device beyond the duration of a Run call.
type Device struct {
	Address   usb.DevAddress
	ControlEP usb.Endpoint
	State     DeviceState
	DriverIdx int // -1 until a driver accepts this device

	Descriptor usb.DeviceDescriptor
	ConfigDesc usb.ConfigDescriptor

	// Err freezes the device in its current state once set; update_dev
	// is then a no-op for this device until detach.
	Err error

	configBuf [MaxConfigDescriptorSize]byte
	configLen int
}

// newDevice returns a fresh device at the start of its lifecycle, address
// 0 (the default address), state SetAddress.
func newDevice() *Device {
	return &Device{
		DriverIdx: -1,
		ControlEP: usb.NewEndpoint(0, usb.NewEndpointAddress(usb.DirOut, 0), usb.TransferControl, 8),
		State:     DeviceState{Kind: StateSetAddress},
	}
}

// ConfigDescriptorBytes returns the full configuration descriptor set
// fetched during SetConfig, for use by DescriptorParser.
func (d *Device) ConfigDescriptorBytes() []byte {
	return d.configBuf[:d.configLen]
}
