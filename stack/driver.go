package stack

import (
	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/usb"
)

// Driver is the contract class drivers implement (spec §4.6). The stack
// polls accepted drivers each tick via Run.
type Driver interface {
	// Accept scans the configuration descriptor via parser and decides
	// whether this driver claims dev. parser is rewound by the caller
	// after this call returns, win or lose. First accepting driver wins.
	Accept(dev *Device, parser *usb.DescriptorParser) (class usb.ClassCode, configValue uint8, iface uint8, ok bool)

	// Register is called once the device's chosen configuration is set;
	// the driver records whatever endpoints it needs from parser.
	Register(dev *Device, parser *usb.DescriptorParser) error

	// Unregister is called on detach (bus reset) for any device this
	// driver previously accepted.
	Unregister(addr usb.DevAddress)

	// StateAfterConfigSet lets a driver return a transitional state
	// (e.g. HID's SET_PROTOCOL step) instead of going straight to
	// Running once SET_INTERFACE completes. Returning DeviceState{Kind:
	// StateRunning} skips the transition entirely.
	StateAfterConfigSet(ctrl pipe.HostController, dev *Device) DeviceState

	// AdvanceState is called once per tick while dev is in StateDriverStep
	// and its deadline has elapsed. It performs the SubState's request and
	// returns either the next DriverStep (incrementing SubState) or
	// DeviceState{Kind: StateRunning} once the driver-specific setup is
	// complete.
	AdvanceState(ctrl pipe.HostController, dev *Device, state DeviceState) DeviceState

	// Run is polled once per Update while dev is Running; it typically
	// performs interrupt-IN reads or services outbound queues.
	Run(ctrl pipe.HostController, dev *Device) error
}
