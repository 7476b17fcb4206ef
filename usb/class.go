package usb

import "fmt"

// ClassCode and SubClass are the class/subclass codes assigned by the
// USB-IF (https://www.usb.org/defined-class-codes), usable at either the
// device or the interface level.
type (
	ClassCode uint8
	SubClass  uint8
)

func (c ClassCode) String() string {
	if s, ok := classCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Class(0x%02X)", uint8(c))
}

// Class codes this stack's descriptor parser and drivers care about. Only
// the classes needed to recognize the boot-keyboard and USB-MIDI drivers
// (plus a handful of common ones for logging/diagnostics) are enumerated;
// unrecognized classes still parse fine, they just print numerically.
const (
	ClassUseInterfaceDescriptors ClassCode = 0x00
	ClassAudio                   ClassCode = 0x01
	ClassHID                     ClassCode = 0x03
	ClassPrinter                 ClassCode = 0x07
	ClassMassStorage             ClassCode = 0x08
	ClassHub                     ClassCode = 0x09
	ClassVendorSpecific          ClassCode = 0xFF
)

var classCodeNames = map[ClassCode]string{
	ClassUseInterfaceDescriptors: "UseInterfaceDescriptors",
	ClassAudio:                   "Audio",
	ClassHID:                     "HID",
	ClassPrinter:                 "Printer",
	ClassMassStorage:             "MassStorage",
	ClassHub:                     "Hub",
	ClassVendorSpecific:          "VendorSpecific",
}

// Audio Interface subclasses (USB Audio Class spec), used to route
// class-specific descriptors inside an Audio interface.
const (
	AudioSubclassControl   SubClass = 0x01
	AudioSubclassStreaming SubClass = 0x02
	AudioSubclassMIDI      SubClass = 0x03
)

// HID interface subclass/protocol values relevant to boot-protocol devices.
const (
	HIDSubclassBoot    SubClass = 0x01
	HIDProtocolNone    uint8    = 0x00
	HIDProtocolKeyboard uint8   = 0x01
	HIDProtocolMouse   uint8    = 0x02
)
