package usb

import "encoding/binary"

// HID class-specific descriptor types, not part of the standard Table 9-5
// set but numbered out of the same namespace.
const (
	DescriptorTypeHID      DescriptorType = 0x21
	DescriptorTypeReport   DescriptorType = 0x22
	DescriptorTypePhysical DescriptorType = 0x23
)

// HID class-specific requests (bRequest), HID 1.11 §7.2.
const (
	HIDReqGetReport   uint8 = 0x01
	HIDReqGetIdle     uint8 = 0x02
	HIDReqGetProtocol uint8 = 0x03
	HIDReqSetReport   uint8 = 0x09
	HIDReqSetIdle     uint8 = 0x0A
	HIDReqSetProtocol uint8 = 0x0B
)

// HID protocol values for GET_PROTOCOL/SET_PROTOCOL, only Boot is relevant
// to this stack's keyboard driver.
const (
	HIDProtocolBoot   uint8 = 0
	HIDProtocolReport uint8 = 1
)

// HIDDescriptor is the class-specific descriptor that follows a HID
// interface descriptor, naming the report descriptor's length and any
// optional (physical) descriptors.
type HIDDescriptor struct {
	Length                   uint8
	DescriptorType           DescriptorType
	BcdHID                   uint16
	CountryCode              uint8
	NumDescriptors           uint8
	ReportDescriptorType     DescriptorType
	ReportDescriptorLength   uint16
}

// ParseHIDDescriptor decodes the minimal (single sub-descriptor) HID
// descriptor layout; additional optional descriptors beyond the report
// descriptor are not used by this stack's drivers and are ignored.
func ParseHIDDescriptor(buf []byte) (HIDDescriptor, bool) {
	var h HIDDescriptor
	if len(buf) < 9 || buf[1] != uint8(DescriptorTypeHID) {
		return h, false
	}
	h.Length = buf[0]
	h.DescriptorType = DescriptorType(buf[1])
	h.BcdHID = binary.LittleEndian.Uint16(buf[2:4])
	h.CountryCode = buf[4]
	h.NumDescriptors = buf[5]
	h.ReportDescriptorType = DescriptorType(buf[6])
	h.ReportDescriptorLength = binary.LittleEndian.Uint16(buf[7:9])
	return h, true
}

// BootKeyboardReportSize is the fixed 8-byte report layout boot-protocol
// keyboards use (HID 1.11 Appendix B): modifier byte, reserved byte, and
// six keycode slots.
const BootKeyboardReportSize = 8

// BootKeyboardReport is a decoded boot-protocol keyboard input report.
type BootKeyboardReport struct {
	Modifiers uint8
	Keycodes  [6]uint8
}

// ParseBootKeyboardReport decodes an 8-byte boot-protocol keyboard report.
func ParseBootKeyboardReport(buf []byte) (BootKeyboardReport, bool) {
	if len(buf) < BootKeyboardReportSize {
		return BootKeyboardReport{}, false
	}
	var r BootKeyboardReport
	r.Modifiers = buf[0]
	copy(r.Keycodes[:], buf[2:8])
	return r, true
}
