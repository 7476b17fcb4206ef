package usb

import "encoding/binary"

// DescriptorType is the bDescriptorType field shared by every descriptor
// header (standard, class- and vendor-specific alike).
type DescriptorType uint8

// Standard descriptor types, USB 2.0 Table 9-5.
const (
	DescriptorTypeDevice                  DescriptorType = 0x01
	DescriptorTypeConfiguration           DescriptorType = 0x02
	DescriptorTypeString                  DescriptorType = 0x03
	DescriptorTypeInterface               DescriptorType = 0x04
	DescriptorTypeEndpoint                DescriptorType = 0x05
	DescriptorTypeInterfaceAssociation    DescriptorType = 0x0B
	DescriptorTypeClassInterface          DescriptorType = 0x24 // CS_INTERFACE
	DescriptorTypeClassEndpoint           DescriptorType = 0x25 // CS_ENDPOINT
)

// Fixed sizes of the standard descriptors, per spec §6.
const (
	DeviceDescriptorSize    = 18
	ConfigDescriptorSize    = 9
	InterfaceDescriptorSize = 9
	EndpointDescriptorSize  = 7
	IADescriptorSize        = 8
)

// DeviceDescriptor describes general, configuration-independent information
// about a device. A device has exactly one.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    DescriptorType
	BcdUSB            uint16
	DeviceClass       ClassCode
	DeviceSubClass    SubClass
	DeviceProtocol    uint8
	MaxPacketSize0    uint8 // actual byte count, not an exponent
	VendorID          uint16
	ProductID         uint16
	BcdDevice         uint16
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// ParseDeviceDescriptor decodes buf (exactly DeviceDescriptorSize bytes or
// more, only the first 18 are read) into a DeviceDescriptor. It returns
// false if buf is too short or bLength/bDescriptorType do not match.
func ParseDeviceDescriptor(buf []byte) (DeviceDescriptor, bool) {
	var d DeviceDescriptor
	if len(buf) < DeviceDescriptorSize || buf[0] < DeviceDescriptorSize || buf[1] != uint8(DescriptorTypeDevice) {
		return d, false
	}
	d.Length = buf[0]
	d.DescriptorType = DescriptorType(buf[1])
	d.BcdUSB = binary.LittleEndian.Uint16(buf[2:4])
	d.DeviceClass = ClassCode(buf[4])
	d.DeviceSubClass = SubClass(buf[5])
	d.DeviceProtocol = buf[6]
	d.MaxPacketSize0 = buf[7]
	d.VendorID = binary.LittleEndian.Uint16(buf[8:10])
	d.ProductID = binary.LittleEndian.Uint16(buf[10:12])
	d.BcdDevice = binary.LittleEndian.Uint16(buf[12:14])
	d.ManufacturerIndex = buf[14]
	d.ProductIndex = buf[15]
	d.SerialNumberIndex = buf[16]
	d.NumConfigurations = buf[17]
	return d, true
}

// ConfigDescriptor describes one configuration: its total descriptor-set
// length, the interface count, and power characteristics.
type ConfigDescriptor struct {
	Length             uint8
	DescriptorType     DescriptorType
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	ConfigurationIndex uint8
	Attributes         uint8
	MaxPower           uint8
}

func ParseConfigDescriptor(buf []byte) (ConfigDescriptor, bool) {
	var c ConfigDescriptor
	if len(buf) < ConfigDescriptorSize || buf[0] < ConfigDescriptorSize || buf[1] != uint8(DescriptorTypeConfiguration) {
		return c, false
	}
	c.Length = buf[0]
	c.DescriptorType = DescriptorType(buf[1])
	c.TotalLength = binary.LittleEndian.Uint16(buf[2:4])
	c.NumInterfaces = buf[4]
	c.ConfigurationValue = buf[5]
	c.ConfigurationIndex = buf[6]
	c.Attributes = buf[7]
	c.MaxPower = buf[8]
	return c, true
}

// InterfaceDescriptor describes one interface (or alternate setting) within
// a configuration.
type InterfaceDescriptor struct {
	Length            uint8
	DescriptorType    DescriptorType
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    ClassCode
	InterfaceSubClass SubClass
	InterfaceProtocol uint8
	InterfaceIndex    uint8
}

func ParseInterfaceDescriptor(buf []byte) (InterfaceDescriptor, bool) {
	var i InterfaceDescriptor
	if len(buf) < InterfaceDescriptorSize || buf[0] < InterfaceDescriptorSize || buf[1] != uint8(DescriptorTypeInterface) {
		return i, false
	}
	i.Length = buf[0]
	i.DescriptorType = DescriptorType(buf[1])
	i.InterfaceNumber = buf[2]
	i.AlternateSetting = buf[3]
	i.NumEndpoints = buf[4]
	i.InterfaceClass = ClassCode(buf[5])
	i.InterfaceSubClass = SubClass(buf[6])
	i.InterfaceProtocol = buf[7]
	i.InterfaceIndex = buf[8]
	return i, true
}

// EndpointDescriptor describes the bandwidth requirements and identity of a
// non-control endpoint. There is never an endpoint descriptor for EP0.
type EndpointDescriptor struct {
	Length         uint8
	DescriptorType DescriptorType
	Address        EndpointAddress
	Attributes     uint8
	MaxPacketSize  uint16
	Interval       uint8
}

func ParseEndpointDescriptor(buf []byte) (EndpointDescriptor, bool) {
	var e EndpointDescriptor
	if len(buf) < EndpointDescriptorSize || buf[0] < EndpointDescriptorSize || buf[1] != uint8(DescriptorTypeEndpoint) {
		return e, false
	}
	e.Length = buf[0]
	e.DescriptorType = DescriptorType(buf[1])
	e.Address = EndpointAddress(buf[2])
	e.Attributes = buf[3]
	e.MaxPacketSize = binary.LittleEndian.Uint16(buf[4:6])
	e.Interval = buf[6]
	return e, true
}

// TransferType decodes bits 1:0 of bmAttributes.
func (e EndpointDescriptor) TransferType() TransferType {
	return TransferType(e.Attributes & 0x03)
}

// InterfaceAssociationDescriptor groups two or more interfaces (and all
// their alternate settings) into a single function, e.g. USB-MIDI's
// Audio Control + MIDIStreaming pair.
type InterfaceAssociationDescriptor struct {
	Length          uint8
	DescriptorType  DescriptorType
	FirstInterface  uint8
	InterfaceCount  uint8
	FunctionClass   ClassCode
	FunctionSubClass SubClass
	FunctionProtocol uint8
	FunctionIndex   uint8
}

func ParseInterfaceAssociationDescriptor(buf []byte) (InterfaceAssociationDescriptor, bool) {
	var a InterfaceAssociationDescriptor
	if len(buf) < IADescriptorSize || buf[0] < IADescriptorSize || buf[1] != uint8(DescriptorTypeInterfaceAssociation) {
		return a, false
	}
	a.Length = buf[0]
	a.DescriptorType = DescriptorType(buf[1])
	a.FirstInterface = buf[2]
	a.InterfaceCount = buf[3]
	a.FunctionClass = ClassCode(buf[4])
	a.FunctionSubClass = SubClass(buf[5])
	a.FunctionProtocol = buf[6]
	a.FunctionIndex = buf[7]
	return a, true
}

// StringDescriptor holds raw UTF-16LE text with no terminating NUL, per
// spec §4.5. Index 0 instead returns an array of 2-byte LANGIDs; callers
// distinguish by the index they requested.
type StringDescriptor struct {
	Length         uint8
	DescriptorType DescriptorType
	Raw            []byte // UTF-16LE code units, (Length-2) bytes
}

func ParseStringDescriptor(buf []byte) (StringDescriptor, bool) {
	var s StringDescriptor
	if len(buf) < 2 || buf[1] != uint8(DescriptorTypeString) || int(buf[0]) > len(buf) {
		return s, false
	}
	s.Length = buf[0]
	s.DescriptorType = DescriptorType(buf[1])
	s.Raw = buf[2:s.Length]
	return s, true
}

// DecodeUTF16LE converts raw UTF-16LE code units (as found in Raw) to a Go
// string. Surrogate pairs outside the BMP are not supported; USB string
// descriptors in practice never carry them.
func DecodeUTF16LE(raw []byte) string {
	runes := make([]rune, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		runes = append(runes, rune(uint16(raw[i])|uint16(raw[i+1])<<8))
	}
	return string(runes)
}
