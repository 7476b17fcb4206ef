package usb

import "encoding/binary"

// ACInterfaceSubtype is the bDescriptorSubtype of an Audio Control
// class-specific interface descriptor (CS_INTERFACE, bInterfaceSubClass ==
// AudioSubclassControl).
type ACInterfaceSubtype uint8

const (
	ACHeader          ACInterfaceSubtype = 0x01
	ACInputTerminal   ACInterfaceSubtype = 0x02
	ACOutputTerminal  ACInterfaceSubtype = 0x03
	ACFeatureUnit     ACInterfaceSubtype = 0x06
	ACClockSource     ACInterfaceSubtype = 0x0A
	ACClockSelector   ACInterfaceSubtype = 0x0B
)

// ACInterfaceHeaderDescriptor is the mandatory first class-specific
// descriptor of an Audio Control interface; it states the Audio Function
// Class Specification release and the total size of the class-specific
// descriptor block that follows it.
type ACInterfaceHeaderDescriptor struct {
	Length         uint8
	DescriptorType DescriptorType
	Subtype        ACInterfaceSubtype
	BcdADC         uint16
	Category       uint8
	TotalLength    uint16
	Controls       uint8
}

// ParseACInterfaceHeaderDescriptor decodes a UAC2-style AC interface header
// (the layout used by the class descriptors this stack recognizes).
func ParseACInterfaceHeaderDescriptor(buf []byte) (ACInterfaceHeaderDescriptor, bool) {
	var h ACInterfaceHeaderDescriptor
	if len(buf) < 9 || buf[0] < 9 || buf[1] != uint8(DescriptorTypeClassInterface) {
		return h, false
	}
	h.Length = buf[0]
	h.DescriptorType = DescriptorType(buf[1])
	h.Subtype = ACInterfaceSubtype(buf[2])
	h.BcdADC = binary.LittleEndian.Uint16(buf[3:5])
	h.Category = buf[5]
	h.TotalLength = binary.LittleEndian.Uint16(buf[6:8])
	h.Controls = buf[8]
	return h, true
}

// ACClockSourceDescriptor names a clock entity available to downstream
// terminals and feature units.
type ACClockSourceDescriptor struct {
	Length          uint8
	DescriptorType  DescriptorType
	Subtype         ACInterfaceSubtype
	ClockID         uint8
	Attributes      uint8
	Controls        uint8
	AssocTerminal   uint8
	ClockSourceIdx  uint8
}

func ParseACClockSourceDescriptor(buf []byte) (ACClockSourceDescriptor, bool) {
	var c ACClockSourceDescriptor
	if len(buf) < 8 || buf[1] != uint8(DescriptorTypeClassInterface) || ACInterfaceSubtype(buf[2]) != ACClockSource {
		return c, false
	}
	c.Length = buf[0]
	c.DescriptorType = DescriptorType(buf[1])
	c.Subtype = ACInterfaceSubtype(buf[2])
	c.ClockID = buf[3]
	c.Attributes = buf[4]
	c.Controls = buf[5]
	c.AssocTerminal = buf[6]
	c.ClockSourceIdx = buf[7]
	return c, true
}

// ACClockSelectorDescriptor picks among one or more upstream clock sources.
// Pins is variable length: it aliases the NumPins source clock IDs in buf.
// The fields after the pin list are not decoded.
type ACClockSelectorDescriptor struct {
	Length         uint8
	DescriptorType DescriptorType
	Subtype        ACInterfaceSubtype
	ClockID        uint8
	NumPins        uint8
	Pins           []uint8
}

func ParseACClockSelectorDescriptor(buf []byte) (ACClockSelectorDescriptor, bool) {
	var s ACClockSelectorDescriptor
	if len(buf) < 5 || buf[1] != uint8(DescriptorTypeClassInterface) || ACInterfaceSubtype(buf[2]) != ACClockSelector {
		return s, false
	}
	numPins := buf[4]
	need := 5 + int(numPins)
	if len(buf) < need {
		return s, false
	}
	s.Length = buf[0]
	s.DescriptorType = DescriptorType(buf[1])
	s.Subtype = ACInterfaceSubtype(buf[2])
	s.ClockID = buf[3]
	s.NumPins = numPins
	s.Pins = buf[5:need]
	return s, true
}

// ACInputTerminalDescriptor describes an entity that introduces an audio
// stream into the function's audio topology (a microphone jack, a USB
// streaming input, etc).
type ACInputTerminalDescriptor struct {
	Length          uint8
	DescriptorType  DescriptorType
	Subtype         ACInterfaceSubtype
	TerminalID      uint8
	TerminalType    uint16
	AssocTerminal   uint8
	ClockSourceID   uint8
	NumChannels     uint8
	ChannelConfig   uint32
	ChannelNamesIdx uint8
	Controls        uint16
	TerminalIdx     uint8
}

func ParseACInputTerminalDescriptor(buf []byte) (ACInputTerminalDescriptor, bool) {
	var t ACInputTerminalDescriptor
	if len(buf) < 17 || buf[1] != uint8(DescriptorTypeClassInterface) || ACInterfaceSubtype(buf[2]) != ACInputTerminal {
		return t, false
	}
	t.Length = buf[0]
	t.DescriptorType = DescriptorType(buf[1])
	t.Subtype = ACInterfaceSubtype(buf[2])
	t.TerminalID = buf[3]
	t.TerminalType = binary.LittleEndian.Uint16(buf[4:6])
	t.AssocTerminal = buf[6]
	t.ClockSourceID = buf[7]
	t.NumChannels = buf[8]
	t.ChannelConfig = binary.LittleEndian.Uint32(buf[9:13])
	t.ChannelNamesIdx = buf[13]
	t.Controls = binary.LittleEndian.Uint16(buf[14:16])
	t.TerminalIdx = buf[16]
	return t, true
}

// ACOutputTerminalDescriptor describes an entity that terminates an audio
// stream (a speaker jack, a USB streaming output, etc).
type ACOutputTerminalDescriptor struct {
	Length         uint8
	DescriptorType DescriptorType
	Subtype        ACInterfaceSubtype
	TerminalID     uint8
	TerminalType   uint16
	AssocTerminal  uint8
	SourceID       uint8
	ClockSourceID  uint8
	Controls       uint16
	TerminalIdx    uint8
}

func ParseACOutputTerminalDescriptor(buf []byte) (ACOutputTerminalDescriptor, bool) {
	var t ACOutputTerminalDescriptor
	if len(buf) < 12 || buf[1] != uint8(DescriptorTypeClassInterface) || ACInterfaceSubtype(buf[2]) != ACOutputTerminal {
		return t, false
	}
	t.Length = buf[0]
	t.DescriptorType = DescriptorType(buf[1])
	t.Subtype = ACInterfaceSubtype(buf[2])
	t.TerminalID = buf[3]
	t.TerminalType = binary.LittleEndian.Uint16(buf[4:6])
	t.AssocTerminal = buf[6]
	t.SourceID = buf[7]
	t.ClockSourceID = buf[8]
	t.Controls = binary.LittleEndian.Uint16(buf[9:11])
	t.TerminalIdx = buf[11]
	return t, true
}

// ACFeatureUnitDescriptor applies per-channel controls (mute, volume, ...)
// to the signal coming from SourceID. ControlBitmaps holds one uint32 per
// channel (channel 0 is the master channel), sized NumChannels+1.
type ACFeatureUnitDescriptor struct {
	Length          uint8
	DescriptorType  DescriptorType
	Subtype         ACInterfaceSubtype
	UnitID          uint8
	SourceID        uint8
	ControlBitmaps  []uint32
	FeatureUnitIdx  uint8
}

func ParseACFeatureUnitDescriptor(buf []byte) (ACFeatureUnitDescriptor, bool) {
	var f ACFeatureUnitDescriptor
	if len(buf) < 7 || buf[1] != uint8(DescriptorTypeClassInterface) || ACInterfaceSubtype(buf[2]) != ACFeatureUnit {
		return f, false
	}
	total := int(buf[0])
	if len(buf) < total || total < 7 {
		return f, false
	}
	// Layout: hdr(3) unitID(1) sourceID(1) [ctrl(4)]* idx(1)
	nCtrl := (total - 3 - 1 - 1 - 1) / 4
	if nCtrl < 1 {
		return f, false
	}
	f.Length = buf[0]
	f.DescriptorType = DescriptorType(buf[1])
	f.Subtype = ACInterfaceSubtype(buf[2])
	f.UnitID = buf[3]
	f.SourceID = buf[4]
	f.ControlBitmaps = make([]uint32, nCtrl)
	off := 5
	for i := 0; i < nCtrl; i++ {
		f.ControlBitmaps[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}
	f.FeatureUnitIdx = buf[off]
	return f, true
}

// ASInterfaceSubtype is the bDescriptorSubtype of an Audio Streaming
// class-specific interface descriptor.
type ASInterfaceSubtype uint8

const (
	ASGeneral    ASInterfaceSubtype = 0x01
	ASFormatType ASInterfaceSubtype = 0x02
)

// ASInterfaceDescriptor is the general class-specific descriptor of an
// Audio Streaming interface's operational alternate setting.
type ASInterfaceDescriptor struct {
	Length          uint8
	DescriptorType  DescriptorType
	Subtype         ASInterfaceSubtype
	TerminalLink    uint8
	Controls        uint8
	FormatType      uint8
	Formats         uint32
	NumChannels     uint8
	ChannelConfig   uint32
	ChannelNamesIdx uint8
}

func ParseASInterfaceDescriptor(buf []byte) (ASInterfaceDescriptor, bool) {
	var a ASInterfaceDescriptor
	if len(buf) < 16 || buf[1] != uint8(DescriptorTypeClassInterface) || ASInterfaceSubtype(buf[2]) != ASGeneral {
		return a, false
	}
	a.Length = buf[0]
	a.DescriptorType = DescriptorType(buf[1])
	a.Subtype = ASInterfaceSubtype(buf[2])
	a.TerminalLink = buf[3]
	a.Controls = buf[4]
	a.FormatType = buf[5]
	a.Formats = binary.LittleEndian.Uint32(buf[6:10])
	a.NumChannels = buf[10]
	a.ChannelConfig = binary.LittleEndian.Uint32(buf[11:15])
	a.ChannelNamesIdx = buf[15]
	return a, true
}

// ASFormatType1Descriptor describes a PCM-style format's subslot size and
// bit resolution.
type ASFormatType1Descriptor struct {
	Length          uint8
	DescriptorType  DescriptorType
	Subtype         ASInterfaceSubtype
	FormatType      uint8
	SubslotSize     uint8
	BitResolution   uint8
}

func ParseASFormatType1Descriptor(buf []byte) (ASFormatType1Descriptor, bool) {
	var f ASFormatType1Descriptor
	if len(buf) < 6 || buf[1] != uint8(DescriptorTypeClassInterface) || ASInterfaceSubtype(buf[2]) != ASFormatType {
		return f, false
	}
	f.Length = buf[0]
	f.DescriptorType = DescriptorType(buf[1])
	f.Subtype = ASInterfaceSubtype(buf[2])
	f.FormatType = buf[3]
	f.SubslotSize = buf[4]
	f.BitResolution = buf[5]
	return f, true
}

// ASEndpointSubtype is the bDescriptorSubtype of an Audio Streaming
// class-specific endpoint descriptor (CS_ENDPOINT).
type ASEndpointSubtype uint8

const ASEndpointGeneral ASEndpointSubtype = 0x01

// ASEndpointDescriptor carries isochronous-endpoint attributes (pitch
// control, sample-rate feedback) not expressible in the standard endpoint
// descriptor.
type ASEndpointDescriptor struct {
	Length          uint8
	DescriptorType  DescriptorType
	Subtype         ASEndpointSubtype
	Attributes      uint8
	Controls        uint8
	LockDelayUnits  uint8
	LockDelay       uint16
}

func ParseASEndpointDescriptor(buf []byte) (ASEndpointDescriptor, bool) {
	var e ASEndpointDescriptor
	if len(buf) < 8 || buf[1] != uint8(DescriptorTypeClassEndpoint) {
		return e, false
	}
	e.Length = buf[0]
	e.DescriptorType = DescriptorType(buf[1])
	e.Subtype = ASEndpointSubtype(buf[2])
	e.Attributes = buf[3]
	e.Controls = buf[4]
	e.LockDelayUnits = buf[5]
	e.LockDelay = binary.LittleEndian.Uint16(buf[6:8])
	return e, true
}
