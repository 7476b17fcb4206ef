package usb

// MSInterfaceSubtype is the bDescriptorSubtype of a MIDIStreaming
// class-specific interface descriptor.
type MSInterfaceSubtype uint8

const (
	MSHeader  MSInterfaceSubtype = 0x01
	MSInJack  MSInterfaceSubtype = 0x02
	MSOutJack MSInterfaceSubtype = 0x03
)

// MSEndpointSubtype is the bDescriptorSubtype of a MIDIStreaming
// class-specific endpoint descriptor.
type MSEndpointSubtype uint8

const MSEndpointGeneral MSEndpointSubtype = 0x01

// JackType distinguishes a jack wired to another entity inside the device
// (Embedded) from one wired to a physical or virtual MIDI connector that
// leaves the function (External).
type JackType uint8

const (
	JackEmbedded JackType = 0x01
	JackExternal JackType = 0x02
)

// MSInterfaceHeaderDescriptor is the mandatory first class-specific
// descriptor of a MIDIStreaming interface.
type MSInterfaceHeaderDescriptor struct {
	Length         uint8
	DescriptorType DescriptorType
	Subtype        MSInterfaceSubtype
	BcdMSC         uint16
	TotalLength    uint16
}

func ParseMSInterfaceHeaderDescriptor(buf []byte) (MSInterfaceHeaderDescriptor, bool) {
	var h MSInterfaceHeaderDescriptor
	if len(buf) < 7 || buf[1] != uint8(DescriptorTypeClassInterface) || MSInterfaceSubtype(buf[2]) != MSHeader {
		return h, false
	}
	h.Length = buf[0]
	h.DescriptorType = DescriptorType(buf[1])
	h.Subtype = MSInterfaceSubtype(buf[2])
	h.BcdMSC = uint16(buf[3]) | uint16(buf[4])<<8
	h.TotalLength = uint16(buf[5]) | uint16(buf[6])<<8
	return h, true
}

// MSInJackDescriptor describes a MIDI IN jack: an entity accepting MIDI
// data and presenting it inside the device's MIDI topology.
type MSInJackDescriptor struct {
	Length         uint8
	DescriptorType DescriptorType
	Subtype        MSInterfaceSubtype
	JackType       JackType
	JackID         uint8
	JackIdx        uint8
}

func ParseMSInJackDescriptor(buf []byte) (MSInJackDescriptor, bool) {
	var j MSInJackDescriptor
	if len(buf) < 6 || buf[1] != uint8(DescriptorTypeClassInterface) || MSInterfaceSubtype(buf[2]) != MSInJack {
		return j, false
	}
	j.Length = buf[0]
	j.DescriptorType = DescriptorType(buf[1])
	j.Subtype = MSInterfaceSubtype(buf[2])
	j.JackType = JackType(buf[3])
	j.JackID = buf[4]
	j.JackIdx = buf[5]
	return j, true
}

// MSOutJackDescriptor describes a MIDI OUT jack: an entity that gathers
// MIDI data from one or more source pins and emits it. SourceIDs/SourcePins
// are parallel arrays of length NumInputPins.
type MSOutJackDescriptor struct {
	Length        uint8
	DescriptorType DescriptorType
	Subtype       MSInterfaceSubtype
	JackType      JackType
	JackID        uint8
	NumInputPins  uint8
	SourceIDs     []uint8
	SourcePins    []uint8
	JackIdx       uint8
}

func ParseMSOutJackDescriptor(buf []byte) (MSOutJackDescriptor, bool) {
	var j MSOutJackDescriptor
	if len(buf) < 7 || buf[1] != uint8(DescriptorTypeClassInterface) || MSInterfaceSubtype(buf[2]) != MSOutJack {
		return j, false
	}
	numPins := buf[5]
	need := 7 + 2*int(numPins)
	if len(buf) < need {
		return j, false
	}
	j.Length = buf[0]
	j.DescriptorType = DescriptorType(buf[1])
	j.Subtype = MSInterfaceSubtype(buf[2])
	j.JackType = JackType(buf[3])
	j.JackID = buf[4]
	j.NumInputPins = numPins
	j.SourceIDs = make([]uint8, numPins)
	j.SourcePins = make([]uint8, numPins)
	off := 6
	for i := 0; i < int(numPins); i++ {
		j.SourceIDs[i] = buf[off]
		j.SourcePins[i] = buf[off+1]
		off += 2
	}
	j.JackIdx = buf[off]
	return j, true
}

// MSEndpointDescriptor lists the jacks a MIDIStreaming bulk endpoint
// carries data for, one jack ID per embedded MIDI cable.
type MSEndpointDescriptor struct {
	Length          uint8
	DescriptorType  DescriptorType
	Subtype         MSEndpointSubtype
	NumEmbMIDIJack  uint8
	AssocJackIDs    []uint8
}

func ParseMSEndpointDescriptor(buf []byte) (MSEndpointDescriptor, bool) {
	var e MSEndpointDescriptor
	if len(buf) < 4 || buf[1] != uint8(DescriptorTypeClassEndpoint) || MSEndpointSubtype(buf[2]) != MSEndpointGeneral {
		return e, false
	}
	n := buf[3]
	need := 4 + int(n)
	if len(buf) < need {
		return e, false
	}
	e.Length = buf[0]
	e.DescriptorType = DescriptorType(buf[1])
	e.Subtype = MSEndpointSubtype(buf[2])
	e.NumEmbMIDIJack = n
	e.AssocJackIDs = buf[4:need]
	return e, true
}

// MIDIEventPacket is a USB-MIDI Event Packet: 4 bytes, a cable number and
// code index in the first byte followed by up to 3 bytes of MIDI data
// (USB-MIDI 1.0 §4).
type MIDIEventPacket struct {
	CableNumber   uint8
	CodeIndex     uint8
	MIDI0, MIDI1, MIDI2 uint8
}

// ParseMIDIEventPacket decodes one 4-byte USB-MIDI Event Packet.
func ParseMIDIEventPacket(buf []byte) (MIDIEventPacket, bool) {
	if len(buf) < 4 {
		return MIDIEventPacket{}, false
	}
	return MIDIEventPacket{
		CableNumber: buf[0] >> 4,
		CodeIndex:   buf[0] & 0x0F,
		MIDI0:       buf[1],
		MIDI1:       buf[2],
		MIDI2:       buf[3],
	}, true
}

// Bytes packs the event packet into its 4-byte wire form.
func (p MIDIEventPacket) Bytes() [4]byte {
	return [4]byte{
		(p.CableNumber << 4) | (p.CodeIndex & 0x0F),
		p.MIDI0, p.MIDI1, p.MIDI2,
	}
}
