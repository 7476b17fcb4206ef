// Package midi drives USB-MIDI class devices: one MIDIStreaming interface
// with bulk IN/OUT endpoints carrying 4-byte USB-MIDI Event Packets,
// multiplexed across embedded IN/OUT jacks (spec §4.6 scenario S3).
package midi

import (
	"fmt"

	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/stack"
	"github.com/usbhoststack/usbhost/usb"
)

const maxSlots = 4

// bulkEventBufSize batches several 4-byte event packets per bulk transfer,
// matching how real USB-MIDI interfaces pack multiple events per frame.
const bulkEventBufSize = 64

type slot struct {
	addr   usb.DevAddress
	inEP   usb.Endpoint
	outEP  usb.Endpoint
	inJack  []uint8
	outJack []uint8
}

// Driver bridges a USB-MIDI interface to caller-supplied callbacks:
// OnEvent receives each event packet as decoded, carrying the cable number
// the device put in it; PopOutgoing is polled each tick for a packet ready
// to send out. The embedded jack IDs recorded by Register are not used to
// route or renumber events.
type Driver struct {
	OnEvent     func(addr usb.DevAddress, pkt usb.MIDIEventPacket)
	PopOutgoing func(addr usb.DevAddress) (usb.MIDIEventPacket, bool)

	slots    [maxSlots]slot
	numSlots int
}

func New(onEvent func(usb.DevAddress, usb.MIDIEventPacket), popOutgoing func(usb.DevAddress) (usb.MIDIEventPacket, bool)) *Driver {
	return &Driver{OnEvent: onEvent, PopOutgoing: popOutgoing}
}

// Accept looks for a MIDIStreaming interface (Audio class, MIDI subclass)
// with both a bulk-IN and a bulk-OUT endpoint.
func (d *Driver) Accept(dev *stack.Device, parser *usb.DescriptorParser) (usb.ClassCode, uint8, uint8, bool) {
	var curIface usb.InterfaceDescriptor
	isMIDI := false
	var inEP, outEP *usb.EndpointDescriptor

	for {
		desc, ok := parser.Next()
		if !ok {
			break
		}
		switch desc.Kind {
		case usb.KindInterface:
			iface, ok := usb.ParseInterfaceDescriptor(desc.Raw)
			if !ok {
				continue
			}
			if isMIDI && inEP != nil && outEP != nil {
				return usb.ClassAudio, dev.ConfigDesc.ConfigurationValue, curIface.InterfaceNumber, true
			}
			curIface = iface
			isMIDI = iface.InterfaceClass == usb.ClassAudio && iface.InterfaceSubClass == usb.AudioSubclassMIDI
			inEP, outEP = nil, nil
		case usb.KindEndpoint:
			if !isMIDI {
				continue
			}
			ep, ok := usb.ParseEndpointDescriptor(desc.Raw)
			if !ok || ep.TransferType() != usb.TransferBulk {
				continue
			}
			epCopy := ep
			if ep.Address.IsIn() {
				inEP = &epCopy
			} else {
				outEP = &epCopy
			}
		}
	}
	if isMIDI && inEP != nil && outEP != nil {
		return usb.ClassAudio, dev.ConfigDesc.ConfigurationValue, curIface.InterfaceNumber, true
	}
	return 0, 0, 0, false
}

// Register records the embedded IN/OUT jack IDs of dev's MIDIStreaming
// descriptors and a bulk-IN and a bulk-OUT endpoint. Endpoints are taken
// from the whole configuration descriptor, not only the MIDIStreaming
// interface; where there are several, the last of each direction is kept.
func (d *Driver) Register(dev *stack.Device, parser *usb.DescriptorParser) error {
	if d.numSlots >= maxSlots {
		return stack.NewError(stack.ErrTooManyEndpoints)
	}

	var inEP, outEP *usb.EndpointDescriptor
	var inJacks, outJacks []uint8

	for {
		desc, ok := parser.Next()
		if !ok {
			break
		}
		switch desc.Kind {
		case usb.KindEndpoint:
			ep, ok := usb.ParseEndpointDescriptor(desc.Raw)
			if !ok || ep.TransferType() != usb.TransferBulk {
				continue
			}
			epCopy := ep
			if ep.Address.IsIn() {
				inEP = &epCopy
			} else {
				outEP = &epCopy
			}
		case usb.KindMIDIStreaming:
			if jack, ok := usb.ParseMSInJackDescriptor(desc.Raw); ok && jack.JackType == usb.JackEmbedded {
				inJacks = append(inJacks, jack.JackID)
			} else if jack, ok := usb.ParseMSOutJackDescriptor(desc.Raw); ok && jack.JackType == usb.JackEmbedded {
				outJacks = append(outJacks, jack.JackID)
			}
		}
	}
	if inEP == nil || outEP == nil {
		return fmt.Errorf("midi: missing bulk endpoint")
	}

	d.slots[d.numSlots] = slot{
		addr:    dev.Address,
		inEP:    usb.NewEndpoint(dev.Address, inEP.Address, usb.TransferBulk, inEP.MaxPacketSize),
		outEP:   usb.NewEndpoint(dev.Address, outEP.Address, usb.TransferBulk, outEP.MaxPacketSize),
		inJack:  inJacks,
		outJack: outJacks,
	}
	d.numSlots++
	return nil
}

func (d *Driver) Unregister(addr usb.DevAddress) {
	for i := 0; i < d.numSlots; i++ {
		if d.slots[i].addr == addr {
			d.slots[i] = d.slots[d.numSlots-1]
			d.numSlots--
			return
		}
	}
}

// StateAfterConfigSet: USB-MIDI has no class-specific setup beyond
// SET_CONFIGURATION/SET_INTERFACE, so the device goes straight to Running.
func (d *Driver) StateAfterConfigSet(ctrl pipe.HostController, dev *stack.Device) stack.DeviceState {
	return stack.DeviceState{Kind: stack.StateRunning}
}

func (d *Driver) AdvanceState(ctrl pipe.HostController, dev *stack.Device, state stack.DeviceState) stack.DeviceState {
	return stack.DeviceState{Kind: stack.StateRunning}
}

func (d *Driver) findSlot(addr usb.DevAddress) *slot {
	for i := 0; i < d.numSlots; i++ {
		if d.slots[i].addr == addr {
			return &d.slots[i]
		}
	}
	return nil
}

// Run drains one bulk-IN read (delivering every event packet it contains)
// and sends at most one queued outgoing packet.
func (d *Driver) Run(ctrl pipe.HostController, dev *stack.Device) error {
	s := d.findSlot(dev.Address)
	if s == nil {
		return nil
	}

	var buf [bulkEventBufSize]byte
	n, err := stack.BulkIn(ctrl, &s.inEP, buf[:])
	if err != nil && !pipe.IsNak(err) {
		return err
	}
	for off := 0; off+4 <= n; off += 4 {
		pkt, ok := usb.ParseMIDIEventPacket(buf[off : off+4])
		if ok && d.OnEvent != nil {
			d.OnEvent(dev.Address, pkt)
		}
	}

	if d.PopOutgoing != nil {
		if pkt, ok := d.PopOutgoing(dev.Address); ok {
			wire := pkt.Bytes()
			if _, err := stack.BulkOut(ctrl, &s.outEP, wire[:]); err != nil && !pipe.IsNak(err) {
				return err
			}
		}
	}
	return nil
}
