// Package hid drives boot-protocol HID keyboards: the fixed, simple input
// report format keyboards speak before (or instead of) full HID report
// descriptor parsing (spec §4.6 scenario S2).
package hid

import (
	"fmt"

	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/stack"
	"github.com/usbhoststack/usbhost/usb"
)

// maxSlots bounds the number of boot-keyboard devices this driver tracks
// concurrently (spec §5 "endpoints per driver: 2-16").
const maxSlots = 8

const (
	subStateProtocol uint8 = iota
	subStateIdle
)

type slot struct {
	addr usb.DevAddress
	inEP usb.Endpoint
	last usb.BootKeyboardReport
}

// Driver matches boot-protocol keyboard interfaces and polls their
// interrupt-IN endpoint, delivering each distinct nonzero report through
// OnReport.
type Driver struct {
	OnReport func(addr usb.DevAddress, report usb.BootKeyboardReport)

	slots    [maxSlots]slot
	numSlots int
}

// New returns a Driver that calls onReport for every nonzero boot-keyboard
// report that differs from the previous report read from the same device.
// onReport may be nil to discard reports.
func New(onReport func(usb.DevAddress, usb.BootKeyboardReport)) *Driver {
	return &Driver{OnReport: onReport}
}

// Accept looks for a boot-protocol keyboard interface (class HID, subclass
// Boot, protocol Keyboard) with an interrupt-IN endpoint.
func (d *Driver) Accept(dev *stack.Device, parser *usb.DescriptorParser) (usb.ClassCode, uint8, uint8, bool) {
	var curIface usb.InterfaceDescriptor
	haveIface := false

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
			curIface = iface
			haveIface = iface.InterfaceClass == usb.ClassHID &&
				iface.InterfaceSubClass == usb.HIDSubclassBoot &&
				iface.InterfaceProtocol == usb.HIDProtocolKeyboard
		case usb.KindEndpoint:
			if !haveIface {
				continue
			}
			ep, ok := usb.ParseEndpointDescriptor(desc.Raw)
			if !ok || !ep.Address.IsIn() || ep.TransferType() != usb.TransferInterrupt {
				continue
			}
			return usb.ClassHID, dev.ConfigDesc.ConfigurationValue, curIface.InterfaceNumber, true
		}
	}
	return 0, 0, 0, false
}

// Register records the first interrupt-IN endpoint in dev's configuration
// descriptor. It does not check which interface that endpoint belongs to.
func (d *Driver) Register(dev *stack.Device, parser *usb.DescriptorParser) error {
	if d.numSlots >= maxSlots {
		return stack.NewError(stack.ErrTooManyEndpoints)
	}

	var inEP *usb.EndpointDescriptor
	for {
		desc, ok := parser.Next()
		if !ok {
			break
		}
		if desc.Kind != usb.KindEndpoint {
			continue
		}
		ep, ok := usb.ParseEndpointDescriptor(desc.Raw)
		if ok && ep.Address.IsIn() && ep.TransferType() == usb.TransferInterrupt {
			inEP = &ep
			break
		}
	}
	if inEP == nil {
		return fmt.Errorf("hid: no interrupt-IN endpoint found")
	}

	d.slots[d.numSlots] = slot{
		addr: dev.Address,
		inEP: usb.NewEndpoint(dev.Address, inEP.Address, usb.TransferInterrupt, inEP.MaxPacketSize),
	}
	d.numSlots++
	return nil
}

// Unregister drops the slot for addr, if any.
func (d *Driver) Unregister(addr usb.DevAddress) {
	for i := 0; i < d.numSlots; i++ {
		if d.slots[i].addr == addr {
			d.slots[i] = d.slots[d.numSlots-1]
			d.numSlots--
			return
		}
	}
}

// StateAfterConfigSet starts the SET_PROTOCOL(Boot)/SET_IDLE(0) handshake
// instead of going straight to Running.
func (d *Driver) StateAfterConfigSet(ctrl pipe.HostController, dev *stack.Device) stack.DeviceState {
	return stack.DeviceState{Kind: stack.StateDriverStep, SubState: subStateProtocol}
}

// AdvanceState issues SET_PROTOCOL then SET_IDLE, one per tick.
func (d *Driver) AdvanceState(ctrl pipe.HostController, dev *stack.Device, state stack.DeviceState) stack.DeviceState {
	reqType := usb.NewRequestType(usb.DirectionOut, usb.KindClass, usb.RecipientInterface)
	switch state.SubState {
	case subStateProtocol:
		ctrl.ControlTransfer(&dev.ControlEP, reqType, usb.HIDReqSetProtocol, usb.WValue(usb.HIDProtocolBoot), 0, nil)
		return stack.DeviceState{Kind: stack.StateDriverStep, SubState: subStateIdle}
	default:
		ctrl.ControlTransfer(&dev.ControlEP, reqType, usb.HIDReqSetIdle, 0, 0, nil)
		return stack.DeviceState{Kind: stack.StateRunning}
	}
}

// Run polls the interrupt endpoint for dev and delivers any nonzero report.
func (d *Driver) Run(ctrl pipe.HostController, dev *stack.Device) error {
	for i := 0; i < d.numSlots; i++ {
		s := &d.slots[i]
		if s.addr != dev.Address {
			continue
		}
		var buf [usb.BootKeyboardReportSize]byte
		n, err := stack.Interrupt(ctrl, &s.inEP, buf[:])
		if err != nil {
			if pipe.IsNak(err) {
				return nil
			}
			return err
		}
		report, ok := usb.ParseBootKeyboardReport(buf[:n])
		if !ok || report == s.last {
			return nil
		}
		s.last = report
		if d.OnReport != nil && (report.Modifiers != 0 || report.Keycodes != [6]uint8{}) {
			d.OnReport(dev.Address, report)
		}
		return nil
	}
	return nil
}
