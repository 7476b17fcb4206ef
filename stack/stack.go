// Package stack implements the top-level USB host orchestrator: the
// per-device lifecycle state machine, the driver registry, and the
// address-allocation policy that ties them together (spec §4.2, §4.7).
package stack

import (
	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/usb"
)

// UsbStack is the top-level orchestrator: it holds the controller, the
// driver table, the address pool, and the fixed-capacity set of known
// devices, driving one step of every device's lifecycle per Update call.
type UsbStack struct {
	controller pipe.HostController
	pool       usb.AddressPool

	drivers    [MaxDrivers]Driver
	numDrivers int

	devices    [MaxDevices]*Device
	numDevices int

	// lastErr holds the most recent stack-level error that has no
	// Device to freeze, e.g. a device-table overflow.
	lastErr error
}

// NewUsbStack returns a fresh stack bound to controller.
func NewUsbStack(controller pipe.HostController) *UsbStack {
	return &UsbStack{controller: controller}
}

// AddDriver appends driver to the registry. Order matters: the first
// driver whose Accept returns ok wins for each newly configured device.
func (s *UsbStack) AddDriver(d Driver) error {
	if s.numDrivers >= MaxDrivers {
		return NewError(ErrTooManyDrivers)
	}
	s.drivers[s.numDrivers] = d
	s.numDrivers++
	return nil
}

// Devices returns the stack's current device set, for diagnostics.
func (s *UsbStack) Devices() []*Device {
	return s.devices[:s.numDevices]
}

// LastError returns the most recent stack-level error that was not tied to
// any particular Device (e.g. a device-table overflow on attach), or nil.
func (s *UsbStack) LastError() error {
	return s.lastErr
}

// Update runs one turn: poll the controller for a HostEvent, react to it,
// then drive one lifecycle step for every known device.
func (s *UsbStack) Update() {
	switch s.controller.Update() {
	case pipe.EventReady:
		s.onReady()
	case pipe.EventReset:
		s.onReset()
	}

	for i := 0; i < s.numDevices; i++ {
		s.updateDev(s.devices[i])
	}
}

func (s *UsbStack) onReady() {
	if s.numDevices >= MaxDevices {
		s.lastErr = NewError(ErrTooManyDevices)
		return
	}
	s.devices[s.numDevices] = newDevice()
	s.numDevices++
}

// onReset unregisters every device from its driver (if any), drops every
// device, and clears the address pool (spec §4.7, scenario S5).
func (s *UsbStack) onReset() {
	for i := 0; i < s.numDevices; i++ {
		dev := s.devices[i]
		if dev.DriverIdx >= 0 {
			s.drivers[dev.DriverIdx].Unregister(dev.Address)
		}
		s.devices[i] = nil
	}
	s.numDevices = 0
	s.pool.Reset()
}

// updateDev drives one lifecycle step for dev, per the transition table in
// spec §4.2. It is a no-op if dev has a recorded error, or if its state's
// settle deadline has not yet elapsed.
func (s *UsbStack) updateDev(dev *Device) {
	if dev.Err != nil {
		return
	}

	switch dev.State.Kind {
	case StateSetAddress:
		s.doSetAddress(dev)

	case StateSetConfig:
		if s.controller.Now() >= dev.State.Deadline {
			s.doSetConfig(dev)
		}

	case StateSetInterface:
		if s.controller.Now() >= dev.State.Deadline {
			s.doSetInterface(dev)
		}

	case StateDriverStep:
		if dev.DriverIdx >= 0 && s.controller.Now() >= dev.State.Deadline {
			dev.State = s.drivers[dev.DriverIdx].AdvanceState(s.controller, dev, dev.State)
		}

	case StateRunning:
		if dev.DriverIdx >= 0 {
			if err := s.drivers[dev.DriverIdx].Run(s.controller, dev); err != nil {
				dev.Err = err
			}
		}

	case StateOrphan:
		// no-op
	}
}

func (s *UsbStack) doSetAddress(dev *Device) {
	if dev.Address != 0 {
		dev.Err = NewError(ErrAddressAlreadySet)
		return
	}

	var hdr [usb.DeviceDescriptorSize]byte
	if _, err := getDescriptor(s.controller, &dev.ControlEP, usb.DescriptorTypeDevice, 0, hdr[:]); err != nil {
		dev.Err = NewTransferError(ErrGetDescriptor, &dev.ControlEP, err)
		return
	}
	desc, ok := usb.ParseDeviceDescriptor(hdr[:])
	if !ok {
		dev.Err = NewError(ErrInvalidDescriptor)
		return
	}
	dev.Descriptor = desc
	if uint16(desc.MaxPacketSize0) < dev.ControlEP.MaxPacketSize {
		dev.ControlEP.MaxPacketSize = uint16(desc.MaxPacketSize0)
	}

	addr, ok := s.pool.TakeNext()
	if !ok {
		dev.Err = NewError(ErrAddressExhausted)
		return
	}
	if err := setAddress(s.controller, &dev.ControlEP, addr); err != nil {
		s.pool.PutBack(addr)
		dev.Err = NewTransferError(ErrSetAddress, &dev.ControlEP, err)
		return
	}

	dev.Address = addr
	dev.ControlEP.DeviceAddr = addr
	dev.State = DeviceState{Kind: StateSetConfig, Deadline: s.controller.AfterMillis(pipe.PostAddressSettle)}
}

func (s *UsbStack) doSetConfig(dev *Device) {
	var hdr [usb.ConfigDescriptorSize]byte
	if _, err := getDescriptor(s.controller, &dev.ControlEP, usb.DescriptorTypeConfiguration, 0, hdr[:]); err != nil {
		dev.Err = NewTransferError(ErrGetDescriptor, &dev.ControlEP, err)
		return
	}
	cfg, ok := usb.ParseConfigDescriptor(hdr[:])
	if !ok {
		dev.Err = NewError(ErrInvalidDescriptor)
		return
	}
	if int(cfg.TotalLength) > MaxConfigDescriptorSize {
		dev.Err = NewError(ErrDescriptorTooBig)
		return
	}
	if cfg.ConfigurationValue == 0 {
		dev.Err = NewError(ErrInvalidConfiguration)
		return
	}
	dev.ConfigDesc = cfg

	n, err := getDescriptor(s.controller, &dev.ControlEP, usb.DescriptorTypeConfiguration, 0, dev.configBuf[:cfg.TotalLength])
	if err != nil {
		dev.Err = NewTransferError(ErrGetDescriptor, &dev.ControlEP, err)
		return
	}
	dev.configLen = n

	driverIdx, configValue, iface, ok := s.matchDriver(dev)
	if !ok {
		dev.State = DeviceState{Kind: StateOrphan}
		return
	}

	if err := setConfiguration(s.controller, &dev.ControlEP, configValue); err != nil {
		dev.Err = NewTransferError(ErrSetConfiguration, &dev.ControlEP, err)
		return
	}

	parser := usb.NewDescriptorParser(dev.ConfigDescriptorBytes())
	if err := s.drivers[driverIdx].Register(dev, parser); err != nil {
		dev.Err = err
		return
	}
	dev.DriverIdx = driverIdx

	dev.State = DeviceState{
		Kind:     StateSetInterface,
		Iface:    iface,
		Deadline: s.controller.AfterMillis(pipe.PostConfigSettleMs),
	}
}

// matchDriver rewinds and replays the parser against every registered
// driver, stopping at the first that accepts.
func (s *UsbStack) matchDriver(dev *Device) (driverIdx int, configValue, iface uint8, ok bool) {
	parser := usb.NewDescriptorParser(dev.ConfigDescriptorBytes())
	for i := 0; i < s.numDrivers; i++ {
		parser.Rewind()
		if _, cfgVal, ifaceNum, accepted := s.drivers[i].Accept(dev, parser); accepted {
			return i, cfgVal, ifaceNum, true
		}
	}
	return 0, 0, 0, false
}

func (s *UsbStack) doSetInterface(dev *Device) {
	if err := setInterface(s.controller, &dev.ControlEP, dev.State.Iface, 0); err != nil {
		dev.Err = NewTransferError(ErrSetInterface, &dev.ControlEP, err)
		return
	}

	if dev.DriverIdx >= 0 {
		dev.State = s.drivers[dev.DriverIdx].StateAfterConfigSet(s.controller, dev)
		return
	}
	dev.State = DeviceState{Kind: StateRunning}
}
