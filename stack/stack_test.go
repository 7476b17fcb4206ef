package stack

import (
	"testing"

	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/usb"
)

// fakeController is a pipe.HostController double scripted entirely by its
// fields; it never does real transfers.
type fakeController struct {
	now uint64

	events []pipe.HostEvent // consumed FIFO by Update, repeats the last entry once exhausted

	deviceDesc []byte
	configDesc []byte

	stallGetDescriptor bool

	controlCalls int
}

func (c *fakeController) Update() pipe.HostEvent {
	c.now += 15 // advance past every settle deadline used in these tests
	if len(c.events) == 0 {
		return pipe.EventNone
	}
	ev := c.events[0]
	if len(c.events) > 1 {
		c.events = c.events[1:]
	}
	return ev
}

func (c *fakeController) MaxHostPacketSize() uint16    { return 64 }
func (c *fakeController) Now() uint64                  { return c.now }
func (c *fakeController) AfterMillis(ms uint64) uint64 { return c.now + ms }

func (c *fakeController) ControlTransfer(ep *usb.Endpoint, reqType usb.RequestType, reqCode uint8, value usb.WValue, index uint16, buf []byte) (int, error) {
	c.controlCalls++
	switch reqCode {
	case usb.ReqGetDescriptor:
		if c.stallGetDescriptor {
			return 0, pipe.NewHostError(pipe.ErrStall)
		}
		var src []byte
		switch usb.DescriptorType(value.Hi()) {
		case usb.DescriptorTypeDevice:
			src = c.deviceDesc
		case usb.DescriptorTypeConfiguration:
			src = c.configDesc
		}
		n := copy(buf, src)
		return n, nil
	case usb.ReqSetAddress, usb.ReqSetConfiguration, usb.ReqSetInterface:
		return 0, nil
	default:
		return 0, nil
	}
}

func (c *fakeController) InTransfer(ep *usb.Endpoint, buf []byte) (int, error)  { return 0, nil }
func (c *fakeController) OutTransfer(ep *usb.Endpoint, buf []byte) (int, error) { return 0, nil }

// buildDeviceDesc returns an 18-byte device descriptor with a control
// endpoint 0 max packet size of 8.
func buildDeviceDesc() []byte {
	return []byte{
		18, 1, // bLength, bDescriptorType
		0x00, 0x02, // bcdUSB
		0, 0, 0, // class/subclass/protocol
		8,          // bMaxPacketSize0
		0x00, 0x00, // idVendor
		0x00, 0x00, // idProduct
		0x00, 0x00, // bcdDevice
		0, 0, 0, // string indices
		1, // bNumConfigurations
	}
}

// buildConfigDesc returns a 9-byte config header + 9-byte interface +
// 7-byte endpoint, with wTotalLength set accordingly.
func buildConfigDesc() []byte {
	hdr := []byte{9, 2, 0, 0, 1, 1, 0, 0, 0}
	iface := []byte{9, 4, 0, 0, 1, byte(usb.ClassVendorSpecific), 0, 0, 0}
	ep := []byte{7, 5, 0x81, 3, 8, 0, 10}

	var buf []byte
	buf = append(buf, hdr...)
	buf = append(buf, iface...)
	buf = append(buf, ep...)
	total := len(buf)
	buf[2] = byte(total)
	buf[3] = byte(total >> 8)
	return buf
}

// acceptAllDriver claims every device immediately and skips straight to
// Running, counting Run calls.
type acceptAllDriver struct {
	registered   []usb.DevAddress
	unregistered []usb.DevAddress
	runCalls     int
}

func (d *acceptAllDriver) Accept(dev *Device, parser *usb.DescriptorParser) (usb.ClassCode, uint8, uint8, bool) {
	return usb.ClassVendorSpecific, dev.ConfigDesc.ConfigurationValue, 0, true
}
func (d *acceptAllDriver) Register(dev *Device, parser *usb.DescriptorParser) error {
	d.registered = append(d.registered, dev.Address)
	return nil
}
func (d *acceptAllDriver) Unregister(addr usb.DevAddress) {
	d.unregistered = append(d.unregistered, addr)
}
func (d *acceptAllDriver) StateAfterConfigSet(ctrl pipe.HostController, dev *Device) DeviceState {
	return DeviceState{Kind: StateRunning}
}
func (d *acceptAllDriver) AdvanceState(ctrl pipe.HostController, dev *Device, state DeviceState) DeviceState {
	return DeviceState{Kind: StateRunning}
}
func (d *acceptAllDriver) Run(ctrl pipe.HostController, dev *Device) error {
	d.runCalls++
	return nil
}

func tick(s *UsbStack, n int) {
	for i := 0; i < n; i++ {
		s.Update()
	}
}

func TestStackAddressesAndRunsAcceptedDevice(t *testing.T) {
	ctrl := &fakeController{
		events:     []pipe.HostEvent{pipe.EventReady, pipe.EventNone},
		deviceDesc: buildDeviceDesc(),
		configDesc: buildConfigDesc(),
	}
	s := NewUsbStack(ctrl)
	drv := &acceptAllDriver{}
	if err := s.AddDriver(drv); err != nil {
		t.Fatalf("AddDriver() error = %v", err)
	}

	s.Update() // onReady: enrolls a new device, drives SetAddress
	if len(s.Devices()) != 1 {
		t.Fatalf("len(Devices()) = %d, want 1", len(s.Devices()))
	}
	dev := s.Devices()[0]

	// Each Update advances ctrl.now by 15 ms, past the 10 ms SetConfig and
	// SetInterface settle deadlines, so every tick advances one state.
	tick(s, 5)

	if dev.Err != nil {
		t.Fatalf("dev.Err = %v, want nil", dev.Err)
	}
	if dev.State.Kind != StateRunning {
		t.Fatalf("dev.State.Kind = %v, want StateRunning", dev.State.Kind)
	}
	if drv.runCalls == 0 {
		t.Fatal("driver.Run() was never called")
	}
	if len(drv.registered) != 1 || drv.registered[0] != dev.Address {
		t.Fatalf("registered = %v, want [%v]", drv.registered, dev.Address)
	}
}

func TestStackNoDriverGoesOrphan(t *testing.T) {
	ctrl := &fakeController{
		events:     []pipe.HostEvent{pipe.EventReady, pipe.EventNone},
		deviceDesc: buildDeviceDesc(),
		configDesc: buildConfigDesc(),
	}
	s := NewUsbStack(ctrl)

	s.Update()
	tick(s, 5)

	dev := s.Devices()[0]
	if dev.State.Kind != StateOrphan {
		t.Fatalf("dev.State.Kind = %v, want StateOrphan", dev.State.Kind)
	}
	if dev.Err != nil {
		t.Fatalf("dev.Err = %v, want nil (orphan is not an error)", dev.Err)
	}
}

func TestStackStallOnGetDescriptorFreezesDevice(t *testing.T) {
	ctrl := &fakeController{
		events:             []pipe.HostEvent{pipe.EventReady, pipe.EventNone},
		deviceDesc:         buildDeviceDesc(),
		configDesc:         buildConfigDesc(),
		stallGetDescriptor: true,
	}
	s := NewUsbStack(ctrl)
	s.Update()

	dev := s.Devices()[0]
	if dev.Err == nil {
		t.Fatal("dev.Err = nil, want a GetDescriptor error")
	}
	uerr, ok := dev.Err.(*UsbError)
	if !ok || uerr.Kind != ErrGetDescriptor {
		t.Fatalf("dev.Err = %v, want ErrGetDescriptor", dev.Err)
	}

	callsBefore := ctrl.controlCalls
	tick(s, 5)
	if ctrl.controlCalls != callsBefore {
		t.Fatalf("controlCalls changed from %d to %d; frozen device must not keep transferring", callsBefore, ctrl.controlCalls)
	}
}

func TestStackTooManyDevicesSurfacesLastError(t *testing.T) {
	ctrl := &fakeController{
		deviceDesc: buildDeviceDesc(),
		configDesc: buildConfigDesc(),
	}
	s := NewUsbStack(ctrl)

	for i := 0; i < MaxDevices; i++ {
		ctrl.events = []pipe.HostEvent{pipe.EventReady}
		s.Update()
	}
	if len(s.Devices()) != MaxDevices {
		t.Fatalf("len(Devices()) = %d, want %d", len(s.Devices()), MaxDevices)
	}
	if s.LastError() != nil {
		t.Fatalf("LastError() = %v, want nil before overflow", s.LastError())
	}

	ctrl.events = []pipe.HostEvent{pipe.EventReady}
	s.Update()

	if len(s.Devices()) != MaxDevices {
		t.Fatalf("len(Devices()) = %d, want %d after overflow attempt", len(s.Devices()), MaxDevices)
	}
	uerr, ok := s.LastError().(*UsbError)
	if !ok || uerr.Kind != ErrTooManyDevices {
		t.Fatalf("LastError() = %v, want ErrTooManyDevices", s.LastError())
	}
}

func TestStackBusResetClearsDevicesAndPool(t *testing.T) {
	ctrl := &fakeController{
		events:     []pipe.HostEvent{pipe.EventReady, pipe.EventNone},
		deviceDesc: buildDeviceDesc(),
		configDesc: buildConfigDesc(),
	}
	s := NewUsbStack(ctrl)
	drv := &acceptAllDriver{}
	s.AddDriver(drv)

	s.Update()
	tick(s, 5)
	if len(s.Devices()) != 1 {
		t.Fatalf("len(Devices()) = %d, want 1 before reset", len(s.Devices()))
	}
	addr := s.Devices()[0].Address

	ctrl.events = []pipe.HostEvent{pipe.EventReset}
	s.Update()

	if len(s.Devices()) != 0 {
		t.Fatalf("len(Devices()) = %d, want 0 after reset", len(s.Devices()))
	}
	if len(drv.unregistered) != 1 || drv.unregistered[0] != addr {
		t.Fatalf("unregistered = %v, want [%v]", drv.unregistered, addr)
	}

	// Pool was reset too: the next device re-addresses starting at 1.
	ctrl.events = []pipe.HostEvent{pipe.EventReady, pipe.EventNone}
	s.Update()
	tick(s, 5)
	if got := s.Devices()[0].Address; got != 1 {
		t.Fatalf("re-addressed device got address %d, want 1", got)
	}
}
