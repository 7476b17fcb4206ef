package hostctl

import (
	"testing"

	"github.com/usbhoststack/usbhost/pipe"
	"github.com/usbhoststack/usbhost/usb"
)

// clockBus is a minimal pipe.RawBus that never completes a transfer; fsm
// tests only need Now/AfterMillis out of it.
type clockBus struct {
	now uint64
}

func (b *clockBus) Now() uint64                  { return b.now }
func (b *clockBus) AfterMillis(ms uint64) uint64 { return b.now + ms }
func (b *clockBus) MaxHostPacketSize() uint16    { return 64 }
func (b *clockBus) Submit(pipeIdx int, desc *pipe.PipeDesc, token pipe.Token, ep *usb.Endpoint, data []byte, offset int) {
}
func (b *clockBus) Poll(pipeIdx int, desc *pipe.PipeDesc) bool { return false }

// fakeIrqBus is a hostctl.Bus double driven entirely by test-set fields.
type fakeIrqBus struct {
	irq           IrqFlags
	resetsStarted int
	sofEnabled    int
}

func (b *fakeIrqBus) ReadIRQ() IrqFlags { return b.irq }
func (b *fakeIrqBus) StartBusReset()    { b.resetsStarted++ }
func (b *fakeIrqBus) EnableSOF()        { b.sofEnabled++ }

func newTestController() (*Controller, *fakeIrqBus, *clockBus) {
	clock := &clockBus{}
	engine := pipe.NewEngine(clock)
	bus := &fakeIrqBus{}
	return NewController(engine, bus), bus, clock
}

func TestControllerFullAttachSequence(t *testing.T) {
	c, bus, clock := newTestController()

	if ev := c.Update(); ev != pipe.EventReset || c.State() != StateDisconnected {
		t.Fatalf("Init step: event=%v state=%v", ev, c.State())
	}

	bus.irq = IrqFlags{}
	if ev := c.Update(); ev != pipe.EventNone || c.State() != StateDisconnected {
		t.Fatalf("idle disconnected step: event=%v state=%v", ev, c.State())
	}

	bus.irq = IrqFlags{Attached: true}
	if ev := c.Update(); ev != pipe.EventNone || c.State() != StateBusReset {
		t.Fatalf("attach step: event=%v state=%v", ev, c.State())
	}
	if bus.resetsStarted != 1 {
		t.Fatalf("resetsStarted = %d, want 1", bus.resetsStarted)
	}

	bus.irq = IrqFlags{Reset: true}
	if ev := c.Update(); ev != pipe.EventNone || c.State() != StateBusSettle {
		t.Fatalf("reset step: event=%v state=%v", ev, c.State())
	}
	if bus.sofEnabled != 1 {
		t.Fatalf("sofEnabled = %d, want 1", bus.sofEnabled)
	}

	// SOF arrives before the settle deadline: must stay in BusSettle.
	bus.irq = IrqFlags{SOF: true}
	if ev := c.Update(); ev != pipe.EventNone || c.State() != StateBusSettle {
		t.Fatalf("early SOF step: event=%v state=%v", ev, c.State())
	}

	// Advance the clock past the 20ms settle window.
	clock.now += pipe.PostResetSettleMs
	bus.irq = IrqFlags{SOF: true}
	if ev := c.Update(); ev != pipe.EventReady || c.State() != StateConnected {
		t.Fatalf("settled SOF step: event=%v state=%v", ev, c.State())
	}

	bus.irq = IrqFlags{}
	if ev := c.Update(); ev != pipe.EventNone || c.State() != StateConnected {
		t.Fatalf("steady connected step: event=%v state=%v", ev, c.State())
	}
}

func TestControllerDetachFromAnyStateReturnsToInit(t *testing.T) {
	c, bus, _ := newTestController()
	c.Update() // Init -> Disconnected
	bus.irq = IrqFlags{Attached: true}
	c.Update() // Disconnected -> BusReset

	bus.irq = IrqFlags{Detached: true}
	if ev := c.Update(); ev != pipe.EventNone || c.State() != StateInit {
		t.Fatalf("detach step: event=%v state=%v", ev, c.State())
	}
}
