package pipe

import (
	"testing"

	"github.com/usbhoststack/usbhost/usb"
)

// step describes one Submit's hardware response for scriptedBus.
type step struct {
	status    uint8
	byteCount uint16
}

// scriptedBus is a fake RawBus that resolves every Submit on the first Poll,
// replaying a fixed script of outcomes in order.
type scriptedBus struct {
	now      uint64
	steps    []step
	i        int
	maxPacket uint16
}

func (b *scriptedBus) Now() uint64                  { return b.now }
func (b *scriptedBus) AfterMillis(ms uint64) uint64 { return b.now + ms }
func (b *scriptedBus) MaxHostPacketSize() uint16    { return b.maxPacket }

func (b *scriptedBus) Submit(pipeIdx int, desc *PipeDesc, token Token, ep *usb.Endpoint, data []byte, offset int) {
	if b.i >= len(b.steps) {
		panic("scriptedBus: ran out of steps")
	}
	s := b.steps[b.i]
	b.i++
	desc.SetStatusPipe(s.status)
	if s.status&statusComplete != 0 {
		desc.SetPacketSize(0, s.byteCount)
	}
}

func (b *scriptedBus) Poll(pipeIdx int, desc *PipeDesc) bool { return false }

// stallingBus never completes a transaction (Poll always reports pending);
// each Now() call advances its clock by advanceBy, which drives the engine
// past its deadline to exercise soft-timeout.
type stallingBus struct {
	now       uint64
	advanceBy uint64
}

func (b *stallingBus) Now() uint64 {
	n := b.now
	b.now += b.advanceBy
	return n
}
func (b *stallingBus) AfterMillis(ms uint64) uint64 { return b.now + ms }
func (b *stallingBus) MaxHostPacketSize() uint16    { return 64 }
func (b *stallingBus) Submit(pipeIdx int, desc *PipeDesc, token Token, ep *usb.Endpoint, data []byte, offset int) {
}
func (b *stallingBus) Poll(pipeIdx int, desc *PipeDesc) bool { return true }

func bulkEndpoint() usb.Endpoint {
	return usb.NewEndpoint(1, usb.NewEndpointAddress(usb.DirIn, 1), usb.TransferBulk, 8)
}

func TestEngineInTransferShortPacketTerminates(t *testing.T) {
	bus := &scriptedBus{maxPacket: 8, steps: []step{
		{status: statusComplete, byteCount: 5},
	}}
	e := NewEngine(bus)
	ep := bulkEndpoint()
	buf := make([]byte, 8)

	n, err := e.InTransfer(&ep, buf)
	if err != nil {
		t.Fatalf("InTransfer() error = %v", err)
	}
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
}

func TestEngineSyncTxStallReturnsImmediately(t *testing.T) {
	bus := &scriptedBus{maxPacket: 8, steps: []step{
		{status: statusStall},
	}}
	e := NewEngine(bus)
	ep := bulkEndpoint()

	_, err := e.OutTransfer(&ep, []byte{1, 2, 3})
	if !IsStall(err) {
		t.Fatalf("err = %v, want a stall error", err)
	}
	if bus.i != 1 {
		t.Fatalf("dispatch count = %d, want 1 (no retry on stall)", bus.i)
	}
}

func TestEngineSyncTxNakExhaustion(t *testing.T) {
	steps := make([]step, NakLimit+1)
	for i := range steps {
		steps[i] = step{status: statusNak}
	}
	bus := &scriptedBus{maxPacket: 8, steps: steps}
	e := NewEngine(bus)
	ep := bulkEndpoint()

	_, err := e.OutTransfer(&ep, []byte{1})
	if !IsNak(err) {
		t.Fatalf("err = %v, want a NAK error", err)
	}
	if bus.i != NakLimit+1 {
		t.Fatalf("dispatch count = %d, want %d", bus.i, NakLimit+1)
	}
}

func TestEngineSyncTxNakOnInterruptReturnsImmediately(t *testing.T) {
	bus := &scriptedBus{maxPacket: 8, steps: []step{
		{status: statusNak},
	}}
	e := NewEngine(bus)
	ep := usb.NewEndpoint(1, usb.NewEndpointAddress(usb.DirIn, 1), usb.TransferInterrupt, 8)

	_, err := e.InTransfer(&ep, make([]byte, 8))
	if !IsNak(err) {
		t.Fatalf("err = %v, want a NAK error", err)
	}
	if bus.i != 1 {
		t.Fatalf("dispatch count = %d, want 1 (no retry on interrupt NAK)", bus.i)
	}
}

func TestEngineSyncTxToggleMismatchRetries(t *testing.T) {
	bus := &scriptedBus{maxPacket: 8, steps: []step{
		{status: statusToggle},
		{status: statusComplete, byteCount: 4},
	}}
	e := NewEngine(bus)
	ep := bulkEndpoint()

	n, err := e.InTransfer(&ep, make([]byte, 8))
	if err != nil {
		t.Fatalf("InTransfer() error = %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
	if bus.i != 2 {
		t.Fatalf("dispatch count = %d, want 2", bus.i)
	}
}

func TestEngineSyncTxSoftTimeout(t *testing.T) {
	bus := &stallingBus{advanceBy: UsbTimeoutMillis + 1}
	e := NewEngine(bus)
	ep := bulkEndpoint()

	_, err := e.InTransfer(&ep, make([]byte, 8))
	he, ok := err.(*HostError)
	if !ok || he.Kind != ErrSoftTimeout {
		t.Fatalf("err = %v, want ErrSoftTimeout", err)
	}
}

func TestEngineControlTransferZeroLengthStatusStage(t *testing.T) {
	bus := &scriptedBus{maxPacket: 8, steps: []step{
		{status: statusComplete}, // SETUP
		{status: statusComplete}, // STATUS (IN, no DATA stage)
	}}
	e := NewEngine(bus)
	ep := usb.NewEndpoint(1, usb.NewEndpointAddress(usb.DirOut, 0), usb.TransferControl, 8)
	reqType := usb.NewRequestType(usb.DirectionOut, usb.KindStandard, usb.RecipientDevice)

	n, err := e.ControlTransfer(&ep, reqType, usb.ReqSetAddress, usb.WValue(5), 0, nil)
	if err != nil {
		t.Fatalf("ControlTransfer() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
	if bus.i != 2 {
		t.Fatalf("dispatch count = %d, want 2 (SETUP + STATUS, no DATA stage)", bus.i)
	}
}
