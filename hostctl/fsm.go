// Package hostctl implements the per-bus HostController state machine:
// translating raw controller IRQ flags into the HostEvent stream the stack
// consumes (spec §4.3).
package hostctl

import "github.com/usbhoststack/usbhost/pipe"

// ControllerState is the controller FSM's state, monotonic except for the
// Disconnected reset.
type ControllerState uint8

const (
	StateInit ControllerState = iota
	StateDisconnected
	StateBusReset
	StateBusSettle
	StateConnected
	StateError
)

func (s ControllerState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateDisconnected:
		return "Disconnected"
	case StateBusReset:
		return "BusReset"
	case StateBusSettle:
		return "BusSettle"
	case StateConnected:
		return "Connected"
	case StateError:
		return "Error"
	default:
		return "?"
	}
}

// IrqFlags mirrors the raw hardware IRQ cause bits the controller FSM
// reacts to, one set per Update call.
type IrqFlags struct {
	Attached  bool
	Detached  bool
	Reset     bool
	SOF       bool
	Wakeup    bool
	Resume    bool
	RAMAccess bool
}

// Bus is the silicon-specific primitive the FSM drives: reading pending IRQ
// causes and issuing the handful of bus-level commands (start a reset,
// enable the Start-of-Frame heartbeat).
type Bus interface {
	ReadIRQ() IrqFlags
	StartBusReset()
	EnableSOF()
}

// Controller composes a pipe.Engine (the transfer-level primitives) with
// the bus-reset/attach FSM to produce a full pipe.HostController.
type Controller struct {
	*pipe.Engine
	bus   Bus
	state ControllerState

	settleDeadline uint64
}

// NewController wraps engine (transfer primitives) and bus (IRQ/reset
// primitives) into a HostController starting in Init.
func NewController(engine *pipe.Engine, bus Bus) *Controller {
	return &Controller{Engine: engine, bus: bus, state: StateInit}
}

// State returns the controller's current FSM state, mostly useful for
// diagnostics and tests.
func (c *Controller) State() ControllerState { return c.state }

// Update drives one step of IRQ processing (spec §4.3) and returns at most
// one HostEvent. Detach always returns to Init from any state; the next
// tick emits Reset.
func (c *Controller) Update() pipe.HostEvent {
	irq := c.bus.ReadIRQ()

	if irq.Detached && c.state != StateInit {
		c.state = StateInit
		return pipe.EventNone
	}

	switch c.state {
	case StateInit:
		c.state = StateDisconnected
		return pipe.EventReset

	case StateDisconnected:
		if irq.Attached {
			c.bus.StartBusReset()
			c.state = StateBusReset
		}
		return pipe.EventNone

	case StateBusReset:
		if irq.Reset {
			c.bus.EnableSOF()
			c.settleDeadline = c.Engine.AfterMillis(pipe.PostResetSettleMs)
			c.state = StateBusSettle
		}
		return pipe.EventNone

	case StateBusSettle:
		if irq.SOF && c.Engine.Now() >= c.settleDeadline {
			c.state = StateConnected
			return pipe.EventReady
		}
		return pipe.EventNone

	case StateConnected:
		return pipe.EventNone

	default:
		return pipe.EventNone
	}
}
