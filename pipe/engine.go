package pipe

import "github.com/usbhoststack/usbhost/usb"

// RawBus is the narrow, silicon-specific primitive Engine is built on: it
// knows how to program one pipe descriptor and start a transaction, and how
// to poll for its completion. A bare-metal backend supplies a RawBus;
// Engine supplies the generic SETUP/IN/OUT token discipline, NAK retry,
// toggle management and short-packet policy on top of it (spec §4.4).
//
// Backends whose host API already performs whole transfers (e.g. a Linux
// usbfs backend, where the kernel driver owns toggle and retry) skip Engine
// entirely and implement HostController directly; see backend/usbfslinux.
type RawBus interface {
	Now() uint64
	AfterMillis(ms uint64) uint64
	MaxHostPacketSize() uint16

	// Submit programs pipeIdx's descriptor for one token against ep and
	// starts the transaction (unfreezes the pipe). data[offset:] is
	// where this token's bytes land (IN) or come from (OUT); token
	// SETUP ignores data.
	Submit(pipeIdx int, desc *PipeDesc, token Token, ep *usb.Endpoint, data []byte, offset int)

	// Poll refreshes desc's status bits from hardware. pending is true
	// while the transaction has not yet reached a terminal state.
	Poll(pipeIdx int, desc *PipeDesc) (pending bool)
}

// Engine is the reference software implementation of the pipe-level
// transfer protocol: SETUP/DATA/STATUS staging for control transfers,
// segmented IN/OUT with short-packet termination, NAK retry and toggle
// correction (spec §4.4).
type Engine struct {
	bus   RawBus
	descs [NumPipes]PipeDesc
}

// NewEngine wraps bus.
func NewEngine(bus RawBus) *Engine {
	return &Engine{bus: bus}
}

func (e *Engine) Now() uint64                     { return e.bus.Now() }
func (e *Engine) AfterMillis(ms uint64) uint64    { return e.bus.AfterMillis(ms) }
func (e *Engine) MaxHostPacketSize() uint16       { return e.bus.MaxHostPacketSize() }

// ControlTransfer runs a full SETUP/DATA/STATUS control transaction on the
// control pipe (pipe 0).
func (e *Engine) ControlTransfer(ep *usb.Endpoint, reqType usb.RequestType, reqCode uint8, value usb.WValue, index uint16, buf []byte) (int, error) {
	setup := usb.NewSetupPacket(reqType, reqCode, value, index, uint16(len(buf)))
	ep.ResetToggle()

	setupBytes := setup.Bytes()
	if _, err := e.syncTx(ControlPipeIndex, TokenSetup, ep, setupBytes[:], 0, len(setupBytes)); err != nil {
		return 0, err
	}

	var n int
	var err error
	dataDirIn := reqType.Direction() == usb.DirectionIn
	if len(buf) > 0 {
		if dataDirIn {
			n, err = e.transferLoop(ControlPipeIndex, TokenIn, ep, buf, true)
		} else {
			n, err = e.transferLoop(ControlPipeIndex, TokenOut, ep, buf, false)
		}
		if err != nil {
			return n, err
		}
	}

	// STATUS stage: opposite direction of DATA; IN if there was no DATA
	// stage or DATA was OUT, OUT if DATA was IN.
	statusToken := TokenIn
	if len(buf) > 0 && dataDirIn {
		statusToken = TokenOut
	}
	var status [0]byte
	if _, err := e.syncTx(ControlPipeIndex, statusToken, ep, status[:], 0, 0); err != nil {
		return n, err
	}
	return n, nil
}

// InTransfer issues IN tokens on ep until buf is full or a short packet
// terminates the transfer.
func (e *Engine) InTransfer(ep *usb.Endpoint, buf []byte) (int, error) {
	return e.transferLoop(SharedPipeIndex, TokenIn, ep, buf, true)
}

// OutTransfer issues OUT tokens on ep until buf is fully sent.
func (e *Engine) OutTransfer(ep *usb.Endpoint, buf []byte) (int, error) {
	return e.transferLoop(SharedPipeIndex, TokenOut, ep, buf, false)
}

// transferLoop segments buf across max-packet-size boundaries, stopping
// early on a short packet when shortPacketTerminates is set (IN only).
func (e *Engine) transferLoop(pipeIdx int, token Token, ep *usb.Endpoint, buf []byte, shortPacketTerminates bool) (int, error) {
	offset := 0
	for offset < len(buf) {
		chunkLen := len(buf) - offset
		if mp := int(ep.MaxPacketSize); chunkLen > mp {
			chunkLen = mp
		}
		n, err := e.syncTx(pipeIdx, token, ep, buf, offset, chunkLen)
		if err != nil {
			return offset, err
		}
		offset += n
		if shortPacketTerminates && n < int(ep.MaxPacketSize) {
			break
		}
	}
	return offset, nil
}

// syncTx is the retry/timeout wrapper around one token's dispatch (spec
// §4.4). It busy-polls dispatchResult until done, NAK-exhaustion, STALL, or
// the 5s deadline.
func (e *Engine) syncTx(pipeIdx int, token Token, ep *usb.Endpoint, buf []byte, offset, length int) (int, error) {
	deadline := e.bus.AfterMillis(UsbTimeoutMillis)
	nakCount := 0

	for {
		if e.bus.Now() > deadline {
			return 0, NewHostError(ErrSoftTimeout)
		}

		e.dispatchPacket(pipeIdx, token, ep, buf, offset, length)

		var n int
		var kind HostErrorKind
		var done bool
		for {
			if e.bus.Now() > deadline {
				return 0, NewHostError(ErrSoftTimeout)
			}
			var pending bool
			n, kind, pending, done = e.dispatchResult(pipeIdx)
			if !pending {
				break
			}
		}

		if done {
			if token == TokenIn || token == TokenOut {
				ep.FlipToggle()
			}
			return n, nil
		}

		switch kind {
		case ErrToggle:
			// Corrective flip and retry; does not consume NAK budget.
			ep.FlipToggle()
			continue
		case ErrNak:
			if ep.Type == usb.TransferInterrupt {
				return 0, NewHostError(ErrNak)
			}
			nakCount++
		case ErrStall:
			return 0, NewHostError(ErrStall)
		default:
			nakCount++
		}

		if nakCount > NakLimit {
			return 0, NewHostError(kind)
		}
	}
}

// dispatchPacket programs the pipe descriptor for one token and starts the
// transaction (spec §4.4 "Per-token submission").
func (e *Engine) dispatchPacket(pipeIdx int, token Token, ep *usb.Endpoint, buf []byte, offset, length int) {
	desc := &e.descs[pipeIdx]
	toggle := ep.Toggle()
	if token == TokenSetup {
		toggle = true
	}
	desc.SetCtrlPipe(uint8(ep.DeviceAddr), ep.Address.Number(), token, toggle)
	desc.SetPacketSize(packetSizeClass(ep.MaxPacketSize), uint16(length))

	var data []byte
	if offset < len(buf) {
		data = buf[offset:]
	}
	e.bus.Submit(pipeIdx, desc, token, ep, data, 0)
}

// dispatchResult polls the pipe once, checking error conditions in the
// hardware-defined priority order (spec §4.4 "Completion polling"). While
// pending is true the other return values are meaningless; the caller
// polls again.
func (e *Engine) dispatchResult(pipeIdx int) (n int, kind HostErrorKind, pending, done bool) {
	desc := &e.descs[pipeIdx]
	if e.bus.Poll(pipeIdx, desc) {
		return 0, 0, true, false
	}
	status := desc.statusPipe()
	switch {
	case status&statusComplete != 0:
		return int(desc.ByteCount()), 0, false, true
	case status&statusNak != 0:
		return 0, ErrNak, false, false
	case status&statusCrc != 0:
		return 0, ErrCrc, false, false
	case status&statusPid != 0:
		return 0, ErrPid, false, false
	case status&statusDataPid != 0:
		return 0, ErrDataPid, false, false
	case status&statusTimeout != 0:
		return 0, ErrHardTimeout, false, false
	case status&statusToggle != 0:
		return 0, ErrToggle, false, false
	case status&statusStall != 0:
		return 0, ErrStall, false, false
	default:
		return 0, ErrFail, false, false
	}
}
