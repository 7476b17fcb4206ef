// Command usbhostd drives the USB host stack against a single Linux usbfs
// device, polling boot-keyboard and USB-MIDI class drivers and logging
// what they observe. It is a demo of the stack wired to a real backend, not
// a general-purpose USB utility.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/usbhoststack/usbhost/backend/usbfslinux"
	"github.com/usbhoststack/usbhost/driver/hid"
	"github.com/usbhoststack/usbhost/driver/midi"
	"github.com/usbhoststack/usbhost/stack"
	"github.com/usbhoststack/usbhost/usb"
)

func main() {
	bus := flag.Int("bus", 1, "USB bus number")
	device := flag.Int("device", 1, "USB device number")
	poll := flag.Duration("poll", 5*time.Millisecond, "stack update interval")
	flag.Parse()

	backend, err := usbfslinux.Open(*bus, *device)
	if err != nil {
		log.Fatalf("usbhostd: %v", err)
	}
	defer backend.Close()

	s := stack.NewUsbStack(backend)

	keyboards := hid.New(func(addr usb.DevAddress, report usb.BootKeyboardReport) {
		log.Printf("keyboard[%d]: modifiers=0x%02x keys=%v", addr, report.Modifiers, report.Keycodes)
	})
	if err := s.AddDriver(keyboards); err != nil {
		log.Fatalf("usbhostd: %v", err)
	}

	midiDevices := midi.New(func(addr usb.DevAddress, pkt usb.MIDIEventPacket) {
		log.Printf("midi[%d]: cable=%d cin=%x data=%02x %02x %02x", addr, pkt.CableNumber, pkt.CodeIndex, pkt.MIDI0, pkt.MIDI1, pkt.MIDI2)
	}, nil)
	if err := s.AddDriver(midiDevices); err != nil {
		log.Fatalf("usbhostd: %v", err)
	}

	log.Printf("usbhostd: polling bus %d device %d every %s", *bus, *device, *poll)
	ticker := time.NewTicker(*poll)
	defer ticker.Stop()
	for range ticker.C {
		s.Update()
	}
}
