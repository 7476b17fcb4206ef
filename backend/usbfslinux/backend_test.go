package usbfslinux

import (
	"testing"

	"github.com/usbhoststack/usbhost/pipe"
)

func TestBackendUpdateDrivesResetThenReadyOnce(t *testing.T) {
	var b Backend

	if ev := b.Update(); ev != pipe.EventReset {
		t.Fatalf("Update() #1 = %v, want EventReset", ev)
	}
	if ev := b.Update(); ev != pipe.EventReady {
		t.Fatalf("Update() #2 = %v, want EventReady", ev)
	}
	for i := 0; i < 3; i++ {
		if ev := b.Update(); ev != pipe.EventNone {
			t.Fatalf("Update() #%d = %v, want EventNone", i+3, ev)
		}
	}
}
