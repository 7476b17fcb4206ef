package usb

import "testing"

// buildConfig assembles a minimal, well-formed configuration descriptor set
// with one interface and one endpoint, for parser tests.
func buildConfig() []byte {
	cfg := []byte{9, byte(DescriptorTypeConfiguration), 0, 0, 1, 1, 0, 0, 0}
	iface := []byte{9, byte(DescriptorTypeInterface), 0, 0, 1, byte(ClassHID), byte(HIDSubclassBoot), HIDProtocolKeyboard, 0}
	ep := []byte{7, byte(DescriptorTypeEndpoint), 0x81, 3, 8, 0, 10}

	var buf []byte
	buf = append(buf, cfg...)
	buf = append(buf, iface...)
	buf = append(buf, ep...)

	total := len(buf)
	buf[2] = byte(total)
	buf[3] = byte(total >> 8)
	return buf
}

func TestDescriptorParserYieldsEverything(t *testing.T) {
	buf := buildConfig()
	p := NewDescriptorParser(buf)

	var sum int
	var interfaces, endpoints int
	for {
		d, ok := p.Next()
		if !ok {
			break
		}
		sum += len(d.Raw)
		switch d.Kind {
		case KindInterface:
			interfaces++
		case KindEndpoint:
			endpoints++
		}
	}
	if sum != len(buf) {
		t.Fatalf("sum of yielded lengths = %d, want %d", sum, len(buf))
	}
	if interfaces != 1 {
		t.Fatalf("interfaces = %d, want 1", interfaces)
	}
	if endpoints != 1 {
		t.Fatalf("endpoints = %d, want 1", endpoints)
	}
}

func TestDescriptorParserEmptyBuffer(t *testing.T) {
	p := NewDescriptorParser(nil)
	if _, ok := p.Next(); ok {
		t.Fatal("Next() on an empty buffer returned a descriptor")
	}
}

func TestDescriptorParserZeroLengthStopsCleanly(t *testing.T) {
	buf := buildConfig()
	// Corrupt the endpoint descriptor's bLength to 0, mid-buffer.
	buf[len(buf)-7] = 0
	p := NewDescriptorParser(buf)

	count := 0
	for {
		if _, ok := p.Next(); !ok {
			break
		}
		count++
		if count > 100 {
			t.Fatal("parser looped without terminating on bLength=0")
		}
	}
	if count != 2 { // configuration + interface, then stops at the zero-length one
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestDescriptorParserRewind(t *testing.T) {
	buf := buildConfig()
	p := NewDescriptorParser(buf)
	p.Next()
	p.Next()
	p.Rewind()
	d, ok := p.Next()
	if !ok || d.Kind != KindConfiguration {
		t.Fatalf("after Rewind(), first descriptor kind = %v, ok=%v", d.Kind, ok)
	}
}

func TestDescriptorParserRoutesClassInterfaceByCurrentClass(t *testing.T) {
	// Audio Control interface followed by a class-specific interface
	// descriptor (header) must route to KindAudioControl.
	iface := []byte{9, byte(DescriptorTypeInterface), 0, 0, 0, byte(ClassAudio), byte(AudioSubclassControl), 0, 0}
	acHeader := []byte{9, byte(DescriptorTypeClassInterface), byte(ACHeader), 0, 0, 0, 0, 0, 0}

	var buf []byte
	buf = append(buf, iface...)
	buf = append(buf, acHeader...)

	p := NewDescriptorParser(buf)
	p.Next() // interface
	d, ok := p.Next()
	if !ok || d.Kind != KindAudioControl {
		t.Fatalf("class-specific descriptor kind = %v, ok=%v, want KindAudioControl", d.Kind, ok)
	}
}
