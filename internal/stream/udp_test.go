package stream

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *frameRecorder) Offer(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestParsePacket(t *testing.T) {
	payload := v1Record(1, 0xFFFF, 0, 0)
	pkt := EncodePacket(Frame{Version: VersionLegacy, Data: payload}, 7)

	if len(pkt) != packetHeaderSize+len(payload) {
		t.Fatalf("packet length = %d", len(pkt))
	}
	if pkt[11] != 7 {
		t.Errorf("sequence byte = %d, want 7", pkt[11])
	}

	f, err := ParsePacket(pkt)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	if f.Version != VersionLegacy || f.ColorMode != ColorModeRGB || !bytes.Equal(f.Data, payload) {
		t.Errorf("ParsePacket() = %+v", f)
	}
}

func TestParsePacket_Invalid(t *testing.T) {
	for name, pkt := range map[string][]byte{
		"empty":      nil,
		"short":      []byte("HueStream"),
		"wrong name": append([]byte("NotStream"), make([]byte, 10)...),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePacket(pkt); !errors.Is(err, ErrInvalidPacket) {
				t.Errorf("ParsePacket() error = %v, want ErrInvalidPacket", err)
			}
		})
	}
}

func TestReceiver(t *testing.T) {
	rec := &frameRecorder{}
	r := NewReceiver("127.0.0.1:0", rec)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Close() //nolint:errcheck // Test cleanup

	conn, err := net.Dial("udp", r.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("garbage")); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write(EncodePacket(Frame{Version: VersionClipV2, Data: v2Frame()}, 0)); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count() != 1 {
		t.Fatalf("frames received = %d, want 1", rec.count())
	}
	if rec.frames[0].Version != VersionClipV2 || len(rec.frames[0].Data) != HeaderSizeV2 {
		t.Errorf("frame = %+v", rec.frames[0])
	}

	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if r.Addr() != nil {
		t.Error("Addr() after Close() should be nil")
	}
}
