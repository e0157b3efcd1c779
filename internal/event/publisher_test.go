package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC)

func testPublisher() *Publisher {
	n := 0
	return NewPublisher(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("env-%d", n)
		}),
	)
}

func receive(t *testing.T, sub *Subscription) string {
	t.Helper()
	select {
	case b, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return string(b)
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return ""
	}
}

// ─── Framing ────────────────────────────────────────────────────────

func TestMessageFrame(t *testing.T) {
	msg := Message{
		ID: 3,
		Envelopes: []Envelope{
			Stamp(Update(map[string]string{"id": "ec-1", "status": "active"}), fixedNow, "env-1"),
		},
	}

	frame, err := msg.Frame()
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}

	want := `id: 3:0` + "\n" +
		`data: [{"creationtime":"2026-03-01T09:30:05Z","id":"env-1","type":"update","data":[{"id":"ec-1","status":"active"}]}]` +
		"\n\n"
	if string(frame) != want {
		t.Errorf("Frame() =\n%q\nwant\n%q", frame, want)
	}
}

func TestStamp_EmptyDataIsArray(t *testing.T) {
	env := Stamp(Change{Type: TypeDelete}, fixedNow, "x")
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(b), `"data":[]`) {
		t.Errorf("envelope = %s, want empty data array", b)
	}
}

func TestStamp_ConvertsToUTC(t *testing.T) {
	local := time.Date(2026, 3, 1, 10, 30, 5, 0, time.FixedZone("CET", 3600))
	env := Stamp(Add(), local, "x")
	if env.CreationTime != "2026-03-01T09:30:05Z" {
		t.Errorf("CreationTime = %q", env.CreationTime)
	}
}

// ─── Subscribe / Publish ────────────────────────────────────────────

func TestSubscribe_GreetingFirst(t *testing.T) {
	p := testPublisher()
	sub := p.Subscribe()

	if got := receive(t, sub); got != Greeting {
		t.Errorf("first message = %q, want greeting", got)
	}
	if p.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", p.SubscriberCount())
	}
}

func TestPublish_OrderAndIDs(t *testing.T) {
	p := testPublisher()
	sub := p.Subscribe()
	receive(t, sub)

	msg, ok := p.Publish(
		Add(map[string]string{"type": "light"}),
		Add(map[string]string{"type": "zigbee_connectivity"}),
		Update(map[string]string{"type": "entertainment_configuration"}),
	)
	if !ok {
		t.Fatal("Publish() returned false")
	}
	if msg.ID != 0 {
		t.Errorf("first message id = %d, want 0", msg.ID)
	}

	frame := receive(t, sub)
	if !strings.HasPrefix(frame, "id: 0:0\ndata: [") {
		t.Fatalf("frame header = %q", frame)
	}

	payload := strings.TrimSuffix(strings.TrimPrefix(frame, "id: 0:0\ndata: "), "\n\n")
	var envs []Envelope
	if err := json.Unmarshal([]byte(payload), &envs); err != nil {
		t.Fatalf("payload is not a JSON array: %v", err)
	}
	wantTypes := []Type{TypeAdd, TypeAdd, TypeUpdate}
	if len(envs) != len(wantTypes) {
		t.Fatalf("got %d envelopes, want %d", len(envs), len(wantTypes))
	}
	for i, env := range envs {
		if env.Type != wantTypes[i] {
			t.Errorf("envelope %d type = %q, want %q", i, env.Type, wantTypes[i])
		}
		if env.ID != fmt.Sprintf("env-%d", i+1) {
			t.Errorf("envelope %d id = %q", i, env.ID)
		}
	}

	msg2, _ := p.Publish(Delete(map[string]string{"id": "x"}))
	if msg2.ID != 1 {
		t.Errorf("second message id = %d, want 1", msg2.ID)
	}
	if got := receive(t, sub); !strings.HasPrefix(got, "id: 1:0\n") {
		t.Errorf("second frame = %q", got)
	}
}

func TestPublish_NothingToSend(t *testing.T) {
	p := testPublisher()
	if _, ok := p.Publish(); ok {
		t.Error("Publish() with no changes returned true")
	}
	msg, _ := p.Publish(Update())
	if msg.ID != 0 {
		t.Errorf("empty publish consumed an id: got %d", msg.ID)
	}
}

func TestPublish_FansOutToAll(t *testing.T) {
	p := testPublisher()
	subs := []*Subscription{p.Subscribe(), p.Subscribe(), p.Subscribe()}
	for _, s := range subs {
		receive(t, s)
	}

	p.Publish(Update(map[string]int{"n": 1}))

	for i, s := range subs {
		if got := receive(t, s); !strings.HasPrefix(got, "id: 0:0") {
			t.Errorf("subscriber %d got %q", i, got)
		}
	}
}

func TestPublish_SlowSubscriberDropped(t *testing.T) {
	p := testPublisher()
	slow := p.Subscribe()
	fast := p.Subscribe()

	// slow never reads; the greeting already occupies one slot.
	for i := 0; i < subscriberBuffer; i++ {
		p.Publish(Update(i))
		receive(t, fast)
		if i == 0 {
			receive(t, fast)
		}
	}

	if p.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1 after overflow", p.SubscriberCount())
	}

	drained := 0
	for range slow.C() {
		drained++
	}
	if drained != subscriberBuffer {
		t.Errorf("slow subscriber drained %d messages, want %d", drained, subscriberBuffer)
	}
}

func TestUnsubscribe(t *testing.T) {
	p := testPublisher()
	sub := p.Subscribe()

	p.Unsubscribe(sub)
	p.Unsubscribe(sub)

	if p.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", p.SubscriberCount())
	}

	receive(t, sub) // buffered greeting survives close
	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	if _, ok := p.Publish(Update(1)); !ok {
		t.Error("Publish() with no subscribers should still succeed")
	}
}

func TestMirror(t *testing.T) {
	p := testPublisher()

	var mu sync.Mutex
	var got []Message
	p.AddMirror(MirrorFunc(func(m Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}))

	p.Publish(Add("a"), Update("b"))

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || len(got[0].Envelopes) != 2 {
		t.Fatalf("mirror got %+v", got)
	}
}

func TestPublish_Concurrent(t *testing.T) {
	p := testPublisher()
	sub := p.Subscribe()
	receive(t, sub)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.Publish(Update(i))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		frame := receive(t, sub)
		header := frame[:strings.Index(frame, "\n")]
		if seen[header] {
			t.Errorf("duplicate message id %q", header)
		}
		seen[header] = true
	}
}
