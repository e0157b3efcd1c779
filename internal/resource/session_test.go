package resource

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/ownership"
)

// ─── Transition ─────────────────────────────────────────────────────

func TestTransition_Activate(t *testing.T) {
	store, _ := (&fixture{}).withLights(2).withConfig("ec-a", []int{1}, []int{2}).open(t)

	changes, err := store.Transition("ec-a", ownership.Claim("app-1"))
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	want := []string{
		`{"active_streamer":{"rid":"app-1","rtype":"auth_v1"},"id":"ec-a","id_v1":"/groups/ec-a","type":"entertainment_configuration"}`,
		`{"id":"ec-a","id_v1":"/groups/ec-a","status":"active","type":"entertainment_configuration"}`,
		`{"id":"light-1","id_v1":"/lights/1","mode":"streaming","type":"light"}`,
		`{"id":"light-2","id_v1":"/lights/2","mode":"streaming","type":"light"}`,
	}
	if len(changes) != len(want) {
		t.Fatalf("changes = %d, want %d", len(changes), len(want))
	}
	for i, w := range want {
		if changes[i].Type != event.TypeUpdate {
			t.Errorf("change %d type = %s, want update", i, changes[i].Type)
		}
		if got := mustJSON(t, changes[i].Data[0]); got != w {
			t.Errorf("change %d = %s\nwant %s", i, got, w)
		}
	}

	ec, _ := store.EntertainmentConfiguration("ec-a")
	if ec.Status != StatusActive || ec.ActiveStreamer == nil || ec.ActiveStreamer.RID != "app-1" {
		t.Errorf("configuration = %s/%v", ec.Status, ec.ActiveStreamer)
	}
	if s, ok := store.ActiveSession(); !ok || s != (ownership.Session{ID: "ec-a", Active: true, Owner: "app-1"}) {
		t.Errorf("ActiveSession() = %+v, %v", s, ok)
	}
	if n, ok := store.ActiveChannelCount(); !ok || n != 2 {
		t.Errorf("ActiveChannelCount() = %d, %v; want 2", n, ok)
	}
}

func TestTransition_Deactivate(t *testing.T) {
	store, _ := (&fixture{}).withLights(1).withConfig("ec-a", []int{1}).open(t)
	if _, err := store.Transition("ec-a", ownership.Claim("app-1")); err != nil {
		t.Fatal(err)
	}

	changes, err := store.Transition("ec-a", ownership.Release())
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	want := []string{
		`{"id":"ec-a","id_v1":"/groups/ec-a","status":"inactive","type":"entertainment_configuration"}`,
		`{"id":"light-1","id_v1":"/lights/1","mode":"normal","type":"light"}`,
	}
	var got []string
	for _, c := range changes {
		got = append(got, mustJSON(t, c.Data[0]))
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("changes = %v\nwant %v", got, want)
	}

	ec, _ := store.EntertainmentConfiguration("ec-a")
	if ec.Status != StatusInactive || ec.ActiveStreamer != nil {
		t.Errorf("configuration = %s/%v, want inactive without streamer", ec.Status, ec.ActiveStreamer)
	}
	if _, ok := store.ActiveChannelCount(); ok {
		t.Error("ActiveChannelCount() reports a layout with nothing active")
	}
}

func TestTransition_NoopProducesNoChanges(t *testing.T) {
	store, _ := (&fixture{}).withLights(1).withConfig("ec-a", []int{1}).open(t)

	if changes, err := store.Transition("ec-a", ownership.Release()); err != nil || changes != nil {
		t.Errorf("releasing an inactive configuration = %v, %v; want no changes", changes, err)
	}
	if _, err := store.Transition("ec-a", ownership.Claim("app-1")); err != nil {
		t.Fatal(err)
	}
	if changes, err := store.Transition("ec-a", ownership.Claim("app-1")); err != nil || changes != nil {
		t.Errorf("re-claim = %v, %v; want no changes", changes, err)
	}
}

func TestTransition_Exclusion(t *testing.T) {
	store, _ := (&fixture{}).withLights(2).
		withConfig("ec-a", []int{1}).
		withConfig("ec-b", []int{2}).
		open(t)

	if _, err := store.Transition("ec-a", ownership.Claim("app-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Transition("ec-a", ownership.Claim("app-2")); !errors.Is(err, ownership.ErrOwnershipConflict) {
		t.Errorf("claim by other owner error = %v, want ErrOwnershipConflict", err)
	}
	if _, err := store.Transition("ec-b", ownership.Claim("app-1")); !errors.Is(err, ownership.ErrOwnershipConflict) {
		t.Errorf("claim of second configuration error = %v, want ErrOwnershipConflict", err)
	}
	b, _ := store.EntertainmentConfiguration("ec-b")
	if b.Status != StatusInactive {
		t.Error("rejected claim changed ec-b")
	}
}

func TestTransition_UnknownConfiguration(t *testing.T) {
	store, _ := (&fixture{}).withConfig("ec-a").open(t)
	if _, err := store.Transition("nope", ownership.Claim("app-1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Transition() error = %v, want ErrNotFound", err)
	}
}

// Lights are matched to light services by list position. This test pins
// the current behavior: when the light list is ordered differently from
// the configuration's light services, only lights at matching positions
// switch mode.
func TestTransition_LightModeMatchedByPosition(t *testing.T) {
	f := (&fixture{}).withLights(3).withConfig("ec-a", []int{1}, []int{2}, []int{3})
	f.lights[0], f.lights[2] = f.lights[2], f.lights[0]
	store, _ := f.open(t)

	changes, err := store.Transition("ec-a", ownership.Claim("app-1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 3 {
		t.Fatalf("changes = %d, want 2 configuration updates and 1 light update", len(changes))
	}
	if got := mustJSON(t, changes[2].Data[0]); got != `{"id":"light-2","id_v1":"/lights/2","mode":"streaming","type":"light"}` {
		t.Errorf("light update = %s", got)
	}

	for id, want := range map[string]string{"light-1": ModeNormal, "light-2": ModeStreaming, "light-3": ModeNormal} {
		if l, _ := store.Light(id); l.Mode != want {
			t.Errorf("%s mode = %q, want %q", id, l.Mode, want)
		}
	}
}

// ─── Idle timeout ───────────────────────────────────────────────────

// nextFrame returns the decoded data line of the next pushed message.
func nextFrame(t *testing.T, sub *event.Subscription) []event.Envelope {
	t.Helper()
	select {
	case b := <-sub.C():
		for _, line := range strings.Split(string(b), "\n") {
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			var envs []event.Envelope
			if err := json.Unmarshal([]byte(data), &envs); err != nil {
				t.Fatalf("unmarshal %q: %v", data, err)
			}
			return envs
		}
		t.Fatalf("frame without data: %q", b)
	case <-time.After(2 * time.Second):
		t.Fatal("no message pushed")
	}
	return nil
}

// configItems returns the payload items naming configuration id.
func configItems(envs []event.Envelope, id string) []map[string]any {
	var out []map[string]any
	for _, env := range envs {
		for _, item := range env.Data {
			m, ok := item.(map[string]any)
			if ok && m["id"] == id && m["type"] == TypeEntertainmentConfiguration {
				out = append(out, m)
			}
		}
	}
	return out
}

func TestIdleTimeout_PublishesInactiveConfiguration(t *testing.T) {
	store, _ := (&fixture{}).withLights(1).withConfig("ec-a", []int{1}).open(t)
	pub := event.NewPublisher()
	sub := pub.Subscribe()
	defer pub.Unsubscribe(sub)

	arb := ownership.NewArbiter(store, pub, ownership.Config{
		Timeout:     40 * time.Millisecond,
		LocalOwners: []string{"app-1"},
	})
	defer arb.Close()

	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatal("no greeting")
	}

	if _, err := arb.Activate("ec-a", "app-1"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	started := configItems(nextFrame(t, sub), "ec-a")
	if len(started) != 2 || started[1]["status"] != StatusActive {
		t.Fatalf("activation items = %v", started)
	}

	// No frames arrive: the watchdog reclaims the session.
	envs := nextFrame(t, sub)
	if len(envs) == 0 || envs[0].Type != event.TypeUpdate {
		t.Fatalf("timeout envelopes = %+v, want updates", envs)
	}
	stopped := configItems(envs, "ec-a")
	if len(stopped) != 1 {
		t.Fatalf("timeout items = %v, want one status update", stopped)
	}
	if stopped[0]["status"] != StatusInactive {
		t.Errorf("status = %v, want %s", stopped[0]["status"], StatusInactive)
	}
	if _, ok := stopped[0]["active_streamer"]; ok {
		t.Errorf("timeout update carries active_streamer: %v", stopped[0])
	}

	ec, err := store.EntertainmentConfiguration("ec-a")
	if err != nil {
		t.Fatal(err)
	}
	if ec.Status != StatusInactive || ec.ActiveStreamer != nil {
		t.Errorf("configuration = %s/%v, want inactive without streamer", ec.Status, ec.ActiveStreamer)
	}
	if _, ok := store.ActiveSession(); ok {
		t.Error("ActiveSession() reports a session after the timeout")
	}
}
