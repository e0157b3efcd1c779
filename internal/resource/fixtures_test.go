package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/infrastructure/database"
	"github.com/nerrad567/bridgesim/internal/snapshot"
	_ "github.com/nerrad567/bridgesim/migrations"
)

// fixture is a resource graph written as default templates.
type fixture struct {
	devices       []Device
	lights        []Light
	zigbee        []ZigbeeConnectivity
	entertainment []Entertainment
	configs       []EntertainmentConfiguration
	omit          map[string]bool
}

// withLights adds lights 1..n with their companions, ids "light-N",
// "zigbee-N", "ent-N" and "device-N".
func (f *fixture) withLights(n int) *fixture {
	for i := 1; i <= n; i++ {
		idv1 := fmt.Sprintf("/lights/%d", i)
		f.lights = append(f.lights, Light{
			ID: fmt.Sprintf("light-%d", i), IDV1: idv1, Dynamics: map[string]any{},
			Metadata: Metadata{Archetype: "hue_bulb", Name: fmt.Sprintf("Bulb %d", i)},
			Mode:     ModeNormal, Type: TypeLight,
		})
		f.zigbee = append(f.zigbee, ZigbeeConnectivity{
			ID: fmt.Sprintf("zigbee-%d", i), IDV1: idv1, Status: "connected", Type: TypeZigbeeConnectivity,
		})
		f.entertainment = append(f.entertainment, Entertainment{
			ID: fmt.Sprintf("ent-%d", i), IDV1: idv1, Proxy: true, Renderer: true, Type: TypeEntertainment,
		})
		f.devices = append(f.devices, Device{
			ID: fmt.Sprintf("device-%d", i), IDV1: idv1, Type: TypeDevice,
			Services: []Ref{
				{RID: fmt.Sprintf("light-%d", i), RType: TypeLight},
				{RID: fmt.Sprintf("zigbee-%d", i), RType: TypeZigbeeConnectivity},
				{RID: fmt.Sprintf("ent-%d", i), RType: TypeEntertainment},
			},
		})
	}
	return f
}

// withConfig adds a configuration whose channel i renders the numbered
// lights in channels[i].
func (f *fixture) withConfig(id string, channels ...[]int) *fixture {
	ec := EntertainmentConfiguration{
		ID: id, IDV1: "/groups/" + id, Type: TypeEntertainmentConfiguration,
		Name: id, Status: StatusInactive,
		Channels:      []Channel{},
		LightServices: []Ref{},
		Locations:     Locations{ServiceLocations: []ServiceLocation{}},
	}
	seen := map[int]bool{}
	for chID, lights := range channels {
		ch := Channel{ChannelID: chID, Position: Position{X: float64(chID) / 10}}
		for _, n := range lights {
			svc := Ref{RID: fmt.Sprintf("ent-%d", n), RType: TypeEntertainment}
			ch.Members = append(ch.Members, Member{Service: svc})
			if !seen[n] {
				seen[n] = true
				ec.LightServices = append(ec.LightServices, Ref{RID: fmt.Sprintf("light-%d", n), RType: TypeLight})
				ec.Locations.ServiceLocations = append(ec.Locations.ServiceLocations, ServiceLocation{Service: svc, Position: ch.Position})
			}
		}
		ec.Channels = append(ec.Channels, ch)
	}
	f.configs = append(f.configs, ec)
	return f
}

func (f *fixture) without(kind string) *fixture {
	if f.omit == nil {
		f.omit = map[string]bool{}
	}
	f.omit[kind] = true
	return f
}

func (f *fixture) fs(t *testing.T) fstest.MapFS {
	t.Helper()
	files := fstest.MapFS{}
	put := func(kind string, v any) {
		if f.omit[kind] {
			return
		}
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s fixture: %v", kind, err)
		}
		files["default_"+kind+".json"] = &fstest.MapFile{Data: data}
	}
	put(snapshot.KindDevice, Collection[Device]{Errors: []any{}, Data: f.devices})
	put(snapshot.KindLight, Collection[Light]{Errors: []any{}, Data: f.lights})
	put(snapshot.KindZigbeeConnectivity, Collection[ZigbeeConnectivity]{Errors: []any{}, Data: f.zigbee})
	put(snapshot.KindEntertainment, Collection[Entertainment]{Errors: []any{}, Data: f.entertainment})
	put(snapshot.KindEntertainmentConfiguration, Collection[EntertainmentConfiguration]{Errors: []any{}, Data: f.configs})
	for _, kind := range []string{snapshot.KindBridge, snapshot.KindZone, snapshot.KindScene} {
		put(kind, Collection[map[string]string]{Errors: []any{}, Data: []map[string]string{{"id": kind + "-1", "type": kind}}})
	}
	return files
}

// open loads the fixture into a store persisting under a temp dir.
func (f *fixture) open(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return openDir(t, dir, f.fs(t)), dir
}

func openDir(t *testing.T, dir string, defaults fstest.MapFS) *Store {
	t.Helper()
	n := 0
	store := NewStore(snapshot.NewFileStore(dir, defaults), WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}))
	if err := store.Load(context.Background()); err != nil {
		t.Logf("Load() reported: %v", err)
	}
	return store
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func changeTypes(changes []event.Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = string(c.Type)
	}
	return out
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}
