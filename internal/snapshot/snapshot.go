package snapshot

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Resource kinds with snapshots or default templates.
const (
	KindDevice                     = "device"
	KindLight                      = "light"
	KindZigbeeConnectivity         = "zigbee_connectivity"
	KindEntertainment              = "entertainment"
	KindEntertainmentConfiguration = "entertainment_configuration"
	KindBridge                     = "bridge"
	KindZone                       = "zone"
	KindScene                      = "scene"
	KindGroups                     = "groups"
	KindLights                     = "lights"
)

//go:embed defaults/*.json
var embedded embed.FS

// Defaults returns the templates compiled into the binary.
func Defaults() fs.FS {
	sub, err := fs.Sub(embedded, "defaults")
	if err != nil {
		panic(err) // embed pattern guarantees the directory
	}
	return sub
}

// Store loads and saves resource snapshots.
type Store interface {
	// Load returns the current snapshot, or the default template when no
	// current snapshot can be read.
	Load(ctx context.Context, kind string) ([]byte, error)

	// LoadDefault returns the default template, ignoring any current snapshot.
	LoadDefault(ctx context.Context, kind string) ([]byte, error)

	// Save replaces the current snapshot.
	Save(ctx context.Context, kind string, data []byte) error
}

func currentName(kind string) string { return "current_" + kind + ".json" }
func defaultName(kind string) string { return "default_" + kind + ".json" }

func validKind(kind string) error {
	if kind == "" || strings.ContainsAny(kind, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return nil
}

// readDefault tries each filesystem in order.
func readDefault(kind string, sources ...fs.FS) ([]byte, error) {
	var lastErr error
	for _, src := range sources {
		if src == nil {
			continue
		}
		data, err := fs.ReadFile(src, defaultName(kind))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("reading default %s: %w", kind, lastErr)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, kind)
}
