// Bridgesim simulates a Hue bridge for entertainment streaming clients.
//
// It serves the bridge's REST surface for either protocol generation, the
// legacy flat groups or the resource graph with its event stream, and
// decodes the colour frames a streaming client sends. The develop routes
// and the display WebSocket let a GUI inspect and reshape the simulated
// setup while a client is connected.
//
// Usage:
//
//	bridgesim serve [flags]
//	bridgesim version
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/bridgesim/migrations"

	"github.com/nerrad567/bridgesim/internal/api"
	"github.com/nerrad567/bridgesim/internal/audit"
	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/infrastructure/config"
	"github.com/nerrad567/bridgesim/internal/infrastructure/database"
	"github.com/nerrad567/bridgesim/internal/infrastructure/influxdb"
	"github.com/nerrad567/bridgesim/internal/infrastructure/logging"
	"github.com/nerrad567/bridgesim/internal/infrastructure/mqtt"
	"github.com/nerrad567/bridgesim/internal/legacy"
	"github.com/nerrad567/bridgesim/internal/mirror"
	"github.com/nerrad567/bridgesim/internal/ownership"
	"github.com/nerrad567/bridgesim/internal/resource"
	"github.com/nerrad567/bridgesim/internal/snapshot"
	"github.com/nerrad567/bridgesim/internal/stream"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serveOptions are the command-line overrides of the serve command.
type serveOptions struct {
	configPath string
	clipV2     bool
	legacy     bool
	storageDir string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bridgesim",
		Short: "Hue bridge entertainment simulator",
		Long: `A simulated Hue bridge for developing entertainment streaming clients.

The simulator answers the bridge's REST API, arbitrates stream ownership and
decodes the colour frames a client sends, so the result can be inspected
without real lights.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulated bridge",
		Long: `Run the simulated bridge until interrupted.

The protocol generation follows bridge.generation in the config file. With
"auto" the resource graph is served when bridge.swversion is at least
1941088000, the legacy groups API otherwise.`,
		Example: `  # Serve with configs/config.yaml or BRIDGESIM_CONFIG
  bridgesim serve

  # Force the legacy generation and keep snapshots in ./state
  bridgesim serve --legacy --storage ./state`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", getConfigPath(), "Path to the YAML config file")
	cmd.Flags().BoolVar(&opts.clipV2, "clipv2", false, "Serve the resource-graph generation")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "Serve the legacy groups generation")
	cmd.Flags().StringVar(&opts.storageDir, "storage", "", "Snapshot directory (overrides storage.dir)")
	cmd.MarkFlagsMutuallyExclusive("clipv2", "legacy")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bridgesim %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// getConfigPath returns the configuration file path.
// Uses BRIDGESIM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BRIDGESIM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig(opts serveOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	switch {
	case opts.clipV2:
		cfg.Bridge.Generation = config.GenerationClipV2
	case opts.legacy:
		cfg.Bridge.Generation = config.GenerationLegacy
	}
	if opts.storageDir != "" {
		cfg.Storage.Dir = opts.storageDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context, opts serveOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := logging.Default()
	log.Info("starting bridgesim",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "path", opts.configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	generation := cfg.ResolveGeneration()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"generation", generation,
	)

	snapshots, db, err := openSnapshots(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}

	events := event.NewPublisher()
	events.SetLogger(log.Component("events"))

	deps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Bridge:     cfg.Bridge,
		Generation: generation,
		Logger:     log.Component("api"),
		Events:     events,
		Version:    version,
	}

	var (
		ledger ownership.Ledger
		layout stream.Layout
	)
	switch generation {
	case config.GenerationClipV2:
		store := resource.NewStore(snapshots)
		store.SetLogger(log.Component("resource"))
		if loadErr := store.Load(ctx); loadErr != nil {
			log.Warn("resource graph partially loaded", "error", loadErr)
		}
		deps.Resources = store
		ledger, layout = store, store
	default:
		store := legacy.NewStore(snapshots)
		store.SetLogger(log.Component("legacy"))
		if loadErr := store.Load(ctx); loadErr != nil {
			log.Warn("legacy groups partially loaded", "error", loadErr)
		}
		deps.Groups = store
		ledger, layout = store, store
	}

	arbiter := ownership.NewArbiter(ledger, events, ownership.Config{
		Timeout:     cfg.GetSessionTimeout(),
		LocalOwners: []string{cfg.Bridge.ApplicationID, cfg.Bridge.Username},
		OnExpire: func(s ownership.Session) {
			log.Info("stream session expired", "id", s.ID, "owner", s.Owner)
		},
	})
	arbiter.SetLogger(log.Component("ownership"))
	defer arbiter.Close()
	deps.Arbiter = arbiter

	poller := stream.NewPoller(layout, stream.PollerConfig{
		Interval: cfg.GetPollInterval(),
		OnFrame:  arbiter.Keepalive,
	})
	poller.SetLogger(log.Component("stream"))
	deps.Stream = poller

	// Change history needs the database
	if db != nil {
		history := audit.NewSQLiteRepository(db.DB)
		recorder := audit.NewRecorder(history)
		recorder.SetLogger(log.Component("audit"))
		defer recorder.Close()
		events.AddMirror(recorder)
		deps.Audit = history
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	poller.AddSink(srv.Hub())
	events.AddMirror(srv.Hub())

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", net.JoinHostPort(cfg.MQTT.Broker.Host, strconv.Itoa(cfg.MQTT.Broker.Port)),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttMirror := mirror.NewMQTT(mqttClient, mirror.MQTTConfig{QoS: mqttClient.QoS()})
		mqttMirror.SetLogger(log.Component("mirror"))
		defer mqttMirror.Close()
		events.AddMirror(mqttMirror)
		poller.AddSink(mqttMirror)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		poller.AddSink(mirror.NewInflux(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Receive entertainment datagrams (optional)
	if cfg.Stream.UDPPort > 0 {
		receiver := stream.NewReceiver(net.JoinHostPort(cfg.Stream.UDPHost, strconv.Itoa(cfg.Stream.UDPPort)), poller)
		receiver.SetLogger(log.Component("udp"))
		if startErr := receiver.Start(ctx); startErr != nil {
			return fmt.Errorf("starting stream receiver: %w", startErr)
		}
		defer func() {
			if closeErr := receiver.Close(); closeErr != nil {
				log.Error("error closing stream receiver", "error", closeErr)
			}
		}()
	}

	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		poller.Run(ctx) //nolint:errcheck // returns ctx.Err() on shutdown
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, srv, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal", "api", srv.Addr().String())

	<-ctx.Done()
	<-pollDone

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// openSnapshots returns the snapshot store selected by storage.backend.
// The database is returned for the SQLite backend so the caller can close
// it; it is nil otherwise.
func openSnapshots(ctx context.Context, cfg *config.Config, log *logging.Logger) (snapshot.Store, *database.DB, error) {
	if cfg.Storage.Backend != config.StorageSQLite {
		log.Info("snapshot storage", "backend", config.StorageFile, "dir", cfg.Storage.Dir)
		return snapshot.NewFileStore(cfg.Storage.Dir, snapshot.Defaults()), nil, nil
	}

	db, err := database.Open(database.ConfigFrom(cfg.Database))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("snapshot storage", "backend", config.StorageSQLite, "path", db.Path())
	return snapshot.NewSQLiteStore(db, snapshot.Defaults()), db, nil
}

// healthCheck verifies the server and every enabled connection. db,
// mqttClient and influxClient may be nil.
func healthCheck(ctx context.Context, srv *api.Server, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := srv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
