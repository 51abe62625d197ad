// Beacon Station - BLE presence reporting
//
// The station scans for Bluetooth Low Energy beacons, maps the ones it
// recognises to tags of the room it is assigned to, and publishes signal
// observations to a remote key-value store on a fixed cadence.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
//   - SIGUSR1: provisioning reset (wired to the hardware button)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/beacon-station/migrations"

	"github.com/nerrad567/beacon-station/internal/api"
	"github.com/nerrad567/beacon-station/internal/directory"
	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
	"github.com/nerrad567/beacon-station/internal/infrastructure/database"
	"github.com/nerrad567/beacon-station/internal/infrastructure/influxdb"
	"github.com/nerrad567/beacon-station/internal/infrastructure/logging"
	"github.com/nerrad567/beacon-station/internal/infrastructure/mqtt"
	"github.com/nerrad567/beacon-station/internal/provision"
	"github.com/nerrad567/beacon-station/internal/scanner"
	"github.com/nerrad567/beacon-station/internal/station"
	"github.com/nerrad567/beacon-station/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/station.yaml"

// options are the parsed command-line flags.
type options struct {
	configPath  string
	showVersion bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("beacon-station %s (%s, %s)\n", version, commit, date)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, opts.configPath)
	cancel()

	if errors.Is(err, station.ErrRestartRequested) {
		// All deferred cleanup in run has completed; replace the process.
		fmt.Fprintf(os.Stderr, "restarting: %v\n", err)
		if restartErr := provision.NewExecRestarter().Restart(); restartErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", restartErr)
			os.Exit(1)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses the command line. The config path defaults to
// STATION_CONFIG, then to configs/station.yaml.
func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("beacon-station", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVarP(&opts.configPath, "config", "c", getConfigPath(), "path to the station configuration file")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// getConfigPath returns the configuration file path.
// Uses STATION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("STATION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown; wraps station.ErrRestartRequested when
//     the process should be re-executed; any other error is fatal
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting beacon station",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).WithStation(cfg.Station.ID)
	log.Info("configuration loaded",
		"path", configPath,
		"store_backend", cfg.Store.Backend,
		"sync_interval", cfg.Station.SyncInterval,
	)

	// The button is live from here on, so a press while the network is
	// coming up is not lost.
	trigger := &station.Trigger{}
	stopButton := watchProvisioningButton(trigger, log)
	defer stopButton()

	// Bring the network up before anything talks to it
	provisioner := provision.NewCommandProvisioner(cfg.Provisioning)
	provisioner.SetLogger(log)
	indicator := provision.NewIndicator(cfg.Indicator.LEDPath)
	indicator.SetLogger(log)

	ssid := cfg.ProvisioningSSID()
	if bootErr := provision.Boot(ctx, provisioner, indicator, ssid); bootErr != nil {
		if ctx.Err() != nil {
			return nil //nolint:nilerr // shutdown requested during boot
		}
		log.Error("network provisioning failed", "ssid", ssid, "error", bootErr)
		if trigger.Pending() {
			station.ResetForProvisioning(ctx, indicator, provisioner, log)
			return fmt.Errorf("%w: provisioning requested during boot: %w", station.ErrRestartRequested, bootErr)
		}
		// Pause so a station without a network does not restart in a tight loop.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Provisioning.RetryDelay):
		}
		return fmt.Errorf("%w: network provisioning: %w", station.ErrRestartRequested, bootErr)
	}
	log.Info("network up", "ssid", ssid)

	components := make(map[string]api.HealthChecker)

	kv, closeStore, err := openStore(ctx, cfg, log, components)
	if err != nil {
		return err
	}
	defer closeStore()

	// Connect to InfluxDB (optional)
	var recorder station.Recorder
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		recorder = influxClient
		components["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	cache := directory.New(cfg.Station.ID, kv)
	cache.SetLogger(log)

	ble := scanner.NewBLE()
	ble.SetLogger(log)

	board := station.NewStatusBoard()

	// Status API (optional)
	var stream station.CycleStream
	if cfg.API.Enabled {
		hub := api.NewHub(cfg.WebSocket, log)
		server, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Logger:     log,
			StationID:  cfg.Station.ID,
			Version:    version,
			Board:      board,
			Trigger:    trigger,
			Hub:        hub,
			Components: components,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		stream = hub
	} else {
		log.Info("status API disabled")
	}

	loop, err := station.New(station.Options{
		StationID:    cfg.Station.ID,
		SyncInterval: cfg.Station.SyncInterval,
		PollInterval: cfg.Station.PollInterval,
		ScanDuration: cfg.Scanner.Duration,
		Directory:    cache,
		Scanner:      ble,
		Store:        kv,
		Provisioner:  provisioner,
		Trigger:      trigger,
		Indicator:    indicator,
		Board:        board,
		Stream:       stream,
		Recorder:     recorder,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("creating sync loop: %w", err)
	}

	log.Info("initialisation complete, sync loop running")
	if err := loop.Run(ctx); err != nil {
		if errors.Is(err, station.ErrRestartRequested) {
			log.Warn("restart requested, shutting down for re-exec")
		}
		return err
	}

	log.Info("beacon station stopped")
	return nil
}

// openStore connects the configured store backend and registers its
// infrastructure in components for health reporting.
//
// Returns:
//   - store.Store: Ready store client
//   - func(): Releases the backend's connections; always non-nil
//   - error: If the backend cannot be reached
func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger, components map[string]api.HealthChecker) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMQTT:
		if cfg.MQTT.Broker.ClientID == "" {
			cfg.MQTT.Broker.ClientID = cfg.Station.ID
		}
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connecting to MQTT: %w", err)
		}
		client.SetLogger(log)
		client.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		client.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		components["mqtt"] = client

		closeFn := func() {
			log.Info("disconnecting from MQTT")
			if err := client.Close(); err != nil {
				log.Error("error closing MQTT", "error", err)
			}
		}
		return store.NewMQTT(client, 0), closeFn, nil

	case config.StoreBackendSQLite:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, func() {}, fmt.Errorf("opening database: %w", err)
		}
		closeFn := func() {
			log.Info("closing database")
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		}
		if err := db.Migrate(ctx); err != nil {
			closeFn()
			return nil, func() {}, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", cfg.Database.Path)
		components["database"] = db
		return store.NewSQLite(db), closeFn, nil

	default:
		rtdb, err := store.NewRTDB(cfg.RTDB, cfg.Store.RequestTimeout)
		if err != nil {
			return nil, func() {}, fmt.Errorf("creating RTDB client: %w", err)
		}
		log.Info("RTDB store configured", "url", cfg.RTDB.URL)
		return rtdb, func() {}, nil
	}
}

// watchProvisioningButton raises the trigger on SIGUSR1. The returned
// function stops watching.
func watchProvisioningButton(trigger *station.Trigger, log *logging.Logger) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sigCh:
				log.Warn("provisioning button pressed")
				trigger.Raise()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
