package station

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/beacon-station/internal/scanner"
	"github.com/nerrad567/beacon-station/internal/store"
)

// Default cadence.
const (
	DefaultSyncInterval = 15 * time.Second
	DefaultPollInterval = 250 * time.Millisecond
	DefaultScanDuration = 5 * time.Second
)

// Indicator pattern shown when the provisioning trigger is honoured.
const (
	provisioningBlinks      = 5
	provisioningBlinkPeriod = 500 * time.Millisecond
)

// Directory is the routing cache the loop consults every cycle.
type Directory interface {
	EnsureRoomID(ctx context.Context) error
	EnsureTagDirectory(ctx context.Context) error
	Lookup(address string) (tagID string, ok bool)
	RoomID() string
	Size() int
}

// Publisher writes observations to the store.
type Publisher interface {
	SetJSON(ctx context.Context, path string, payload any) error
}

// CredentialResetter clears stored network credentials.
type CredentialResetter interface {
	ResetCredentials(ctx context.Context) error
}

// Indicator is the operator-visible status output.
type Indicator interface {
	Blink(ctx context.Context, times int, period time.Duration)
}

// Recorder mirrors published observations, e.g. to a time-series database.
type Recorder interface {
	WriteObservation(stationID, roomID, tagID string, rssi, txPower int)
}

// CycleStream receives every finished cycle report, e.g. for live clients.
type CycleStream interface {
	PublishCycle(report CycleReport)
}

// Logger defines the logging interface used by the loop.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopIndicator struct{}

func (noopIndicator) Blink(context.Context, int, time.Duration) {}

// Observation is the record written for a matched advertiser.
type Observation struct {
	TxPower int `json:"txPower"`
	RSSI    int `json:"rssi"`
}

// Options holds the configuration and collaborators of a Loop.
type Options struct {
	// StationID is the station's identity in store paths. Required.
	StationID string

	// SyncInterval is the minimum time between cycle starts.
	// Zero uses DefaultSyncInterval.
	SyncInterval time.Duration

	// PollInterval is how often Run calls Tick. Zero uses DefaultPollInterval.
	PollInterval time.Duration

	// ScanDuration is the length of each sweep. Zero uses DefaultScanDuration.
	ScanDuration time.Duration

	// Directory, Scanner, Store and Provisioner are required.
	Directory   Directory
	Scanner     scanner.Scanner
	Store       Publisher
	Provisioner CredentialResetter

	// Trigger is the provisioning flag. If nil, the loop creates its own
	// (see Loop.Trigger).
	Trigger *Trigger

	// Optional collaborators.
	Indicator Indicator
	Clock     Clock
	Board     *StatusBoard
	Stream    CycleStream
	Recorder  Recorder
	Logger    Logger
}

// Loop is the station's sync loop. All loop state lives here.
type Loop struct {
	stationID    string
	syncInterval time.Duration
	pollInterval time.Duration
	scanDuration time.Duration

	directory   Directory
	scanner     scanner.Scanner
	store       Publisher
	provisioner CredentialResetter
	trigger     *Trigger
	indicator   Indicator
	clock       Clock
	board       *StatusBoard
	stream      CycleStream
	recorder    Recorder
	logger      Logger
	paths       store.Paths

	ran     bool
	lastRun time.Time
	cycles  uint64
}

// New creates a loop. It does not start it; call Run or drive Tick.
func New(opts Options) (*Loop, error) {
	switch {
	case opts.StationID == "":
		return nil, fmt.Errorf("%w: station id", ErrMissingDependency)
	case opts.Directory == nil:
		return nil, fmt.Errorf("%w: directory", ErrMissingDependency)
	case opts.Scanner == nil:
		return nil, fmt.Errorf("%w: scanner", ErrMissingDependency)
	case opts.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case opts.Provisioner == nil:
		return nil, fmt.Errorf("%w: provisioner", ErrMissingDependency)
	}

	l := &Loop{
		stationID:    opts.StationID,
		syncInterval: orDefault(opts.SyncInterval, DefaultSyncInterval),
		pollInterval: orDefault(opts.PollInterval, DefaultPollInterval),
		scanDuration: orDefault(opts.ScanDuration, DefaultScanDuration),
		directory:    opts.Directory,
		scanner:      opts.Scanner,
		store:        opts.Store,
		provisioner:  opts.Provisioner,
		trigger:      opts.Trigger,
		indicator:    opts.Indicator,
		clock:        opts.Clock,
		board:        opts.Board,
		stream:       opts.Stream,   // May be nil
		recorder:     opts.Recorder, // May be nil
		logger:       opts.Logger,
	}
	if l.trigger == nil {
		l.trigger = &Trigger{}
	}
	if l.indicator == nil {
		l.indicator = noopIndicator{}
	}
	if l.clock == nil {
		l.clock = systemClock{}
	}
	if l.board == nil {
		l.board = NewStatusBoard()
	}
	if l.logger == nil {
		l.logger = noopLogger{}
	}
	return l, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Trigger returns the loop's provisioning flag.
func (l *Loop) Trigger() *Trigger {
	return l.trigger
}

// Board returns the status board the loop publishes to.
func (l *Loop) Board() *StatusBoard {
	return l.board
}

// Run calls Tick every poll interval until ctx is cancelled (returning nil)
// or the provisioning trigger is honoured (returning ErrRestartRequested).
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	l.logger.Info("sync loop started",
		"sync_interval", l.syncInterval.String(),
		"scan_duration", l.scanDuration.String())

	for {
		if err := l.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			l.logger.Info("sync loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick honours a pending provisioning trigger, then runs a cycle if none
// has run yet or the sync interval has elapsed since the last one started.
// It returns ErrRestartRequested once the trigger has been honoured and
// nil otherwise.
func (l *Loop) Tick(ctx context.Context) error {
	if l.trigger.Pending() {
		return l.enterProvisioning(ctx)
	}

	now := l.clock.Now()
	if l.ran && now.Sub(l.lastRun) < l.syncInterval {
		return nil
	}
	l.ran = true
	l.lastRun = now

	l.cycle(ctx, now)
	return nil
}

func (l *Loop) enterProvisioning(ctx context.Context) error {
	ResetForProvisioning(ctx, l.indicator, l.provisioner, l.logger)
	return ErrRestartRequested
}

// ResetForProvisioning acknowledges a provisioning request on the indicator
// and clears the stored network credentials. A failed reset is logged; the
// caller restarts the station either way.
func ResetForProvisioning(ctx context.Context, ind Indicator, p CredentialResetter, logger Logger) {
	logger.Warn("provisioning requested, clearing network credentials")

	ind.Blink(ctx, provisioningBlinks, provisioningBlinkPeriod)
	if err := p.ResetCredentials(ctx); err != nil {
		logger.Error("resetting network credentials", "error", err)
	}
}

func (l *Loop) cycle(ctx context.Context, started time.Time) {
	l.cycles++
	report := CycleReport{Cycle: l.cycles, StartedAt: started}
	defer func() {
		l.finish(&report, started)
	}()

	if err := l.directory.EnsureRoomID(ctx); err != nil {
		l.logger.Warn("room id unresolved", "error", err)
	}
	if err := l.directory.EnsureTagDirectory(ctx); err != nil {
		l.logger.Warn("tag directory not loaded", "error", err)
	}

	devices, err := l.scanner.Scan(ctx, l.scanDuration)
	if err != nil {
		l.logger.Error("scan failed", "error", err)
		report.Error = err.Error()
		return
	}
	report.DevicesSeen = len(devices)

	roomID := l.directory.RoomID()
	for _, d := range devices {
		tagID, ok := l.directory.Lookup(d.Address)
		if !ok {
			continue
		}
		report.Matched++

		if roomID == "" {
			continue
		}
		l.publish(ctx, &report, roomID, tagID, d)
	}
}

func (l *Loop) publish(ctx context.Context, report *CycleReport, roomID, tagID string, d scanner.Device) {
	path := l.paths.Observation(roomID, tagID, l.stationID)
	obs := Observation{TxPower: d.TxPower, RSSI: d.RSSI}

	if err := l.store.SetJSON(ctx, path, obs); err != nil {
		report.Failed++
		l.logger.Warn("publishing observation", "path", path, "error", err)
		return
	}
	report.Published++
	l.logger.Debug("observation published",
		"tag_id", tagID, "address", d.Address, "rssi", d.RSSI, "tx_power", d.TxPower)

	if l.recorder != nil {
		l.recorder.WriteObservation(l.stationID, roomID, tagID, d.RSSI, d.TxPower)
	}
}

func (l *Loop) finish(report *CycleReport, started time.Time) {
	report.RoomID = l.directory.RoomID()
	report.DirectorySize = l.directory.Size()
	report.DurationMS = l.clock.Now().Sub(started).Milliseconds()

	l.board.Publish(*report)
	if l.stream != nil {
		l.stream.PublishCycle(*report)
	}

	l.logger.Info("cycle completed",
		"cycle", report.Cycle,
		"room_id", report.RoomID,
		"devices", report.DevicesSeen,
		"matched", report.Matched,
		"published", report.Published,
		"failed", report.Failed,
		"duration_ms", report.DurationMS)
}
