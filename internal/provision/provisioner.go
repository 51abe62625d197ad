package provision

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
)

// ssidPlaceholder is replaced with the provisioning network name in
// connect_command.
const ssidPlaceholder = "{ssid}"

// outputLimit caps command output kept for error messages.
const outputLimit = 512

// Provisioner manages the station's network credentials.
type Provisioner interface {
	// Connect brings the network up, provisioning under ssid if needed.
	// It reports whether the network is up.
	Connect(ctx context.Context, ssid string) (bool, error)

	// ResetCredentials forgets stored network credentials.
	ResetCredentials(ctx context.Context) error
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// runFunc runs a shell command and returns its combined output.
type runFunc func(ctx context.Context, command string) ([]byte, error)

// CommandProvisioner implements Provisioner with host shell commands.
//
// An empty status_command treats the connect command's exit status as the
// network state; with neither set the network is assumed to be up.
type CommandProvisioner struct {
	cfg    config.ProvisioningConfig
	run    runFunc
	sleep  func(ctx context.Context, d time.Duration) error
	logger Logger
}

// NewCommandProvisioner creates a provisioner from configuration.
func NewCommandProvisioner(cfg config.ProvisioningConfig) *CommandProvisioner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &CommandProvisioner{
		cfg:    cfg,
		run:    runShell,
		sleep:  sleepContext,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for provisioning events.
func (p *CommandProvisioner) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	p.logger = logger
}

// NetworkUp runs status_command and reports whether it succeeded.
// Without a status command it reports true only when there is also no
// connect command.
func (p *CommandProvisioner) NetworkUp(ctx context.Context) bool {
	if p.cfg.StatusCommand == "" {
		return p.cfg.ConnectCommand == ""
	}
	_, err := p.run(ctx, p.cfg.StatusCommand)
	return err == nil
}

// Connect tries up to max_attempts times to bring the network up.
//
// Returns:
//   - bool: true once the network is up
//   - error: ErrConnectFailed when every attempt failed, or ctx's error
func (p *CommandProvisioner) Connect(ctx context.Context, ssid string) (bool, error) {
	if p.NetworkUp(ctx) {
		return true, nil
	}

	command := strings.ReplaceAll(p.cfg.ConnectCommand, ssidPlaceholder, ssid)
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		p.logger.Info("connecting to network", "ssid", ssid, "attempt", attempt, "max_attempts", p.cfg.MaxAttempts)

		_, connectErr := p.run(ctx, command)
		if connectErr != nil {
			p.logger.Warn("connect command failed", "attempt", attempt, "error", connectErr)
		}

		up := connectErr == nil
		if p.cfg.StatusCommand != "" {
			up = p.NetworkUp(ctx)
		}
		if up {
			p.logger.Info("network up", "attempt", attempt)
			return true, nil
		}

		if attempt < p.cfg.MaxAttempts {
			if err := p.sleep(ctx, p.cfg.RetryDelay); err != nil {
				return false, err
			}
		}
	}

	return false, fmt.Errorf("%w: network down after %d attempts", ErrConnectFailed, p.cfg.MaxAttempts)
}

// ResetCredentials runs reset_command. Without one it is a no-op.
func (p *CommandProvisioner) ResetCredentials(ctx context.Context) error {
	if p.cfg.ResetCommand == "" {
		p.logger.Warn("no reset command configured, credentials left in place")
		return nil
	}
	if _, err := p.run(ctx, p.cfg.ResetCommand); err != nil {
		return err
	}
	p.logger.Info("network credentials cleared")
	return nil
}

// runShell runs command under /bin/sh in its own process group so that a
// cancelled context kills the whole pipeline.
func runShell(ctx context.Context, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command) //nolint:gosec // commands come from the station config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("%w: %q: %w: %s", ErrCommandFailed, command, err, truncate(out.String()))
	}
	return out.Bytes(), nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > outputLimit {
		return s[:outputLimit] + "..."
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
