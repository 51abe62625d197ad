package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
)

const (
	pingTimeout = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client mirrors observations into an InfluxDB bucket. Writes are queued
// and sent in batches; nothing on the publish path waits for InfluxDB.
type Client struct {
	influx influxdb2.Client
	points api.WriteAPI
	now    func() time.Time
	closed atomic.Bool

	mu      sync.Mutex
	onError func(err error)
}

// Connect pings the server and opens a batching writer for cfg.Bucket.
//
// Returns:
//   - *Client: Ready mirror
//   - error: ErrDisabled, or ErrUnreachable if the ping fails
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize(cfg.BatchSize)).
		SetFlushInterval(flushIntervalMS(cfg.FlushInterval))
	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	if err := ping(ctx, influx); err != nil {
		influx.Close()
		return nil, err
	}

	c := &Client{
		influx: influx,
		points: influx.WriteAPI(cfg.Org, cfg.Bucket),
		now:    time.Now,
	}
	go c.forwardErrors(c.points.Errors())
	return c, nil
}

func batchSize(n int) uint {
	if n <= 0 {
		return defaultBatchSize
	}
	return uint(n) //nolint:gosec // n > 0
}

func flushIntervalMS(seconds int) uint {
	d := time.Duration(seconds) * time.Second
	if d <= 0 {
		d = defaultFlushInterval
	}
	return uint(d.Milliseconds())
}

func ping(ctx context.Context, influx influxdb2.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := influx.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	case !healthy:
		return fmt.Errorf("%w: ping not healthy", ErrUnreachable)
	}
	return nil
}

// forwardErrors drains the writer's error channel until the client closes.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.Lock()
		callback := c.onError
		c.mu.Unlock()
		if callback != nil {
			callback(fmt.Errorf("%w: %w", ErrWriteRejected, err))
		}
	}
}

// SetOnError registers the callback for failed batches.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	c.onError = callback
	c.mu.Unlock()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return ping(ctx, c.influx)
}

// Close sends any queued points and releases the client. Later writes are
// dropped.
func (c *Client) Close() error {
	if c == nil || c.influx == nil || c.closed.Swap(true) {
		return nil
	}
	c.points.Flush()
	c.influx.Close()
	return nil
}
