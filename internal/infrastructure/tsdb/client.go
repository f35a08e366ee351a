package tsdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/config"
)

const (
	defaultBatchSize     = 1000
	defaultFlushInterval = time.Second
	connectTimeout       = 10 * time.Second
	requestTimeout       = 5 * time.Second
)

// Client ships readings to VictoriaMetrics as InfluxDB line protocol.
//
// Lines are buffered and POSTed to /write when the buffer reaches the batch
// size, when the flush ticker fires, or on Close.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	url        string
	httpClient *http.Client

	mu        sync.RWMutex
	connected bool
	onError   func(err error)

	bufMu     sync.Mutex
	buf       []string
	batchSize int

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// Connect verifies VictoriaMetrics answers GET /health and starts the
// background flusher. It returns ErrDisabled when the sink is turned off.
func Connect(ctx context.Context, cfg config.TSDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	interval := time.Duration(cfg.FlushInterval) * time.Second
	if interval <= 0 {
		interval = defaultFlushInterval
	}

	c := &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		buf:        make([]string, 0, batchSize),
		batchSize:  batchSize,
		done:       make(chan struct{}),
	}

	hctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.HealthCheck(hctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.connected = true
	c.ticker = time.NewTicker(interval)
	c.wg.Add(1)
	go c.run()

	return c, nil
}

func (c *Client) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ticker.C:
			c.Flush()
		case <-c.done:
			return
		}
	}
}

// Close stops the flusher and sends whatever is still buffered.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	c.ticker.Stop()
	close(c.done)
	c.wg.Wait()

	c.Flush()
	return nil
}

// HealthCheck performs GET /health and expects 200.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/health", nil)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tsdb health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tsdb health check: status %d", resp.StatusCode)
	}
	return nil
}

// IsConnected reports whether the client is accepting writes.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SetOnError registers a callback for asynchronous flush failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// enqueue buffers one line, flushing when the batch is full.
// Lines written after Close are dropped.
func (c *Client) enqueue(line string) {
	if !c.IsConnected() {
		return
	}

	c.bufMu.Lock()
	c.buf = append(c.buf, line)
	full := len(c.buf) >= c.batchSize
	c.bufMu.Unlock()

	if full {
		c.Flush()
	}
}

// Flush POSTs all buffered lines in one request.
func (c *Client) Flush() {
	c.bufMu.Lock()
	if len(c.buf) == 0 {
		c.bufMu.Unlock()
		return
	}
	lines := c.buf
	c.buf = make([]string, 0, c.batchSize)
	c.bufMu.Unlock()

	if err := c.post(lines); err != nil {
		c.reportError(err)
	}
}

func (c *Client) post(lines []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	body := bytes.NewBufferString(strings.Join(lines, "\n"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/write", body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d (%d lines)", ErrWriteFailed, resp.StatusCode, len(lines))
	}
	return nil
}

func (c *Client) reportError(err error) {
	c.mu.RLock()
	callback := c.onError
	c.mu.RUnlock()

	if callback != nil {
		callback(err)
	}
}
