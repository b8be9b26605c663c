package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"parwrk/internal/config"
	"parwrk/internal/domain"
)

// Sentinel errors for the non-200 pop outcomes callers branch on.
var (
	// ErrNotSeeded means the run has no examples yet.
	ErrNotSeeded = errors.New("run has not been seeded")
	// ErrNoExamples means nothing is available right now but the run is
	// still in flight.
	ErrNoExamples = errors.New("no examples available")
	// ErrRunCompleted means every example in the run has been completed.
	ErrRunCompleted = errors.New("run completed")
)

// UnhandledResponseError is returned for any status the protocol does not
// define.
type UnhandledResponseError struct {
	Status int
	Body   string
}

func (e *UnhandledResponseError) Error() string {
	return fmt.Sprintf("unhandled response: status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Client talks the work-distribution protocol to one server on behalf of one
// worker. It retries transport failures with a linear backoff; protocol
// statuses are surfaced to the caller immediately.
type Client struct {
	cfg  *config.Config
	http *http.Client

	retryInterval time.Duration
	maxRetries    uint64

	// lastStatus is the most recent worker-status header value. Guarded by
	// mu: the heartbeat goroutine shares the client with the main loop.
	mu         sync.Mutex
	lastStatus string
}

// New builds a client from config. The HTTP timeout also bounds how long a
// single request may hang on an unresponsive server.
func New(cfg *config.Config) *Client {
	return &Client{
		cfg:           cfg,
		http:          &http.Client{Timeout: cfg.Timeout},
		retryInterval: time.Second,
		maxRetries:    3,
	}
}

// LastStatus reports the worker-status header from the latest response, or
// "" before any worker-scoped request has succeeded.
func (c *Client) LastStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// WaitForServer polls /health until the server answers or the timeout
// elapses.
func (c *Client) WaitForServer(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := c.http.Get(c.cfg.ServerURI + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server at %s not responding after %s", c.cfg.ServerURI, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Seed uploads the example set, replacing whatever the run held before.
func (c *Client) Seed(req domain.SeedRequest) error {
	_, err := c.do(http.MethodPost, "/seed", req)
	return err
}

// Pop requests the next batch of examples to run.
func (c *Client) Pop() ([]domain.Example, error) {
	return c.popFrom(http.MethodPost, "/pop", nil)
}

// CompleteAndPop reports finished examples and requests the next batch in
// one round trip.
func (c *Client) CompleteAndPop(results []domain.Example) ([]domain.Example, error) {
	return c.popFrom(http.MethodPost, "/complete_and_pop", results)
}

// Report fetches the run report.
func (c *Client) Report() (*domain.Report, error) {
	body, err := c.do(http.MethodGet, "/report", nil)
	if err != nil {
		return nil, err
	}
	var report domain.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// Heartbeat tells the server this worker is still alive.
func (c *Client) Heartbeat() error {
	_, err := c.do(http.MethodGet, "/heartbeat", nil)
	return err
}

// Shutdown asks the server to stop once in-flight requests drain.
func (c *Client) Shutdown() error {
	_, err := c.do(http.MethodDelete, "/shutdown", nil)
	return err
}

func (c *Client) popFrom(method, path string, payload any) ([]domain.Example, error) {
	body, err := c.do(method, path, payload)
	if err != nil {
		return nil, err
	}
	var batch []domain.Example
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return batch, nil
}

// do performs one protocol request. Transport errors are retried; protocol
// errors are mapped to sentinels and returned without retrying.
func (c *Client) do(method, path string, payload any) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		if reqBody, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	var respBody []byte
	attempt := func() error {
		req, err := http.NewRequest(method, c.cfg.ServerURI+path, bytes.NewReader(reqBody))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set(domain.HeaderRun, c.cfg.RunID)
		req.Header.Set(domain.HeaderWorker, c.cfg.WorkerID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cfg.Key != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if status := resp.Header.Get(domain.HeaderStatus); status != "" {
			c.mu.Lock()
			c.lastStatus = status
			c.mu.Unlock()
		}

		if protoErr := protocolError(resp.StatusCode, body); protoErr != nil {
			return backoff.Permanent(protoErr)
		}
		respBody = body
		return nil
	}

	policy := backoff.WithMaxRetries(&linearBackOff{interval: c.retryInterval}, c.maxRetries)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return respBody, nil
}

func protocolError(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300 && status != http.StatusNoContent:
		return nil
	case status == http.StatusNoContent:
		return ErrNotSeeded
	case status == http.StatusNotFound:
		return ErrNoExamples
	case status == http.StatusGone:
		return ErrRunCompleted
	default:
		return &UnhandledResponseError{Status: status, Body: string(body)}
	}
}

// linearBackOff waits attempt*interval between tries, so a flapping server
// gets progressively more breathing room without the jitter an exponential
// policy would add to short test runs.
type linearBackOff struct {
	interval time.Duration
	attempt  int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.interval
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
