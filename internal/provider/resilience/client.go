package resilience

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker is open and requests
// are being short-circuited.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the protected HTTP client.
type ClientConfig struct {
	// Name identifies this client for circuit breaker naming.
	Name string

	// Timeout is the per-request timeout.
	// Default: 10 seconds
	Timeout time.Duration

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig
}

// DefaultClientConfig returns sensible defaults for the protected client.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:           name,
		Timeout:        10 * time.Second,
		CircuitBreaker: &cbConfig,
	}
}

// Client is an HTTP client with a per-request timeout and a circuit breaker
// around the upstream. Failed requests are not retried here: retry and
// backoff policy belongs to the caller's poll loop, not the transport.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a new protected HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	cbConfig := cfg.CircuitBreaker
	if cbConfig == nil {
		defaultCB := DefaultCircuitBreakerConfig(cfg.Name)
		cbConfig = &defaultCB
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: NewCircuitBreaker[*http.Response](*cbConfig),
		config:         cfg,
	}
}

// Do executes an HTTP request through the circuit breaker. 5xx responses
// count as breaker failures but are still returned to the caller, which owns
// the status-to-error mapping. Returns ErrCircuitOpen without issuing the
// request when the breaker is open.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) {
		r, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 500 {
			return r, &ServerError{StatusCode: r.StatusCode}
		}
		return r, nil
	})

	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			return resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	return resp, nil
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
