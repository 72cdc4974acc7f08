package inference

import (
	"net/http"
	"time"
)

// SimOption applies a configuration option to the SimClassifier.
type SimOption func(*SimClassifier)

// WithLatencyRange sets the simulated inference latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) SimOption {
	return func(s *SimClassifier) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSeed sets the seed for deterministic scoring.
func WithSeed(seed uint64) SimOption {
	return func(s *SimClassifier) {
		s.seed = seed
	}
}

// WithTopN bounds how many ranked predictions a classification returns.
func WithTopN(n int) SimOption {
	return func(s *SimClassifier) {
		if n > 0 {
			s.topN = n
		}
	}
}

// RemoteOption applies a configuration option to the HTTPClassifier.
type RemoteOption func(*HTTPClassifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(c *HTTPClassifier) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) RemoteOption {
	return func(c *HTTPClassifier) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithRetries sets how many times a failed remote call is retried.
func WithRetries(retries int) RemoteOption {
	return func(c *HTTPClassifier) {
		if retries >= 0 {
			c.retries = retries
		}
	}
}

// WithRetryBackoff sets the delay between retry attempts.
func WithRetryBackoff(backoff time.Duration) RemoteOption {
	return func(c *HTTPClassifier) {
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}
