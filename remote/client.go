package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/NomicFoundation/edr-sub004/core/types"
	"github.com/NomicFoundation/edr-sub004/crypto"
)

// Client tuning defaults.
const (
	// DefaultMaxConcurrent bounds in-flight requests to the upstream node.
	DefaultMaxConcurrent = 20

	// DefaultSafetyMargin is how many blocks below the remote head a block
	// must be before its data is considered reorg-safe and cacheable.
	DefaultSafetyMargin = 128

	// DefaultMaxRetries is the retry budget for transport failures.
	DefaultMaxRetries = 4

	// defaultRetryInterval seeds the exponential backoff.
	defaultRetryInterval = 250 * time.Millisecond
)

// Config configures a Client. Zero fields take the package defaults.
type Config struct {
	URL           string
	MaxConcurrent int
	SafetyMargin  uint64
	MaxRetries    uint64

	// ForceCaching caches responses for blocks above the safety margin
	// too. Useful against dev nodes that never reorg.
	ForceCaching bool

	Logger *logrus.Logger
}

// Client is a JSON-RPC client with bounded parallelism and per-request
// response caching. Safe for concurrent use.
type Client struct {
	rpc          *rpc.Client
	sem          chan struct{}
	safetyMargin uint64
	maxRetries   uint64
	forceCaching bool
	log          *logrus.Entry

	mu     sync.Mutex
	cache  map[types.Hash]json.RawMessage
	latest uint64
	closed bool
}

// Dial connects to the JSON-RPC endpoint described by cfg.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, &TransportError{Method: "dial", Err: err}
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	safetyMargin := cfg.SafetyMargin
	if safetyMargin == 0 {
		safetyMargin = DefaultSafetyMargin
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		rpc:          rpcClient,
		sem:          make(chan struct{}, maxConcurrent),
		safetyMargin: safetyMargin,
		maxRetries:   maxRetries,
		forceCaching: cfg.ForceCaching,
		log:          logger.WithField("component", "remote"),
		cache:        make(map[types.Hash]json.RawMessage),
	}, nil
}

// Close releases the underlying transport. Pending calls fail.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.rpc.Close()
}

// SafetyMargin returns the reorg safety margin in blocks.
func (c *Client) SafetyMargin() uint64 { return c.safetyMargin }

// requestHash keys the response cache by method and argument encoding.
func requestHash(method string, args []any) (types.Hash, error) {
	encodedArgs, err := json.Marshal(args)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte(method), encodedArgs), nil
}

// call performs one JSON-RPC request with retry, decoding the result
// into result. When cacheable, a previous response short-circuits the
// round-trip and a successful response is stored.
func (c *Client) call(ctx context.Context, result any, method string, cacheable bool, args ...any) error {
	var key types.Hash
	if cacheable {
		var err error
		key, err = requestHash(method, args)
		if err != nil {
			return &ParseError{Method: method, Err: err}
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		cached, hit := c.cache[key]
		c.mu.Unlock()
		if hit {
			if err := json.Unmarshal(cached, result); err != nil {
				return &ParseError{Method: method, Err: err}
			}
			return nil
		}
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	var raw json.RawMessage
	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(defaultRetryInterval)),
		c.maxRetries), ctx)
	err := backoff.Retry(func() error {
		callErr := c.rpc.CallContext(ctx, &raw, method, args...)
		if callErr == nil {
			return nil
		}
		classified := classifyError(method, callErr)
		if isRetryable(classified) {
			c.log.WithError(classified).WithField("method", method).Debug("retrying remote call")
			return classified
		}
		return backoff.Permanent(classified)
	}, policy)
	if err != nil {
		return err
	}

	if len(raw) == 0 || string(raw) == "null" {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return &ParseError{Method: method, Err: err}
	}
	if cacheable {
		c.mu.Lock()
		if !c.closed {
			c.cache[key] = raw
		}
		c.mu.Unlock()
	}
	return nil
}

// classifyError maps transport-level failures onto the client taxonomy.
func classifyError(method string, err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return &HTTPError{StatusCode: httpErr.StatusCode, Status: httpErr.Status}
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &MethodError{Method: method, Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	return &TransportError{Method: method, Err: err}
}

// isRetryable reports whether the call may be repeated: network failures
// and rate-limit or server-side HTTP statuses.
func isRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}
	return false
}

// observeHead records the most recently seen remote head.
func (c *Client) observeHead(number uint64) {
	c.mu.Lock()
	if number > c.latest {
		c.latest = number
	}
	c.mu.Unlock()
}

// IsCacheableBlockNumber reports whether block number is deep enough
// below the remote head to be considered reorg-safe. The head is
// refreshed at most once per call.
func (c *Client) IsCacheableBlockNumber(ctx context.Context, number uint64) (bool, error) {
	if c.forceCaching {
		return true, nil
	}
	c.mu.Lock()
	latest := c.latest
	c.mu.Unlock()
	if latest >= c.safetyMargin && number <= latest-c.safetyMargin {
		return true, nil
	}
	latest, err := c.BlockNumber(ctx)
	if err != nil {
		return false, err
	}
	return latest >= c.safetyMargin && number <= latest-c.safetyMargin, nil
}
