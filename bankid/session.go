package bankid

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/offlinehacker/gobankid/x"
)

const Version = "0.1.0"

const (
	apiPrefix = "/rp/v6.0"

	// DefaultTimeout applies separately to connecting and to waiting for the response.
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 1 << 20
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session talks to the relying-party API over one mutually-authenticated
// HTTPS client that it owns.
//
// A Session is initialised once, in New, and never re-initialised: a Failed
// session refuses every call with ErrNotInitialized and has to be replaced.
//
// Operations may be called from several goroutines. The only mutable state is
// the current order reference, which is guarded; callers that need "start
// then poll the same order" semantics across goroutines must still serialise
// those sequences themselves.
type Session struct {
	tlsConfig TLSConfig
	baseURL   string
	timeout   time.Duration
	logger    *slog.Logger

	state   State
	initErr error
	client  *retryablehttp.Client

	mu           sync.RWMutex
	currentOrder string
}

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBaseURL replaces the environment's host, e.g. for a local fake or a proxy.
func WithBaseURL(baseURL string) Option {
	return func(s *Session) {
		s.baseURL = baseURL
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// New creates a session and initialises it. Use State or Initialized to see
// whether initialisation succeeded and InitError for the reason it did not.
func New(cfg TLSConfig, opts ...Option) *Session {
	s := &Session{
		tlsConfig: cfg,
		baseURL:   "https://" + cfg.Environment.Host(),
		timeout:   DefaultTimeout,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:     StateUninitialized,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.initialize()

	return s
}

func (s *Session) initialize() {
	s.state = StateInitializing

	s.logger.Debug("initializing bankid session",
		slog.String("environment", s.tlsConfig.Environment.String()),
		slog.String("baseURL", s.baseURL))

	if err := s.tlsConfig.Check(); err != nil {
		s.fail(fmt.Errorf("tls configuration validation failed: %w", err))
		return
	}

	tlsCfg, err := s.tlsConfig.clientTLS()
	if err != nil {
		s.fail(err)
		return
	}

	s.client = s.newClient(tlsCfg)
	s.state = StateReady

	s.logger.Debug("bankid session initialized")
}

func (s *Session) fail(err error) {
	s.initErr = err
	s.state = StateFailed

	s.logger.Error("bankid session initialization failed", slog.String("error", err.Error()))
}

func (s *Session) newClient(tlsCfg *tls.Config) *retryablehttp.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: s.timeout}).DialContext,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   s.timeout,
		ResponseHeaderTimeout: s.timeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   2 * s.timeout,
	}
	rc.Logger = s.logger

	// Orders are not idempotent: exactly one attempt, and every status is
	// handed back so classify sees it.
	rc.RetryMax = 0
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		s.logger.Debug("bankid response",
			slog.String("path", resp.Request.URL.Path),
			slog.Int("status", resp.StatusCode))
	}

	return rc
}

func (s *Session) State() State { return s.state }

func (s *Session) Initialized() bool { return s.state == StateReady }

// InitError is the reason initialisation failed, nil for a ready session.
func (s *Session) InitError() error { return s.initErr }

func (s *Session) TLSConfig() TLSConfig { return s.tlsConfig }

// CurrentOrder is the order reference of the last order started successfully
// through this session, or "" if none was.
func (s *Session) CurrentOrder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentOrder
}

func (s *Session) setCurrentOrder(orderRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentOrder = orderRef
}

// Close releases the connections held by the session's client. It is safe to
// call on a failed session and more than once.
func (s *Session) Close() {
	if s.client != nil {
		s.client.HTTPClient.CloseIdleConnections()
	}
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	overrides map[int]Override
}

// WithStatusOverride classifies status as kind with message for this call,
// before the default mapping is consulted. An empty kind means ErrInvalidParameters.
func WithStatusOverride(status int, kind ErrorKind, message string) CallOption {
	return func(o *callOptions) {
		if o.overrides == nil {
			o.overrides = make(map[int]Override)
		}
		o.overrides[status] = Override{Kind: kind, Message: message}
	}
}

// dispatch is the single exchange shared by all operations: serialise, POST
// once, classify.
func dispatch[T any](ctx context.Context, s *Session, endpoint string, cfg Payloader, opts []CallOption) (T, error) {
	var zero T

	if s.state != StateReady {
		s.logger.Warn("bankid session not initialized", slog.String("endpoint", endpoint))
		return zero, newError(http.StatusInternalServerError, ErrNotInitialized, "session not initialized")
	}

	var call callOptions
	for _, opt := range opts {
		opt(&call)
	}

	body, err := x.CanonicalJSON(cfg.Payload())
	if err != nil {
		e := newError(0, ErrInvalidParameters, fmt.Sprintf("failed to serialize payload: %v", err))
		e.Err = err
		return zero, e
	}

	s.logger.Debug("bankid request",
		slog.String("endpoint", endpoint),
		slog.String("payload", string(body)))

	res, err := s.post(ctx, apiPrefix+endpoint, body)
	if err != nil {
		s.logger.Warn("bankid request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
	}

	result, cerr := classify[T](res, call.overrides)
	if cerr != nil {
		if e, ok := cerr.(*Error); ok && res == nil {
			e.Err = err
		}
		return zero, cerr
	}

	return result, nil
}

// post performs the request. A nil outcome with an error means nothing usable came back.
func (s *Session) post(ctx context.Context, path string, body []byte) (*outcome, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "gobankid/"+Version)

	rawResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to do request: %w", err)
	}
	defer rawResp.Body.Close()

	respBodyRaw, err := io.ReadAll(io.LimitReader(rawResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response-body: %w", err)
	}

	return &outcome{status: rawResp.StatusCode, body: respBodyRaw}, nil
}
