// Package lifecycle mediates between host events and the connection to the
// external fluxion-lsp analysis server: it registers the user-invokable
// commands and owns the activate/restart/deactivate sequence.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fluxion-ml/fluxionctl/internal/host"
	"github.com/fluxion-ml/fluxionctl/internal/launch"
	"github.com/fluxion-ml/fluxionctl/internal/lspclient"
	"github.com/fluxion-ml/fluxionctl/internal/observability"
)

const (
	// CommandHelloWorld shows a greeting notification.
	CommandHelloWorld = "fluxion.helloWorld"

	// CommandRestartServer stops and restarts the analysis server, then
	// confirms to the user.
	CommandRestartServer = "fluxion.restartServer"

	helloMessage          = "Hello World!"
	restartSuccessMessage = "fluxion-lsp restarted."
)

// ErrAlreadyActivated is returned when Activate is called twice within one
// process lifetime. Command registrations must never be duplicated.
var ErrAlreadyActivated = errors.New("lifecycle manager already activated")

// ConnectionFactory builds the single Connection from a launch
// configuration. Injected so tests supply a fake transport.
type ConnectionFactory func(cfg launch.Config) *lspclient.Connection

// Manager owns at most one live connection to the analysis server and is
// its only mutator. Host events arrive one at a time; the op mutex keeps
// that guarantee even for overlapping control surfaces (signals, MCP).
type Manager struct {
	host        host.Host
	logger      *slog.Logger
	newConn     ConnectionFactory
	metrics     *observability.LifecycleMetrics
	resolveCfg  func() launch.Config
	stopTimeout time.Duration

	// op serializes stop-then-start sequences: a start never begins while
	// a stop is still resolving.
	op sync.Mutex

	mu          sync.Mutex
	conn        *lspclient.Connection
	activated   bool
	deactivated bool
	restarts    int
}

// Option configures a Manager.
type Option func(*Manager)

// WithConnectionFactory replaces how the Connection is built.
func WithConnectionFactory(factory ConnectionFactory) Option {
	return func(m *Manager) { m.newConn = factory }
}

// WithMetrics records lifecycle events on the given instruments.
func WithMetrics(metrics *observability.LifecycleMetrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLaunchResolver replaces how the launch configuration is computed.
func WithLaunchResolver(resolve func() launch.Config) Option {
	return func(m *Manager) { m.resolveCfg = resolve }
}

// WithStopTimeout bounds the graceful stop of the default connection.
func WithStopTimeout(timeout time.Duration) Option {
	return func(m *Manager) { m.stopTimeout = timeout }
}

// New creates a manager bound to the given host.
func New(h host.Host, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		host:       h,
		logger:     logger,
		resolveCfg: launch.Resolve,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.newConn == nil {
		m.newConn = m.defaultConnectionFactory
	}

	return m
}

// Activate registers the user-invokable commands, hands their registrations
// to the dispose bag, computes the launch configuration, constructs the
// connection, and asks it to start. The start is asynchronous: activation
// completes without waiting for the handshake, and start failures surface
// on the host's error channel.
func (m *Manager) Activate(ctx context.Context, bag *host.DisposeBag) error {
	m.mu.Lock()

	if m.activated {
		m.mu.Unlock()

		return ErrAlreadyActivated
	}

	m.activated = true
	m.mu.Unlock()

	helloReg, err := m.host.RegisterCommand(CommandHelloWorld, m.handleHelloWorld)
	if err != nil {
		return fmt.Errorf("register %s: %w", CommandHelloWorld, err)
	}

	bag.Add(helloReg)

	restartReg, err := m.host.RegisterCommand(CommandRestartServer, m.handleRestartServer)
	if err != nil {
		return fmt.Errorf("register %s: %w", CommandRestartServer, err)
	}

	bag.Add(restartReg)

	conn := m.newConn(m.resolveCfg())

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	go m.startAsync(ctx, conn)

	return nil
}

// Restart stops the current connection and, strictly after the stop
// resolves, starts the same connection object again. Invoked before any
// connection exists, or after deactivation, it is a silent no-op.
func (m *Manager) Restart(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	// Read the slot under op so a restart never revives a connection that
	// a concurrent Deactivate has already torn down.
	m.mu.Lock()
	conn := m.conn
	deactivated := m.deactivated
	m.mu.Unlock()

	if conn == nil || deactivated {
		m.logger.Debug("restart requested without a live connection, ignoring")

		return nil
	}

	err := m.stopConnection(ctx, conn)
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	err = m.startConnection(ctx, conn)
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	m.mu.Lock()
	m.restarts++
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ObserveRestart(ctx)
	}

	return nil
}

// Deactivate permanently tears the connection down: it stops the server if
// one exists and returns once the stop has resolved, so the host can await
// full shutdown before unloading. A pending asynchronous first start is
// cancelled and later restarts become no-ops, so nothing runs after
// Deactivate returns. Without a connection it succeeds immediately.
func (m *Manager) Deactivate(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	conn := m.conn
	m.deactivated = true
	m.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := m.stopConnection(ctx, conn)
	if err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}

	return nil
}

// Status reports the connection snapshot and restart count.
type Status struct {
	Connection lspclient.Snapshot
	Restarts   int
}

// Status returns a point-in-time view for status rendering and readiness
// checks.
func (m *Manager) Status() Status {
	m.mu.Lock()
	conn := m.conn
	restarts := m.restarts
	m.mu.Unlock()

	status := Status{Restarts: restarts}
	if conn != nil {
		status.Connection = conn.Snapshot()
	}

	return status
}

// ReadyCheck returns a readiness probe that passes while the connection is
// running.
func (m *Manager) ReadyCheck() observability.ReadyCheck {
	return func(_ context.Context) error {
		state := m.Status().Connection.State
		if state != lspclient.StateRunning {
			return fmt.Errorf("connection state: %s", state)
		}

		return nil
	}
}

func (m *Manager) handleHelloWorld(_ context.Context) error {
	m.host.ShowInfo(helloMessage)

	return nil
}

func (m *Manager) handleRestartServer(ctx context.Context) error {
	err := m.Restart(ctx)
	if err != nil {
		return err
	}

	m.host.ShowInfo(restartSuccessMessage)

	return nil
}

func (m *Manager) startAsync(ctx context.Context, conn *lspclient.Connection) {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	deactivated := m.deactivated
	m.mu.Unlock()

	// Deactivate may win the race against the asynchronous first start; the
	// server must not come up after teardown has resolved.
	if deactivated {
		m.logger.Debug("deactivated before first start, skipping")

		return
	}

	err := m.startConnection(ctx, conn)
	if err != nil {
		// No retry policy at this layer; the failure lands on the host's
		// own error surface.
		m.logger.Error("analysis server start failed", "error", err)
		m.host.ShowError(fmt.Sprintf("fluxion-lsp failed to start: %v", err))
	}
}

func (m *Manager) startConnection(ctx context.Context, conn *lspclient.Connection) error {
	began := time.Now()
	err := conn.Start(ctx)

	if m.metrics != nil {
		m.metrics.ObserveStart(ctx, time.Since(began), err)
	}

	return err
}

func (m *Manager) stopConnection(ctx context.Context, conn *lspclient.Connection) error {
	wasRunning := conn.State() == lspclient.StateRunning

	began := time.Now()
	err := conn.Stop(ctx)

	if m.metrics != nil {
		m.metrics.ObserveStop(ctx, time.Since(began), wasRunning, err)
	}

	return err
}

func (m *Manager) defaultConnectionFactory(cfg launch.Config) *lspclient.Connection {
	transport := lspclient.NewStdioTransport(m.logger, m.host)

	opts := []lspclient.ConnectionOption{}
	if m.stopTimeout > 0 {
		opts = append(opts, lspclient.WithStopTimeout(m.stopTimeout))
	}

	return lspclient.NewConnection(cfg, lspclient.DefaultSelector(), transport, m.logger, opts...)
}
