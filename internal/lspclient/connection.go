// Package lspclient manages the client side of an LSP session with the
// external fluxion-lsp analysis server: the connection state machine, the
// document selector, and the stdio transport that carries the protocol.
package lspclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fluxion-ml/fluxionctl/internal/launch"
)

var (
	// ErrNotStartable is returned when Start is called while the previous
	// session has not finished stopping.
	ErrNotStartable = errors.New("connection is not in a startable state")

	// ErrAlreadyStopping is returned when Stop is called while another stop
	// is still resolving.
	ErrAlreadyStopping = errors.New("connection is already stopping")
)

// Transport carries one LSP session to the external server process. Start
// and Stop are called strictly in alternation by the owning Connection.
type Transport interface {
	// Start spawns the server and completes the initialize handshake.
	Start(ctx context.Context, cfg launch.Config) error

	// Stop performs the graceful shutdown handshake and waits for the
	// process and stream to close. Implementations must escalate to killing
	// the process when ctx expires.
	Stop(ctx context.Context) error

	// Pid returns the server process id, or zero when no process runs.
	Pid() int
}

// Connection is the single managed link to the external analysis server.
// The same Connection object is reused across restart cycles; only its
// state advances. At most one instance is live at a time, owned exclusively
// by the lifecycle manager.
type Connection struct {
	launch      launch.Config
	selector    Selector
	transport   Transport
	logger      *slog.Logger
	stopTimeout time.Duration

	mu        sync.Mutex
	state     State
	startedAt time.Time
	starts    int
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithStopTimeout bounds how long Stop waits for the graceful shutdown
// handshake before the process is killed. Zero (the default) waits
// indefinitely.
func WithStopTimeout(timeout time.Duration) ConnectionOption {
	return func(c *Connection) { c.stopTimeout = timeout }
}

// NewConnection creates an unstarted connection for the given launch
// configuration, scoped to documents matched by selector.
func NewConnection(cfg launch.Config, selector Selector, transport Transport, logger *slog.Logger, opts ...ConnectionOption) *Connection {
	conn := &Connection{
		launch:    cfg,
		selector:  selector,
		transport: transport,
		logger:    logger,
		state:     StateUnstarted,
	}

	for _, opt := range opts {
		opt(conn)
	}

	return conn
}

// Start spawns the server process and opens the protocol transport. It is
// valid only from the unstarted or stopped state; a start attempted while a
// previous session exists returns ErrNotStartable.
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()

	switch c.state {
	case StateUnstarted, StateStopped:
	default:
		state := c.state
		c.mu.Unlock()

		return fmt.Errorf("start while %s: %w", state, ErrNotStartable)
	}

	c.state = StateStarting
	c.mu.Unlock()

	c.logger.Info("starting analysis server", "command", c.launch.Command)

	err := c.transport.Start(ctx, c.launch)
	if err != nil {
		c.setState(StateStopped)

		return fmt.Errorf("start connection: %w", err)
	}

	c.mu.Lock()
	c.state = StateRunning
	c.startedAt = time.Now()
	c.starts++
	c.mu.Unlock()

	c.logger.Info("analysis server running", "pid", c.transport.Pid())

	return nil
}

// Stop sends the graceful shutdown request and resolves once the server
// process and transport have closed. Stopping an unstarted or already
// stopped connection is an immediate success.
func (c *Connection) Stop(ctx context.Context) error {
	c.mu.Lock()

	switch c.state {
	case StateUnstarted, StateStopped:
		c.mu.Unlock()

		return nil
	case StateStopping:
		c.mu.Unlock()

		return ErrAlreadyStopping
	case StateStarting, StateRunning:
	}

	c.state = StateStopping
	c.mu.Unlock()

	c.logger.Info("stopping analysis server")

	if c.stopTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.stopTimeout)
		defer cancel()
	}

	err := c.transport.Stop(ctx)

	// Stopped is entered even when the shutdown handshake failed: the
	// transport has killed the process by then and the object must be
	// restartable.
	c.setState(StateStopped)

	if err != nil {
		return fmt.Errorf("stop connection: %w", err)
	}

	c.logger.Info("analysis server stopped")

	return nil
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Selector returns the document scope of the connection.
func (c *Connection) Selector() Selector {
	return c.selector
}

// Snapshot is a point-in-time view of the connection for status reporting.
type Snapshot struct {
	State     State
	Command   string
	Pid       int
	StartedAt time.Time
	Starts    int
}

// Snapshot returns the current status of the connection.
func (c *Connection) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:   c.state,
		Command: c.launch.Command,
		Starts:  c.starts,
	}

	if c.state == StateRunning {
		snap.Pid = c.transport.Pid()
		snap.StartedAt = c.startedAt
	}

	return snap
}

func (c *Connection) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
