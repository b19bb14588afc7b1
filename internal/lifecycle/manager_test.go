package lifecycle_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-ml/fluxionctl/internal/host"
	"github.com/fluxion-ml/fluxionctl/internal/launch"
	"github.com/fluxion-ml/fluxionctl/internal/lifecycle"
	"github.com/fluxion-ml/fluxionctl/internal/lspclient"
)

// fakeHost records registrations and notifications on top of the real
// command registry.
type fakeHost struct {
	registry *host.Registry

	mu            sync.Mutex
	registrations []string
	infos         []string
	errors        []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{registry: host.NewRegistry()}
}

func (h *fakeHost) RegisterCommand(id string, handler host.CommandHandler) (host.Disposable, error) {
	disposable, err := h.registry.Register(id, handler)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.registrations = append(h.registrations, id)
	h.mu.Unlock()

	return disposable, nil
}

func (h *fakeHost) ExecuteCommand(ctx context.Context, id string) error {
	return h.registry.Execute(ctx, id)
}

func (h *fakeHost) ShowInfo(message string) {
	h.mu.Lock()
	h.infos = append(h.infos, message)
	h.mu.Unlock()
}

func (h *fakeHost) ShowWarning(string) {}

func (h *fakeHost) ShowError(message string) {
	h.mu.Lock()
	h.errors = append(h.errors, message)
	h.mu.Unlock()
}

func (h *fakeHost) registered() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.registrations...)
}

func (h *fakeHost) infoMessages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.infos...)
}

// fakeTransport counts starts and stops; stop optionally blocks until
// released so ordering is observable.
type fakeTransport struct {
	mu          sync.Mutex
	starts      int
	stops       int
	stopRelease chan struct{}
}

func (f *fakeTransport) Start(context.Context, launch.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.starts++

	return nil
}

func (f *fakeTransport) Stop(ctx context.Context) error {
	f.mu.Lock()
	release := f.stopRelease
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++

	return nil
}

func (f *fakeTransport) Pid() int { return 0 }

func (f *fakeTransport) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.starts, f.stops
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, transport lspclient.Transport) (*lifecycle.Manager, *fakeHost) {
	t.Helper()

	fake := newFakeHost()

	factory := func(cfg launch.Config) *lspclient.Connection {
		return lspclient.NewConnection(cfg, lspclient.DefaultSelector(), transport, testLogger())
	}

	resolver := func() launch.Config { return launch.Config{Command: "fluxion-lsp"} }

	manager := lifecycle.New(fake, testLogger(),
		lifecycle.WithConnectionFactory(factory),
		lifecycle.WithLaunchResolver(resolver),
	)

	return manager, fake
}

func waitForStarts(t *testing.T, transport *fakeTransport, want int) {
	t.Helper()

	require.Eventually(t, func() bool {
		starts, _ := transport.counts()

		return starts == want
	}, time.Second, time.Millisecond)
}

func TestActivate_RegistersBothCommandsOnce(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, fake := newTestManager(t, transport)

	var bag host.DisposeBag

	err := manager.Activate(context.Background(), &bag)
	require.NoError(t, err)

	assert.Equal(t, []string{lifecycle.CommandHelloWorld, lifecycle.CommandRestartServer}, fake.registered())
	assert.Equal(t, 2, bag.Len())

	waitForStarts(t, transport, 1)
}

func TestActivate_SecondActivationRejected(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, fake := newTestManager(t, transport)

	var bag host.DisposeBag

	require.NoError(t, manager.Activate(context.Background(), &bag))

	err := manager.Activate(context.Background(), &bag)
	require.ErrorIs(t, err, lifecycle.ErrAlreadyActivated)

	// No duplicate registrations regardless of how often activate runs.
	assert.Len(t, fake.registered(), 2)
}

func TestRestart_BeforeActivateIsSilentNoop(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, _ := newTestManager(t, transport)

	err := manager.Restart(context.Background())
	require.NoError(t, err)

	starts, stops := transport.counts()
	assert.Zero(t, starts)
	assert.Zero(t, stops)
}

func TestRestart_StopResolvesBeforeStart(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	transport := &fakeTransport{stopRelease: release}
	manager, _ := newTestManager(t, transport)

	var bag host.DisposeBag

	require.NoError(t, manager.Activate(context.Background(), &bag))
	waitForStarts(t, transport, 1)

	restartDone := make(chan error, 1)
	go func() { restartDone <- manager.Restart(context.Background()) }()

	// While the stop hangs, no second start may begin.
	assert.Never(t, func() bool {
		starts, _ := transport.counts()

		return starts > 1
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(release)

	require.NoError(t, <-restartDone)

	starts, stops := transport.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
}

func TestRestartCommand_ShowsConfirmation(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, fake := newTestManager(t, transport)

	var bag host.DisposeBag

	require.NoError(t, manager.Activate(context.Background(), &bag))
	waitForStarts(t, transport, 1)

	err := fake.ExecuteCommand(context.Background(), lifecycle.CommandRestartServer)
	require.NoError(t, err)

	assert.Contains(t, fake.infoMessages(), "fluxion-lsp restarted.")
	assert.Equal(t, 1, manager.Status().Restarts)
}

func TestHelloWorldCommand_ShowsGreeting(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, fake := newTestManager(t, transport)

	var bag host.DisposeBag

	require.NoError(t, manager.Activate(context.Background(), &bag))

	err := fake.ExecuteCommand(context.Background(), lifecycle.CommandHelloWorld)
	require.NoError(t, err)

	assert.Contains(t, fake.infoMessages(), "Hello World!")
}

func TestDeactivate_WithoutActivateResolvesImmediately(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, _ := newTestManager(t, transport)

	err := manager.Deactivate(context.Background())
	require.NoError(t, err)

	_, stops := transport.counts()
	assert.Zero(t, stops)
}

func TestDeactivate_AfterActivateAwaitsStop(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, _ := newTestManager(t, transport)

	var bag host.DisposeBag

	require.NoError(t, manager.Activate(context.Background(), &bag))
	waitForStarts(t, transport, 1)

	err := manager.Deactivate(context.Background())
	require.NoError(t, err)

	_, stops := transport.counts()
	assert.Equal(t, 1, stops)
	assert.Equal(t, lspclient.StateStopped, manager.Status().Connection.State)
}

func TestDeactivate_ImmediatelyAfterActivateLeavesNothingRunning(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, _ := newTestManager(t, transport)

	var bag host.DisposeBag

	require.NoError(t, manager.Activate(context.Background(), &bag))

	// Deactivate races the asynchronous first start. Whichever side wins,
	// the server must not be running once Deactivate has resolved.
	require.NoError(t, manager.Deactivate(context.Background()))

	assert.Never(t, func() bool {
		return manager.Status().Connection.State == lspclient.StateRunning
	}, 100*time.Millisecond, 5*time.Millisecond)

	starts, stops := transport.counts()
	assert.Equal(t, starts, stops)
}

func TestRestart_AfterDeactivateIsSilentNoop(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, _ := newTestManager(t, transport)

	var bag host.DisposeBag

	require.NoError(t, manager.Activate(context.Background(), &bag))
	waitForStarts(t, transport, 1)

	require.NoError(t, manager.Deactivate(context.Background()))

	err := manager.Restart(context.Background())
	require.NoError(t, err)

	starts, _ := transport.counts()
	assert.Equal(t, 1, starts)
	assert.NotEqual(t, lspclient.StateRunning, manager.Status().Connection.State)
}

func TestReadyCheck_FollowsConnectionState(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	manager, _ := newTestManager(t, transport)

	check := manager.ReadyCheck()
	require.Error(t, check(context.Background()))

	var bag host.DisposeBag

	require.NoError(t, manager.Activate(context.Background(), &bag))
	waitForStarts(t, transport, 1)

	require.Eventually(t, func() bool {
		return check(context.Background()) == nil
	}, time.Second, time.Millisecond)

	require.NoError(t, manager.Deactivate(context.Background()))
	require.Error(t, check(context.Background()))
}
