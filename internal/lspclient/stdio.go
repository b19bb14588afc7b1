package lspclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/fluxion-ml/fluxionctl/internal/launch"
)

// Notifier receives user-facing messages the server sends over
// window/showMessage.
type Notifier interface {
	ShowInfo(message string)
	ShowWarning(message string)
	ShowError(message string)
}

// StdioTransport runs the analysis server as a subprocess and speaks
// JSON-RPC 2.0 with VS Code header framing over its standard streams.
type StdioTransport struct {
	logger   *slog.Logger
	notifier Notifier

	mu   sync.Mutex
	cmd  *exec.Cmd
	conn *jsonrpc2.Conn
}

// NewStdioTransport creates a transport that forwards server notifications
// to notifier. A nil notifier drops window/showMessage traffic.
func NewStdioTransport(logger *slog.Logger, notifier Notifier) *StdioTransport {
	return &StdioTransport{logger: logger, notifier: notifier}
}

// Start implements [Transport]: it spawns the server process, opens the
// JSON-RPC stream over its stdio, and completes the initialize handshake.
func (t *StdioTransport) Start(ctx context.Context, cfg launch.Config) error {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = cfg.Env
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}

	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("spawn %s: %w", cfg.Command, err)
	}

	stream := jsonrpc2.NewBufferedStream(stdioPipe{in: stdout, out: stdin}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(t.handle)))

	err = t.initialize(ctx, conn)
	if err != nil {
		_ = conn.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()

		return err
	}

	t.mu.Lock()
	t.cmd = cmd
	t.conn = conn
	t.mu.Unlock()

	go t.watchDisconnect(conn)

	return nil
}

// Stop implements [Transport]: it performs the shutdown/exit handshake and
// waits for the process to exit. When ctx expires first, the process is
// killed.
func (t *StdioTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	cmd := t.cmd
	conn := t.conn
	t.cmd = nil
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	shutdownErr := conn.Call(ctx, "shutdown", nil, nil)
	if shutdownErr == nil {
		err := conn.Notify(ctx, "exit", nil)
		if err != nil {
			t.logger.Debug("exit notification failed", "error", err)
		}
	} else {
		t.logger.Warn("shutdown request failed", "error", shutdownErr)
	}

	closeErr := conn.Close()
	if closeErr != nil {
		t.logger.Debug("transport close failed", "error", closeErr)
	}

	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()

	select {
	case waitErr := <-waited:
		if waitErr != nil {
			t.logger.Debug("server exited", "error", waitErr)
		}
	case <-ctx.Done():
		killErr := cmd.Process.Kill()
		if killErr != nil {
			t.logger.Warn("kill after stop timeout failed", "error", killErr)
		}

		<-waited

		return fmt.Errorf("graceful stop: %w", ctx.Err())
	}

	if shutdownErr != nil {
		return fmt.Errorf("shutdown request: %w", shutdownErr)
	}

	return nil
}

// Pid implements [Transport].
func (t *StdioTransport) Pid() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd == nil || t.cmd.Process == nil {
		return 0
	}

	return t.cmd.Process.Pid
}

func (t *StdioTransport) initialize(ctx context.Context, conn *jsonrpc2.Conn) error {
	pid := protocol.Integer(os.Getpid())

	params := protocol.InitializeParams{
		ProcessID:    &pid,
		Capabilities: protocol.ClientCapabilities{},
	}

	cwd, err := os.Getwd()
	if err == nil {
		rootURI := protocol.DocumentUri("file://" + cwd)
		params.RootURI = &rootURI
	}

	var result protocol.InitializeResult

	err = conn.Call(ctx, "initialize", params, &result)
	if err != nil {
		return fmt.Errorf("initialize handshake: %w", err)
	}

	err = conn.Notify(ctx, "initialized", protocol.InitializedParams{})
	if err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	if result.ServerInfo != nil {
		t.logger.Debug("server initialized", "name", result.ServerInfo.Name)
	}

	return nil
}

// handle processes server-to-client traffic. The lifecycle layer only cares
// about window messages; everything else is answered with MethodNotFound so
// failures bubble on the server's own error surface.
func (t *StdioTransport) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "window/showMessage":
		t.showMessage(req.Params)

		return nil, nil
	case "window/logMessage":
		t.logMessage(req.Params)

		return nil, nil
	case "textDocument/publishDiagnostics":
		// Diagnostics rendering is a host concern outside this shim.
		return nil, nil
	default:
		if req.Notif {
			t.logger.Debug("ignoring server notification", "method", req.Method)

			return nil, nil
		}

		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not supported: %s", req.Method),
		}
	}
}

func (t *StdioTransport) showMessage(raw *json.RawMessage) {
	params, ok := decodeMessageParams(raw)
	if !ok || t.notifier == nil {
		return
	}

	switch params.Type {
	case protocol.MessageTypeError:
		t.notifier.ShowError(params.Message)
	case protocol.MessageTypeWarning:
		t.notifier.ShowWarning(params.Message)
	default:
		t.notifier.ShowInfo(params.Message)
	}
}

func (t *StdioTransport) logMessage(raw *json.RawMessage) {
	params, ok := decodeMessageParams(raw)
	if !ok {
		return
	}

	switch params.Type {
	case protocol.MessageTypeError:
		t.logger.Error("server", "message", params.Message)
	case protocol.MessageTypeWarning:
		t.logger.Warn("server", "message", params.Message)
	default:
		t.logger.Info("server", "message", params.Message)
	}
}

func decodeMessageParams(raw *json.RawMessage) (protocol.ShowMessageParams, bool) {
	var params protocol.ShowMessageParams

	if raw == nil {
		return params, false
	}

	err := json.Unmarshal(*raw, &params)
	if err != nil {
		return params, false
	}

	return params, true
}

func (t *StdioTransport) watchDisconnect(conn *jsonrpc2.Conn) {
	<-conn.DisconnectNotify()

	t.mu.Lock()
	live := t.conn == conn
	t.mu.Unlock()

	if live {
		// The server went away outside a Stop call. No automatic restart:
		// the user triggers one explicitly.
		t.logger.Warn("analysis server transport closed unexpectedly")
	}
}

// stdioPipe joins the subprocess stdout (reads) and stdin (writes) into the
// single ReadWriteCloser the JSON-RPC stream wants.
type stdioPipe struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (p stdioPipe) Read(b []byte) (int, error) { return p.in.Read(b) }

func (p stdioPipe) Write(b []byte) (int, error) { return p.out.Write(b) }

func (p stdioPipe) Close() error {
	outErr := p.out.Close()

	inErr := p.in.Close()
	if outErr != nil {
		return outErr
	}

	return inErr
}
