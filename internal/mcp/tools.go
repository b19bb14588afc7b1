package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fluxion-ml/fluxionctl/internal/lifecycle"
	"github.com/fluxion-ml/fluxionctl/internal/status"
)

// ErrNotSupervising is returned when a tool requires a running supervisor
// but the server was created without one.
var ErrNotSupervising = errors.New("no supervised analysis server in this session")

// StatusInput has no parameters.
type StatusInput struct{}

// StatusOutput is the structured result of fluxion_status.
type StatusOutput struct {
	State    string `json:"state"`
	Command  string `json:"command,omitempty"`
	Pid      int    `json:"pid,omitempty"`
	Starts   int    `json:"starts"`
	Restarts int    `json:"restarts"`
}

// RestartInput has no parameters.
type RestartInput struct{}

// RestartOutput is the structured result of fluxion_restart.
type RestartOutput struct {
	Restarted bool   `json:"restarted"`
	State     string `json:"state"`
}

// HelloInput has no parameters.
type HelloInput struct{}

// HelloOutput is the structured result of fluxion_hello.
type HelloOutput struct {
	Invoked bool `json:"invoked"`
}

func (s *Server) handleStatus(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	_ StatusInput,
) (*mcpsdk.CallToolResult, StatusOutput, error) {
	if s.deps.Controller == nil {
		return errorResult(ErrNotSupervising), StatusOutput{}, nil
	}

	st := s.deps.Controller.Status()

	out := StatusOutput{
		State:    st.Connection.State.String(),
		Command:  st.Connection.Command,
		Pid:      st.Connection.Pid,
		Starts:   st.Connection.Starts,
		Restarts: st.Restarts,
	}

	return textResult(status.Render(st)), out, nil
}

func (s *Server) handleRestart(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	_ RestartInput,
) (*mcpsdk.CallToolResult, RestartOutput, error) {
	if s.deps.Dispatcher == nil {
		return errorResult(ErrNotSupervising), RestartOutput{}, nil
	}

	// Dispatch through the host command so a restart from an agent behaves
	// exactly like one from the command palette, confirmation included.
	err := s.deps.Dispatcher.ExecuteCommand(ctx, lifecycle.CommandRestartServer)
	if err != nil {
		return errorResult(err), RestartOutput{}, nil
	}

	out := RestartOutput{Restarted: true}
	if s.deps.Controller != nil {
		out.State = s.deps.Controller.Status().Connection.State.String()
	}

	return textResult("fluxion-lsp restarted"), out, nil
}

func (s *Server) handleHello(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	_ HelloInput,
) (*mcpsdk.CallToolResult, HelloOutput, error) {
	if s.deps.Dispatcher == nil {
		return errorResult(ErrNotSupervising), HelloOutput{}, nil
	}

	err := s.deps.Dispatcher.ExecuteCommand(ctx, lifecycle.CommandHelloWorld)
	if err != nil {
		return errorResult(err), HelloOutput{}, nil
	}

	return textResult("hello command invoked"), HelloOutput{Invoked: true}, nil
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}
