package host

import (
	"context"
	"io"
	"log/slog"

	"github.com/fatih/color"
)

// TerminalHost renders user-facing notifications to a terminal and keeps a
// command registry dispatched from signals or the MCP control surface.
type TerminalHost struct {
	registry *Registry
	logger   *slog.Logger
	out      io.Writer
}

// NewTerminalHost creates a terminal host writing notifications to out.
func NewTerminalHost(logger *slog.Logger, out io.Writer) *TerminalHost {
	return &TerminalHost{
		registry: NewRegistry(),
		logger:   logger,
		out:      out,
	}
}

// RegisterCommand implements [Host].
func (h *TerminalHost) RegisterCommand(id string, handler CommandHandler) (Disposable, error) {
	disposable, err := h.registry.Register(id, handler)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("command registered", "command", id)

	return disposable, nil
}

// ExecuteCommand implements [Host].
func (h *TerminalHost) ExecuteCommand(ctx context.Context, id string) error {
	h.logger.Debug("command invoked", "command", id)

	return h.registry.Execute(ctx, id)
}

// Commands returns the registered command ids.
func (h *TerminalHost) Commands() []string {
	return h.registry.Commands()
}

// ShowInfo implements [Host].
func (h *TerminalHost) ShowInfo(message string) {
	color.New(color.FgGreen).Fprintln(h.out, message)
	h.logger.Info("notification", "severity", "info", "message", message)
}

// ShowWarning implements [Host].
func (h *TerminalHost) ShowWarning(message string) {
	color.New(color.FgYellow).Fprintln(h.out, message)
	h.logger.Warn("notification", "severity", "warning", "message", message)
}

// ShowError implements [Host].
func (h *TerminalHost) ShowError(message string) {
	color.New(color.FgRed).Fprintln(h.out, message)
	h.logger.Error("notification", "severity", "error", "message", message)
}
