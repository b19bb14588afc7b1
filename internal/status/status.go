// Package status renders lifecycle status snapshots for humans and agents.
package status

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/fluxion-ml/fluxionctl/internal/lifecycle"
)

// Render formats a lifecycle status as a compact two-column table.
func Render(st lifecycle.Status) string {
	conn := st.Connection

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendRow(table.Row{"state", conn.State.String()})

	if conn.Command != "" {
		tbl.AppendRow(table.Row{"command", conn.Command})
	}

	if conn.Pid != 0 {
		tbl.AppendRow(table.Row{"pid", strconv.Itoa(conn.Pid)})
	}

	if !conn.StartedAt.IsZero() {
		tbl.AppendRow(table.Row{"started", humanize.Time(conn.StartedAt)})
	}

	tbl.AppendRow(table.Row{"starts", strconv.Itoa(conn.Starts)})
	tbl.AppendRow(table.Row{"restarts", strconv.Itoa(st.Restarts)})

	return tbl.Render()
}
