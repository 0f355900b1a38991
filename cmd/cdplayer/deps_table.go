package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cdplayer/internal/deps"
)

// renderDependencyTable renders the deps report and returns how many
// required programs are missing.
func renderDependencyTable(results []deps.Status, colorize bool) (string, int) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Program", "Command", "Required", "State", "Detail"})

	missing := 0
	for _, status := range results {
		state, colors := "ready", text.Colors{text.FgGreen}
		detail := status.Description
		switch {
		case status.Available:
		case status.Optional:
			state, colors = "missing", text.Colors{text.FgYellow}
			detail = status.Detail
		default:
			state, colors = "missing", text.Colors{text.FgRed}
			detail = status.Detail
			missing++
		}
		if colorize {
			state = colors.Sprint(state)
		}
		tw.AppendRow(table.Row{status.Name, status.Command, yesNo(!status.Optional), state, detail})
	}
	return tw.Render(), missing
}
