package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// CallSummary holds the end-of-call statistics shown after hangup.
type CallSummary struct {
	Room     string
	Peer     string
	Duration string
	Sent     int
	Received int
}

// CallSummaryView renders the summary as a table.
func CallSummaryView(summary CallSummary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})

	peer := summary.Peer
	if peer == "" {
		peer = "(nobody joined)"
	}

	t.AppendRows([]table.Row{
		{"Room", summary.Room},
		{"Peer", peer},
		{"Duration", summary.Duration},
		{"Messages Sent", summary.Sent},
		{"Messages Received", summary.Received},
	})

	return t.Render()
}

// RenderCallSummary prints the summary with a title line.
func RenderCallSummary(title string, summary CallSummary) {
	fmt.Println(TitleStyle.Render(title))
	fmt.Println(CallSummaryView(summary))
}
