package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/mbd888/chainrisk/internal/analyzer"
	"github.com/mbd888/chainrisk/internal/risk"
	"github.com/mbd888/chainrisk/internal/signal"
)

func categoryColor(c risk.Category) *color.Color {
	switch c {
	case risk.CategoryCritical:
		return color.New(color.FgRed, color.Bold)
	case risk.CategoryHigh:
		return color.New(color.FgRed)
	case risk.CategoryMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func printReport(w io.Writer, r *analyzer.Response, noColor bool) {
	paint := func(c *color.Color) *color.Color {
		if noColor {
			c.DisableColor()
		}
		return c
	}
	header := paint(color.New(color.FgCyan, color.Bold))
	score := r.RiskScore

	header.Fprintf(w, "%s (%s)\n", r.Address, r.Blockchain)
	paint(categoryColor(score.Category)).Fprintf(w, "Risk score: %d/100 (%s)\n",
		score.Overall, strings.ToUpper(string(score.Category)))
	if len(r.Labels) > 0 {
		fmt.Fprintf(w, "Labels: %s\n", strings.Join(r.Labels, ", "))
	}
	if score.Sanctions {
		name := ""
		if score.SanctionDetails != nil {
			name = score.SanctionDetails.Name
		}
		paint(color.New(color.FgRed, color.Bold)).Fprintf(w, "SANCTIONED %s\n", name)
	}

	fmt.Fprintln(w)
	header.Fprintln(w, "Breakdown")
	for _, c := range score.Breakdown.Components() {
		row := paint(color.New(color.Faint))
		if c.Score > 0 {
			row = paint(color.New(color.FgWhite))
		}
		row.Fprintf(w, "  %-21s %2d/%d\n", c.Name, c.Score, c.Cap)
	}

	fmt.Fprintln(w)
	header.Fprintln(w, "Explanation")
	for _, line := range score.Explanation {
		fmt.Fprintf(w, "  %s\n", line)
	}

	fmt.Fprintln(w)
	header.Fprintln(w, "Sources")
	names := make([]string, 0, len(r.Signals))
	for name := range r.Signals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o := r.Signals[name]
		if o.Status == signal.StatusOK {
			paint(color.New(color.FgGreen)).Fprintf(w, "  %-13s ok\n", name)
			continue
		}
		paint(color.New(color.FgYellow)).Fprintf(w, "  %-13s %s (%s)\n", name, o.Status, o.Reason)
	}

	if r.Alerted {
		fmt.Fprintln(w)
		paint(color.New(color.FgRed, color.Bold)).Fprintln(w, "High-risk alert dispatched")
	}
}
