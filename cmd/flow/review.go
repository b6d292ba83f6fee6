package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wesm/flow/internal/analytics"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("99"))
	boxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// barWidth is the widest day bar in the completion chart.
const barWidth = 20

func newReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Print this week's review",
		Args:  cobra.NoArgs,
		RunE:  runReview,
	}
}

func runReview(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	renderReview(cmd.OutOrStdout(), engine.WeeklyReview(snap), engine.Praise(snap))
	return nil
}

func renderReview(w io.Writer, r analytics.WeeklyReview, praise string) {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render("Weekly review"))
	fmt.Fprintln(&b, mutedStyle.Render(r.MotivationMessage))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Tasks completed: "), r.TasksCompleted)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Habit check-ins: "), r.HabitsCompleted)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Longest streak:  "), r.LongestStreak)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Perfect days:    "), r.PerfectDays)

	top := 0
	for _, d := range r.WeeklyCompletion {
		top = max(top, d.Total)
	}
	fmt.Fprintln(&b)
	for _, d := range r.WeeklyCompletion {
		n := 0
		if top > 0 {
			n = d.Total * barWidth / top
		}
		fmt.Fprintf(&b, "%s %s %d\n",
			mutedStyle.Render(d.Date),
			barStyle.Render(strings.Repeat("█", n)),
			d.Total,
		)
	}

	if len(r.Insights) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, labelStyle.Render("Insights"))
		for _, in := range r.Insights {
			fmt.Fprintf(&b, "  - %s\n", in.Message)
		}
	}
	fmt.Fprintln(&b)
	fmt.Fprint(&b, praise)

	fmt.Fprintln(w, boxStyle.Render(b.String()))
}
