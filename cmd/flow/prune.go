package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/store"
	"github.com/wesm/flow/internal/timeutil"
)

// PruneConfig holds parsed CLI options for the prune command.
type PruneConfig struct {
	Before string
	DryRun bool
	Yes    bool
}

func (c PruneConfig) validate() error {
	if c.Before == "" {
		return fmt.Errorf(
			"--before is required (refusing to prune everything)",
		)
	}
	if !timeutil.IsValidDate(c.Before) {
		return fmt.Errorf(
			"invalid --before date %q (want YYYY-MM-DD)", c.Before,
		)
	}
	return nil
}

func newPruneCmd() *cobra.Command {
	var pc PruneConfig
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete completed tasks and old focus items",
		Long: `Delete tasks completed before --before and focus items
dated before it. Open tasks and habits are never touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrune(cmd, pc)
		},
	}
	cmd.Flags().StringVar(&pc.Before, "before", "",
		"Prune items from before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&pc.DryRun, "dry-run", false,
		"Show what would be pruned without deleting")
	cmd.Flags().BoolVar(&pc.Yes, "yes", false,
		"Skip confirmation prompt")
	return cmd
}

// Pruner executes the prune workflow against a store.
type Pruner struct {
	Store store.Store
	Out   io.Writer
	In    io.Reader
}

// Prune finds matching items and deletes them.
func (p *Pruner) Prune(ctx context.Context, cfg PruneConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	snap, err := p.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	tasks, focus := pruneCandidates(snap, cfg.Before)
	if len(tasks) == 0 && focus == 0 {
		fmt.Fprintln(p.Out, "Nothing to prune.")
		return nil
	}

	writeSummary(p.Out, tasks, focus)

	if cfg.DryRun {
		fmt.Fprintln(p.Out, "\nDry run: no changes made.")
		return nil
	}

	if !cfg.Yes {
		msg := fmt.Sprintf(
			"\nDelete %d tasks and %d focus items?",
			len(tasks), focus,
		)
		if !confirm(p.In, p.Out, msg) {
			fmt.Fprintln(p.Out, "Aborted.")
			return nil
		}
	}

	var res analytics.PruneResult
	_, err = p.Store.Update(ctx, func(s *model.Snapshot) error {
		res = analytics.Prune(s, cfg.Before)
		return nil
	})
	if err != nil {
		return fmt.Errorf("pruning: %w", err)
	}
	fmt.Fprintf(p.Out,
		"\nDeleted %d tasks and %d focus items\n",
		res.Tasks, res.FocusItems,
	)
	return nil
}

// pruneCandidates previews Prune on a copy of s.
func pruneCandidates(
	s *model.Snapshot, before string,
) ([]model.Task, int) {
	keep := make(map[int64]bool)
	preview := s.Clone()
	res := analytics.Prune(preview, before)
	for _, t := range preview.Tasks {
		keep[t.ID] = true
	}
	var tasks []model.Task
	for _, t := range s.Tasks {
		if !keep[t.ID] {
			tasks = append(tasks, t)
		}
	}
	return tasks, res.FocusItems
}

func confirm(r io.Reader, w io.Writer, msg string) bool {
	fmt.Fprintf(w, "%s [y/N] ", msg)
	scanner := bufio.NewScanner(r)
	scanner.Scan()
	ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return ans == "y" || ans == "yes"
}

func writeSummary(w io.Writer, tasks []model.Task, focus int) {
	byMonth := map[string]int{}
	var months []string
	for _, t := range tasks {
		m := ""
		if t.CompletedAt != nil {
			m = timeutil.DateOf(*t.CompletedAt)
		}
		if len(m) >= 7 {
			m = m[:7]
		}
		if byMonth[m] == 0 {
			months = append(months, m)
		}
		byMonth[m]++
	}
	sort.Strings(months)

	fmt.Fprintf(w,
		"Found %d completed tasks and %d focus items\n",
		len(tasks), focus,
	)
	if len(months) == 0 {
		return
	}
	fmt.Fprintln(w, "\nBy completion month:")
	for _, m := range months {
		fmt.Fprintf(w, "  %-10s %d\n", m, byMonth[m])
	}
}

func runPrune(cmd *cobra.Command, pc PruneConfig) error {
	if err := pc.validate(); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pruner := &Pruner{
		Store: st,
		Out:   cmd.OutOrStdout(),
		In:    cmd.InOrStdin(),
	}
	if err := pruner.Prune(cmd.Context(), pc); err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return nil
}
