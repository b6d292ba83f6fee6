package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesm/flow/internal/model"
)

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of all data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Write the backup to this file instead of stdout")
	return cmd
}

func runExport(cmd *cobra.Command, output string) error {
	cfg, err := loadConfig(cmd)
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
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}

	if output == "" {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(),
		"Exported %d tasks, %d habits to %s\n",
		len(snap.Tasks), len(snap.Habits), output)
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data with a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	snap, err := model.ParseBackup(data)
	if err != nil {
		return err
	}

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

	engine.RefreshStreaks(snap)
	if err := st.Replace(cmd.Context(), snap); err != nil {
		return fmt.Errorf("importing: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"Imported %d tasks, %d habits, %d focus items\n",
		len(snap.Tasks), len(snap.Habits), len(snap.FocusItems))
	return nil
}
