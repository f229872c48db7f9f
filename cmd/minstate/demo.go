package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/minstate/internal/todo"
)

func demoCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Replay a scripted todo session",
		Long: `Replay a scripted session of the todo example.

Every component render is printed as it happens, followed by the final
state as JSON.

Examples:
  minstate demo
  minstate demo --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, flags)
		},
	}
	return cmd
}

func runDemo(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	out := cmd.OutOrStdout()

	app := todo.New(out,
		todo.WithLogger(logger),
		todo.WithStateOptions(cfg.StateOptions(logger)...),
	)
	app.Mount()
	defer app.Unmount()

	steps := []struct {
		label string
		run   func()
	}{
		{"type milk", func() { app.Type("milk") }},
		{"enter", app.Enter},
		{"type eggs", func() { app.Type("eggs") }},
		{"enter", app.Enter},
		{"check milk", func() { app.Toggle(0, true) }},
		{"mouse down", app.MouseDown},
		{"clear done", app.ClearDone},
	}
	for _, step := range steps {
		fmt.Fprintf(out, "\n== %s\n", step.label)
		step.run()
	}

	data, err := json.MarshalIndent(app.State.Pure(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode final state: %w", err)
	}
	fmt.Fprintf(out, "\n== final state\n%s\n", data)
	return nil
}
