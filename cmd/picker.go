package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinnelein/familybook/internal/formatter"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"github.com/spinnelein/familybook/internal/tasks"
	"github.com/spinnelein/familybook/internal/ui"
	"github.com/urfave/cli/v3"
)

type importOutput struct {
	SessionID string               `json:"sessionId"`
	PickerURI string               `json:"pickerUri"`
	Selected  int                  `json:"selected"`
	Result    *models.ImportResult `json:"result"`
}

// waitOptions reads poll bounds from flags, falling back to the picker config.
func (r *Runner) waitOptions(cmd *cli.Command) tasks.WaitOptions {
	opts := tasks.WaitOptions{
		Interval: time.Duration(r.config.Picker.PollIntervalSeconds) * time.Second,
		Budget:   time.Duration(r.config.Picker.PollBudgetSeconds) * time.Second,
	}
	if d := cmd.Duration("interval"); d > 0 {
		opts.Interval = d
	}
	if d := cmd.Duration("budget"); d > 0 {
		opts.Budget = d
	}
	return opts
}

// PickerImport creates a picker session, waits for the user's selection and imports it.
//
// Runs the interactive UI unless --plain or --json is set.
func (r *Runner) PickerImport(ctx context.Context, cmd *cli.Command) error {
	plain := cmd.Bool("plain") || cmd.Bool("json")
	if !plain {
		return r.pickerTUI(ctx, cmd)
	}

	d, err := r.buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	jsonOut := cmd.Bool("json")
	onSession := func(s *models.PickerSession) {
		if !jsonOut {
			r.writePlain("Choose photos and videos at:\n\n%s\n\n", s.PickerURI)
		}
		if cmd.Bool("no-browser") {
			return
		}
		if err := r.openBrowser(s.PickerURI); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	run, err := d.engine.Run(ctx, r.waitOptions(cmd), onSession, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if jsonOut {
		return r.writeJSON(importOutput{
			SessionID: run.Session.ID,
			PickerURI: run.Session.PickerURI,
			Selected:  len(run.Items),
			Result:    run.Import,
		}, true)
	}

	if len(run.Items) == 0 {
		r.writePlain("Nothing was selected\n")
		return nil
	}
	r.writePlain("%s", formatter.ResultToText(run.Import))
	return nil
}

// pickerTUI runs the interactive picker UI with logs redirected to a file.
func (r *Runner) pickerTUI(ctx context.Context, cmd *cli.Command) error {
	logger, closer, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	shared.SetLogLevel(logger, r.config.Log.Level)
	r.SetLogger(logger)

	d, err := r.buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	var open func(string) error
	if !cmd.Bool("no-browser") {
		open = r.openBrowser
	}

	model := ui.NewModel(ctx, d.engine, r.waitOptions(cmd), open)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(r.output))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if result := model.Result(); result != nil {
		r.writePlain("%s", formatter.ResultToText(result))
		return nil
	}
	if err := model.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
