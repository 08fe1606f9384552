package main

import (
	"context"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/metrics"
)

var (
	tuiLogFile string
	tuiChurn   time.Duration

	tuiCmd = &cobra.Command{
		Use:   "tui",
		Short: "Browse maps and fault badges in the terminal",
		RunE:  runTUI,
	}
)

func init() {
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "", "write logs here instead of discarding them")
	tuiCmd.Flags().DurationVar(&tuiChurn, "demo-churn", 10*time.Second, "how often the demo backend changes fault counts (0 disables)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	var out io.Writer = io.Discard
	if tuiLogFile != "" {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	logger := logging.NewJSONLogger(out, cfg.Level())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c, err := newConsole(ctx, cfg, logger, metrics.NewRegistry())
	if err != nil {
		return err
	}
	defer c.Close()
	go c.churn(ctx, tuiChurn)

	sub, err := c.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	_, err = tea.NewProgram(newModel(ctx, c.Controller, sub.Channel()), tea.WithAltScreen()).Run()
	return err
}
