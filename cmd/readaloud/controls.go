package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/readaloud/internal/display"
	"github.com/hammamikhairi/readaloud/internal/logger"
	"github.com/hammamikhairi/readaloud/internal/page"
)

func newControlsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "controls <page.html>",
		Short: "List the speech toggles of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening page: %w", err)
			}
			defer f.Close()

			log := logger.New(logger.ParseLevel(cfg.LogLevel), cmd.ErrOrStderr())
			doc, err := page.Parse(f, log)
			if err != nil {
				return err
			}
			printControls(cmd.OutOrStdout(), doc.Controls(cfg.Voice))
			return nil
		},
	}
}

func printControls(out io.Writer, specs []page.ControlSpec) {
	if len(specs) == 0 {
		fmt.Fprintln(out, "no speech toggles found")
		return
	}
	for _, s := range specs {
		id := s.ID
		if id == "" {
			id = "(generated)"
		}
		fmt.Fprintf(out, "%s %-14s textids=%q lang=%s pitch=%.2f rate=%.2f volume=%.2f title=%q\n",
			display.Icon(false), id, s.TextIDs, s.Voice.Language, s.Voice.Pitch, s.Voice.Rate, s.Voice.Volume, s.Title)
	}
}
