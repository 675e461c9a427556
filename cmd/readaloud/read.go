package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/readaloud/internal/display"
	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/page"
)

// adHocControl names the control mounted by read when the page has none.
const adHocControl = "read"

func newReadCmd(opts *options) *cobra.Command {
	var (
		ids     string
		control string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "read <page.html>",
		Short: "Press one control, wait for its narration and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			a, err := opts.openApp(ctx, args[0])
			if err != nil {
				return err
			}
			defer a.close()

			return a.readOnce(ctx, control, ids, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&ids, "ids", "", "comma-separated element ids to read instead of the control's textids")
	cmd.Flags().StringVar(&control, "control", "", "identity of the control to press (default: first in tab order)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits until the narration ends)")
	return cmd
}

// readOnce presses a control and prints its lifecycle events until the
// narration finishes or fails.
func (a *app) readOnce(ctx context.Context, control, ids string, out io.Writer) error {
	if _, err := a.engine.Focused(ctx); errors.Is(err, domain.ErrNotFound) && ids != "" {
		a.log.Info("page has no speech toggles, mounting %q", adHocControl)
		spec := page.ControlSpec{ID: adHocControl, TextIDs: ids, Voice: a.cfg.Voice, Title: page.DefaultTitle, Alt: page.DefaultAlt}
		if err := a.engine.Mount(ctx, []page.ControlSpec{spec}); err != nil {
			return err
		}
	}

	target, err := a.engine.Status(ctx, control)
	if err != nil {
		return fmt.Errorf("no control to press: %w", err)
	}
	id := target.Status.Identity
	if ids != "" {
		if err := a.engine.SetTextIDs(ctx, id, ids); err != nil {
			return err
		}
	}

	events := a.bus.Subscribe("read", 0)
	defer a.bus.Unsubscribe("read")

	if _, err := a.engine.Toggle(ctx, id); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			if err := a.engine.StopAll(context.Background()); err != nil {
				a.log.Error("stopping controls: %v", err)
			}
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Identity != id {
				continue
			}
			fmt.Fprintln(out, display.RenderEvent(ev))
			switch ev.Type {
			case domain.EventFinished:
				return nil
			case domain.EventFailed:
				return fmt.Errorf("narration of %s failed, see the log for details", id)
			}
		}
	}
}
