package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/readaloud/internal/conversation"
	"github.com/hammamikhairi/readaloud/internal/display"
	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/engine"
	"github.com/hammamikhairi/readaloud/internal/gpt"
)

func newPlayCmd(opts *options) *cobra.Command {
	var noAI bool

	cmd := &cobra.Command{
		Use:   "play <page.html>",
		Short: "Interactive prompt over every speech toggle of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := opts.openApp(ctx, args[0])
			if err != nil {
				return err
			}
			defer a.close()

			return a.play(ctx, !noAI)
		},
	}
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "never send unrecognised input to the chat endpoint")
	return cmd
}

// repl reads commands from the prompt and drives the page engine.
type repl struct {
	app        *app
	parser     domain.IntentParser
	classifier *gpt.Classifier // nil when AI is disabled
	ui         *display.UI
}

func (a *app) play(ctx context.Context, ai bool) error {
	ui := display.NewUI(a.views(ctx))
	r := &repl{
		app:    a,
		parser: conversation.NewKeywordParser(a.log),
		ui:     ui,
	}

	if ai && a.cfg.HasGPT() {
		client := gpt.NewClient(a.cfg.GPT.Endpoint, a.cfg.GPT.Key, a.log, gpt.WithModel(a.cfg.GPT.Model))
		r.classifier = gpt.NewClassifier(client, a.log)
		a.log.Info("free-form commands enabled")
	} else if ai {
		a.log.Info("free-form commands disabled: set %s and %s to enable", gpt.EnvChatKey, gpt.EnvChatEndpoint)
	}

	fmt.Println(display.RenderBanner(a.doc.Title()))
	fmt.Println(display.BannerStyle.Render("  Enter toggles the focused control, Tab moves focus."))
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		r.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	err := ui.Run()
	if stopErr := a.engine.StopAll(ctx); stopErr != nil {
		a.log.Error("stopping controls: %v", stopErr)
	}
	return err
}

// views snapshots every control for the status bar.
func (a *app) views(ctx context.Context) func() []display.ControlView {
	return func() []display.ControlView {
		infos, err := a.engine.List(ctx)
		if err != nil {
			return nil
		}
		out := make([]display.ControlView, 0, len(infos))
		for _, in := range infos {
			out = append(out, viewOf(in))
		}
		return out
	}
}

func viewOf(in engine.ControlInfo) display.ControlView {
	return display.ControlView{
		Status:  in.Status,
		Title:   in.Spec.Title,
		Alt:     in.Spec.Alt,
		Focused: in.Focused,
	}
}

func (r *repl) run(ctx context.Context) {
	events := r.app.bus.Subscribe("repl", 0)
	defer r.app.bus.Unsubscribe("repl")

	r.listControls(ctx)
	input := r.ui.InputChan()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ui.QuitChan():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.ui.PrintEvent(ev)
		case line, ok := <-input:
			if !ok {
				return
			}
			intent, err := r.parser.Parse(ctx, line)
			if err != nil {
				r.app.log.Error("parsing input: %v", err)
				continue
			}
			if intent.Type == domain.IntentUnknown {
				intent = r.classify(ctx, intent)
			}
			r.app.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
			if !r.handle(ctx, intent) {
				return
			}
		}
	}
}

// handle runs one intent and reports whether the loop should go on.
func (r *repl) handle(ctx context.Context, intent *domain.Intent) bool {
	switch intent.Type {
	case domain.IntentToggle:
		r.toggle(ctx, intent.Payload)
	case domain.IntentFocusNext:
		r.focusNext(ctx)
	case domain.IntentListControls:
		r.listControls(ctx)
	case domain.IntentStatus:
		r.status(ctx, intent.Payload)
	case domain.IntentPause:
		r.pause(ctx, intent.Payload)
	case domain.IntentResume:
		r.resume(ctx, intent.Payload)
	case domain.IntentHelp:
		r.showHelp()
	case domain.IntentQuit:
		return false
	default:
		r.ui.PrintHint(fmt.Sprintf("Unknown command %q. Type 'help' for the list.", intent.Payload))
	}
	return true
}

// classify sends input the keyword parser did not know to the chat
// endpoint. Without one, or when it fails, the intent stays unknown.
func (r *repl) classify(ctx context.Context, original *domain.Intent) *domain.Intent {
	if r.classifier == nil {
		return original
	}

	infos, err := r.app.engine.List(ctx)
	if err != nil {
		r.app.log.Error("listing controls: %v", err)
		return original
	}
	hints := make([]gpt.ControlHint, 0, len(infos))
	for _, in := range infos {
		hints = append(hints, gpt.ControlHint{
			Identity: in.Status.Identity,
			Title:    in.Spec.Title,
			TextIDs:  in.Status.TextIDs,
			Pressed:  in.Status.Pressed,
		})
	}

	r.ui.PrintHint("Thinking...")
	intent, err := r.classifier.Classify(ctx, original.Payload, hints)
	if err != nil {
		r.app.log.Error("classifying %q: %v", original.Payload, err)
		return original
	}
	if intent.Type != domain.IntentUnknown {
		r.app.log.Info("classified %q -> %s", original.Payload, intent.Type)
	}
	return intent
}

func (r *repl) toggle(ctx context.Context, id string) {
	st, err := r.app.engine.Toggle(ctx, id)
	if err != nil {
		r.reportErr(err)
		return
	}
	r.printControl(ctx, st.Identity)
}

func (r *repl) focusNext(ctx context.Context) {
	c, err := r.app.engine.FocusNext(ctx)
	if err != nil {
		r.reportErr(err)
		return
	}
	r.printControl(ctx, c.Identity())
}

func (r *repl) listControls(ctx context.Context) {
	infos, err := r.app.engine.List(ctx)
	if err != nil {
		r.reportErr(err)
		return
	}
	if len(infos) == 0 {
		r.ui.PrintHint("This page has no speech toggles.")
		return
	}
	for _, in := range infos {
		r.ui.PrintControl(viewOf(in))
	}
}

func (r *repl) status(ctx context.Context, id string) {
	info, err := r.app.engine.Status(ctx, id)
	if err != nil {
		r.reportErr(err)
		return
	}
	r.ui.PrintStatus(viewOf(info))
}

func (r *repl) pause(ctx context.Context, id string) {
	if err := r.app.engine.Pause(ctx, id); err != nil {
		r.reportErr(err)
		return
	}
	r.ui.PrintHint("Holding playback. Type 'resume' to continue.")
}

func (r *repl) resume(ctx context.Context, id string) {
	if err := r.app.engine.Resume(ctx, id); err != nil {
		r.reportErr(err)
	}
}

func (r *repl) printControl(ctx context.Context, id string) {
	info, err := r.app.engine.Status(ctx, id)
	if err != nil {
		r.reportErr(err)
		return
	}
	r.ui.PrintControl(viewOf(info))
}

func (r *repl) reportErr(err error) {
	if errors.Is(err, domain.ErrNotFound) {
		r.ui.PrintUrgent("No such control. Type 'list' to see them.")
		return
	}
	r.ui.PrintUrgent(err.Error())
}

func (r *repl) showHelp() {
	for _, line := range []string{
		"Enter, toggle [id]   press or release a control (the focused one by default)",
		"Tab, next            move focus to the next control",
		"list                 show every control",
		"status [id]          show where a control is in its narration",
		"pause, resume        hold or continue the focused control's audio",
		"quit                 stop all narration and exit",
	} {
		r.ui.PrintHint(line)
	}
}
