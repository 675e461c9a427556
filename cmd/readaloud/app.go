package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/readaloud/internal/config"
	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/engine"
	"github.com/hammamikhairi/readaloud/internal/events"
	"github.com/hammamikhairi/readaloud/internal/logger"
	"github.com/hammamikhairi/readaloud/internal/page"
	"github.com/hammamikhairi/readaloud/internal/speech"
	"github.com/hammamikhairi/readaloud/internal/storage"
)

// bind ties a flag to a config key so the flag wins when set.
func bind(v *viper.Viper, f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", f.Name, err))
	}
}

// app is a page with all of its controls mounted and ready to toggle.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	doc    *page.Document
	engine *engine.Engine
	bus    *events.Bus

	queues  []*speech.Queue
	closers []func()
}

// openApp loads the configuration, parses the page at path and mounts
// its controls. Call close when done.
func (o *options) openApp(ctx context.Context, path string) (*app, error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	// Logs go to a file by default so the terminal stays clean.
	out := o.openLogOutput(a)
	stdlog.SetOutput(out)
	stdlog.SetFlags(stdlog.Ltime)
	a.log = logger.New(logger.ParseLevel(cfg.LogLevel), out)

	tts, err := a.synthesizer(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	cache := speech.NewAudioCache(tts.Name(), cfg.Cache.Dir, cfg.Cache.Write, a.log,
		speech.WithMemoryEntries(cfg.Cache.Entries),
	)
	newPlayer := a.players()

	f, err := os.Open(path)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer f.Close()

	a.doc, err = page.Parse(f, a.log)
	if err != nil {
		a.close()
		return nil, err
	}

	a.bus = events.NewBus(a.log)
	sinks := events.Multi{a.bus, events.NewLogSink(a.log)}
	if cfg.Redis.URL != "" {
		pub, err := a.redis(ctx, filepath.Base(path))
		if err != nil {
			a.close()
			return nil, err
		}
		sinks = append(sinks, pub)
	}

	factory := func(spec page.ControlSpec) (domain.SpeechEngine, error) {
		q := speech.NewQueue(tts, newPlayer(), a.log.WithField("queue", spec.ID),
			speech.WithCache(cache),
			speech.WithChunkSize(cfg.Queue.ChunkSize),
			speech.WithPrefetch(cfg.Queue.Prefetch),
		)
		q.Start(ctx)
		a.queues = append(a.queues, q)
		return q, nil
	}

	a.engine = engine.New(storage.NewMemoryStore(a.log), page.NewResolver(a.doc, a.log), factory, a.log,
		engine.WithSink(sinks),
	)
	if err := a.engine.Mount(ctx, a.doc.Controls(cfg.Voice)); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// loadConfig reads and validates the configuration.
func loadConfig(o *options) (*config.Config, error) {
	cfg, err := config.Load(o.v, o.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (o *options) openLogOutput(a *app) io.Writer {
	if o.logFile == "" || o.logFile == "stderr" {
		return os.Stderr
	}
	if dir := filepath.Dir(o.logFile); dir != "" && dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", o.logFile, err)
		return os.Stderr
	}
	a.closers = append(a.closers, func() { f.Close() })
	return f
}

// synthesizer picks the TTS backend. In auto mode Azure wins when its
// keys are set, then Google when application credentials exist, and the
// silent backend covers everything else.
func (a *app) synthesizer(ctx context.Context) (speech.Synthesizer, error) {
	backend := a.cfg.Backend
	if backend == speech.BackendAuto {
		switch {
		case a.cfg.HasAzure():
			backend = speech.BackendAzure
		case os.Getenv(speech.EnvGoogleCredentials) != "":
			backend = speech.BackendGoogle
		default:
			backend = speech.BackendSilent
			a.log.Info("TTS disabled: set %s and %s, or %s, to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion, speech.EnvGoogleCredentials)
		}
	}

	switch backend {
	case speech.BackendAzure:
		a.log.Info("TTS backend azure (region=%s)", a.cfg.Azure.Region)
		return speech.NewAzureClient(a.cfg.Azure.Key, a.cfg.Azure.Region, a.log,
			speech.WithFallbackVoice(a.cfg.Azure.Voice),
		), nil
	case speech.BackendGoogle:
		g, err := speech.NewGoogleClient(ctx, a.log)
		if err != nil {
			return nil, fmt.Errorf("google tts: %w", err)
		}
		a.closers = append(a.closers, func() { g.Close() })
		a.log.Info("TTS backend google")
		return g, nil
	default:
		return speech.NewSilent(a.log), nil
	}
}

// players returns a constructor for per-control audio players. Controls
// share one audio device; without a device they wait out the audio.
func (a *app) players() func() speech.AudioPlayer {
	mute := func() speech.AudioPlayer { return speech.NewMutePlayer(a.log) }
	if a.cfg.Mute {
		return mute
	}

	player, err := speech.NewPlayer(a.log)
	if err != nil {
		a.log.Warn("audio player init failed, playing muted: %v", err)
		return mute
	}
	return func() speech.AudioPlayer { return player.Fork() }
}

func (a *app) redis(ctx context.Context, source string) (*events.RedisPublisher, error) {
	client, err := events.DialRedis(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	pubCtx, cancel := context.WithCancel(context.Background())
	pub := events.NewRedisPublisher(client, a.log,
		events.WithChannel(a.cfg.Redis.Channel),
		events.WithSource(source),
	)
	pub.Start(pubCtx)
	a.closers = append(a.closers, func() {
		cancel()
		pub.Wait()
		client.Close()
	})
	a.log.Info("publishing events to redis channel %s", a.cfg.Redis.Channel)
	return pub, nil
}

// close stops every queue, then releases resources in reverse order.
func (a *app) close() {
	for _, q := range a.queues {
		q.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
