package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// fakeSynth returns a tiny WAV per text and fails texts listed in failOn.
type fakeSynth struct {
	mu     sync.Mutex
	calls  []string
	voices []domain.VoiceConfig
	failOn map[string]error
}

func (s *fakeSynth) Name() string { return "fake" }

func (s *fakeSynth) Synthesize(_ context.Context, text string, voice domain.VoiceConfig) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	s.voices = append(s.voices, voice)
	if err, ok := s.failOn[text]; ok {
		return nil, err
	}
	return wavFile([]byte(text)), nil
}

func (s *fakeSynth) lastVoice() domain.VoiceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voices[len(s.voices)-1]
}

// gatedPlayer holds every Play until release is signalled or ctx ends.
// With gated=false it returns immediately.
type gatedPlayer struct {
	gated   bool
	release chan struct{}

	mu      sync.Mutex
	played  int
	pauses  int
	resumes int
}

func newGatedPlayer(gated bool) *gatedPlayer {
	return &gatedPlayer{gated: gated, release: make(chan struct{}, 8)}
}

func (p *gatedPlayer) Play(ctx context.Context, _ []byte) error {
	if p.gated {
		select {
		case <-p.release:
		case <-ctx.Done():
			return domain.ErrPlaybackStopped
		}
	}
	p.mu.Lock()
	p.played++
	p.mu.Unlock()
	return nil
}

func (p *gatedPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
}

func (p *gatedPlayer) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
}

// chanListener turns callbacks into strings like "started g1/0".
type chanListener struct {
	events chan string
}

func newChanListener() *chanListener {
	return &chanListener{events: make(chan string, 64)}
}

func (l *chanListener) HandleEngineStarted(r domain.UtteranceRef) {
	l.events <- fmt.Sprintf("started g%d/%d", r.Generation, r.Index)
}

func (l *chanListener) HandleEngineFinished(r domain.UtteranceRef) {
	l.events <- fmt.Sprintf("finished g%d/%d", r.Generation, r.Index)
}

func (l *chanListener) HandleEnginePaused(r domain.UtteranceRef) {
	l.events <- fmt.Sprintf("paused g%d/%d", r.Generation, r.Index)
}

func (l *chanListener) HandleEngineFailed(r domain.UtteranceRef, _ error) {
	l.events <- fmt.Sprintf("failed g%d/%d", r.Generation, r.Index)
}

func (l *chanListener) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-l.events:
			if got != w {
				t.Fatalf("expected %q, got %q", w, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
}

func (l *chanListener) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case got := <-l.events:
		t.Fatalf("expected no callback, got %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func setupQueue(t *testing.T, synth *fakeSynth, player *gatedPlayer) (*Queue, *chanListener) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	q := NewQueue(synth, player, log, WithPrefetch(false))
	l := newChanListener()
	q.SetListener(l)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)
	return q, l
}

func utt(gen uint64, idx int, text string) domain.Utterance {
	return domain.Utterance{
		UtteranceRef: domain.UtteranceRef{Generation: gen, Index: idx},
		Text:         text,
		Voice:        domain.DefaultVoice(),
	}
}

func TestQueuePlaysInOrder(t *testing.T) {
	synth := &fakeSynth{}
	q, l := setupQueue(t, synth, newGatedPlayer(false))

	for i, text := range []string{"one", "two", "three"} {
		if err := q.Enqueue(utt(1, i, text)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	l.expect(t,
		"started g1/0", "finished g1/0",
		"started g1/1", "finished g1/1",
		"started g1/2", "finished g1/2",
	)
}

func TestQueueCancelAllIsSilent(t *testing.T) {
	player := newGatedPlayer(true)
	q, l := setupQueue(t, &fakeSynth{}, player)

	q.Enqueue(utt(1, 0, "first"))
	q.Enqueue(utt(1, 1, "second"))
	l.expect(t, "started g1/0")

	q.CancelAll()
	l.expectNothing(t)
	if q.QueueLen() != 0 {
		t.Fatalf("expected empty queue, got %d", q.QueueLen())
	}

	// The next session plays normally.
	q.Enqueue(utt(2, 0, "again"))
	l.expect(t, "started g2/0")
	player.release <- struct{}{}
	l.expect(t, "finished g2/0")
}

func TestQueueSynthesisFailureReportsFailed(t *testing.T) {
	synth := &fakeSynth{failOn: map[string]error{"broken": errors.New("backend down")}}
	q, l := setupQueue(t, synth, newGatedPlayer(false))

	q.Enqueue(utt(1, 0, "broken"))
	l.expect(t, "failed g1/0")
}

func TestQueuePauseAndResume(t *testing.T) {
	player := newGatedPlayer(true)
	q, l := setupQueue(t, &fakeSynth{}, player)

	q.Enqueue(utt(1, 0, "long read"))
	l.expect(t, "started g1/0")

	q.Pause()
	l.expect(t, "paused g1/0")
	q.Pause() // no-op
	l.expectNothing(t)

	q.Resume()
	l.expect(t, "started g1/0")

	player.release <- struct{}{}
	l.expect(t, "finished g1/0")

	player.mu.Lock()
	defer player.mu.Unlock()
	if player.pauses != 1 || player.resumes != 1 {
		t.Fatalf("expected 1 pause and 1 resume, got %d and %d", player.pauses, player.resumes)
	}
}

func TestQueuePausedItemsWait(t *testing.T) {
	player := newGatedPlayer(false)
	q, l := setupQueue(t, &fakeSynth{}, player)

	q.Pause()
	q.Enqueue(utt(1, 0, "held"))
	l.expectNothing(t)

	q.Resume()
	l.expect(t, "started g1/0", "finished g1/0")
}

// slowStartListener holds the first started callback until release is
// closed, like a listener busy on another lock.
type slowStartListener struct {
	*chanListener
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *slowStartListener) HandleEngineStarted(r domain.UtteranceRef) {
	l.once.Do(func() {
		close(l.entered)
		<-l.release
	})
	l.chanListener.HandleEngineStarted(r)
}

func TestQueuePauseReportedAfterStart(t *testing.T) {
	player := newGatedPlayer(true)
	q, _ := setupQueue(t, &fakeSynth{}, player)
	l := &slowStartListener{
		chanListener: newChanListener(),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	q.SetListener(l)

	q.Enqueue(utt(1, 0, "long read"))
	select {
	case <-l.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the start callback")
	}

	paused := make(chan struct{})
	go func() {
		q.Pause()
		close(paused)
	}()
	select {
	case <-paused:
		t.Fatal("pause must wait for the start callback to return")
	case <-time.After(50 * time.Millisecond):
	}

	close(l.release)
	l.expect(t, "started g1/0", "paused g1/0")
	<-paused

	q.Resume()
	l.expect(t, "started g1/0")
	player.release <- struct{}{}
	l.expect(t, "finished g1/0")
}

func TestQueueCancelAllClearsPause(t *testing.T) {
	q, l := setupQueue(t, &fakeSynth{}, newGatedPlayer(false))

	q.Pause()
	q.CancelAll()
	q.Enqueue(utt(2, 0, "fresh"))
	l.expect(t, "started g2/0", "finished g2/0")
}

func TestQueueEnqueueAfterStop(t *testing.T) {
	q, _ := setupQueue(t, &fakeSynth{}, newGatedPlayer(false))
	q.Stop()

	err := q.Enqueue(utt(1, 0, "late"))
	if !errors.Is(err, domain.ErrEngineClosed) {
		t.Fatalf("expected ErrEngineClosed, got %v", err)
	}
}

func TestQueueClampsVoice(t *testing.T) {
	synth := &fakeSynth{}
	q, l := setupQueue(t, synth, newGatedPlayer(false))

	u := utt(1, 0, "fast")
	u.Voice.Rate = 50
	u.Voice.Volume = -1
	q.Enqueue(u)
	l.expect(t, "started g1/0", "finished g1/0")

	got := synth.lastVoice()
	if got.Rate != domain.MaxRate || got.Volume != domain.MinVolume {
		t.Fatalf("voice not clamped: %+v", got)
	}
}

func TestQueueUsesCache(t *testing.T) {
	synth := &fakeSynth{}
	q, l := setupQueue(t, synth, newGatedPlayer(false))

	q.Enqueue(utt(1, 0, "repeat me"))
	l.expect(t, "started g1/0", "finished g1/0")
	q.Enqueue(utt(2, 0, "repeat me"))
	l.expect(t, "started g2/0", "finished g2/0")

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.calls) != 1 {
		t.Fatalf("expected 1 synthesis call, got %d", len(synth.calls))
	}
}

func TestQueuesShareCache(t *testing.T) {
	synth := &fakeSynth{}
	log := logger.New(logger.LevelOff, nil)
	cache := NewAudioCache(synth.Name(), "", false, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var listeners []*chanListener
	var queues []*Queue
	for range 2 {
		q := NewQueue(synth, newGatedPlayer(false), log, WithCache(cache), WithPrefetch(false))
		l := newChanListener()
		q.SetListener(l)
		q.Start(ctx)
		queues = append(queues, q)
		listeners = append(listeners, l)
	}

	queues[0].Enqueue(utt(1, 0, "shared line"))
	listeners[0].expect(t, "started g1/0", "finished g1/0")
	queues[1].Enqueue(utt(1, 0, "shared line"))
	listeners[1].expect(t, "started g1/0", "finished g1/0")

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.calls) != 1 {
		t.Fatalf("expected the second control to reuse the audio, got %d calls", len(synth.calls))
	}
}

func TestSplitChunks(t *testing.T) {
	q := &Queue{chunkSize: 20}

	tests := []struct {
		name string
		text string
		want int
	}{
		{"short", "Hello.", 1},
		{"two sentences", "This is the first one. And this is the second.", 2},
		{"no punctuation", "a very long run of words without any stop at all", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := q.splitChunks(tt.text)
			if len(got) != tt.want {
				t.Fatalf("expected %d chunks, got %d: %q", tt.want, len(got), got)
			}
		})
	}
}
