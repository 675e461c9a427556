package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechEngine = (*Queue)(nil)

// Synthesizer turns text into WAV audio. Implemented by the cloud backends
// and the offline Silent fallback.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error)
}

// AudioPlayer plays WAV audio. Play blocks until the audio ends and returns
// domain.ErrPlaybackStopped when ctx is cancelled first.
type AudioPlayer interface {
	Play(ctx context.Context, wav []byte) error
	Pause()
	Resume()
}

// QueueOption configures the Queue.
type QueueOption func(*Queue)

// WithChunkSize sets the approximate max character count per TTS request.
// Longer fragments are split at sentence boundaries and synthesized in
// parallel. They still count as one utterance.
func WithChunkSize(n int) QueueOption {
	return func(q *Queue) {
		q.chunkSize = n
	}
}

// WithCache shares an audio cache between the queues of several controls.
// Without it a queue keeps its own memory-only cache.
func WithCache(c *AudioCache) QueueOption {
	return func(q *Queue) {
		q.cache = c
	}
}

// WithPrefetch toggles background synthesis of utterances as soon as they
// are queued, so playback of later fragments starts without a gap.
func WithPrefetch(enabled bool) QueueOption {
	return func(q *Queue) {
		q.prefetch = enabled
	}
}

// Queue is the speech engine behind every control on a page. It serializes
// utterances through one pipeline: queue -> synthesize -> play. Only one
// utterance speaks at a time, in submission order.
//
// CancelAll bumps an epoch and cancels the context shared by everything
// queued before it, so work from a cancelled session never reports back.
// The listener is never invoked with q.mu held. Every callback runs under
// cbMu, so a pause is always reported after the start it interrupts.
type Queue struct {
	tts    Synthesizer
	player AudioPlayer
	log    *logger.Logger
	cache  *AudioCache

	cbMu     sync.Mutex // held across listener calls, taken before mu
	mu       sync.Mutex
	listener domain.EngineListener
	items    []queued
	notify   chan struct{}
	root     context.Context
	stop     context.CancelFunc
	epoch    uint64
	epochCtx context.Context
	cancel   context.CancelFunc
	current  *domain.UtteranceRef // speaking right now, nil between items
	paused   bool
	resumed  chan struct{} // closed by Resume, nil when not paused
	closed   bool

	chunkSize int
	prefetch  bool
}

type queued struct {
	utt   domain.Utterance
	epoch uint64
}

// NewQueue creates a speech queue with the given synthesizer and player.
func NewQueue(tts Synthesizer, player AudioPlayer, log *logger.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		tts:       tts,
		player:    player,
		log:       log,
		listener:  nopListener{},
		notify:    make(chan struct{}, 1),
		chunkSize: 400,
		prefetch:  true,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.cache == nil {
		q.cache = NewAudioCache(tts.Name(), "", false, log)
	}
	q.root, q.stop = context.WithCancel(context.Background())
	q.epochCtx, q.cancel = context.WithCancel(q.root)
	return q
}

// SetListener registers the receiver of utterance callbacks.
func (q *Queue) SetListener(l domain.EngineListener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l == nil {
		l = nopListener{}
	}
	q.listener = l
}

// Start begins the processing goroutine. Non-blocking. Cancelling ctx has
// the same effect as Stop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	q.cancel()
	q.stop()
	q.root, q.stop = context.WithCancel(ctx)
	q.epochCtx, q.cancel = context.WithCancel(q.root)
	root := q.root
	q.mu.Unlock()

	go q.processLoop(root)
	q.log.Info("speech queue started (backend=%s)", q.tts.Name())
}

// Stop halts playback, drops everything queued and refuses new work.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.epoch++
	q.stop()
	q.mu.Unlock()
}

// Enqueue appends an utterance. Non-blocking. The voice is clamped into
// the platform ranges before it reaches the synthesizer.
func (q *Queue) Enqueue(u domain.Utterance) error {
	u.Voice = u.Voice.Clamp()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.ErrEngineClosed
	}
	q.items = append(q.items, queued{utt: u, epoch: q.epoch})
	qLen := len(q.items)
	ctx := q.epochCtx
	q.mu.Unlock()

	q.log.Debug("queue: queued g%d/%d (queue_len=%d): %s", u.Generation, u.Index, qLen, truncate(u.Text, 60))

	if q.prefetch {
		q.warm(ctx, u)
	}

	select {
	case q.notify <- struct{}{}:
	default: // already signaled
	}
	return nil
}

// CancelAll drops every queued utterance and stops the current one.
// Nothing cancelled here is reported to the listener.
func (q *Queue) CancelAll() {
	q.mu.Lock()
	dropped := len(q.items)
	q.items = nil
	q.epoch++
	q.cancel()
	q.epochCtx, q.cancel = context.WithCancel(q.root)
	q.clearPauseLocked()
	q.mu.Unlock()

	q.log.Debug("queue: cancelled (dropped %d queued)", dropped)
}

// Pause holds playback. The utterance being spoken, if any, is reported as
// paused. Queued utterances wait until Resume.
func (q *Queue) Pause() {
	q.cbMu.Lock()
	defer q.cbMu.Unlock()

	q.mu.Lock()
	if q.paused || q.closed {
		q.mu.Unlock()
		return
	}
	q.paused = true
	q.resumed = make(chan struct{})
	ref := q.current
	listener := q.listener
	q.mu.Unlock()

	q.player.Pause()
	q.log.Debug("queue: paused")
	if ref != nil {
		listener.HandleEnginePaused(*ref)
	}
}

// Resume continues after Pause. The interrupted utterance is reported as
// started again.
func (q *Queue) Resume() {
	q.cbMu.Lock()
	defer q.cbMu.Unlock()

	q.mu.Lock()
	if !q.paused {
		q.mu.Unlock()
		return
	}
	q.clearPauseLocked()
	ref := q.current
	listener := q.listener
	q.mu.Unlock()

	q.player.Resume()
	q.log.Debug("queue: resumed")
	if ref != nil {
		listener.HandleEngineStarted(*ref)
	}
}

// QueueLen returns the number of utterances waiting behind the current one.
func (q *Queue) QueueLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) clearPauseLocked() {
	if q.resumed != nil {
		close(q.resumed)
		q.resumed = nil
	}
	q.paused = false
}

// processLoop waits for queued items and processes them one at a time.
func (q *Queue) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.log.Info("speech queue stopped")
			return
		case <-q.notify:
			q.drain(ctx)
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	for ctx.Err() == nil {
		item, ok := q.dequeue()
		if !ok {
			return
		}
		q.process(item)
	}
}

func (q *Queue) dequeue() (queued, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return queued{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// process synthesizes and plays one utterance and reports the outcome.
func (q *Queue) process(item queued) {
	q.mu.Lock()
	if item.epoch != q.epoch {
		q.mu.Unlock()
		return
	}
	ctx := q.epochCtx
	q.mu.Unlock()

	ref := item.utt.UtteranceRef
	audio, err := q.synthesizeChunks(ctx, item.utt)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		q.log.Error("queue: synthesis of g%d/%d failed: %v", ref.Generation, ref.Index, err)
		q.report(item, func(l domain.EngineListener) { l.HandleEngineFailed(ref, err) })
		return
	}

	listener, ok := q.begin(ctx, item)
	if !ok {
		return
	}
	err = q.play(ctx, audio)

	q.cbMu.Lock()
	defer q.cbMu.Unlock()
	q.mu.Lock()
	q.current = nil
	stale := item.epoch != q.epoch
	q.mu.Unlock()

	switch {
	case stale || errors.Is(err, domain.ErrPlaybackStopped):
		q.log.Debug("queue: g%d/%d stopped", ref.Generation, ref.Index)
	case err != nil:
		q.log.Error("queue: playback of g%d/%d failed: %v", ref.Generation, ref.Index, err)
		listener.HandleEngineFailed(ref, err)
	default:
		listener.HandleEngineFinished(ref)
	}
}

// begin marks item as speaking and reports it started. A Pause that
// arrives before the item becomes current holds it back, so the start is
// never reported while the queue is paused.
func (q *Queue) begin(ctx context.Context, item queued) (domain.EngineListener, bool) {
	ref := item.utt.UtteranceRef
	for {
		if !q.waitWhilePaused(ctx) {
			return nil, false
		}

		q.cbMu.Lock()
		q.mu.Lock()
		if item.epoch != q.epoch {
			q.mu.Unlock()
			q.cbMu.Unlock()
			return nil, false
		}
		if q.paused {
			q.mu.Unlock()
			q.cbMu.Unlock()
			continue
		}
		q.current = &ref
		listener := q.listener
		q.mu.Unlock()

		listener.HandleEngineStarted(ref)
		q.cbMu.Unlock()
		return listener, true
	}
}

// report invokes the listener unless the item was cancelled meanwhile.
func (q *Queue) report(item queued, fn func(domain.EngineListener)) {
	q.cbMu.Lock()
	defer q.cbMu.Unlock()

	q.mu.Lock()
	stale := item.epoch != q.epoch
	listener := q.listener
	q.mu.Unlock()
	if !stale {
		fn(listener)
	}
}

// waitWhilePaused blocks until Resume or cancellation. It returns false
// when ctx ended first.
func (q *Queue) waitWhilePaused(ctx context.Context) bool {
	for {
		q.mu.Lock()
		ch := q.resumed
		q.mu.Unlock()
		if ch == nil {
			return ctx.Err() == nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
	}
}

// play plays the chunks of one utterance back to back.
func (q *Queue) play(ctx context.Context, audio [][]byte) error {
	for _, a := range audio {
		if !q.waitWhilePaused(ctx) {
			return domain.ErrPlaybackStopped
		}
		if err := q.player.Play(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// synthesizeChunks fires one synthesis request per chunk in parallel and
// returns the audio in order. Any failing chunk fails the utterance.
func (q *Queue) synthesizeChunks(ctx context.Context, u domain.Utterance) ([][]byte, error) {
	chunks := q.splitChunks(u.Text)
	if len(chunks) == 1 {
		audio, err := q.synthesizeWithCache(ctx, chunks[0], u.Voice)
		if err != nil {
			return nil, err
		}
		return [][]byte{audio}, nil
	}

	q.log.Debug("queue: split into %d chunks for parallel synthesis", len(chunks))

	type result struct {
		idx   int
		audio []byte
		err   error
	}
	results := make(chan result, len(chunks))
	for i, chunk := range chunks {
		go func(idx int, text string) {
			audio, err := q.synthesizeWithCache(ctx, text, u.Voice)
			results <- result{idx: idx, audio: audio, err: err}
		}(i, chunk)
	}

	slots := make([][]byte, len(chunks))
	var firstErr error
	for range chunks {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		slots[r.idx] = r.audio
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return slots, nil
}

// synthesizeWithCache checks the cache first, otherwise calls the backend
// and stores the result. Thread-safe.
func (q *Queue) synthesizeWithCache(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error) {
	if audio, ok := q.cache.Get(text, voice); ok {
		return audio, nil
	}
	audio, err := q.tts.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	q.cache.Put(text, voice, audio)
	return audio, nil
}

// warm pre-synthesizes an utterance in the background. It stops with the
// epoch it was queued in.
func (q *Queue) warm(ctx context.Context, u domain.Utterance) {
	for _, chunk := range q.splitChunks(u.Text) {
		if q.cache.Has(chunk, u.Voice) {
			continue
		}
		go func(t string) {
			q.log.Debug("prefetch: synthesizing: %s", truncate(t, 50))
			audio, err := q.tts.Synthesize(ctx, t, u.Voice)
			if err != nil {
				if ctx.Err() == nil {
					q.log.Warn("prefetch: synthesis failed: %v", err)
				}
				return
			}
			q.cache.Put(t, u.Voice, audio)
		}(chunk)
	}
}

// splitChunks breaks text into sentence-boundary chunks of approximately
// q.chunkSize characters. Short text comes back as a single chunk.
func (q *Queue) splitChunks(text string) []string {
	if q.chunkSize <= 0 || len(text) <= q.chunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, s := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(s) > q.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	var out []string
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// splitSentences splits text at sentence boundaries (. ! ?) keeping the
// punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

type nopListener struct{}

func (nopListener) HandleEngineStarted(domain.UtteranceRef)       {}
func (nopListener) HandleEngineFinished(domain.UtteranceRef)      {}
func (nopListener) HandleEnginePaused(domain.UtteranceRef)        {}
func (nopListener) HandleEngineFailed(domain.UtteranceRef, error) {}
