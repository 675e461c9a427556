package speech

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface check.
var _ AudioPlayer = (*MutePlayer)(nil)

// MutePlayer stands in for the audio device on machines without one. It
// plays nothing but takes as long as the audio would, so controls still
// report start and finish at realistic times.
type MutePlayer struct {
	log *logger.Logger

	mu      sync.Mutex
	paused  bool
	resumed chan struct{}
}

// NewMutePlayer creates a silent player.
func NewMutePlayer(log *logger.Logger) *MutePlayer {
	return &MutePlayer{log: log}
}

// Play waits for the duration of the PCM data in wav. Time spent paused
// does not count.
func (p *MutePlayer) Play(ctx context.Context, wav []byte) error {
	pcm, err := extractPCM(wav)
	if err != nil {
		return err
	}

	frame := ChannelCount * BitDepth / 8
	remaining := time.Duration(float64(len(pcm)) / float64(SampleRate*frame) * float64(time.Second))
	p.log.Debug("mute player: %s of audio", remaining.Round(time.Millisecond))

	for remaining > 0 {
		p.mu.Lock()
		ch := p.resumed
		p.mu.Unlock()

		if ch != nil {
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return domain.ErrPlaybackStopped
			}
		}

		step := remaining
		if step > 50*time.Millisecond {
			step = 50 * time.Millisecond
		}
		select {
		case <-time.After(step):
			remaining -= step
		case <-ctx.Done():
			return domain.ErrPlaybackStopped
		}
	}
	return nil
}

// Pause holds playback until Resume.
func (p *MutePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.paused = true
		p.resumed = make(chan struct{})
	}
}

// Resume continues playback.
func (p *MutePlayer) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		close(p.resumed)
		p.resumed = nil
	}
}
