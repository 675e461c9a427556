package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface check.
var _ AudioPlayer = (*Player)(nil)

// Player handles audio playback of WAV/PCM data via oto.
type Player struct {
	ctx *oto.Context
	log *logger.Logger

	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
	paused bool
}

// NewPlayer creates an audio player. Initializes the system audio context.
// Returns an error if the audio device is unavailable.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Fork returns a player on the same audio device with its own playback
// and pause state. oto allows one context per process, so every control
// gets a fork of a single Player.
func (p *Player) Fork() *Player {
	return &Player{ctx: p.ctx, log: p.log}
}

// Play plays WAV audio data synchronously. It blocks until playback
// finishes or ctx is cancelled, in which case it returns
// domain.ErrPlaybackStopped. Time spent paused does not end playback.
func (p *Player) Play(ctx context.Context, wavData []byte) error {
	pcm, err := extractPCM(wavData)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return domain.ErrPlaybackStopped
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.paused = false
	p.mu.Unlock()

	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(pcm))

	stopped := false
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			stopped = true
		case <-ticker.C:
		}
		if stopped {
			break
		}
		p.mu.Lock()
		paused := p.paused
		p.mu.Unlock()
		if !paused && !player.IsPlaying() {
			break
		}
	}

	p.mu.Lock()
	p.active = nil
	p.paused = false
	p.mu.Unlock()

	if err := player.Close(); err != nil {
		return err
	}
	if stopped {
		p.log.Debug("audio player: interrupted")
		return domain.ErrPlaybackStopped
	}
	return nil
}

// Pause holds the current playback, if any.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil && !p.paused {
		p.paused = true
		p.active.Pause()
	}
}

// Resume continues paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil && p.paused {
		p.active.Play()
		p.paused = false
	}
}

// extractPCM strips the WAV/RIFF header and returns raw PCM data.
func extractPCM(wav []byte) ([]byte, error) {
	if len(wav) < 44 {
		return nil, errors.New("wav data too short")
	}

	// Verify RIFF header.
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a valid WAV file")
	}

	// Walk chunks to find the "data" chunk.
	pos := 12
	for pos < len(wav)-8 {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))

		if chunkID == "data" {
			start := pos + 8
			end := start + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			return wav[start:end], nil
		}

		pos += 8 + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return nil, errors.New("data chunk not found in WAV")
}
