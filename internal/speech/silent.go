package speech

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface check.
var _ Synthesizer = (*Silent)(nil)

// Silent is an offline synthesizer that returns silence lasting roughly as
// long as the text would take to read. Used when no cloud backend is
// configured, so the control still walks through its whole lifecycle.
type Silent struct {
	log       *logger.Logger
	perWord   time.Duration
	minLength time.Duration
}

// NewSilent creates the offline synthesizer.
func NewSilent(log *logger.Logger) *Silent {
	return &Silent{
		log:       log,
		perWord:   400 * time.Millisecond,
		minLength: 300 * time.Millisecond,
	}
}

// Name identifies the backend in logs and cache keys.
func (s *Silent) Name() string { return BackendSilent }

// Synthesize returns a silent WAV. A faster rate shortens it.
func (s *Silent) Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	length := time.Duration(len(strings.Fields(text))) * s.perWord
	if voice.Rate > 0 {
		length = time.Duration(float64(length) / voice.Rate)
	}
	if length < s.minLength {
		length = s.minLength
	}

	s.log.Debug("speech silent: would say %q (%s)", truncate(text, 60), length.Round(time.Millisecond))
	return silentWAV(length), nil
}

// silentWAV builds a PCM WAV file of the given length in the player format.
func silentWAV(d time.Duration) []byte {
	frameSize := ChannelCount * BitDepth / 8
	samples := int(d.Seconds() * SampleRate)
	dataLen := samples * frameSize
	return wavFile(make([]byte, dataLen))
}

// wavFile wraps raw PCM in a canonical 44-byte RIFF header.
func wavFile(pcm []byte) []byte {
	frameSize := ChannelCount * BitDepth / 8
	buf := make([]byte, 44+len(pcm))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], ChannelCount)
	binary.LittleEndian.PutUint32(buf[24:28], SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(SampleRate*frameSize))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(frameSize))
	binary.LittleEndian.PutUint16(buf[34:36], BitDepth)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}
