package speech

import (
	"context"
	"fmt"
	"math"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface check.
var _ Synthesizer = (*GoogleClient)(nil)

// Google Cloud limits for the audio config fields.
const (
	googleMinRate     = 0.25
	googleMaxRate     = 4.0
	googleMaxPitch    = 20.0 // semitones either way
	googleMinVolumeDb = -96.0
	googleMaxVolumeDb = 16.0
)

// GoogleClient synthesizes speech with Google Cloud Text-to-Speech. It asks
// for LINEAR16 at the player sample rate so the result plays without
// decoding.
type GoogleClient struct {
	client *texttospeech.Client
	log    *logger.Logger
}

// NewGoogleClient dials the Text-to-Speech API using application default
// credentials.
func NewGoogleClient(ctx context.Context, log *logger.Logger) (*GoogleClient, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating google tts client: %w", err)
	}
	return &GoogleClient{client: client, log: log}, nil
}

// Name identifies the backend in logs and cache keys.
func (g *GoogleClient) Name() string { return BackendGoogle }

// Synthesize converts text to WAV bytes.
func (g *GoogleClient) Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error) {
	g.log.Debug("google tts: synthesizing %d chars (lang=%s, voice=%q)", len(text), voice.Language, voice.Name)

	resp, err := g.client.SynthesizeSpeech(ctx, buildGoogleRequest(text, voice))
	if err != nil {
		return nil, fmt.Errorf("google tts request failed: %w", err)
	}

	g.log.Debug("google tts: got %d bytes of audio", len(resp.AudioContent))
	return resp.AudioContent, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleClient) Close() error {
	return g.client.Close()
}

// buildGoogleRequest maps the platform voice parameters onto Google's
// units: rate is a multiplier, pitch is semitones, volume is dB gain.
func buildGoogleRequest(text string, voice domain.VoiceConfig) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.Language,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: SampleRate,
			SpeakingRate:    math.Min(math.Max(voice.Rate, googleMinRate), googleMaxRate),
			Pitch:           (voice.Pitch - 1) * googleMaxPitch,
			VolumeGainDb:    volumeToDb(voice.Volume),
		},
	}
}

func volumeToDb(volume float64) float64 {
	if volume <= 0 {
		return googleMinVolumeDb
	}
	db := 20 * math.Log10(volume)
	return math.Min(math.Max(db, googleMinVolumeDb), googleMaxVolumeDb)
}
