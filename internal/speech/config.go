package speech

// Default Azure voices per language. Used when a control sets no voicename.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
var defaultAzureVoices = map[string]string{
	"de":    "de-DE-KatjaNeural",
	"de-DE": "de-DE-KatjaNeural",
	"de-AT": "de-AT-IngridNeural",
	"de-CH": "de-CH-LeniNeural",
	"en":    "en-US-AvaNeural",
	"en-US": "en-US-AvaNeural",
	"en-GB": "en-GB-SoniaNeural",
	"fr-FR": "fr-FR-DeniseNeural",
}

// DefaultVoice is the Azure voice used for languages without an entry above.
const DefaultVoice = "en-US-AvaNeural"

// Audio format returned by Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)

// Env var checked before offering the Google backend.
const EnvGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"

// Backend names accepted by the configuration.
const (
	BackendAuto   = "auto"
	BackendAzure  = "azure"
	BackendGoogle = "google"
	BackendSilent = "silent"
)
