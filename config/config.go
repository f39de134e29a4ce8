// Package config loads service settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	TTSProviderDeepgram   = "deepgram"
	TTSProviderElevenLabs = "elevenlabs"

	defaultSystemPrompt = "You are a friendly phone assistant. Keep replies short and conversational. " +
		"You must add a '•' symbol every 5 to 10 words at natural pauses where your response can be split for text to speech."
	defaultGreeting = "Hello! How can I help you today?"
)

var ErrMissing = errors.New("missing required configuration")

type Config struct {
	Port      string
	BaseURL   string
	BaseWSURL string

	TwilioAccountSID        string
	TwilioAuthToken         string
	TwilioFromNumber        string
	TwilioValidateSignature bool

	DeepgramAPIKey   string
	DeepgramSTTModel string

	OpenAIAPIKey string
	OpenAIModel  string

	TTSProvider       string
	VoiceModel        string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	SystemPrompt      string
	Greeting          string
	PauseMarker       string
	InterruptMinChars int

	CallAPIJWTSecret string

	LogFormat string
	LogLevel  string
}

// Load reads .env (if any) and the process environment and validates the
// settings a media stream server needs.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// Read is Load without validation, for commands that need only a subset of
// the settings.
func Read() (Config, error) {
	_ = godotenv.Load()
	return parse(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg, err := parse(getenv)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func parse(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Port:      get("PORT", "3000"),
		BaseURL:   withTrailingSlash(get("BASE_URL", "")),
		BaseWSURL: withTrailingSlash(get("BASE_WS_URL", "")),

		TwilioAccountSID: get("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  get("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: get("TWILIO_FROM_NUMBER", ""),

		DeepgramAPIKey:   get("DEEPGRAM_API_KEY", ""),
		DeepgramSTTModel: get("DEEPGRAM_STT_MODEL", "nova-2-phonecall"),

		OpenAIAPIKey: get("OPEN_AI_API_KEY", ""),
		OpenAIModel:  get("OPENAI_MODEL", "gpt-4o-mini"),

		TTSProvider:       strings.ToLower(get("TTS_PROVIDER", TTSProviderDeepgram)),
		VoiceModel:        get("VOICE_MODEL", "aura-asteria-en"),
		ElevenLabsAPIKey:  get("ELEVEN_LABS_API_KEY", ""),
		ElevenLabsVoiceID: get("ELEVEN_LABS_VOICE_ID", ""),
		ElevenLabsModelID: get("ELEVEN_LABS_MODEL_ID", "eleven_multilingual_v2"),

		SystemPrompt: get("SYSTEM_PROMPT", defaultSystemPrompt),
		Greeting:     get("GREETING", defaultGreeting),
		PauseMarker:  get("PAUSE_MARKER", "•"),

		CallAPIJWTSecret: get("CALL_API_JWT_SECRET", ""),

		LogFormat: strings.ToLower(get("LOG_FORMAT", "text")),
		LogLevel:  strings.ToLower(get("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.TwilioValidateSignature, err = strconv.ParseBool(get("TWILIO_VALIDATE_SIGNATURE", "false")); err != nil {
		return Config{}, errors.Wrap(err, "TWILIO_VALIDATE_SIGNATURE")
	}
	if cfg.InterruptMinChars, err = strconv.Atoi(get("INTERRUPT_MIN_CHARS", "5")); err != nil {
		return Config{}, errors.Wrap(err, "INTERRUPT_MIN_CHARS")
	}

	return cfg, nil
}

// Validate checks the settings every call needs. Twilio REST credentials are
// only checked by the commands that place calls.
func (c Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}
	require("BASE_WS_URL", c.BaseWSURL)
	require("DEEPGRAM_API_KEY", c.DeepgramAPIKey)
	require("OPEN_AI_API_KEY", c.OpenAIAPIKey)

	switch c.TTSProvider {
	case TTSProviderDeepgram:
	case TTSProviderElevenLabs:
		require("ELEVEN_LABS_API_KEY", c.ElevenLabsAPIKey)
		require("ELEVEN_LABS_VOICE_ID", c.ElevenLabsVoiceID)
	default:
		return errors.Errorf("unknown TTS_PROVIDER %q", c.TTSProvider)
	}

	if c.TwilioValidateSignature {
		require("TWILIO_AUTH_TOKEN", c.TwilioAuthToken)
		require("BASE_URL", c.BaseURL)
	}
	if c.InterruptMinChars < 0 {
		return errors.Errorf("INTERRUPT_MIN_CHARS must not be negative, got %d", c.InterruptMinChars)
	}

	if len(missing) > 0 {
		return errors.Wrap(ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateTwilio checks the credentials needed to place outbound calls.
func (c Config) ValidateTwilio() error {
	var missing []string
	for key, value := range map[string]string{
		"TWILIO_ACCOUNT_SID": c.TwilioAccountSID,
		"TWILIO_AUTH_TOKEN":  c.TwilioAuthToken,
		"TWILIO_FROM_NUMBER": c.TwilioFromNumber,
		"BASE_URL":           c.BaseURL,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Wrap(ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

func withTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
