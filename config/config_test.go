package config

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"BASE_WS_URL":      "wss://example.ngrok.app",
		"DEEPGRAM_API_KEY": "dg-key",
		"OPEN_AI_API_KEY":  "sk-test",
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envFrom(baseEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Fatalf("expected default port 3000, got %q", cfg.Port)
	}
	if cfg.BaseWSURL != "wss://example.ngrok.app/" {
		t.Fatalf("expected trailing slash on BASE_WS_URL, got %q", cfg.BaseWSURL)
	}
	if cfg.TTSProvider != TTSProviderDeepgram || cfg.VoiceModel != "aura-asteria-en" {
		t.Fatalf("unexpected TTS defaults: %q %q", cfg.TTSProvider, cfg.VoiceModel)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.DeepgramSTTModel != "nova-2-phonecall" {
		t.Fatalf("unexpected model defaults: %q %q", cfg.OpenAIModel, cfg.DeepgramSTTModel)
	}
	if cfg.PauseMarker != "•" || cfg.InterruptMinChars != 5 {
		t.Fatalf("unexpected dialogue defaults: %q %d", cfg.PauseMarker, cfg.InterruptMinChars)
	}
	if cfg.TwilioValidateSignature {
		t.Fatalf("signature validation should be off by default")
	}
}

func TestFromEnvMissingKeys(t *testing.T) {
	env := baseEnv()
	delete(env, "DEEPGRAM_API_KEY")
	delete(env, "OPEN_AI_API_KEY")

	_, err := FromEnv(envFrom(env))
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	for _, key := range []string{"DEEPGRAM_API_KEY", "OPEN_AI_API_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in error, got %q", key, err)
		}
	}
}

func TestFromEnvElevenLabsNeedsVoice(t *testing.T) {
	env := baseEnv()
	env["TTS_PROVIDER"] = "ElevenLabs"
	env["ELEVEN_LABS_API_KEY"] = "el-key"

	_, err := FromEnv(envFrom(env))
	if err == nil || !strings.Contains(err.Error(), "ELEVEN_LABS_VOICE_ID") {
		t.Fatalf("expected missing voice id, got %v", err)
	}

	env["ELEVEN_LABS_VOICE_ID"] = "voice"
	cfg, err := FromEnv(envFrom(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TTSProvider != TTSProviderElevenLabs {
		t.Fatalf("expected elevenlabs provider, got %q", cfg.TTSProvider)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown tts provider", "TTS_PROVIDER", "polly"},
		{"non numeric min chars", "INTERRUPT_MIN_CHARS", "five"},
		{"negative min chars", "INTERRUPT_MIN_CHARS", "-1"},
		{"bad bool", "TWILIO_VALIDATE_SIGNATURE", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			env[tt.key] = tt.value
			if _, err := FromEnv(envFrom(env)); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestSignatureValidationNeedsAuthToken(t *testing.T) {
	env := baseEnv()
	env["TWILIO_VALIDATE_SIGNATURE"] = "true"
	env["BASE_URL"] = "https://example.ngrok.app"

	if _, err := FromEnv(envFrom(env)); err == nil || !strings.Contains(err.Error(), "TWILIO_AUTH_TOKEN") {
		t.Fatalf("expected missing auth token, got %v", err)
	}
}

func TestValidateTwilio(t *testing.T) {
	cfg, err := FromEnv(envFrom(baseEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = cfg.ValidateTwilio()
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "BASE_URL, TWILIO_ACCOUNT_SID") {
		t.Fatalf("expected sorted key list, got %q", err)
	}

	cfg.TwilioAccountSID = "AC1"
	cfg.TwilioAuthToken = "token"
	cfg.TwilioFromNumber = "+15550000000"
	cfg.BaseURL = "https://example.ngrok.app/"
	if err := cfg.ValidateTwilio(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
