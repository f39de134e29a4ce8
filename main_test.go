package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mrsingh-rishi/voice-dialogue/config"
	"github.com/mrsingh-rishi/voice-dialogue/tts"
)

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()
	if l := newLogger("text", "debug"); !l.Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("expected debug to be enabled")
	}
	if l := newLogger("json", "warn"); l.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("expected info to be disabled at warn")
	}
	if l := newLogger("text", "nonsense"); !l.Enabled(ctx, slog.LevelInfo) || l.Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("expected unknown level to fall back to info")
	}
}

func TestNewSynthesizerProviders(t *testing.T) {
	cfg := config.Config{
		TTSProvider:       config.TTSProviderDeepgram,
		DeepgramAPIKey:    "dg",
		VoiceModel:        "aura-asteria-en",
		ElevenLabsAPIKey:  "el",
		ElevenLabsVoiceID: "voice",
	}
	s, err := newSynthesizer(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*tts.DeepgramClient); !ok {
		t.Fatalf("expected deepgram synthesizer, got %T", s)
	}

	cfg.TTSProvider = config.TTSProviderElevenLabs
	s, err = newSynthesizer(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*tts.ElevenLabsClient); !ok {
		t.Fatalf("expected elevenlabs synthesizer, got %T", s)
	}

	cfg.TTSProvider = "polly"
	if _, err := newSynthesizer(cfg); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestDialRequiresTwilioSettings(t *testing.T) {
	for _, key := range []string{"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER", "BASE_URL"} {
		t.Setenv(key, "")
	}
	cmd := newRootCmd()
	cmd.SetArgs([]string{"dial", "+15550001111"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected missing twilio settings error")
	}
}
