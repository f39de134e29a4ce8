// Command voice-dialogue answers and places phone calls over Twilio Media
// Streams and holds a spoken conversation with an OpenAI model.
//
// Usage:
//
//	voice-dialogue serve        run the webhook and media stream server
//	voice-dialogue dial <to>    place an outbound call through Twilio
//
// Settings are read from the environment and an optional .env file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mrsingh-rishi/voice-dialogue/call"
	"github.com/mrsingh-rishi/voice-dialogue/config"
	"github.com/mrsingh-rishi/voice-dialogue/llm"
	"github.com/mrsingh-rishi/voice-dialogue/server"
	"github.com/mrsingh-rishi/voice-dialogue/stt"
	"github.com/mrsingh-rishi/voice-dialogue/tts"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "voice-dialogue",
		Short:         "Realtime phone conversations over Twilio Media Streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newDialCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Twilio webhook and media stream server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			logger := newLogger(cfg.LogFormat, cfg.LogLevel)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := buildServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			go func() {
				<-ctx.Done()
				logger.Info("shutting down")
				if err := srv.Shutdown(); err != nil {
					logger.Error("shutdown failed", "error", err)
				}
			}()
			return srv.Listen()
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func newDialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dial <to>",
		Short: "Place an outbound call that streams back to this server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			if err := cfg.ValidateTwilio(); err != nil {
				return err
			}
			caller, err := server.NewTwilioCaller(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.BaseURL)
			if err != nil {
				return err
			}
			sid, err := caller.PlaceCall(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sid)
			return nil
		},
	}
}

func buildServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*server.Server, error) {
	completer, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		return nil, err
	}
	synthesizer, err := newSynthesizer(cfg)
	if err != nil {
		return nil, err
	}

	var calls server.CallPlacer
	if err := cfg.ValidateTwilio(); err != nil {
		logger.Warn("outbound calling disabled", "reason", err)
	} else {
		caller, err := server.NewTwilioCaller(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		calls = caller
	}

	sttOptions := stt.DefaultOptions()
	sttOptions.Model = cfg.DeepgramSTTModel

	settings := call.Settings{
		SystemPrompt:      cfg.SystemPrompt,
		Greeting:          cfg.Greeting,
		PauseMarker:       cfg.PauseMarker,
		InterruptMinChars: cfg.InterruptMinChars,
	}
	newSession := func(conn call.Conn) (server.Session, error) {
		return call.NewCall(conn, call.Deps{
			NewTranscriber: func(ctx context.Context) (stt.Transcriber, error) {
				return stt.NewDeepgramClient(ctx, cfg.DeepgramAPIKey, sttOptions, logger)
			},
			Completer:   completer,
			Synthesizer: synthesizer,
			Logger:      logger,
		}, settings)
	}

	return server.New(ctx, cfg, calls, newSession, logger), nil
}

func newSynthesizer(cfg config.Config) (tts.Synthesizer, error) {
	switch cfg.TTSProvider {
	case config.TTSProviderDeepgram:
		return tts.NewDeepgramClient(cfg.DeepgramAPIKey, cfg.VoiceModel)
	case config.TTSProviderElevenLabs:
		return tts.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID)
	default:
		return nil, errors.Errorf("unknown TTS provider %q", cfg.TTSProvider)
	}
}
