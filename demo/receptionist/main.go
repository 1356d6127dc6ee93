// Package main provides a minimal CLI demo for the live receptionist.
//
// It opens the microphone, connects a live session to the conversational
// service and plays the assistant's voice through the default output
// device. With Cartesia credentials present the session runs in hybrid
// mode and re-voices the transcript through Cartesia.
//
// Usage:
//
//	go run demo/receptionist/main.go
//
// Environment variables:
//
//	GEMINI_API_KEY    - Required
//	CARTESIA_API_KEY  - Optional, enables hybrid voice
//	CARTESIA_VOICE_ID - Optional, required with CARTESIA_API_KEY
//	RECORD_WAV        - Optional, path for a capture recording
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/guestsvalencia/galaxy-live/pkg/audio"
	"github.com/guestsvalencia/galaxy-live/pkg/gemini"
	"github.com/guestsvalencia/galaxy-live/pkg/session"
	"github.com/guestsvalencia/galaxy-live/pkg/tts"
)

func main() {
	_ = godotenv.Load()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY required")
	}
	cartesiaKey := os.Getenv("CARTESIA_API_KEY")
	cartesiaVoice := os.Getenv("CARTESIA_VOICE_ID")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mode := session.VoiceModeNative
	var speech session.SpeechTransport
	if cartesiaKey != "" && cartesiaVoice != "" {
		mode = session.VoiceModeHybrid
		speech = tts.New(tts.Config{
			APIKey:  cartesiaKey,
			VoiceID: cartesiaVoice,
			Logger:  logger,
		})
	}

	// The voice mode can fall back at connect time, which changes the
	// playback format; the adaptive sink opens the right device for
	// whatever actually plays.
	speaker := audio.NewAdaptiveSink(nil)
	defer speaker.Close()

	mic := audio.NewMicrophone(audio.CaptureConfig())

	captureOpts := []audio.CaptureOption{audio.WithCaptureLogger(logger)}
	if path := os.Getenv("RECORD_WAV"); path != "" {
		recorder, err := audio.NewWAVRecorder(audio.CaptureConfig())
		if err != nil {
			log.Fatalf("recorder: %v", err)
		}
		captureOpts = append(captureOpts, audio.WithCaptureRecorder(recorder))
		defer func() {
			if err := recorder.SaveTo(path); err != nil {
				logger.Error("saving capture recording", "error", err)
			}
		}()
	}

	scheduler, err := audio.NewScheduler(audio.NewSystemClock(), speaker)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	sess, err := session.New(session.Config{Mode: mode}, session.Dependencies{
		Primary:  gemini.NewLive(gemini.Config{APIKey: apiKey, Logger: logger}),
		Speech:   speech,
		Capture:  audio.NewCapturePipeline(mic, captureOpts...),
		Playback: scheduler,
		Logger:   logger,
		Tools: map[session.ToolName]session.ToolHandler{
			session.ToolCheckAvailability: func(_ context.Context, call session.ToolCall) (map[string]any, error) {
				fmt.Printf("\n[tool] checkAvailability %v\n", call.Args)
				return map[string]any{"available": true, "pricePerNight": 120}, nil
			},
		},
		OnState: func(st session.State) {
			fmt.Printf("[session] %s\n", st)
		},
		OnTranscript: func(role session.Role, text string) {
			fmt.Printf("[%s] %s\n", role, text)
		},
		OnVisualState: func(state string) {
			fmt.Printf("\n[avatar] %s\n", state)
		},
	})
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		_ = sess.Disconnect()
		cancel()
	}()

	fmt.Println("Galaxy Live receptionist demo. Mode:", mode)
	fmt.Println("Speak naturally. Ctrl-C to hang up.")

	if err := sess.Connect(ctx); err != nil {
		log.Fatalf("connect: %v", err)
	}

	<-ctx.Done()
	for _, entry := range sess.Transcript().Entries() {
		fmt.Printf("%s: %s\n", entry.Role, entry.Text)
	}
}
