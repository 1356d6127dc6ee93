package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

const (
	veoModel           = "veo-3.1-fast-generate-preview"
	avatarPollInterval = 5 * time.Second
)

// AvatarMode selects the idle loop to generate for the receptionist
// avatar.
type AvatarMode string

const (
	AvatarListening AvatarMode = "LISTENING"
	AvatarSearching AvatarMode = "SEARCHING"
)

var avatarPrompts = map[AvatarMode]string{
	AvatarListening: "Professional video of a receptionist named Sandra in an office. She is looking directly at the camera, listening attentively. An iPhone is visible on the table in front of her, set to hands-free speaker mode. She nods occasionally. High quality, photorealistic, 4k, cinematic lighting. Loopable.",
	AvatarSearching: "Professional video of Sandra the receptionist in an office. She looks down and slightly to the side at a computer screen, typing briefly or checking information, focused on work. Then she glances back at the camera briefly. iPhone visible on desk. Photorealistic, 4k.",
}

// AvatarGenerator produces short avatar loops from a portrait photo
// using the video generation API. Generation is slow; callers run it
// ahead of time and cache the result.
type AvatarGenerator struct {
	client *genai.Client
	logger *slog.Logger
}

// NewAvatarGenerator creates a generator backed by its own API client.
func NewAvatarGenerator(ctx context.Context, cfg Config) (*AvatarGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("avatar client: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AvatarGenerator{client: client, logger: logger}, nil
}

// Generate renders one avatar loop from the given JPEG portrait and
// returns the URI of the finished video. It polls until the operation
// completes or ctx is done.
func (g *AvatarGenerator) Generate(ctx context.Context, portraitJPEG []byte, mode AvatarMode) (string, error) {
	prompt, ok := avatarPrompts[mode]
	if !ok {
		return "", fmt.Errorf("unknown avatar mode %q", mode)
	}

	op, err := g.client.Models.GenerateVideos(ctx, veoModel, prompt,
		&genai.Image{ImageBytes: portraitJPEG, MIMEType: "image/jpeg"},
		&genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			Resolution:     "720p",
			AspectRatio:    "16:9",
		})
	if err != nil {
		return "", fmt.Errorf("avatar generation start: %w", err)
	}

	ticker := time.NewTicker(avatarPollInterval)
	defer ticker.Stop()
	for !op.Done {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		op, err = g.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return "", fmt.Errorf("avatar generation poll: %w", err)
		}
		g.logger.Debug("avatar generation pending", "mode", mode)
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return "", fmt.Errorf("avatar generation produced no video")
	}
	uri := op.Response.GeneratedVideos[0].Video.URI
	if uri == "" {
		return "", fmt.Errorf("avatar generation produced no video uri")
	}
	return uri, nil
}
