package provider

import (
	"context"
	"fmt"
	"strings"
)

// Message is one {role, content} pair of the completion context window.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResult is the final assistant text after all streamed deltas.
type CompletionResult struct {
	Text string `json:"text"`
}

// DeltaHandler receives streaming text fragments in arrival order.
type DeltaHandler func(delta string) error

// Adapter is the boundary to the external AI provider: streamed text
// completion, speech synthesis, and transcription. Completion streams are
// finite and not restartable.
type Adapter interface {
	StreamCompletion(ctx context.Context, messages []Message, onDelta DeltaHandler) (CompletionResult, error)
	SynthesizeSpeech(ctx context.Context, text string) (data []byte, mime string, err error)
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Config controls adapter construction.
type Config struct {
	Mode                string
	APIKey              string
	BaseURL             string
	CompletionModel     string
	MaxCompletionTokens int
	TTSModel            string
	TTSVoice            string
	TTSFormat           string
	STTModel            string
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIAdapter(cfg), nil
		}
		return NewMockAdapter(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for openai mode")
		}
		return NewOpenAIAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported provider mode %q", cfg.Mode)
	}
}
