package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/gmarchetti/parley/internal/audio"
)

// MockAdapter provides deterministic local behavior when no API key is
// configured.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) StreamCompletion(ctx context.Context, messages []Message, onDelta DeltaHandler) (CompletionResult, error) {
	select {
	case <-ctx.Done():
		return CompletionResult{}, ctx.Err()
	default:
	}

	text := buildMockReply(messages)
	var out strings.Builder
	for _, delta := range splitMockDeltas(text) {
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return CompletionResult{}, err
			}
		}
	}
	return CompletionResult{Text: out.String()}, nil
}

func (a *MockAdapter) SynthesizeSpeech(ctx context.Context, text string) ([]byte, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	default:
	}
	// 100ms of silence stands in for real synthesis output.
	wav, err := audio.EncodeWAVPCM16LE(make([]byte, 3200), 16000)
	if err != nil {
		return nil, "", err
	}
	return wav, "audio/wav", nil
}

func (a *MockAdapter) Transcribe(ctx context.Context, audioBytes []byte, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if len(audioBytes) == 0 {
		return "", nil
	}
	return "simulated voice input", nil
}

func buildMockReply(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			input := strings.TrimSpace(messages[i].Content)
			if input != "" {
				return fmt.Sprintf("I heard you: %s", input)
			}
			break
		}
	}
	return "I am listening."
}

// splitMockDeltas breaks the reply into word-sized increments so clients
// exercise the same reassembly path as with a real streaming provider.
func splitMockDeltas(text string) []string {
	words := strings.Split(text, " ")
	deltas := make([]string, 0, len(words))
	for i, w := range words {
		if i == 0 {
			deltas = append(deltas, w)
			continue
		}
		deltas = append(deltas, " "+w)
	}
	return deltas
}
