package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gmarchetti/parley/internal/audio"
)

// OpenAIAdapter talks to an OpenAI-compatible HTTP API for completion,
// speech synthesis and transcription.
type OpenAIAdapter struct {
	cfg    Config
	client *http.Client
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.CompletionModel) == "" {
		cfg.CompletionModel = "gpt-5"
	}
	if cfg.MaxCompletionTokens <= 0 {
		cfg.MaxCompletionTokens = 8192
	}
	if strings.TrimSpace(cfg.TTSModel) == "" {
		cfg.TTSModel = "tts-1"
	}
	if strings.TrimSpace(cfg.TTSVoice) == "" {
		cfg.TTSVoice = "nova"
	}
	if strings.TrimSpace(cfg.TTSFormat) == "" {
		cfg.TTSFormat = "mp3"
	}
	if strings.TrimSpace(cfg.STTModel) == "" {
		cfg.STTModel = "whisper-1"
	}
	return &OpenAIAdapter{
		cfg: cfg,
		// Per-call deadlines come from the relay's context; this is a hard
		// upper bound against leaked connections.
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

type chatCompletionRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	MaxCompletionTokens int       `json:"max_completion_tokens"`
	Stream              bool      `json:"stream"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (a *OpenAIAdapter) StreamCompletion(ctx context.Context, messages []Message, onDelta DeltaHandler) (CompletionResult, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:               a.cfg.CompletionModel,
		Messages:            messages,
		MaxCompletionTokens: a.cfg.MaxCompletionTokens,
		Stream:              true,
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	res, err := a.client.Do(req)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("send completion request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return CompletionResult{}, statusError(CapabilityCompletion, res.StatusCode, strings.TrimSpace(string(body)))
	}

	return consumeSSE(res.Body, onDelta)
}

// consumeSSE reads "data:" lines until the [DONE] sentinel, forwarding each
// non-empty content delta.
func consumeSSE(body io.Reader, onDelta DeltaHandler) (CompletionResult, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return CompletionResult{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return CompletionResult{}, fmt.Errorf("completion stream read: %w", err)
	}

	return CompletionResult{Text: out.String()}, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

func (a *OpenAIAdapter) SynthesizeSpeech(ctx context.Context, text string) ([]byte, string, error) {
	payload, err := json.Marshal(speechRequest{
		Model:          a.cfg.TTSModel,
		Voice:          a.cfg.TTSVoice,
		Input:          text,
		ResponseFormat: a.cfg.TTSFormat,
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	res, err := a.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("send speech request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, "", statusError(CapabilitySpeech, res.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read speech response: %w", err)
	}

	switch a.cfg.TTSFormat {
	case "pcm":
		// The pcm format is raw PCM16LE at 24kHz; wrap it so clients can
		// play the data URL directly.
		wav, err := audio.EncodeWAVPCM16LE(data, 24000)
		if err != nil {
			return nil, "", fmt.Errorf("wrap pcm synthesis output: %w", err)
		}
		return wav, "audio/wav", nil
	case "wav":
		return data, "audio/wav", nil
	default:
		return data, "audio/mp3", nil
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, audioBytes []byte, filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioBytes); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := form.WriteField("model", a.cfg.STTModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	res, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send transcription request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", statusError(CapabilityTranscribe, res.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var decoded transcriptionResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return decoded.Text, nil
}
