package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gmarchetti/parley/internal/store"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChat     MessageType = "chat"
	TypeMessage  MessageType = "message"
	TypeChunk    MessageType = "chunk"
	TypeComplete MessageType = "complete"
	TypeTyping   MessageType = "typing"
	TypeError    MessageType = "error"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatIntent is the single recognized inbound frame: a request for a new
// assistant reply.
type ChatIntent struct {
	Type           MessageType `json:"type"`
	Content        string      `json:"content"`
	InputMethod    string      `json:"inputMethod,omitempty"`
	GenerateSpeech bool        `json:"generateSpeech,omitempty"`
}

// MessageEvent echoes a freshly persisted user turn.
type MessageEvent struct {
	Type    MessageType `json:"type"`
	Message store.Turn  `json:"message"`
}

// ChunkEvent carries one incremental unit of streamed assistant text, never
// the cumulative buffer.
type ChunkEvent struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// CompleteEvent carries the final persisted assistant turn and marks the end
// of the stream.
type CompleteEvent struct {
	Type    MessageType `json:"type"`
	Message store.Turn  `json:"message"`
}

type TypingEvent struct {
	Type     MessageType `json:"type"`
	IsTyping bool        `json:"isTyping"`
}

type ErrorEvent struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// ParseClientMessage validates an inbound frame and returns a ChatIntent with
// defaults applied: inputMethod falls back to "text", generateSpeech to false.
func ParseClientMessage(raw []byte) (ChatIntent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ChatIntent{}, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChat:
		var msg ChatIntent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return ChatIntent{}, fmt.Errorf("invalid chat intent: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(msg.InputMethod)) {
		case store.InputVoice:
			msg.InputMethod = store.InputVoice
		default:
			msg.InputMethod = store.InputText
		}
		return msg, nil
	default:
		return ChatIntent{}, ErrUnsupportedType
	}
}
