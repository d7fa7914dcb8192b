package store

import (
	"context"
	"time"
)

// Role identifies who produced a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Input methods recorded on user turns.
const (
	InputText  = "text"
	InputVoice = "voice"
)

// Turn is one persisted message in the conversation log. Turns are immutable
// once persisted; the store assigns ID and Timestamp when they are empty.
type Turn struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Role        string    `json:"role"`
	InputMethod string    `json:"inputMethod"`
	HasAudio    bool      `json:"hasAudio"`
	AudioURL    string    `json:"audioUrl,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is an ordered, append-only log of conversation turns. Recent reads
// issued after a SaveTurn returns always observe that turn.
type Store interface {
	SaveTurn(ctx context.Context, turn Turn) (Turn, error)
	Recent(ctx context.Context, limit int) ([]Turn, error)
	Clear(ctx context.Context) error
	Close() error
}
