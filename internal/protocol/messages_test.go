package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gmarchetti/parley/internal/store"
)

func TestParseClientMessageChat(t *testing.T) {
	raw := []byte(`{"type":"chat","content":"Hello","inputMethod":"voice","generateSpeech":true}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage error = %v", err)
	}
	if msg.Content != "Hello" {
		t.Fatalf("Content = %q, want %q", msg.Content, "Hello")
	}
	if msg.InputMethod != store.InputVoice {
		t.Fatalf("InputMethod = %q, want %q", msg.InputMethod, store.InputVoice)
	}
	if !msg.GenerateSpeech {
		t.Fatalf("GenerateSpeech = false, want true")
	}
}

func TestParseClientMessageDefaults(t *testing.T) {
	raw := []byte(`{"type":"chat","content":"hi"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage error = %v", err)
	}
	if msg.InputMethod != store.InputText {
		t.Fatalf("InputMethod default = %q, want %q", msg.InputMethod, store.InputText)
	}
	if msg.GenerateSpeech {
		t.Fatalf("GenerateSpeech default = true, want false")
	}

	// Unrecognized input methods collapse to text.
	raw = []byte(`{"type":"chat","content":"hi","inputMethod":"telepathy"}`)
	msg, err = ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage error = %v", err)
	}
	if msg.InputMethod != store.InputText {
		t.Fatalf("InputMethod = %q, want %q", msg.InputMethod, store.InputText)
	}
}

func TestParseClientMessageRejectsMalformed(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
	if _, err := ParseClientMessage([]byte(`{"type":"subscribe"}`)); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestOutboundFrameShapes(t *testing.T) {
	chunk, err := json.Marshal(ChunkEvent{Type: TypeChunk, Content: "Hi"})
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	if string(chunk) != `{"type":"chunk","content":"Hi"}` {
		t.Fatalf("chunk frame = %s", chunk)
	}

	typing, err := json.Marshal(TypingEvent{Type: TypeTyping, IsTyping: true})
	if err != nil {
		t.Fatalf("marshal typing: %v", err)
	}
	if string(typing) != `{"type":"typing","isTyping":true}` {
		t.Fatalf("typing frame = %s", typing)
	}

	// audioUrl must be absent when no audio artifact exists.
	msg, err := json.Marshal(MessageEvent{Type: TypeMessage, Message: store.Turn{ID: "t1", Role: store.RoleUser}})
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("unmarshal message frame: %v", err)
	}
	turn, ok := decoded["message"].(map[string]any)
	if !ok {
		t.Fatalf("message frame missing turn: %s", msg)
	}
	if _, present := turn["audioUrl"]; present {
		t.Fatalf("audioUrl present on turn without audio: %s", msg)
	}
}
