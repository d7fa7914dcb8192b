package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gmarchetti/parley/internal/observability"
	"github.com/gmarchetti/parley/internal/protocol"
	"github.com/gmarchetti/parley/internal/provider"
	"github.com/gmarchetti/parley/internal/session"
	"github.com/gmarchetti/parley/internal/store"
)

// Relay drives the per-connection chat protocol: it persists turns, requests
// streamed completions, forwards chunks, and signals typing and errors. All
// outbound events for one connection flow through a single channel drained by
// a single websocket writer, so emission order is delivery order.
type Relay struct {
	store             store.Store
	adapter           provider.Adapter
	metrics           *observability.Metrics
	historyLimit      int
	completionTimeout time.Duration
}

func New(st store.Store, adapter provider.Adapter, metrics *observability.Metrics, historyLimit int, completionTimeout time.Duration) *Relay {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Relay{
		store:             st,
		adapter:           adapter,
		metrics:           metrics,
		historyLimit:      historyLimit,
		completionTimeout: completionTimeout,
	}
}

// RunConnection consumes inbound frames for one connection until the inbound
// channel closes or ctx is cancelled. Generations run on their own goroutine
// so the loop keeps consuming, and rejecting, intents that arrive while one
// is in flight; the session gate guarantees at most one generation at a time.
func (r *Relay) RunConnection(ctx context.Context, sess *session.Session, inbound <-chan protocol.ChatIntent, outbound chan<- any) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case intent, ok := <-inbound:
			if !ok {
				return nil
			}

			content := strings.TrimSpace(intent.Content)
			if content == "" {
				// Trimmed-empty intents are a silent no-op: no events, no
				// persistence, no state transition.
				r.metrics.Generations.WithLabelValues("empty").Inc()
				continue
			}

			if !sess.BeginGeneration() {
				r.metrics.Generations.WithLabelValues("rejected").Inc()
				r.send(ctx, outbound, protocol.ErrorEvent{
					Type:    protocol.TypeError,
					Message: "a reply is already being generated for this connection",
				})
				continue
			}

			wg.Add(1)
			go func(intent protocol.ChatIntent, content string) {
				defer wg.Done()
				defer sess.EndGeneration()
				r.generate(ctx, sess, content, intent.InputMethod, intent.GenerateSpeech, outbound)
			}(intent, content)
		}
	}
}

// generate executes the effect sequence for one chat intent. Any failure
// after the user turn is persisted aborts the remaining effects, emits a
// single error event, and never persists a partial assistant turn.
func (r *Relay) generate(ctx context.Context, sess *session.Session, content, inputMethod string, wantsSpeech bool, outbound chan<- any) {
	start := time.Now()

	userTurn, err := r.store.SaveTurn(ctx, store.Turn{
		Role:        store.RoleUser,
		Content:     content,
		InputMethod: inputMethod,
	})
	if err != nil {
		r.fail(ctx, sess, outbound, false, "failed to save message", err)
		return
	}
	if !r.send(ctx, outbound, protocol.MessageEvent{Type: protocol.TypeMessage, Message: userTurn}) {
		r.metrics.Generations.WithLabelValues("canceled").Inc()
		return
	}

	history, err := r.store.Recent(ctx, r.historyLimit)
	if err != nil {
		r.fail(ctx, sess, outbound, false, "failed to load conversation history", err)
		return
	}
	window := make([]provider.Message, 0, len(history))
	for _, turn := range history {
		window = append(window, provider.Message{Role: turn.Role, Content: turn.Content})
	}

	if !r.send(ctx, outbound, protocol.TypingEvent{Type: protocol.TypeTyping, IsTyping: true}) {
		r.metrics.Generations.WithLabelValues("canceled").Inc()
		return
	}

	genCtx := ctx
	if r.completionTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, r.completionTimeout)
		defer cancel()
	}

	first := true
	result, err := r.adapter.StreamCompletion(genCtx, window, func(delta string) error {
		if first {
			first = false
			r.metrics.ObserveFirstChunkLatency(time.Since(start))
		}
		r.metrics.StreamChunks.Inc()
		if !r.send(ctx, outbound, protocol.ChunkEvent{Type: protocol.TypeChunk, Content: delta}) {
			return context.Canceled
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			// Connection closed mid-stream: the accumulation buffer is
			// discarded and no assistant turn is persisted.
			r.metrics.Generations.WithLabelValues("canceled").Inc()
			return
		}
		r.fail(ctx, sess, outbound, true, "failed to generate a reply", err)
		return
	}

	var hasAudio bool
	var audioURL string
	if wantsSpeech && strings.TrimSpace(result.Text) != "" {
		data, mime, err := r.adapter.SynthesizeSpeech(genCtx, result.Text)
		if err != nil {
			if ctx.Err() != nil {
				r.metrics.Generations.WithLabelValues("canceled").Inc()
				return
			}
			r.fail(ctx, sess, outbound, true, "failed to synthesize speech", err)
			return
		}
		hasAudio = true
		audioURL = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	}

	assistantTurn, err := r.store.SaveTurn(ctx, store.Turn{
		Role:        store.RoleAssistant,
		Content:     result.Text,
		InputMethod: store.InputText,
		HasAudio:    hasAudio,
		AudioURL:    audioURL,
	})
	if err != nil {
		r.fail(ctx, sess, outbound, true, "failed to save reply", err)
		return
	}

	if !r.send(ctx, outbound, protocol.CompleteEvent{Type: protocol.TypeComplete, Message: assistantTurn}) {
		r.metrics.Generations.WithLabelValues("canceled").Inc()
		return
	}
	r.send(ctx, outbound, protocol.TypingEvent{Type: protocol.TypeTyping, IsTyping: false})
	r.metrics.Generations.WithLabelValues("completed").Inc()
}

// fail converts a mid-sequence failure into exactly one outbound error event,
// trailed by typing:false when a typing:true was already emitted.
func (r *Relay) fail(ctx context.Context, sess *session.Session, outbound chan<- any, typingStarted bool, message string, err error) {
	log.Printf("relay: session %s: %s: %v", sess.ID, message, err)
	r.metrics.Generations.WithLabelValues("failed").Inc()

	var perr *provider.Error
	if errors.As(err, &perr) {
		r.metrics.ProviderErrors.WithLabelValues(perr.Capability, httpStatusLabel(perr.Status)).Inc()
	}

	if !r.send(ctx, outbound, protocol.ErrorEvent{Type: protocol.TypeError, Message: message}) {
		return
	}
	if typingStarted {
		r.send(ctx, outbound, protocol.TypingEvent{Type: protocol.TypeTyping, IsTyping: false})
	}
}

// send enqueues one outbound event, giving up only when the connection
// context ends. It reports whether the event was enqueued.
func (r *Relay) send(ctx context.Context, outbound chan<- any, event any) bool {
	select {
	case <-ctx.Done():
		return false
	case outbound <- event:
		return true
	}
}

func httpStatusLabel(status int) string {
	if status <= 0 {
		return "transport"
	}
	switch {
	case status == 429:
		return "429"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "other"
	}
}
