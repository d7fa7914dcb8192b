package httpapi

import (
	"io"
	"log"
	"net/http"

	"github.com/gmarchetti/parley/internal/audio"
	"github.com/gmarchetti/parley/internal/store"
)

// maxUploadBytes bounds a transcription upload; a minute of 16kHz PCM16 is
// under 2MB, so this leaves generous headroom for compressed formats.
const maxUploadBytes = 25 << 20

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	turns, err := s.store.Recent(r.Context(), s.cfg.RecentLimit)
	if err != nil {
		log.Printf("httpapi: list messages: %v", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "failed to fetch messages")
		return
	}
	if turns == nil {
		turns = []store.Turn{}
	}
	respondJSON(w, http.StatusOK, turns)
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		log.Printf("httpapi: clear messages: %v", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "failed to clear messages")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Messages cleared"})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "missing_audio", "no audio file provided")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_audio", "no audio file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_audio", "failed to read audio payload")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "missing_audio", "no audio file provided")
		return
	}

	text, err := s.adapter.Transcribe(r.Context(), data, uploadFilename(header.Filename, data))
	if err != nil {
		log.Printf("httpapi: transcribe: %v", err)
		respondError(w, http.StatusBadGateway, "transcription_failed", "failed to transcribe audio")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

// uploadFilename keeps the client's filename when present; otherwise it picks
// an extension the transcription API can use from the payload's magic bytes.
func uploadFilename(name string, data []byte) string {
	if name != "" {
		return name
	}
	switch audio.SniffContentType(data) {
	case "audio/mpeg":
		return "audio.mp3"
	case "audio/ogg":
		return "audio.ogg"
	case "audio/mp4":
		return "audio.m4a"
	case "audio/flac":
		return "audio.flac"
	case "audio/webm":
		return "audio.webm"
	default:
		return "audio.wav"
	}
}
