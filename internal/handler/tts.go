package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxSpeechRunes is the longest input the speech endpoint accepts.
const maxSpeechRunes = 4096

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (h *Handler) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	switch {
	case text == "":
		writeAPIError(w, r, invalid("ErrTextRequired", nil))
		return
	case utf8.RuneCountInString(text) > maxSpeechRunes:
		writeAPIError(w, r, invalidPlural("ErrTextTooLong", maxSpeechRunes))
		return
	}

	audio, err := h.speaker.Speak(r.Context(), text, strings.TrimSpace(req.Voice))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio); err != nil {
		slog.Warn("audio stream interrupted", "error", err)
	}
}
