package stream

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"lukechampine.com/blake3"

	"github.com/satindergrewal/wordrill/internal/composer"
)

// TrackHandler composes a drill per request and returns the encoded track.
// With ?format=json the track is wrapped with its trace for diagnostics.
type TrackHandler struct {
	drills *Drills
}

// NewTrackHandler creates an HTTP track handler.
func NewTrackHandler(d *Drills) *TrackHandler {
	return &TrackHandler{drills: d}
}

type trackResponse struct {
	ID          string          `json:"id"`
	Section     string          `json:"section"`
	DurationSec float64         `json:"duration"`
	ContentType string          `json:"content_type"`
	Trace       []composer.Step `json:"trace"`
	Audio       []byte          `json:"audio"`
}

func (h *TrackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req DrillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Section == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	track, err := h.drills.Compose(r.Context(), req)
	if err != nil {
		status, msg := ErrorStatus(err)
		log.Printf("Play %q failed: %v", req.Section, err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Track-ID", track.ID)
	w.Header().Set("X-Track-Duration", strconv.FormatFloat(track.Duration.Seconds(), 'f', 3, 64))

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(trackResponse{
			ID:          track.ID,
			Section:     track.Section,
			DurationSec: track.Duration.Seconds(),
			ContentType: track.Format.ContentType(),
			Trace:       track.Trace,
			Audio:       track.Data,
		})
		return
	}

	// Every compose reshuffles, so the digest identifies this response body only.
	sum := blake3.Sum256(track.Data)
	w.Header().Set("X-Track-Digest", hex.EncodeToString(sum[:16]))
	w.Header().Set("Content-Type", track.Format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(track.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="drill.%s"`, track.Format))
	if _, err := w.Write(track.Data); err != nil {
		log.Printf("Play %q: write failed: %v", req.Section, err)
	}
}
