package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"

	"github.com/satindergrewal/wordrill/internal/audio"
)

// Offer is the body of a WebRTC playback request: the browser's SDP offer
// plus the drill it wants to hear.
type Offer struct {
	SDP   webrtc.SessionDescription `json:"sdp"`
	Drill DrillRequest              `json:"drill"`
}

// WebRTCHandler composes a drill and plays it to one peer as low-latency Opus.
// Each peer gets its own freshly composed track; nothing is shared between peers.
type WebRTCHandler struct {
	drills *Drills
	mu     sync.Mutex
	peers  []*webrtc.PeerConnection
}

// NewWebRTCHandler creates a WebRTC playback handler.
func NewWebRTCHandler(d *Drills) *WebRTCHandler {
	return &WebRTCHandler{
		drills: d,
	}
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer Offer
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil || offer.Drill.Section == "" {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	// Compose before negotiating so selection errors reach the learner as HTTP errors.
	track, err := h.drills.Assemble(r.Context(), offer.Drill)
	if err != nil {
		status, msg := ErrorStatus(err)
		log.Printf("WebRTC drill %q failed: %v", offer.Drill.Section, err)
		http.Error(w, msg, status)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	audioTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"wordrill-"+track.ID,
	)
	if err != nil {
		pc.Close()
		http.Error(w, "create audio track failed", http.StatusInternalServerError)
		return
	}

	if _, err := pc.AddTrack(audioTrack); err != nil {
		pc.Close()
		http.Error(w, "add track failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetRemoteDescription(offer.SDP); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}

	// Wait for ICE gathering to complete
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	<-gatherComplete

	h.mu.Lock()
	h.peers = append(h.peers, pc)
	h.mu.Unlock()

	log.Printf("WebRTC peer connected for track %s (total: %d)", track.ID, h.PeerCount())

	player := audio.NewPlayer(track.Samples)
	ctx, cancel := context.WithCancel(context.Background())
	var start sync.Once

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		// Playback starts once media can flow so the first word is not lost.
		if s == webrtc.PeerConnectionStateConnected {
			start.Do(func() {
				go player.Run(ctx)
				go h.streamToPeer(pc, audioTrack, player, cancel)
			})
			return
		}
		// Clean up on disconnect
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed ||
			s == webrtc.PeerConnectionStateDisconnected {
			cancel()
			if h.removePeer(pc) {
				pc.Close()
				log.Printf("WebRTC peer disconnected (remaining: %d)", h.PeerCount())
			}
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Track-ID", track.ID)
	json.NewEncoder(w).Encode(pc.LocalDescription())
}

// streamToPeer encodes the player's frames to Opus until the track ends,
// then hangs up.
func (h *WebRTCHandler) streamToPeer(pc *webrtc.PeerConnection, track *webrtc.TrackLocalStaticSample, player *audio.Player, cancel context.CancelFunc) {
	defer cancel()

	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		log.Printf("WebRTC: opus encoder error: %v", err)
		player.Stop()
		return
	}
	enc.SetBitrate(128000)

	opusBuf := make([]byte, 4000)

	for frame := range player.Frames() {
		n, err := enc.Encode(frame, opusBuf)
		if err != nil {
			log.Printf("WebRTC: opus encode error: %v", err)
			continue
		}
		if err := track.WriteSample(media.Sample{
			Data:     opusBuf[:n],
			Duration: audio.FrameDuration,
		}); err != nil {
			player.Stop()
			return
		}
	}

	pos, dur := player.Status()
	log.Printf("WebRTC: drill finished (%v of %v)", pos, dur)
	if h.removePeer(pc) {
		pc.Close()
	}
}

// removePeer forgets pc and reports whether it was still registered.
func (h *WebRTCHandler) removePeer(pc *webrtc.PeerConnection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, p := range h.peers {
		if p == pc {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			return true
		}
	}
	return false
}
