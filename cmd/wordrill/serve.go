package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/wordrill/internal/metadata"
	"github.com/satindergrewal/wordrill/internal/session"
	"github.com/satindergrewal/wordrill/internal/stream"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the drill HTTP and WebRTC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), ctx)
		},
	}
}

func serve(parent context.Context, cc *commandContext) error {
	cfg := cc.cfg
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("wordrill starting up...")

	cat := cc.catalog()
	resolver := metadata.NewResolver(cat)

	sessions, err := session.Open(cfg.SessionDB)
	if err != nil {
		return fmt.Errorf("open sessions: %w", err)
	}
	defer sessions.Close()

	comp, err := cc.composer(cat, cfg.AudioFormat)
	if err != nil {
		return err
	}

	drills := &stream.Drills{
		Catalog:  cat,
		Sessions: sessions,
		Composer: comp,
		Defaults: stream.Defaults{
			Passes: cfg.Passes,
			Pause:  cfg.Pause,
			Gap:    cfg.WordGap,
		},
	}

	webrtcHandler := stream.NewWebRTCHandler(drills)

	// HTTP routes
	mux := http.NewServeMux()

	// Audio delivery
	mux.Handle("/api/play", stream.NewTrackHandler(drills))
	mux.Handle("/offer", webrtcHandler)

	mux.HandleFunc("GET /api/sections", func(w http.ResponseWriter, r *http.Request) {
		sections, err := cat.Sections()
		if err != nil {
			status, msg := stream.ErrorStatus(err)
			http.Error(w, msg, status)
			return
		}
		writeJSON(w, map[string]any{"sections": sections})
	})

	mux.HandleFunc("GET /api/sections/{section}/words", func(w http.ResponseWriter, r *http.Request) {
		section := r.PathValue("section")
		words, err := cat.ListWords(section)
		if err != nil {
			status, msg := stream.ErrorStatus(err)
			http.Error(w, msg, status)
			return
		}

		q := r.URL.Query()
		display := metadata.Display{
			ShowTarget:          queryBool(q.Get("show_target"), cfg.ShowTarget),
			ShowTransliteration: queryBool(q.Get("show_translit"), cfg.ShowTransliteration),
		}

		var excluded map[string]bool
		if id := q.Get("session"); id != "" {
			excluded, err = sessions.Excluded(r.Context(), id, section)
			if err != nil {
				status, msg := stream.ErrorStatus(err)
				http.Error(w, msg, status)
				return
			}
		}

		type wordView struct {
			metadata.Info
			Display  string `json:"display"`
			Included bool   `json:"included"`
		}
		infos := resolver.ResolveAll(section, words)
		out := make([]wordView, len(words))
		for i, info := range infos {
			out[i] = wordView{Info: info, Display: info.Format(display), Included: !excluded[info.ID]}
		}
		writeJSON(w, map[string]any{"section": section, "words": out})
	})

	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		id, err := sessions.Create(r.Context())
		if err != nil {
			log.Printf("Create session failed: %v", err)
			http.Error(w, "create session failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"session": id})
	})

	mux.HandleFunc("PUT /api/sessions/{id}/words", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Section  string `json:"section"`
			Word     string `json:"word"`
			Included bool   `json:"included"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Section == "" || req.Word == "" {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		err := sessions.SetIncluded(r.Context(), r.PathValue("id"), req.Section, req.Word, req.Included)
		if err != nil {
			status, msg := stream.ErrorStatus(err)
			http.Error(w, msg, status)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "word": req.Word, "included": req.Included})
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"webrtc_listeners": webrtcHandler.PeerCount(),
			"config": map[string]any{
				"audio_root":    cfg.AudioRoot,
				"passes":        cfg.Passes,
				"pause_seconds": cfg.Pause.Seconds(),
				"word_gap_ms":   cfg.WordGap.Milliseconds(),
				"audio_format":  cfg.AudioFormat,
			},
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	if sections, err := cat.Sections(); err != nil {
		log.Printf("Audio root %q: %v", cfg.AudioRoot, err)
	} else {
		log.Printf("Serving %d sections from %s", len(sections), cfg.AudioRoot)
	}

	log.Printf("wordrill live on %s", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}

func queryBool(v string, fallback bool) bool {
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

