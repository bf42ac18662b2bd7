package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/satindergrewal/wordrill/internal/catalog"
	"github.com/satindergrewal/wordrill/internal/composer"
	"github.com/satindergrewal/wordrill/internal/config"
	"github.com/satindergrewal/wordrill/internal/session"
)

var errBadRequest = errors.New("bad request")

// DrillRequest is what a client sends to play a section.
// When Words is empty the session's ticked words are used.
type DrillRequest struct {
	Section      string      `json:"section"`
	Words        []string    `json:"words,omitempty"`
	Session      string      `json:"session,omitempty"`
	Passes       *int        `json:"passes,omitempty"`
	PauseSeconds json.Number `json:"pause_seconds,omitempty"`
	GapMS        *int        `json:"gap_ms,omitempty"`
}

// Defaults fill in drill parameters the client leaves out.
type Defaults struct {
	Passes int
	Pause  time.Duration
	Gap    time.Duration
}

// Drills turns client requests into composed tracks.
type Drills struct {
	Catalog  *catalog.Catalog
	Sessions *session.Store // nil disables session-based selection
	Composer *composer.Composer
	Defaults Defaults
}

// Request resolves a DrillRequest against storage and session state.
func (d *Drills) Request(ctx context.Context, dr DrillRequest) (composer.Request, error) {
	all, err := d.Catalog.ListWords(dr.Section)
	if err != nil {
		return composer.Request{}, err
	}

	req := composer.Request{
		Section: dr.Section,
		Passes:  d.Defaults.Passes,
		Pause:   d.Defaults.Pause,
		Gap:     d.Defaults.Gap,
	}
	if dr.Passes != nil {
		req.Passes = *dr.Passes
	}
	if dr.PauseSeconds != "" {
		p, err := config.ParseSeconds(dr.PauseSeconds.String())
		if err != nil {
			return req, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		req.Pause = config.ClampPause(p)
	}
	if dr.GapMS != nil {
		req.Gap = time.Duration(*dr.GapMS) * time.Millisecond
	}

	switch {
	case len(dr.Words) > 0:
		req.Words = catalog.Restrict(all, dr.Words)
	case dr.Session != "":
		if d.Sessions == nil {
			return req, fmt.Errorf("%w: sessions are disabled", errBadRequest)
		}
		req.Words, err = d.Sessions.Selected(ctx, dr.Session, dr.Section, all)
		if err != nil {
			return req, err
		}
	}
	return req, nil
}

// Compose resolves and composes an encoded track.
func (d *Drills) Compose(ctx context.Context, dr DrillRequest) (*composer.Track, error) {
	req, err := d.Request(ctx, dr)
	if err != nil {
		return nil, err
	}
	return d.Composer.Compose(ctx, req)
}

// Assemble resolves and composes a PCM-only track.
func (d *Drills) Assemble(ctx context.Context, dr DrillRequest) (*composer.Track, error) {
	req, err := d.Request(ctx, dr)
	if err != nil {
		return nil, err
	}
	return d.Composer.Assemble(ctx, req)
}

// ErrorStatus maps a drill error to an HTTP status and a message for the learner.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "no words available"
	case errors.Is(err, composer.ErrEmptySelection):
		return http.StatusBadRequest, "Please select at least one word."
	case errors.Is(err, composer.ErrClipUnavailable):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, session.ErrUnknownSession):
		return http.StatusNotFound, "unknown session"
	case errors.Is(err, composer.ErrInvalidRequest), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}
