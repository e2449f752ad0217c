// Package server exposes the core to the extension UI as a message-style
// request/response contract over HTTP: one envelope with a discriminant type
// tag, dispatched through a closed switch. Every response carries either the
// payload or an error string, never both.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobsift/internal/config"
	"jobsift/internal/db"
	"jobsift/internal/logging"
	"jobsift/internal/model"
	"jobsift/internal/scheduler"
	"jobsift/internal/store"
	"jobsift/internal/triage"
)

type API struct {
	cfg       config.Config
	store     *store.Store
	triage    *triage.Service
	scheduler *scheduler.Scheduler
	log       *logging.Logger
}

func New(cfg config.Config, st *store.Store, tr *triage.Service, sched *scheduler.Scheduler, log *logging.Logger) *API {
	return &API{cfg: cfg, store: st, triage: tr, scheduler: sched, log: log}
}

func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/message", a.withJSON(http.HandlerFunc(a.handleMessage)))
	mux.Handle("/api/health", a.withJSON(http.HandlerFunc(a.handleHealth)))
	return mux
}

// Request is the message envelope. Type selects the operation; Payload is
// the operation-specific body.
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Response mirrors the request tag and carries exactly one of Payload or
// Error.
type Response struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := decodeJSON(r, a.cfg.MaxBodyBytes, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Type: req.Type, Error: err.Error()})
		return
	}
	payload, err := a.dispatch(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, errBadRequest):
			status = http.StatusBadRequest
		case errors.Is(err, errNotFound):
			status = http.StatusNotFound
		case errors.Is(err, db.ErrStorageUnavailable):
			status = http.StatusInsufficientStorage
		case errors.Is(err, db.ErrConstraintViolation):
			status = http.StatusConflict
		}
		respondJSON(w, status, Response{Type: req.Type, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, Response{Type: req.Type, Payload: payload})
}

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

// dispatch is the closed tag switch over the message contract. Adding a
// message type means adding a case here; unknown tags come back as errors.
func (a *API) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Type {
	case "triage_listings":
		var p struct {
			Candidates []triage.Candidate `json:"candidates"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return a.triage.Triage(ctx, p.Candidates)

	case "score_listing":
		var p struct {
			ID string `json:"id"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		rec, err := a.triage.RescoreOne(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: listing %s", errNotFound, p.ID)
		}
		return rec, nil

	case "rescore_all":
		n, err := a.triage.Rescore(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"rescored": n}, nil

	case "get_listing":
		var p struct {
			ID string `json:"id"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		rec, err := a.store.Get(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: listing %s", errNotFound, p.ID)
		}
		return rec, nil

	case "list_recent":
		var p struct {
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		if p.Limit <= 0 {
			p.Limit = 50
		}
		items, err := a.store.RecentWithOffset(ctx, p.Limit, p.Offset)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil

	case "list_by_decision":
		var p struct {
			Decision string `json:"decision"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		d, ok := model.ParseDecision(p.Decision)
		if !ok {
			return nil, fmt.Errorf("%w: invalid decision %q", errBadRequest, p.Decision)
		}
		items, err := a.store.ByDecision(ctx, d)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil

	case "list_by_label":
		var p struct {
			Label string `json:"label"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		items, err := a.store.ByLabel(ctx, p.Label)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil

	case "list_by_score":
		var p struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		items, err := a.store.ByScoreRange(ctx, p.Min, p.Max)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil

	case "record_decision":
		var p struct {
			ID       string `json:"id"`
			Decision string `json:"decision"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		d, ok := model.ParseDecision(p.Decision)
		if !ok {
			return nil, fmt.Errorf("%w: invalid decision %q", errBadRequest, p.Decision)
		}
		return a.mutateListing(ctx, p.ID, func(rec *model.Listing) {
			rec.Decision = d
		})

	case "annotate":
		var p struct {
			ID         string `json:"id"`
			Annotation string `json:"annotation"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return a.mutateListing(ctx, p.ID, func(rec *model.Listing) {
			rec.Annotation = p.Annotation
		})

	case "set_labels":
		var p struct {
			ID     string   `json:"id"`
			Labels []string `json:"labels"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		return a.mutateListing(ctx, p.ID, func(rec *model.Listing) {
			rec.Labels = p.Labels
		})

	case "delete_listings":
		var p struct {
			IDs []string `json:"ids"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		if err := a.store.DeleteMany(ctx, p.IDs); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": len(p.IDs)}, nil

	case "counts":
		total, err := a.store.Count(ctx)
		if err != nil {
			return nil, err
		}
		accepted, err := a.store.CountByDecision(ctx, model.DecisionAccepted)
		if err != nil {
			return nil, err
		}
		rejected, err := a.store.CountByDecision(ctx, model.DecisionRejected)
		if err != nil {
			return nil, err
		}
		undecided, err := a.store.CountByDecision(ctx, model.DecisionUnset)
		if err != nil {
			return nil, err
		}
		// The profile's threshold wins when set; the config value is the
		// fallback for users who have not saved a profile yet.
		threshold := a.cfg.ScoreThreshold
		if profile, err := a.store.GetProfile(ctx); err != nil {
			return nil, err
		} else if profile != nil && profile.ScoreThreshold > 0 {
			threshold = profile.ScoreThreshold
		}
		aboveThreshold, err := a.store.CountByScoreRange(ctx, threshold, 10)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"total":           total,
			"accepted":        accepted,
			"rejected":        rejected,
			"undecided":       undecided,
			"above_threshold": aboveThreshold,
		}, nil

	case "get_profile":
		p, err := a.store.GetProfile(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"profile": p}, nil

	case "update_profile":
		var p struct {
			Profile model.Profile `json:"profile"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		if err := a.store.SaveProfile(ctx, p.Profile); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil

	case "save_preset":
		var p struct {
			ID       string        `json:"id"`
			Snapshot model.Profile `json:"snapshot"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: preset id is required", errBadRequest)
		}
		if err := a.store.SavePreset(ctx, model.Preset{ID: p.ID, Snapshot: p.Snapshot}); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil

	case "list_presets":
		items, err := a.store.ListPresets(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil

	case "delete_preset":
		var p struct {
			ID string `json:"id"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		if err := a.store.DeletePreset(ctx, p.ID); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil

	case "apply_preset":
		var p struct {
			ID string `json:"id"`
		}
		if err := unmarshalPayload(req.Payload, &p); err != nil {
			return nil, err
		}
		preset, err := a.store.GetPreset(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if preset == nil {
			return nil, fmt.Errorf("%w: preset %s", errNotFound, p.ID)
		}
		current, err := a.store.GetProfile(ctx)
		if err != nil {
			return nil, err
		}
		if current == nil {
			current = &model.Profile{}
		}
		merged := preset.ApplyTo(*current)
		if err := a.store.SaveProfile(ctx, merged); err != nil {
			return nil, err
		}
		return map[string]any{"profile": merged}, nil

	case "run_eviction":
		return a.scheduler.RunNow(ctx), nil

	default:
		return nil, fmt.Errorf("%w: unknown message type %q", errBadRequest, req.Type)
	}
}

// mutateListing loads, edits, and saves one listing. Missing targets come
// back as not-found errors at this boundary.
func (a *API) mutateListing(ctx context.Context, id string, edit func(*model.Listing)) (*model.Listing, error) {
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: listing %s", errNotFound, id)
	}
	edit(rec)
	if err := a.store.Save(ctx, *rec); err != nil {
		return nil, err
	}
	return a.store.Get(ctx, id)
}

func unmarshalPayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func decodeJSON(r *http.Request, maxBody int64, out any) error {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func (a *API) withJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// Server builds the http.Server with the configured timeouts.
func (a *API) Server() *http.Server {
	return &http.Server{
		Addr:         a.cfg.ListenAddress,
		Handler:      a.Routes(),
		ReadTimeout:  time.Duration(a.cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(a.cfg.HTTPIdleTimeoutSec) * time.Second,
	}
}
