package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/stress"
)

const maxBodyBytes = 64 << 10

type sessionView struct {
	ID            string                `json:"id"`
	Phase         model.Phase           `json:"phase"`
	ReferenceText string                `json:"reference_text"`
	StartedAt     time.Time             `json:"started_at"`
	EndedAt       *time.Time            `json:"ended_at,omitempty"`
	Deadline      time.Time             `json:"deadline"`
	RemainingMs   int64                 `json:"remaining_ms"`
	FinalText     string                `json:"final_text"`
	Events        int                   `json:"events"`
	Corrections   int                   `json:"corrections"`
	Hesitations   int                   `json:"hesitations"`
	Reason        model.FinishReason    `json:"reason,omitempty"`
	Metrics       *model.SessionMetrics `json:"metrics,omitempty"`
	Score         *int                  `json:"score,omitempty"`
}

type inputRequest struct {
	Text string `json:"text"`
}

type inputResponse struct {
	Applied     bool  `json:"applied"`
	Corrections int   `json:"corrections"`
	Hesitations int   `json:"hesitations"`
	RemainingMs int64 `json:"remaining_ms"`
}

type finishRequest struct {
	Reason model.FinishReason `json:"reason"`
}

type finishResponse struct {
	Applied bool `json:"applied"`
	model.Result
	Guidance  stress.Guidance  `json:"guidance"`
	Breakdown stress.Breakdown `json:"breakdown"`
}

func (s *Server) handlePassage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"reference_text": s.passages()})
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	_, ctrl := s.startSession()
	writeJSON(w, http.StatusCreated, s.view(ctrl))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.view(ctrl))
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.registry.Remove(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	ctrl.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req inputRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	applied := ctrl.RecordInput(req.Text)
	corrections, hesitations := ctrl.Counters()
	writeJSON(w, http.StatusOK, inputResponse{
		Applied:     applied,
		Corrections: corrections,
		Hesitations: hesitations,
		RemainingMs: ctrl.Remaining().Milliseconds(),
	})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	req := finishRequest{Reason: model.ReasonManual}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Reason == "" {
		req.Reason = model.ReasonManual
	}
	if !req.Reason.Valid() {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown reason %q", req.Reason))
		return
	}
	res, applied := ctrl.Finish(req.Reason)
	if !applied {
		stored, ok := ctrl.Result()
		if !ok {
			writeJSON(w, http.StatusOK, finishResponse{Applied: false})
			return
		}
		res = stored
	}
	writeJSON(w, http.StatusOK, finishResponse{
		Applied:   applied,
		Result:    res,
		Guidance:  stress.GuidanceFor(res.Score),
		Breakdown: stress.Explain(res.Metrics),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	cfg, err := historyConfigFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.store.ListSessions(r.Context(), cfg)
	if err != nil {
		s.logger.Error("list history", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "list history failed")
		return
	}
	// Newest first.
	out := make([]model.SessionRecord, len(records))
	for i, rec := range records {
		out[len(records)-1-i] = rec
	}
	writeJSON(w, http.StatusOK, out)
}

func historyConfigFromQuery(r *http.Request) (model.HistoryConfig, error) {
	q := r.URL.Query()
	cfg := model.HistoryConfig{Source: q.Get("source")}
	if v := q.Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("invalid last %q", v)
		}
		cfg.Last = n
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			since, err = time.ParseInLocation("2006-01-02", v, time.Local)
		}
		if err != nil {
			return cfg, fmt.Errorf("invalid since %q", v)
		}
		cfg.Since = &since
	}
	return cfg, nil
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*stress.Controller, bool) {
	ctrl, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		writeJSONError(w, status, err.Error())
		return nil, false
	}
	return ctrl, true
}

func (s *Server) view(ctrl *stress.Controller) sessionView {
	snap := ctrl.Snapshot()
	corrections, hesitations := ctrl.Counters()
	return sessionView{
		ID:            snap.ID,
		Phase:         snap.Phase,
		ReferenceText: snap.ReferenceText,
		StartedAt:     snap.StartedAt,
		EndedAt:       snap.EndedAt,
		Deadline:      ctrl.Deadline(),
		RemainingMs:   ctrl.Remaining().Milliseconds(),
		FinalText:     snap.FinalText,
		Events:        len(snap.Events),
		Corrections:   corrections,
		Hesitations:   hesitations,
		Reason:        snap.Reason,
		Metrics:       snap.Metrics,
		Score:         snap.Score,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
