package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dibbed/ttskit/tts"
)

// synthRequest is the POST /api/v1/synth body.
type synthRequest struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Voice    string  `json:"voice,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
	Pitch    float64 `json:"pitch,omitempty"`

	// Optional capability requirements.
	Offline      *bool `json:"offline,omitempty"`
	SSML         *bool `json:"ssml,omitempty"`
	RateControl  *bool `json:"rate_control,omitempty"`
	PitchControl *bool `json:"pitch_control,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// engineInfo is one row of GET /api/v1/engines.
type engineInfo struct {
	Name         string           `json:"name"`
	Available    bool             `json:"available"`
	Capabilities tts.Capabilities `json:"capabilities"`
}

// statsResponse is the GET /api/v1/stats body.
type statsResponse struct {
	Engines   map[string]engineStatsJSON `json:"engines"`
	Aggregate aggregateJSON              `json:"aggregate"`
}

type engineStatsJSON struct {
	AvgDurationMS float64   `json:"avg_duration_ms"`
	MinDurationMS float64   `json:"min_duration_ms"`
	MaxDurationMS float64   `json:"max_duration_ms"`
	Successes     int64     `json:"successes"`
	Failures      int64     `json:"failures"`
	SuccessRate   float64   `json:"success_rate"`
	LastUsed      time.Time `json:"last_used,omitempty"`
}

type aggregateJSON struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	SuccessRate        float64 `json:"success_rate"`
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, tts.ErrEmptyText)
		return
	}

	opts := tts.DefaultSynthOptions()
	opts.Language = req.Language
	opts.Voice = req.Voice
	if req.Rate > 0 {
		opts.Rate = req.Rate
	}
	if req.Pitch != 0 {
		opts.Pitch = req.Pitch
	}

	var reqs *tts.Requirements
	if req.Offline != nil || req.SSML != nil || req.RateControl != nil ||
		req.PitchControl != nil || req.Voice != "" {
		reqs = &tts.Requirements{
			Offline:      req.Offline,
			SSML:         req.SSML,
			RateControl:  req.RateControl,
			PitchControl: req.PitchControl,
			Voice:        req.Voice,
			TextLength:   len(req.Text),
		}
	}

	result, err := s.service.Synthesize(r.Context(), req.Text, req.Language, reqs, opts)
	if err != nil {
		writeSynthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-TTSKit-Engine", result.Engine)
	w.Header().Set("X-TTSKit-Cached", strconv.FormatBool(result.Cached))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Audio)
}

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	available := make(map[string]bool)
	for _, name := range s.registry.AvailableEngines() {
		available[name] = true
	}

	summary := s.registry.CapabilitiesSummary()
	engines := make([]engineInfo, 0, len(summary))
	for _, name := range s.registry.Names() {
		engines = append(engines, engineInfo{
			Name:         name,
			Available:    available[name],
			Capabilities: summary[name],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"engines": engines})
}

func (s *Server) handleEngineStats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	stats, ok := s.registry.Stats(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("engine %q: %w", name, tts.ErrEngineNotRegistered))
		return
	}

	writeJSON(w, http.StatusOK, toStatsJSON(stats))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	router := s.service.Router()
	engineStats, aggregate := router.AllStats()

	resp := statsResponse{
		Engines: make(map[string]engineStatsJSON, len(engineStats)),
		Aggregate: aggregateJSON{
			TotalRequests:      aggregate.TotalRequests,
			SuccessfulRequests: aggregate.SuccessfulRequests,
			FailedRequests:     aggregate.FailedRequests,
			SuccessRate:        aggregate.SuccessRate,
		},
	}
	for name, stats := range engineStats {
		resp.Engines[name] = toStatsJSON(stats)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	s.service.Router().ResetStats()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	table := s.registry.Policies()
	policies := make(map[string][]string)
	for _, lang := range table.Languages() {
		policies[lang] = table.Get(lang)
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": policies})
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	lang := mux.Vars(r)["lang"]
	writeJSON(w, http.StatusOK, map[string]any{
		"language": lang,
		"engines":  s.registry.GetPolicy(lang),
	})
}

func (s *Server) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	lang := mux.Vars(r)["lang"]

	var body struct {
		Engines []string `json:"engines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	s.registry.SetPolicy(lang, body.Engines)
	writeJSON(w, http.StatusOK, map[string]any{
		"language": lang,
		"engines":  body.Engines,
	})
}

func (s *Server) handleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	lang := mux.Vars(r)["lang"]
	removed := s.registry.Policies().Delete(lang)
	writeJSON(w, http.StatusOK, map[string]any{
		"language": lang,
		"removed":  removed,
	})
}

// writeSynthError maps routing errors to HTTP statuses: no eligible engine
// is a client-side 404, exhausted fallbacks are an upstream 502.
func writeSynthError(w http.ResponseWriter, err error) {
	var notFound *tts.EngineNotFoundError
	var allFailed *tts.AllEnginesFailedError

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &allFailed):
		writeError(w, http.StatusBadGateway, err)
	case errors.Is(err, tts.ErrEmptyText), errors.Is(err, tts.ErrTextTooLong):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func toStatsJSON(stats tts.EngineStats) engineStatsJSON {
	return engineStatsJSON{
		AvgDurationMS: float64(stats.AvgDuration) / float64(time.Millisecond),
		MinDurationMS: float64(stats.MinDuration) / float64(time.Millisecond),
		MaxDurationMS: float64(stats.MaxDuration) / float64(time.Millisecond),
		Successes:     stats.Successes,
		Failures:      stats.Failures,
		SuccessRate:   stats.SuccessRate,
		LastUsed:      stats.LastUsed,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
