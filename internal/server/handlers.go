package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/martinbsolomon/philoca/internal/engine"
	"github.com/martinbsolomon/philoca/internal/export"
	"github.com/martinbsolomon/philoca/internal/model"
	"github.com/martinbsolomon/philoca/internal/store"
	"github.com/martinbsolomon/philoca/internal/table"
)

// fieldResponse is the payload for GET /api/field. The raw sample list is
// omitted; renderers fetch it from /api/samples when they draw point
// overlays.
type fieldResponse struct {
	SnapshotID string            `json:"snapshot_id"`
	Parameter  string            `json:"parameter"`
	Threshold  float64           `json:"threshold"`
	Bounds     model.BoundingBox `json:"bounds"`
	Field      model.Field       `json:"field"`
	Summary    model.Summary     `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.parameters)
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	req, snap, tbl, ok := s.decodeComputeRequest(w, r, true)
	if !ok {
		return
	}

	key := store.ResultKey{
		SnapshotID: snap.ID,
		Parameter:  req.Parameter,
		Resolution: req.Resolution,
		Threshold:  req.Threshold,
		Padding:    req.Padding,
	}
	if cached, err := s.store.GetCachedResult(r.Context(), key); err != nil {
		zap.L().Warn("result cache read failed", zap.Error(err))
	} else if cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	res, err := s.engine.Compute(r.Context(), tbl, req)
	if err != nil {
		writeComputeError(w, err)
		return
	}

	payload, err := json.Marshal(fieldResponse{
		SnapshotID: snap.ID,
		Parameter:  req.Parameter,
		Threshold:  req.Threshold,
		Bounds:     res.Bounds,
		Field:      res.Field,
		Summary:    res.Summary,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode response")
		return
	}

	if err := s.store.SetCachedResult(r.Context(), key, payload, s.cacheTTL); err != nil {
		zap.L().Warn("result cache write failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	req, _, tbl, ok := s.decodeComputeRequest(w, r, true)
	if !ok {
		return
	}

	ss, err := table.Validate(tbl, req.Parameter)
	if err != nil {
		writeComputeError(w, err)
		return
	}
	cls := engine.Classify(ss, req.Threshold)
	writeJSON(w, http.StatusOK, engine.Summarize(ss, &cls))
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	req, _, tbl, ok := s.decodeComputeRequest(w, r, true)
	if !ok {
		return
	}

	ss, err := table.Validate(tbl, req.Parameter)
	if err != nil {
		writeComputeError(w, err)
		return
	}

	data, err := export.SamplesGeoJSON(engine.Classify(ss, req.Threshold), req.Parameter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode samples")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHull(w http.ResponseWriter, r *http.Request) {
	req, _, tbl, ok := s.decodeComputeRequest(w, r, false)
	if !ok {
		return
	}

	ss, err := table.Validate(tbl, req.Parameter)
	if err != nil {
		writeComputeError(w, err)
		return
	}

	data, err := export.HullGeoJSON(ss)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode hull")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// decodeComputeRequest parses the shared query parameters, resolves the
// parameter's default threshold, and loads the latest snapshot. On failure
// it writes the error response and reports ok=false. needThreshold is false
// for endpoints whose output does not depend on the classification.
func (s *Server) decodeComputeRequest(w http.ResponseWriter, r *http.Request, needThreshold bool) (engine.Request, *model.Snapshot, *table.Table, bool) {
	var req engine.Request

	req.Parameter = r.URL.Query().Get("parameter")
	if req.Parameter == "" {
		writeError(w, http.StatusBadRequest, "parameter is required")
		return req, nil, nil, false
	}
	meta := s.parameterMeta(req.Parameter)
	if meta == nil {
		writeError(w, http.StatusNotFound, "unknown parameter "+req.Parameter)
		return req, nil, nil, false
	}

	req.Resolution = s.cfg.Engine.Resolution
	if raw := r.URL.Query().Get("resolution"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "resolution must be a positive integer")
			return req, nil, nil, false
		}
		req.Resolution = n
	}

	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			writeError(w, http.StatusBadRequest, "threshold must be a finite number")
			return req, nil, nil, false
		}
		req.Threshold = v
	} else if meta.DefaultThreshold != nil {
		req.Threshold = *meta.DefaultThreshold
	} else if needThreshold {
		writeError(w, http.StatusBadRequest, "threshold is required for "+req.Parameter)
		return req, nil, nil, false
	}

	req.Padding = s.cfg.Engine.Padding
	if raw := r.URL.Query().Get("padding"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "padding must be a non-negative number")
			return req, nil, nil, false
		}
		req.Padding = v
	}

	snap, rows, err := s.store.LatestSnapshot(r.Context())
	if err != nil {
		zap.L().Error("load latest snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load snapshot")
		return req, nil, nil, false
	}
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no data ingested yet")
		return req, nil, nil, false
	}

	return req, snap, table.New(snap.Columns, rows), true
}

func writeComputeError(w http.ResponseWriter, err error) {
	var insufficient *table.InsufficientDataError
	if errors.As(err, &insufficient) {
		writeError(w, http.StatusUnprocessableEntity,
			"not enough data points for parameter "+insufficient.Parameter)
		return
	}
	zap.L().Error("compute failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "computation failed")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}
