package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/config/weights"
	"github.com/sawpanic/mmvalue/internal/domain/valuation"
	"github.com/sawpanic/mmvalue/internal/microstructure"
	"github.com/sawpanic/mmvalue/internal/validation"
	"github.com/sawpanic/mmvalue/internal/valuation/composite"
	"github.com/sawpanic/mmvalue/internal/valuation/distribution"
	"github.com/sawpanic/mmvalue/internal/valuation/service"
)

const maxBodyBytes = 1 << 20

// compositeKey is the canonical cache key of a composite request
type compositeKey struct {
	Parameters   valuation.MarketParameters `json:"parameters"`
	Distribution distribution.Spec          `json:"distribution"`
	Options      composite.Options          `json:"options"`
}

func (s *Server) handleComposite(w http.ResponseWriter, r *http.Request) {
	var req CompositeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Parameters.Validate(); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	opts, err := s.compositeOptions(req)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "unknown_preset", err.Error())
		return
	}
	spec := distribution.DefaultSpec()
	if req.Distribution != nil {
		spec = *req.Distribution
	}

	var result valuation.CompositeResult
	key := compositeKey{Parameters: req.Parameters, Distribution: spec, Options: opts}
	cached, err := s.memoize(r.Context(), "composite", key, &result, func() (interface{}, error) {
		dist, err := distribution.Generate(spec)
		if err != nil {
			return nil, err
		}
		return s.deps.Valuator.Valuate(req.Parameters, dist, opts)
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	p := req.Parameters
	s.writeJSON(w, http.StatusOK, CompositeResponse{
		Result:           &result,
		PctOfDailyVolume: result.PercentOfDailyVolume(),
		Validation:       s.validator(req.Market).ValidateMarketMaker(p.DailyVolume0, p.AssetPrice, p.Volatility, p.DailyVolumeMM),
		Cached:           cached,
	})
}

// compositeOptions maps a preset name or explicit weights onto valuation options.
// The built-in presets keep their labels unless a weights file redefined them.
func (s *Server) compositeOptions(req CompositeRequest) (composite.Options, error) {
	if req.Weights != nil {
		return composite.Options{Weights: req.Weights}, nil
	}

	name := req.Preset
	if name == "" {
		name = weights.PresetCrypto
	}
	w, err := s.deps.Weights.Get(name)
	if err != nil {
		return composite.Options{}, err
	}

	switch w {
	case weights.Crypto():
		return composite.Options{UseCryptoWeights: true}, nil
	case weights.Traditional():
		return composite.Options{UseCryptoWeights: false}, nil
	}
	return composite.Options{Weights: &w}, nil
}

func (s *Server) handleEffectiveDepth(w http.ResponseWriter, r *http.Request) {
	var req EffectiveDepthRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := microstructure.TierWidthBps[req.Tier]; !ok {
		s.writeError(w, r, http.StatusBadRequest, "unknown_tier",
			fmt.Sprintf("tier must be one of %s", strings.Join(tuning.Tiers, ", ")))
		return
	}

	cascade := true
	if req.IncludeCascade != nil {
		cascade = *req.IncludeCascade
	}

	result, err := s.deps.Depth.CalculateCryptoEffectiveDepth(req.Depth, req.Tier, req.SpreadBps, req.Volatility, req.Exchange, cascade)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEntityDepth(w http.ResponseWriter, r *http.Request) {
	var req EntityDepthRequest
	if !s.decode(w, r, &req) {
		return
	}

	var resp EntityDepthResponse
	cached, err := s.memoize(r.Context(), "depth", req, &resp, func() (interface{}, error) {
		if req.Compare {
			cmp, err := s.deps.Depth.CompareWithSimpleMethod(req.Depth50, req.Depth100, req.Depth200, req.SpreadBps, req.Volatility, req.Exchange)
			if err != nil {
				return nil, err
			}
			return EntityDepthResponse{Entity: cmp.Entity, Comparison: cmp}, nil
		}
		entity, err := s.deps.Depth.CalculateEntityEffectiveDepth(req.Depth50, req.Depth100, req.Depth200, req.SpreadBps, req.Volatility, req.Exchange)
		if err != nil {
			return nil, err
		}
		return EntityDepthResponse{Entity: entity}, nil
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if !cached && resp.Entity.TotalRawDepth > 0 {
		s.deps.Metrics.RecordDepthEfficiency(resp.Entity.Exchange, resp.Entity.OverallEfficiency)
	}
	resp.Cached = cached
	resp.Validation = s.validator(string(validation.MarketCrypto)).
		ValidateDepth(req.SpreadBps, req.Depth50, req.Depth100, req.Depth200, req.AssetPrice, req.Exchange)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDepthSnapshot(w http.ResponseWriter, r *http.Request) {
	var req DepthSnapshotRequest
	if !s.decode(w, r, &req) {
		return
	}

	volatility := service.DefaultDepthVolatility
	if req.Volatility != nil {
		volatility = *req.Volatility
	}

	eval, err := s.deps.Depth.EvaluateSnapshot(&req.Book, volatility)
	if err != nil {
		if errors.Is(err, valuation.ErrInvalidInput) {
			s.writeDomainError(w, r, err)
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "invalid_book", err.Error())
		return
	}

	if eval.Entity.TotalRawDepth > 0 {
		s.deps.Metrics.RecordDepthEfficiency(eval.Entity.Exchange, eval.Entity.OverallEfficiency)
	}
	s.writeJSON(w, http.StatusOK, eval)
}

func (s *Server) handleResetSpread(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.deps.Depth.ResetSpreadHistory(vars["venue"], vars["symbol"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["preset"]
	ws, err := s.deps.Weights.Get(name)
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, "unknown_preset", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, WeightsResponse{
		Preset:  strings.ToLower(name),
		Weights: ws,
		Sum:     ws.Sum(),
		Presets: s.deps.Weights.Names(),
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Quotes) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "invalid_input", "at least one depth quote is required")
		return
	}

	var pricer service.OptionPricer
	if req.OptionValues != nil {
		pricer = staticPricer(req.OptionValues)
	}

	analysis, err := s.deps.Analysis.Analyze(r.Context(), req.Quotes, req.Market, pricer)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

// staticPricer serves option values priced by the caller
type staticPricer map[string]float64

func (p staticPricer) EntityOptionValue(_ context.Context, entity string) (float64, error) {
	v, ok := p[entity]
	if !ok {
		return 0, fmt.Errorf("no option value for %s", entity)
	}
	return v, nil
}

func (s *Server) validator(market string) *validation.Validator {
	return validation.NewValidator(validation.MarketType(strings.ToLower(market)), s.deps.Bounds)
}

// memoize runs compute through the result cache when one is configured
func (s *Server) memoize(ctx context.Context, kind string, req, out interface{}, compute func() (interface{}, error)) (bool, error) {
	if s.deps.Memo != nil {
		return s.deps.Memo.Do(ctx, kind, req, out, compute)
	}
	v, err := compute()
	if err != nil {
		return false, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return false, json.Unmarshal(b, out)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// writeJSON writes JSON response with proper error handling
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}

// writeDomainError maps engine errors onto HTTP statuses
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, valuation.ErrInvalidInput),
		errors.Is(err, valuation.ErrNonFinite),
		errors.Is(err, valuation.ErrInvalidWeights),
		errors.Is(err, valuation.ErrLengthMismatch),
		errors.Is(err, valuation.ErrUnknownDistribution):
		s.writeError(w, r, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, "timeout", "Request timed out")
	case errors.Is(err, context.Canceled):
		s.writeError(w, r, http.StatusServiceUnavailable, "canceled", "Request canceled")
	default:
		log.Error().Err(err).Str("request_id", requestID(r)).Msg("Request failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "Internal error")
	}
}
