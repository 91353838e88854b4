// Package model exposes the financial model engine and the model store over
// HTTP.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/knowledge"
	"smme_finmodel/pkg/core/pipeline"
	"smme_finmodel/pkg/core/report"
	"smme_finmodel/pkg/core/store"
)

// UserHeader carries the authenticated owner id, set by the auth proxy.
const UserHeader = "X-User-ID"

const maxBody = 4 << 20

// Handler holds dependencies for the model endpoints.
type Handler struct {
	orch         *pipeline.Orchestrator
	validate     *validator.Validate
	log          *zap.Logger
	discountRate float64
}

// NewHandler creates a handler. discountRate feeds the scenario report.
func NewHandler(orch *pipeline.Orchestrator, discountRate float64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{orch: orch, validate: newValidator(), log: log.Named("api"), discountRate: discountRate}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/model/validate", h.HandleValidate)
	mux.HandleFunc("POST /api/model/generate", h.HandleGenerate)
	mux.HandleFunc("POST /api/model/scenarios", h.HandleScenarios)
	mux.HandleFunc("POST /api/model/sensitivity", h.HandleSensitivity)
	mux.HandleFunc("POST /api/model/report", h.HandleReport)
	mux.HandleFunc("GET /api/model/rules", h.HandleRules)
	mux.HandleFunc("POST /api/models", h.HandleSave)
	mux.HandleFunc("GET /api/models", h.HandleList)
	mux.HandleFunc("GET /api/models/{id}", h.HandleLoad)
	mux.HandleFunc("DELETE /api/models/{id}", h.HandleDelete)
}

// WithCORS adds the CORS headers the local UI needs and answers preflights.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+UserHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// ENGINE ENDPOINTS
// =============================================================================

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	state, ok := h.decodeModel(w, r, &req, func() json.RawMessage { return req.Model })
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: h.orch.Validate(state)})
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	state, ok := h.decodeModel(w, r, &req, func() json.RawMessage { return req.Model })
	if !ok {
		return
	}
	run, err := h.orch.Generate(r.Context(), state)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: run})
}

func (h *Handler) HandleScenarios(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	state, ok := h.decodeModel(w, r, &req, func() json.RawMessage { return req.Model })
	if !ok {
		return
	}
	outcomes, err := h.orch.Scenarios(r.Context(), state)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: outcomes})
}

func (h *Handler) HandleSensitivity(w http.ResponseWriter, r *http.Request) {
	var req SensitivityRequest
	state, ok := h.decodeModel(w, r, &req, func() json.RawMessage { return req.Model })
	if !ok {
		return
	}
	grid, err := h.orch.Sensitivity(r.Context(), state, req.Sensitivity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: grid})
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	state, ok := h.decodeModel(w, r, &req, func() json.RawMessage { return req.Model })
	if !ok {
		return
	}
	run, err := h.orch.Generate(r.Context(), state)
	if err != nil {
		h.writeError(w, err)
		return
	}
	md := report.Markdown(report.Input{Result: run.Result, Findings: run.Findings, Warnings: run.Report.Warnings(), Summary: &run.Summary})
	if req.Scenarios {
		outcomes, err := h.orch.Scenarios(r.Context(), state)
		if err != nil {
			h.writeError(w, err)
			return
		}
		md += "\n" + report.ScenarioMarkdown(outcomes, h.discountRate)
		if state.Sensitivity != nil {
			grid, err := h.orch.Sensitivity(r.Context(), state, nil)
			if err != nil {
				h.writeError(w, err)
				return
			}
			md += "\n" + report.SensitivityMarkdown(grid)
		}
	}
	if req.Format == "html" {
		body, err := report.HTML(md)
		if err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, report.Page(state.Name, body))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, md)
}

// HandleRules lists the checked identities and the diagnostic table.
func (h *Handler) HandleRules(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"rules":      knowledge.Rules(),
		"imbalances": knowledge.CommonImbalances(),
	}})
}

// =============================================================================
// MODEL STORE ENDPOINTS
// =============================================================================

func (h *Handler) repo(w http.ResponseWriter) (store.ModelStore, bool) {
	repo := h.orch.Repository()
	if repo == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse("store_unavailable", "No model store configured", nil))
		return nil, false
	}
	return repo, true
}

func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repo(w)
	if !ok {
		return
	}
	var req SaveRequest
	state, ok := h.decodeModel(w, r, &req, func() json.RawMessage { return req.Model })
	if !ok {
		return
	}
	sum, err := repo.Save(r.Context(), userID(r), state, req.ExpectedVersion)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: sum})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repo(w)
	if !ok {
		return
	}
	list, err := repo.List(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: list})
}

func (h *Handler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repo(w)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	m, err := repo.Load(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: m})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.repo(w)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := repo.Delete(r.Context(), userID(r), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserHeader))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := h.validate.Var(id, "required,uuid"); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid_id", "Model id must be a UUID",
			[]ValidationDetail{{Field: "id", Message: "Invalid UUID format"}}))
		return "", false
	}
	return id, true
}

// decodeModel reads and validates the request DTO, then parses its model
// document.
func (h *Handler) decodeModel(w http.ResponseWriter, r *http.Request, req interface{}, raw func() json.RawMessage) (*assumption.ModelState, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid_json", "Invalid request body: "+err.Error(), nil))
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("validation_failed", "Request validation failed", validationDetails(err)))
		return nil, false
	}
	state, err := assumption.FromJSON(raw())
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid_model", err.Error(), nil))
		return nil, false
	}
	return state, true
}

func errorResponse(code, message string, details []ValidationDetail) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message, Details: details}}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var invalid *pipeline.InvalidModelError
	switch {
	case errors.As(err, &invalid):
		h.writeJSON(w, http.StatusUnprocessableEntity, Response{
			Data:  invalid.Report,
			Error: &ErrorInfo{Code: "invalid_model", Message: err.Error()},
		})
	case errors.Is(err, pipeline.ErrNoSweep):
		h.writeJSON(w, http.StatusBadRequest, errorResponse("no_sweep", "Provide a sensitivity sweep or define one on the model", nil))
	case errors.Is(err, store.ErrNotAuthenticated):
		h.writeJSON(w, http.StatusUnauthorized, errorResponse("not_authenticated", "Missing "+UserHeader+" header", nil))
	case errors.Is(err, store.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse("not_found", "Model not found", nil))
	case errors.Is(err, store.ErrVersionConflict):
		h.writeJSON(w, http.StatusConflict, errorResponse("version_conflict", err.Error(), nil))
	case errors.Is(err, store.ErrInvalidID):
		h.writeJSON(w, http.StatusBadRequest, errorResponse("invalid_id", "Model id must be a UUID",
			[]ValidationDetail{{Field: "model.id", Message: "Invalid UUID format"}}))
	default:
		h.log.Error("request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse("internal", "Internal error", nil))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("write response", zap.Error(err))
	}
}
