package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"windshare/internal/apperrors"
	"windshare/internal/audit"
	"windshare/internal/auth"
	periodapp "windshare/internal/period/application"
	period "windshare/internal/period/domain"
)

// PeriodHandler handles settlement-period APIs.
type PeriodHandler struct {
	service     *periodapp.PeriodService
	parkChecker auth.ParkTenantChecker
	auditLogger audit.Logger
}

// NewPeriodHandler constructs a handler.
func NewPeriodHandler(service *periodapp.PeriodService, parkChecker auth.ParkTenantChecker, auditLogger audit.Logger) (*PeriodHandler, error) {
	if service == nil {
		return nil, errors.New("period handler: nil service")
	}
	return &PeriodHandler{service: service, parkChecker: parkChecker, auditLogger: auditLogger}, nil
}

// ServeHTTP handles period routes under /api/v1/periods.
func (h *PeriodHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/periods" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
			return
		case http.MethodGet:
			h.handleList(w, r)
			return
		}
	}
	if path == "/api/v1/periods/bulk" && r.Method == http.MethodPost {
		h.handleBulkCreate(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/periods/") {
		rest := strings.TrimPrefix(path, "/api/v1/periods/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *PeriodHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
			return
		case http.MethodPut, http.MethodPatch:
			h.handleUpdate(w, r, id)
			return
		case http.MethodDelete:
			h.handleDelete(w, r, id)
			return
		}
	}
	if len(parts) == 2 && parts[1] == "transition" && r.Method == http.MethodPost {
		h.handleTransition(w, r, id)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *PeriodHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req periodapp.PeriodInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if err := h.ensurePark(r, tenantID, req.ParkID); err != nil {
		respondTenantError(w, err)
		return
	}

	p, err := h.service.Create(r.Context(), tenantID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
	h.logAudit(r, p, "period.create", map[string]any{
		"period_type": p.PeriodType,
		"label":       p.Label(),
	})
}

func (h *PeriodHandler) handleBulkCreate(w http.ResponseWriter, r *http.Request) {
	var req periodapp.BulkInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if err := h.ensurePark(r, tenantID, req.ParkID); err != nil {
		respondTenantError(w, err)
		return
	}

	created, err := h.service.BulkCreate(r.Context(), tenantID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"created": created,
		"count":   len(created),
	})
	if len(created) > 0 {
		h.logAudit(r, &created[0], "period.bulk_create", map[string]any{
			"frequency":     req.Frequency,
			"include_final": req.IncludeFinal,
			"count":         len(created),
		})
	}
}

func (h *PeriodHandler) handleList(w http.ResponseWriter, r *http.Request) {
	parkID := r.URL.Query().Get("park_id")
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	tenantID := auth.TenantIDFromContext(r.Context())
	if err := h.ensurePark(r, tenantID, parkID); err != nil {
		respondTenantError(w, err)
		return
	}

	list, err := h.service.ListByPark(r.Context(), tenantID, parkID, year)
	if err != nil {
		respondError(w, err)
		return
	}
	if list == nil {
		list = []period.SettlementPeriod{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PeriodHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.service.Get(r.Context(), auth.TenantIDFromContext(r.Context()), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PeriodHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req periodapp.PeriodInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	p, err := h.service.UpdateTotals(r.Context(), auth.TenantIDFromContext(r.Context()), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
	h.logAudit(r, p, "period.update", nil)
}

func (h *PeriodHandler) handleTransition(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		To    string `json:"to"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	p, err := h.service.Transition(ctx, auth.TenantIDFromContext(ctx), id, req.To, auth.SubjectFromContext(ctx), req.Notes)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
	h.logAudit(r, p, "period.transition", map[string]any{
		"to": req.To,
	})
}

func (h *PeriodHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), auth.TenantIDFromContext(r.Context()), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, &period.SettlementPeriod{ID: id}, "period.delete", nil)
}

func (h *PeriodHandler) ensurePark(r *http.Request, tenantID, parkID string) error {
	if h.parkChecker == nil || tenantID == "" || parkID == "" {
		return nil
	}
	return h.parkChecker.EnsureParkTenant(r.Context(), tenantID, parkID)
}

func (h *PeriodHandler) logAudit(r *http.Request, p *period.SettlementPeriod, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "period",
		ResourceID:   p.ID,
		ParkID:       p.ParkID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func respondTenantError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, auth.ErrTenantMismatch) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if errors.Is(err, auth.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "tenant check failed", http.StatusInternalServerError)
}

func respondError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	http.Error(w, err.Error(), apperrors.HTTPStatus(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
