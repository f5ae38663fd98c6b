package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"windshare/internal/apperrors"
	"windshare/internal/audit"
	"windshare/internal/auth"
	"windshare/internal/observability/metrics"
	settlementapp "windshare/internal/settlement/application"
	settlement "windshare/internal/settlement/domain"
)

// SettlementHandler handles settlement APIs.
type SettlementHandler struct {
	service     *settlementapp.SettlementService
	emitter     *settlementapp.InvoiceEmitter
	parkChecker auth.ParkTenantChecker
	auditLogger audit.Logger
}

// NewSettlementHandler constructs a handler.
func NewSettlementHandler(service *settlementapp.SettlementService, emitter *settlementapp.InvoiceEmitter, parkChecker auth.ParkTenantChecker, auditLogger audit.Logger) (*SettlementHandler, error) {
	if service == nil || emitter == nil {
		return nil, errors.New("settlement handler: nil service")
	}
	return &SettlementHandler{service: service, emitter: emitter, parkChecker: parkChecker, auditLogger: auditLogger}, nil
}

// ServeHTTP handles settlement routes under /api/v1/settlements.
func (h *SettlementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/settlements" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
			return
		case http.MethodGet:
			h.handleList(w, r)
			return
		}
	}
	if strings.HasPrefix(path, "/api/v1/settlements/") {
		rest := strings.TrimPrefix(path, "/api/v1/settlements/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *SettlementHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
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
	if len(parts) == 2 {
		switch parts[1] {
		case "calculate":
			if r.Method == http.MethodPost {
				h.handleCalculate(w, r, id)
				return
			}
		case "invoice":
			if r.Method == http.MethodPost {
				h.handleEmit(w, r, id)
				return
			}
		case "export.xlsx":
			if r.Method == http.MethodGet {
				h.handleExportXLSX(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *SettlementHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req settlementapp.SettlementInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if err := ensureParkTenant(r, h.parkChecker, tenantID, req.ParkID); err != nil {
		respondTenantError(w, err)
		return
	}

	es, items, err := h.service.Create(r.Context(), tenantID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, settlementResponse(es, items))
	h.logAudit(r, es.ParkID, es.ID, "settlement.create", map[string]any{
		"year":  es.Year,
		"month": es.Month,
	})
}

func (h *SettlementHandler) handleList(w http.ResponseWriter, r *http.Request) {
	parkID := r.URL.Query().Get("park_id")
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	tenantID := auth.TenantIDFromContext(r.Context())
	if err := ensureParkTenant(r, h.parkChecker, tenantID, parkID); err != nil {
		respondTenantError(w, err)
		return
	}

	list, err := h.service.ListByPark(r.Context(), tenantID, parkID, year)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []settlement.EnergySettlement{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SettlementHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	es, items, err := h.service.Get(r.Context(), auth.TenantIDFromContext(r.Context()), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse(es, items))
}

func (h *SettlementHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req settlementapp.SettlementInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if err := ensureParkTenant(r, h.parkChecker, tenantID, req.ParkID); err != nil {
		respondTenantError(w, err)
		return
	}

	es, items, err := h.service.Update(r.Context(), tenantID, id, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse(es, items))
	h.logAudit(r, es.ParkID, es.ID, "settlement.update", map[string]any{
		"status": es.Status,
	})
}

func (h *SettlementHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if err := h.service.Delete(r.Context(), tenantID, id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, "", id, "settlement.delete", nil)
}

func (h *SettlementHandler) handleCalculate(w http.ResponseWriter, r *http.Request, id string) {
	tenantID := auth.TenantIDFromContext(r.Context())
	es, items, err := h.service.Calculate(r.Context(), tenantID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse(es, items))
	h.logAudit(r, es.ParkID, es.ID, "settlement.calculate", map[string]any{
		"distribution_mode": es.DistributionMode,
	})
}

func (h *SettlementHandler) handleEmit(w http.ResponseWriter, r *http.Request, id string) {
	tenantID := auth.TenantIDFromContext(r.Context())
	result, err := h.emitter.Emit(r.Context(), tenantID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
	h.logAudit(r, "", id, "settlement.invoice", map[string]any{
		"invoice_count":   result.Summary.InvoiceCount,
		"total_gross_eur": result.Summary.TotalGrossEUR,
	})
}

func (h *SettlementHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("xlsx", result, time.Since(start))
	}()

	es, items, err := h.service.Get(r.Context(), auth.TenantIDFromContext(r.Context()), id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildSettlementXLSX(es, items)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, es.ParkID, es.ID, "settlement.export", map[string]any{"format": "xlsx"})
}

func settlementResponse(es *settlement.EnergySettlement, items []settlement.EnergySettlementItem) any {
	if items == nil {
		items = []settlement.EnergySettlementItem{}
	}
	return struct {
		Settlement *settlement.EnergySettlement      `json:"settlement"`
		Items      []settlement.EnergySettlementItem `json:"items"`
	}{Settlement: es, Items: items}
}

func (h *SettlementHandler) logAudit(r *http.Request, parkID, settlementID, action string, meta map[string]any) {
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
		ResourceType: "settlement",
		ResourceID:   settlementID,
		ParkID:       parkID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func ensureParkTenant(r *http.Request, checker auth.ParkTenantChecker, tenantID, parkID string) error {
	if checker == nil || tenantID == "" || parkID == "" {
		return nil
	}
	return checker.EnsureParkTenant(r.Context(), tenantID, parkID)
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

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, auth.ErrTenantMismatch) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	http.Error(w, err.Error(), apperrors.HTTPStatus(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
