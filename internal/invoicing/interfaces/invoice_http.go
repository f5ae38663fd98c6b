package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"windshare/internal/apperrors"
	"windshare/internal/audit"
	"windshare/internal/auth"
	invoicing "windshare/internal/invoicing/domain"
	invoicingrepo "windshare/internal/invoicing/infrastructure/postgres"
	"windshare/internal/observability/metrics"
)

// InvoiceHandler handles read and export APIs for emitted credit notes.
type InvoiceHandler struct {
	repo        *invoicingrepo.InvoiceRepository
	auditLogger audit.Logger
}

// NewInvoiceHandler constructs a handler.
func NewInvoiceHandler(repo *invoicingrepo.InvoiceRepository, auditLogger audit.Logger) (*InvoiceHandler, error) {
	if repo == nil {
		return nil, errors.New("invoice handler: nil repo")
	}
	return &InvoiceHandler{repo: repo, auditLogger: auditLogger}, nil
}

// ServeHTTP handles invoice routes under /api/v1/invoices.
func (h *InvoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if !strings.HasPrefix(path, "/api/v1/invoices/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	rest := strings.TrimPrefix(path, "/api/v1/invoices/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 && parts[1] == "export.pdf" && r.Method == http.MethodGet {
		h.handleExportPDF(w, r, id)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *InvoiceHandler) load(r *http.Request, id string) (*invoicing.Invoice, []invoicing.Line, error) {
	inv, lines, err := h.repo.Get(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return nil, nil, apperrors.Forbidden("missing tenant")
	}
	if inv == nil || inv.TenantID != tenantID {
		return nil, nil, apperrors.NotFound("invoice")
	}
	return inv, lines, nil
}

func (h *InvoiceHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	inv, lines, err := h.load(r, id)
	if err != nil {
		http.Error(w, err.Error(), apperrors.HTTPStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Invoice *invoicing.Invoice `json:"invoice"`
		Lines   []invoicing.Line   `json:"lines"`
	}{Invoice: inv, Lines: lines})
}

func (h *InvoiceHandler) handleExportPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("pdf", result, time.Since(start))
	}()

	inv, lines, err := h.load(r, id)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), apperrors.HTTPStatus(err))
		return
	}
	data, err := BuildInvoicePDF(inv, lines)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, inv, "invoice.export", map[string]any{"format": "pdf"})
}

func (h *InvoiceHandler) logAudit(r *http.Request, inv *invoicing.Invoice, action string, meta map[string]any) {
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
		ResourceType: "invoice",
		ResourceID:   inv.ID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
