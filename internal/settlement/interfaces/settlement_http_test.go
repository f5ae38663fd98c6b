package interfaces_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"windshare/internal/auth"
	"windshare/internal/settlement/allocation"
	settlementapp "windshare/internal/settlement/application"
	settlement "windshare/internal/settlement/domain"
	"windshare/internal/settlement/infrastructure/memory"
	"windshare/internal/settlement/interfaces"
)

type stubDirectory struct{}

func (stubDirectory) ParkName(ctx context.Context, tenantID, parkID string) (string, error) {
	return "Windpark Nord", nil
}

func (stubDirectory) TurbineName(ctx context.Context, tenantID, turbineID string) (string, error) {
	return "WEA " + turbineID, nil
}

func (stubDirectory) FundNames(ctx context.Context, tenantID string, fundIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(fundIDs))
	for _, id := range fundIDs {
		names[id] = "Fonds " + id
	}
	return names, nil
}

func newHandler(t *testing.T) *interfaces.SettlementHandler {
	t.Helper()
	repo := memory.NewSettlementRepository()
	service, err := settlementapp.NewSettlementService(repo)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	store := memory.NewEmitStore(repo, "GS")
	emitter, err := settlementapp.NewInvoiceEmitter(repo, allocation.NewAllocator(nil, nil),
		stubDirectory{}, store, 14, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("emitter: %v", err)
	}
	handler, err := interfaces.NewSettlementHandler(service, emitter, nil, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return handler
}

func doRequest(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(auth.WithIdentity(req.Context(), "tenant-a", auth.RoleOperator, "op-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const createBody = `{
	"park_id": "park-1",
	"year": 2026,
	"month": 3,
	"net_operator_revenue_eur": "100000.00",
	"total_production_kwh": "500000",
	"items": [
		{"fund_id": "fund-1", "production_share_kwh": "300000"},
		{"fund_id": "fund-2", "production_share_kwh": "200000"}
	]
}`

func createSettlement(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := doRequest(handler, http.MethodPost, "/api/v1/settlements", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Settlement settlement.EnergySettlement `json:"settlement"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if resp.Settlement.Status != settlement.StatusDraft {
		t.Fatalf("status = %s, want DRAFT", resp.Settlement.Status)
	}
	return resp.Settlement.ID
}

func TestSettlementLifecycleOverHTTP(t *testing.T) {
	handler := newHandler(t)
	id := createSettlement(t, handler)

	rec := doRequest(handler, http.MethodPost, "/api/v1/settlements/"+id+"/calculate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate status = %d, body %s", rec.Code, rec.Body.String())
	}
	var calcResp struct {
		Settlement settlement.EnergySettlement       `json:"settlement"`
		Items      []settlement.EnergySettlementItem `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &calcResp); err != nil {
		t.Fatalf("decode calculate response: %v", err)
	}
	if calcResp.Settlement.Status != settlement.StatusCalculated {
		t.Fatalf("status = %s, want CALCULATED", calcResp.Settlement.Status)
	}
	if len(calcResp.Items) != 2 {
		t.Fatalf("item count = %d", len(calcResp.Items))
	}

	rec = doRequest(handler, http.MethodPost, "/api/v1/settlements/"+id+"/invoice", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("invoice status = %d, body %s", rec.Code, rec.Body.String())
	}
	var emitResp struct {
		Summary struct {
			InvoiceCount int `json:"invoice_count"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &emitResp); err != nil {
		t.Fatalf("decode invoice response: %v", err)
	}
	if emitResp.Summary.InvoiceCount != 2 {
		t.Fatalf("invoice count = %d, want 2", emitResp.Summary.InvoiceCount)
	}

	rec = doRequest(handler, http.MethodPatch, "/api/v1/settlements/"+id, createBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("update after invoicing status = %d, want 409", rec.Code)
	}

	rec = doRequest(handler, http.MethodGet, "/api/v1/settlements/"+id+"/export.xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("export content type = %q", got)
	}
}

func TestGetUnknownSettlementIs404(t *testing.T) {
	handler := newHandler(t)
	rec := doRequest(handler, http.MethodGet, "/api/v1/settlements/es-missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	handler := newHandler(t)

	rec := doRequest(handler, http.MethodPost, "/api/v1/settlements", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d, want 400", rec.Code)
	}

	rec = doRequest(handler, http.MethodPost, "/api/v1/settlements", `{"year": 2026}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing park status = %d, want 400", rec.Code)
	}
}

func TestListScopesToParkAndYear(t *testing.T) {
	handler := newHandler(t)
	createSettlement(t, handler)

	rec := doRequest(handler, http.MethodGet, "/api/v1/settlements?park_id=park-1&year=2026", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []settlement.EnergySettlement
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}

	rec = doRequest(handler, http.MethodGet, "/api/v1/settlements?park_id=park-1&year=2030", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode empty list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list length = %d, want 0", len(list))
	}
}
