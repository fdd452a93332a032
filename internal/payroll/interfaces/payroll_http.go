package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"opsledger/internal/audit"
	"opsledger/internal/auth"
	"opsledger/internal/observability/metrics"
	"opsledger/internal/payroll/application"
	payroll "opsledger/internal/payroll/domain"
)

// PayrollHandler handles payroll APIs.
type PayrollHandler struct {
	service     *application.PayrollService
	auditLogger audit.Logger
}

// NewPayrollHandler constructs a handler.
func NewPayrollHandler(service *application.PayrollService, auditLogger audit.Logger) (*PayrollHandler, error) {
	if service == nil {
		return nil, errors.New("payroll handler: nil service")
	}
	return &PayrollHandler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP handles payroll routes under /api/v1/payroll.
func (h *PayrollHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/payroll/run" && r.Method == http.MethodPost {
		h.handleRun(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/payroll/") && strings.HasSuffix(path, "/export.xlsx") && r.Method == http.MethodGet {
		h.handleExportXLSX(w, r)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *PayrollHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	period, err := payroll.NewPeriod(req.Year, time.Month(req.Month))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch, err := h.service.Run(r.Context(), period)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(batch))
	h.logAudit(r, period, "payroll.run", map[string]any{
		"employees": batch.Totals.Count,
		"total_net": batch.Totals.Net.StringFixed(),
	})
}

// handleExportXLSX serves /api/v1/payroll/{YYYY-MM}/export.xlsx.
// The batch is recomputed for the requested period; runs are pure, so
// the export matches what a run would return.
func (h *PayrollHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePayrollExport("xlsx", result, time.Since(start))
	}()

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/payroll/")
	periodRaw := strings.TrimSuffix(rest, "/export.xlsx")
	period, err := parsePeriod(periodRaw)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch, err := h.service.Run(r.Context(), period)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := BuildPayrollXLSX(batch)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+payrollFileName(batch))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, period, "payroll.export", map[string]any{"format": "xlsx"})
}

func parsePeriod(raw string) (payroll.Period, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return payroll.Period{}, fmt.Errorf("payroll: period must be YYYY-MM")
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return payroll.Period{}, fmt.Errorf("payroll: invalid year %q", parts[0])
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return payroll.Period{}, fmt.Errorf("payroll: invalid month %q", parts[1])
	}
	return payroll.NewPeriod(year, time.Month(month))
}

func (h *PayrollHandler) logAudit(r *http.Request, period payroll.Period, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "payroll_batch",
		ResourceID:   period.String(),
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
