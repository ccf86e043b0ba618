package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"delivery-settlement/internal/audit"
	"delivery-settlement/internal/auth"
	"delivery-settlement/internal/observability/metrics"
	partner "delivery-settlement/internal/partner/domain"
	"delivery-settlement/internal/settlement/application"
	settlement "delivery-settlement/internal/settlement/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PartnerLookup loads partners for summaries.
type PartnerLookup interface {
	Get(ctx context.Context, id int64) (*partner.Partner, error)
}

// SettlementHandler serves the settlement API.
type SettlementHandler struct {
	service     *application.SettlementService
	aggregator  *application.Aggregator
	partners    PartnerLookup
	resetter    application.DailyResetter
	auditLogger audit.Logger
	logger      logrus.FieldLogger
}

// NewSettlementHandler constructs a handler.
func NewSettlementHandler(
	service *application.SettlementService,
	aggregator *application.Aggregator,
	partners PartnerLookup,
	resetter application.DailyResetter,
	auditLogger audit.Logger,
	logger logrus.FieldLogger,
) (*SettlementHandler, error) {
	if service == nil {
		return nil, errors.New("settlement handler: nil service")
	}
	if aggregator == nil {
		return nil, errors.New("settlement handler: nil aggregator")
	}
	if partners == nil {
		return nil, errors.New("settlement handler: nil partner lookup")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SettlementHandler{
		service:     service,
		aggregator:  aggregator,
		partners:    partners,
		resetter:    resetter,
		auditLogger: auditLogger,
		logger:      logger,
	}, nil
}

// Routes mounts the settlement endpoints.
func (h *SettlementHandler) Routes(r chi.Router) {
	r.Route("/settlements", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/generate", h.handleGenerate)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/bill", h.handleRetryBill)
		r.Get("/{id}/export.pdf", h.handleExportPDF)
		r.Get("/{id}/export.xlsx", h.handleExportXLSX)
	})
	r.Get("/partners/{id}/summary", h.handlePartnerSummary)
	r.Post("/couriers/reset-daily", h.handleResetDaily)
}

func (h *SettlementHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind, err := settlement.ParsePartnerKind(query.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := settlement.ListFilter{Kind: kind}
	if raw := query.Get("week_start"); raw != "" {
		weekStart, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
			return
		}
		filter.WeekStart = weekStart
	}
	if raw := query.Get("partner_id"); raw != "" {
		partnerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || partnerID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid partner_id")
			return
		}
		filter.PartnerID = partnerID
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	views, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if views == nil {
		views = []application.SettlementView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *SettlementHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, ok := h.loadView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type generateRequest struct {
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
}

type generatedSettlement struct {
	ID          int64                  `json:"id"`
	PartnerKind settlement.PartnerKind `json:"partner_kind"`
	PartnerName string                 `json:"partner_name"`
	Amount      float64                `json:"amount"`
	BillRef     string                 `json:"bill_ref,omitempty"`
}

func (h *SettlementHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	var (
		produced []*settlement.Settlement
		err      error
	)
	switch {
	case req.WeekStart == "" && req.WeekEnd == "":
		produced, err = h.aggregator.RunPreviousWeek(r.Context())
	default:
		var week settlement.Week
		week, err = settlement.ParseWeek(req.WeekStart, req.WeekEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		produced, err = h.aggregator.Run(r.Context(), week.Start, week.End)
	}
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	result := make([]generatedSettlement, 0, len(produced))
	for _, s := range produced {
		result = append(result, generatedSettlement{
			ID:          s.ID,
			PartnerKind: s.PartnerKind,
			PartnerName: s.PartnerName,
			Amount:      s.TotalAmountDue,
			BillRef:     s.BillRef,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"created":     len(result),
		"settlements": result,
	})
	h.logAudit(r, "settlement.generate", "settlement_run", req.WeekStart, map[string]any{
		"week_start": req.WeekStart,
		"week_end":   req.WeekEnd,
		"created":    len(result),
	})
}

func (h *SettlementHandler) handleRetryBill(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	view, err := h.service.RetryBill(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
	h.logAudit(r, "settlement.bill_retry", "settlement", strconv.FormatInt(id, 10), map[string]any{
		"bill_ref": view.BillRef,
	})
}

func (h *SettlementHandler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "pdf", "application/pdf", BuildSettlementPDF)
}

func (h *SettlementHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", xlsxContentType, BuildSettlementXLSX)
}

func (h *SettlementHandler) export(w http.ResponseWriter, r *http.Request, format, contentType string, build func(*application.SettlementView) ([]byte, error)) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveSettlementExport(format, result, time.Since(start))
	}()

	view, ok := h.loadView(w, r)
	if !ok {
		result = metrics.ResultError
		return
	}
	data, err := build(view)
	if err != nil {
		result = metrics.ResultError
		h.logger.WithError(err).WithField("settlement_id", view.ID).Error("settlement export failed")
		writeError(w, http.StatusInternalServerError, "export "+format+" error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=settlement-"+strconv.FormatInt(view.ID, 10)+"."+format)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *SettlementHandler) handlePartnerSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	p, err := h.partners.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	summary, err := h.service.PartnerSummary(r.Context(), p.ID, settlement.PartnerKind(p.Kind))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"partner_id":        p.ID,
		"partner_name":      p.Name,
		"partner_kind":      summary.PartnerKind,
		"total_settlements": summary.TotalSettlements,
		"total_amount":      summary.TotalAmount,
		"total_orders":      summary.TotalOrders,
		"average_per_order": summary.AveragePerOrder,
	})
}

func (h *SettlementHandler) handleResetDaily(w http.ResponseWriter, r *http.Request) {
	if h.resetter == nil {
		writeError(w, http.StatusServiceUnavailable, "courier reset not configured")
		return
	}
	count, err := h.resetter.ResetAllDaily(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "couriers_reset": count})
	h.logAudit(r, "courier.reset_daily", "courier", "*", map[string]any{"couriers_reset": count})
}

func (h *SettlementHandler) loadView(w http.ResponseWriter, r *http.Request) (*application.SettlementView, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return nil, false
	}
	return view, true
}

func (h *SettlementHandler) logAudit(r *http.Request, action, resourceType, resourceID string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	entry := audit.FromRequest(r, audit.Entry{
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        action,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		Metadata:      payload,
		PayloadDigest: audit.DigestJSON(payload),
	})
	if err := h.auditLogger.Log(r.Context(), entry); err != nil {
		h.logger.WithError(err).WithField("action", action).Warn("audit log failed")
	}
}

func (h *SettlementHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrSettlementNotFound), errors.Is(err, partner.ErrPartnerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, settlement.ErrBillAlreadyLinked), errors.Is(err, settlement.ErrDuplicateSettlement):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, settlement.ErrInvalidWeek), errors.Is(err, settlement.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithError(err).Error("settlement request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
