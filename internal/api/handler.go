package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bearhedge/navledger/internal/domain/dto"
	"github.com/bearhedge/navledger/internal/domain/models"
	"github.com/bearhedge/navledger/internal/service"
)

// Handler provides HTTP handlers for the NAV ledger endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Delegate to the service layer
//   - Translate domain results into response DTOs
//   - Return structured JSON responses with appropriate HTTP status codes
type Handler struct {
	svc service.LedgerService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.LedgerService) *Handler {
	return &Handler{svc: svc}
}

// GetLedger godoc
// @Summary      List daily NAV ledgers
// @Description  Returns the per-day NAV trajectory (opening, adjustments, calculated and official close) for an optional date range
// @Tags         ledger
// @Produce      json
// @Param        start  query     string  false  "Start trading day in YYYY-MM-DD"  example(2025-07-01)
// @Param        end    query     string  false  "End trading day in YYYY-MM-DD"    example(2025-07-31)
// @Success      200    {array}   dto.LedgerResponse     "Success"
// @Failure      400    {object}  dto.ErrorResponse      "Bad Request"
// @Failure      500    {object}  dto.ErrorResponse      "Internal Error"
// @Router       /api/v1/ledger [get]
func (h *Handler) GetLedger(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(err.Error(), nil))
		return
	}

	ledgers, err := h.svc.GetLedgers(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to load ledgers", err))
		return
	}

	out := make([]dto.LedgerResponse, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, dto.NewLedgerResponse(l))
	}
	c.JSON(http.StatusOK, out)
}

// GetReconciliation godoc
// @Summary      List reconciliation records
// @Description  Returns the expected-vs-official close comparison per trading day, with discrepancy attribution by source
// @Tags         reconciliation
// @Produce      json
// @Param        start  query     string  false  "Start trading day in YYYY-MM-DD"  example(2025-07-01)
// @Param        end    query     string  false  "End trading day in YYYY-MM-DD"    example(2025-07-31)
// @Success      200    {array}   dto.ReconciliationResponse  "Success"
// @Failure      400    {object}  dto.ErrorResponse            "Bad Request"
// @Failure      500    {object}  dto.ErrorResponse            "Internal Error"
// @Router       /api/v1/reconciliation [get]
func (h *Handler) GetReconciliation(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(err.Error(), nil))
		return
	}

	recs, err := h.svc.GetReconciliations(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to load reconciliations", err))
		return
	}

	out := make([]dto.ReconciliationResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, dto.NewReconciliationResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// GetExceptions godoc
// @Summary      List reconciliation exceptions
// @Description  Returns only the trading days whose discrepancy exceeded tolerance
// @Tags         reconciliation
// @Produce      json
// @Param        start  query     string  false  "Start trading day in YYYY-MM-DD"  example(2025-07-01)
// @Param        end    query     string  false  "End trading day in YYYY-MM-DD"    example(2025-07-31)
// @Success      200    {array}   dto.LedgerResponse  "Success"
// @Failure      400    {object}  dto.ErrorResponse   "Bad Request"
// @Failure      500    {object}  dto.ErrorResponse   "Internal Error"
// @Router       /api/v1/exceptions [get]
func (h *Handler) GetExceptions(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(err.Error(), nil))
		return
	}

	days, err := h.svc.GetExceptions(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to load exceptions", err))
		return
	}

	out := make([]dto.LedgerResponse, 0, len(days))
	for _, l := range days {
		out = append(out, dto.NewLedgerResponse(l))
	}
	c.JSON(http.StatusOK, out)
}

// GetPositions godoc
// @Summary      List assignment positions
// @Description  Returns positions created by option assignments, optionally filtered by symbol and lifecycle status
// @Tags         positions
// @Produce      json
// @Param        symbol  query     string  false  "Underlying symbol"         example(TSLA)
// @Param        status  query     string  false  "Position status"           Enums(open, closed)
// @Success      200     {array}   dto.PositionResponse  "Success"
// @Failure      400     {object}  dto.ErrorResponse     "Bad Request"
// @Failure      500     {object}  dto.ErrorResponse     "Internal Error"
// @Router       /api/v1/positions [get]
func (h *Handler) GetPositions(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))

	var status models.PositionStatus
	switch s := c.Query("status"); s {
	case "":
	case string(models.PositionOpen):
		status = models.PositionOpen
	case string(models.PositionClosed):
		status = models.PositionClosed
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("status must be open or closed", nil))
		return
	}

	positions, err := h.svc.GetPositions(c.Request.Context(), symbol, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to load positions", err))
		return
	}

	out := make([]dto.PositionResponse, 0, len(positions))
	for _, p := range positions {
		out = append(out, dto.NewPositionResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

// GetUnclassified godoc
// @Summary      List unclassified records
// @Description  Returns records whose semantic kind could not be resolved at ingestion; the days they belong to are not final until each is resolved
// @Tags         ingestion
// @Produce      json
// @Success      200  {array}   dto.UnclassifiedResponse  "Success"
// @Failure      500  {object}  dto.ErrorResponse          "Internal Error"
// @Router       /api/v1/unclassified [get]
func (h *Handler) GetUnclassified(c *gin.Context) {
	records, err := h.svc.GetUnclassified(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to load unclassified records", err))
		return
	}

	out := make([]dto.UnclassifiedResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.UnclassifiedResponse{
			TxnID:      r.Record.TxnID,
			RecordKind: string(r.Record.Kind),
			Symbol:     r.Record.Instrument.Symbol,
			NativeTime: r.Record.NativeTime,
			Reason:     r.Reason,
			SeenAt:     r.SeenAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// RunIngestion godoc
// @Summary      Trigger a merge run
// @Description  Fetches the latest extract, merges it, and recomputes every covered trading day. Synchronous; returns once the merge completes.
// @Tags         ingestion
// @Produce      json
// @Success      200  {object}  dto.IngestRunResponse  "Completed"
// @Failure      500  {object}  dto.ErrorResponse      "Merge failed"
// @Router       /api/v1/ingest/run [post]
func (h *Handler) RunIngestion(c *gin.Context) {
	started := time.Now()
	if err := h.svc.TriggerIngestion(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("merge failed", err))
		return
	}
	c.JSON(http.StatusOK, dto.IngestRunResponse{
		Status:    "completed",
		StartedAt: started.UTC(),
		Elapsed:   time.Since(started).Round(time.Millisecond).String(),
	})
}

// dateRange parses the optional start/end query parameters.
func dateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	parse := func(name string) (*time.Time, error) {
		s := c.Query(name)
		if s == "" {
			return nil, nil
		}
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, errInvalidDate(name)
		}
		return &d, nil
	}
	start, err := parse("start")
	if err != nil {
		return nil, nil, err
	}
	end, err := parse("end")
	if err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, errRange
	}
	return start, end, nil
}

type rangeError string

func (e rangeError) Error() string { return string(e) }

func errInvalidDate(name string) error {
	return rangeError("invalid " + name + " format, expected YYYY-MM-DD")
}

var errRange = rangeError("end must not be before start")
