package http

import (
	"encoding/base64"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/thermostraw/internal/domain/chart"
	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/domain/fraction"
	"github.com/yanqian/thermostraw/internal/domain/threshold"
)

// DashboardHandler wires the HTTP transport to the dashboard shell.
type DashboardHandler struct {
	svc    *dashboard.Service
	page   *pageRenderer
	logger *slog.Logger
}

// NewDashboardHandler constructs the dashboard HTTP handler.
func NewDashboardHandler(svc *dashboard.Service, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		svc:    svc,
		page:   newPageRenderer(),
		logger: logger.With("component", "http.handler"),
	}
}

type predictRequest struct {
	Fractions   fraction.Set `json:"fractions"`
	BatchNumber string       `json:"batchNumber"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type thresholdRequest struct {
	Threshold float64 `json:"threshold"`
}

type chartExportResponse struct {
	chart.Outcome
	DataURL string `json:"dataUrl,omitempty"`
}

// Page renders the dashboard. auto=true with all five fractions in the query runs a prediction first.
func (h *DashboardHandler) Page(c *gin.Context) {
	ctx := c.Request.Context()
	id := currentSession(c)

	var notice string
	auto, err := h.svc.Auto(ctx, id, c.Query)
	if err != nil {
		notice = fromDomainError(err).Message
	}
	h.renderPage(c, http.StatusOK, notice, func(page *dashboard.Page) {
		page.Auto = auto
	})
}

// PredictForm handles the classic form post of the page.
func (h *DashboardHandler) PredictForm(c *gin.Context) {
	set, batch := fraction.ParseForm(c.PostForm)
	if _, err := h.svc.Submit(c.Request.Context(), currentSession(c), set, batch); err != nil {
		hErr := fromDomainError(err)
		h.logger.Warn("form prediction failed", "code", hErr.Code, "error", err)
		// Echo what was typed so a rejected post can be corrected in place.
		h.renderPage(c, hErr.Status, hErr.Message, func(page *dashboard.Page) {
			page.Form = set
			page.BatchNumber = batch
			page.Running = fraction.TotalStatus(set)
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *DashboardHandler) renderPage(c *gin.Context, status int, notice string, adjust func(*dashboard.Page)) {
	page, err := h.svc.Page(c.Request.Context(), currentSession(c))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	adjust(&page)
	body, err := h.page.render(page, notice)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "render_failed", "failed to render the page", err))
		return
	}
	c.Data(status, "text/html; charset=utf-8", body)
}

// Predict runs a prediction from a JSON body.
func (h *DashboardHandler) Predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	state, err := h.svc.Submit(c.Request.Context(), currentSession(c), req.Fractions, req.BatchNumber)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// State returns the session's shell state.
func (h *DashboardHandler) State(c *gin.Context) {
	page, err := h.svc.Page(c.Request.Context(), currentSession(c))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// FractionTotal returns the running total for the fractions in the query.
func (h *DashboardHandler) FractionTotal(c *gin.Context) {
	set, _ := fraction.ParseForm(c.Query)
	c.JSON(http.StatusOK, fraction.TotalStatus(set))
}

// ChartPNG streams the session's chart.
func (h *DashboardHandler) ChartPNG(c *gin.Context) {
	png, err := h.svc.Chart(c.Request.Context(), currentSession(c))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// ExportChart prepares the chart image for the clipboard or a download.
func (h *DashboardHandler) ExportChart(c *gin.Context) {
	capability := chart.Capability{Clipboard: queryBool(c, "clipboard")}
	out, err := h.svc.ExportChart(c.Request.Context(), currentSession(c), capability)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	resp := chartExportResponse{Outcome: out}
	if len(out.PNG) > 0 {
		resp.DataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(out.PNG)
	}
	c.JSON(http.StatusOK, resp)
}

// ReportText returns the plain-text report.
func (h *DashboardHandler) ReportText(c *gin.Context) {
	text, err := h.svc.Report(c.Request.Context(), currentSession(c))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// CopyReport returns the report with the copy method the client should use.
func (h *DashboardHandler) CopyReport(c *gin.Context) {
	out, err := h.svc.CopyReport(c.Request.Context(), currentSession(c), queryBool(c, "clipboard"))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ReportPDF downloads the PDF report.
func (h *DashboardHandler) ReportPDF(c *gin.Context) {
	doc, err := h.svc.ReportPDF(c.Request.Context(), currentSession(c))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", attachment("thermostraw_report.pdf"))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// Threshold returns the active threshold.
func (h *DashboardHandler) Threshold(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Threshold())
}

// OpenThreshold opens the threshold dialog.
func (h *DashboardHandler) OpenThreshold(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.OpenThreshold(currentSession(c)))
}

// SubmitThresholdPIN verifies the operator PIN.
func (h *DashboardHandler) SubmitThresholdPIN(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	snap, err := h.svc.SubmitThresholdPIN(c.Request.Context(), currentSession(c), strings.TrimSpace(req.PIN))
	h.dialogResponse(c, snap, err)
}

// SubmitThresholdValue sends the new threshold.
func (h *DashboardHandler) SubmitThresholdValue(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	snap, err := h.svc.SubmitThresholdValue(c.Request.Context(), currentSession(c), req.Threshold)
	h.dialogResponse(c, snap, err)
}

// BackThreshold returns the dialog to PIN entry.
func (h *DashboardHandler) BackThreshold(c *gin.Context) {
	snap, err := h.svc.BackThreshold(currentSession(c))
	h.dialogResponse(c, snap, err)
}

// CancelThreshold closes the dialog.
func (h *DashboardHandler) CancelThreshold(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CancelThreshold(currentSession(c)))
}

// ThresholdDialog polls the dialog, which closes itself after the success delay.
func (h *DashboardHandler) ThresholdDialog(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ThresholdDialog(currentSession(c)))
}

// dialogResponse keeps the dialog snapshot next to the error so the client can show the
// inline message without a second request.
func (h *DashboardHandler) dialogResponse(c *gin.Context, snap threshold.Snapshot, err error) {
	if err == nil {
		c.JSON(http.StatusOK, snap)
		return
	}
	hErr := fromDomainError(err)
	h.logger.Warn("threshold dialog request failed", "code", hErr.Code, "state", snap.State, "error", err)
	c.JSON(hErr.Status, gin.H{
		"error": gin.H{
			"code":    hErr.Code,
			"message": hErr.Message,
		},
		"dialog": snap,
	})
}

// ExportCSV passes the backend CSV export through.
func (h *DashboardHandler) ExportCSV(c *gin.Context) {
	export, err := h.svc.ExportCSV(c.Request.Context())
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Body)
}

// History lists recent predictions.
func (h *DashboardHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// HistoryXLSX downloads the history workbook.
func (h *DashboardHandler) HistoryXLSX(c *gin.Context) {
	doc, err := h.svc.HistoryXLSX(c.Request.Context())
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", attachment("thermostraw_history.xlsx"))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", doc)
}

// Health answers liveness probes.
func (h *DashboardHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// attachment builds a Content-Disposition value with the filename quoted, or
// RFC 2231 encoded when it is not plain ASCII.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
