// Summary HTTP handlers.
//
// This file exposes REST endpoints for the summary history:
//   - POST   /summary/text            (summarize and store)
//   - GET    /summary/history         (list, newest first, ETag support)
//   - DELETE /summary/history/{id}    (delete, idempotent)
//
// Handlers are transport-thin: they validate input, call the summary service,
// and translate results into HTTP responses (including conditional responses).
// A diagnostic string produced by the workflow is a normal 200 response; only
// storage failures become 5xx errors.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-summary-backend/internal/domain"
	"github.com/tbourn/go-summary-backend/internal/http/middleware"
	"github.com/tbourn/go-summary-backend/internal/services"
	"github.com/tbourn/go-summary-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SummaryService defines the summarization and history operations consumed
// by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SummaryService interface {
	// Create summarizes content, replaying a stored result for idemKey if any.
	Create(ctx context.Context, content, idemKey string) (*services.Outcome, error)
	// History returns every record, newest first.
	History(ctx context.Context) ([]domain.SummaryRecord, error)
	// HistoryPage returns a page of records and the total count.
	HistoryPage(ctx context.Context, page, pageSize int) ([]domain.SummaryRecord, int64, error)
	// HistoryStats returns the values the history ETag is built from.
	HistoryStats(ctx context.Context) (count int64, maxID uint, newest *time.Time, err error)
	// Delete removes a record; a missing id is not an error.
	Delete(ctx context.Context, id uint) error
}

//
// Handler wiring
//

// ServiceInfo is the static identity reported by the health endpoints.
type ServiceInfo struct {
	Name     string
	Version  string
	DocsPath string
}

// Handlers groups the HTTP endpoints of the service. It depends on an
// abstract service interface to keep transport concerns separate from
// business logic.
type Handlers struct {
	summarySvc SummaryService
	info       ServiceInfo
	now        func() time.Time
}

// New constructs and returns a Handlers instance bound to the given service.
func New(summarySvc SummaryService, info ServiceInfo) *Handlers {
	return &Handlers{summarySvc: summarySvc, info: info, now: time.Now}
}

//
// DTOs
//

// SummaryRequest is the JSON payload for POST /summary/text.
type SummaryRequest struct {
	// Content is the text to summarize; must not be blank.
	Content string `json:"content" example:"Go is an open source programming language that makes it simple to build secure, scalable systems."`
}

// SummaryResponse carries the summary text or a diagnostic string.
type SummaryResponse struct {
	Summary string `json:"summary" example:"Go is a simple language for building scalable systems."`
}

// SummaryErrorResponse is the compact body for request-validation errors.
type SummaryErrorResponse struct {
	Error string `json:"error" example:"content must not be empty"`
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message" example:"record deleted"`
}

//
// Helpers
//

// historyPagination reports whether the client asked for a page and, if so,
// returns bounded page and page_size values.
func historyPagination(c *gin.Context) (page, pageSize int, paged bool) {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	if c.Query("page") == "" && c.Query("page_size") == "" {
		return 0, 0, false
	}
	p := utils.ParsePage(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)
	page, pageSize = p.Number, p.Size
	return page, pageSize, true
}

// historyETag derives a weak validator from the history stats. Any insert
// or delete changes count, max id or the newest timestamp. Paged responses
// also key on the page window.
func historyETag(count int64, maxID uint, newest *time.Time, page, pageSize int) string {
	var ts int64
	if newest != nil {
		ts = newest.UnixNano()
	}
	if page > 0 {
		return fmt.Sprintf(`W/"summaries:%d:%d:%d:%d:%d"`, count, maxID, ts, page, pageSize)
	}
	return fmt.Sprintf(`W/"summaries:%d:%d:%d"`, count, maxID, ts)
}

//
// Handlers
//

// CreateTextSummary godoc
// @ID          createTextSummary
// @Summary     Summarize text
// @Description Sends the text to the completion API and stores the result in the history.
// @Description When the completion API is not configured or fails, the "summary" field carries a diagnostic message instead.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Summary
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SummaryRequest  true  "Text to summarize"
//
// @Success     200  {object}  handlers.SummaryResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.SummaryErrorResponse  "Empty content or invalid JSON"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /summary/text [post]
func (h *Handlers) CreateTextSummary(c *gin.Context) {
	var req SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequest(c, services.ErrEmptyContent.Error())
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	// A client disconnect must not abort the completion or lose its record.
	out, err := h.summarySvc.Create(context.WithoutCancel(c.Request.Context()), req.Content, idemKey)
	if err != nil {
		serverError(c, ErrCodeSummarizeFailed, err)
		return
	}
	if out.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, SummaryResponse{Summary: out.Summary})
}

// ListHistory godoc
// @ID          listSummaryHistory
// @Summary     List summary history
// @Description Returns stored summaries, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Description Without page/page_size the full history is returned; with them, one page plus X-Total-Count.
// @Tags        Summary
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"summaries:3:7:1700000000000000000\")
// @Param       page           query   int     false "Page number"                  minimum(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100)
//
// @Success     200  {array}  domain.SummaryRecord
// @Header      200  {string} ETag           "Weak ETag for current history"
// @Header      200  {integer} X-Total-Count "Total records (paged requests only)"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /summary/history [get]
func (h *Handlers) ListHistory(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize, paged := historyPagination(c)

	// ETag pre-check (best effort).
	count, maxID, newest, err := h.summarySvc.HistoryStats(ctx)
	if err == nil {
		etag := historyETag(count, maxID, newest, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	if !paged {
		items, err := h.summarySvc.History(ctx)
		if err != nil {
			serverError(c, ErrCodeListFailed, err)
			return
		}
		ok(c, http.StatusOK, items)
		return
	}

	items, total, err := h.summarySvc.HistoryPage(ctx, page, pageSize)
	if err != nil {
		serverError(c, ErrCodeListFailed, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	ok(c, http.StatusOK, items)
}

// DeleteHistory godoc
// @ID          deleteSummaryHistory
// @Summary     Delete a summary
// @Description Deletes one record from the history. Deleting an id that does not exist also succeeds.
// @Tags        Summary
// @Produce     json
//
// @Param       id  path  int  true  "Record ID"  minimum(1) example(42)
//
// @Success     200  {object} handlers.MessageResponse
// @Failure     400  {object} handlers.SummaryErrorResponse "Invalid id"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /summary/history/{id} [delete]
func (h *Handlers) DeleteHistory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "id must be a non-negative integer")
		return
	}

	if err := h.summarySvc.Delete(c.Request.Context(), uint(id)); err != nil {
		serverError(c, ErrCodeDeleteFailed, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: "record deleted"})
}
