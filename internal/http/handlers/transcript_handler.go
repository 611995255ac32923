// Transcript HTTP handlers.
//
//   - POST /transcript                       (append one line; Idempotency-Key aware)
//   - GET  /conversations/{id}/transcript    (list lines, paginated, ETag support)
//
// A redelivered append carrying an Idempotency-Key already recorded for the
// resolved conversation is acknowledged without a second line and answered
// with Idempotency-Replayed: true.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

const headerReplayed = "Idempotency-Replayed"

// AppendTranscriptRequest logs one message on the selected conversation.
// From is the sender label; "Customer" turns are sentiment scored.
type AppendTranscriptRequest struct {
	By      domain.By             `json:"by"`
	Message domain.InboundMessage `json:"message"`
	From    string                `json:"from" binding:"required" example:"Customer"`
}

// ListTranscriptResponse wraps a page of transcript lines in append order.
type ListTranscriptResponse struct {
	Lines      []domain.TranscriptLine `json:"lines"`
	Pagination Pagination              `json:"pagination"`
}

// AppendTranscript godoc
// @ID          appendTranscript
// @Summary     Append a transcript line
// @Description Logs the message on the selected conversation. A repeated Idempotency-Key for the same conversation is acknowledged without appending again.
// @Tags        Transcript
// @Accept      json
// @Produce     json
//
// @Param       X-Bot-ID           header  string  false "Calling bot id"                        example(helpbot)
// @Param       Idempotency-Key    header  string  false "Deduplicates redelivered activities"   example(act-7f3a)
// @Param       X-Conversation-ID  header  string  false "Internal conversation id for early replay detection"
// @Param       body               body    handlers.AppendTranscriptRequest  true  "Selector, message and sender"
//
// @Success     204  {string}  string  "No Content"
// @Header      204  {string}  Idempotency-Replayed  "true when the key was already used"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /transcript [post]
func (h *Handlers) AppendTranscript(c *gin.Context) {
	var req AppendTranscriptRequest
	sel, valid := bindSelector(c, &req, func() domain.By { return req.By })
	if !valid {
		return
	}
	from := strings.TrimSpace(req.From)
	if from == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from is required")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	appended, replayed, err := h.transcriptSvc.AppendOnce(c.Request.Context(), sel, req.Message, from, key)
	if err != nil {
		failService(c, err, ErrCodeAppendFailed)
		return
	}
	if !appended {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}
	if replayed {
		c.Header(headerReplayed, "true")
	}
	noContent(c)
}

// ListTranscript godoc
// @ID          listTranscript
// @Summary     List a conversation's transcript (paginated)
// @Description Returns transcript lines in append order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Transcript
// @Produce     json
//
// @Param       X-Bot-ID       header  string  false "Calling bot id"              example(helpbot)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       id             path    string  true  "Conversation ID (UUID)"      format(uuid)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTranscriptResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/transcript [get]
func (h *Handlers) ListTranscript(c *gin.Context) {
	ctx := c.Request.Context()
	convID := c.Param("id")
	if _, err := uuid.Parse(convID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort). An unknown id yields count 0 and falls
	// through to the service's 404.
	var db *gorm.DB
	if svc, isTranscript := h.transcriptSvc.(*services.TranscriptService); isTranscript {
		db = svc.DB
	}
	if db != nil {
		if count, maxSeq, err := repo.TranscriptStats(ctx, db, convID); err == nil && count > 0 {
			etag := fmt.Sprintf(`W/"transcript:%s:%d:%d:%d:%d"`, convID, count, maxSeq, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	lines, total, err := h.transcriptSvc.Transcript(ctx, convID, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListTranscriptResponse{
		Lines:      lines,
		Pagination: newPagination(page, pageSize, total),
	})
}
