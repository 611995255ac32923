// Conversation HTTP handlers.
//
//   - POST /conversations/resolve   (find, or create on customerConversationId fallback)
//   - GET  /conversations           (list, paginated, ETag support)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

// ResolveRequest selects a conversation. CustomerAddress is only consulted
// for a customerConversationId selector that matches nothing.
type ResolveRequest struct {
	By              domain.By       `json:"by"`
	CustomerAddress *domain.Address `json:"customerAddress,omitempty"`
}

// ListConversationsResponse wraps a page of conversations.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Pagination    Pagination            `json:"pagination"`
}

// ResolveConversation godoc
// @ID          resolveConversation
// @Summary     Resolve a conversation
// @Description Finds the conversation named by the selector. For a customerConversationId selector with customerAddress set, a missing conversation is created in bot state.
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       X-Bot-ID  header  string  false "Calling bot id"  example(helpbot)
// @Param       body      body    handlers.ResolveRequest  true  "Selector and optional fallback address"
//
// @Success     200  {object}  domain.Conversation
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/resolve [post]
func (h *Handlers) ResolveConversation(c *gin.Context) {
	var req ResolveRequest
	sel, valid := bindSelector(c, &req, func() domain.By { return req.By })
	if !valid {
		return
	}

	conv, err := h.convSvc.Resolve(c.Request.Context(), sel, req.CustomerAddress)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, conv)
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations (paginated)
// @Description Returns a page of conversations, most recently updated first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-Bot-ID       header  string  false "Calling bot id"              example(helpbot)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       state          query   string  false "bot, waiting, agent or watch" example(waiting)
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConversationsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	var state *domain.ConversationState
	stateLabel := "all"
	if raw := c.Query("state"); raw != "" {
		st, err := domain.ParseState(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeInvalidState, err.Error())
			return
		}
		state, stateLabel = &st, st.String()
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isResolver := h.convSvc.(*services.Resolver); isResolver {
		db = svc.DB
	}
	if db != nil {
		f := repo.Filter{}
		if state != nil {
			f[repo.FieldState] = *state
		}
		if count, maxTS, err := repo.ConversationsStats(ctx, db, f); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%d:%d:%d:%d"`, stateLabel, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.convSvc.ListPage(ctx, state, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "list conversations failed")
		return
	}
	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations: items,
		Pagination:    newPagination(page, pageSize, total),
	})
}
