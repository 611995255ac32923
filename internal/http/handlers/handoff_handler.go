// Handoff HTTP handlers.
//
//   - POST /conversations/queue           (bot → waiting)
//   - POST /conversations/connect-agent   (waiting → agent)
//   - POST /conversations/connect-bot     (→ bot; may delete the conversation)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// ConnectAgentRequest joins an agent to the selected conversation.
type ConnectAgentRequest struct {
	By           domain.By      `json:"by"`
	AgentAddress domain.Address `json:"agentAddress"`
}

// bindSelector parses a SelectorRequest-shaped body. It writes the 400 and
// returns false on failure.
func bindSelector(c *gin.Context, body any, by func() domain.By) (domain.Selector, bool) {
	if err := c.ShouldBindJSON(body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return domain.Selector{}, false
	}
	sel := by().Selector()
	if !sel.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeInvalidSelector, "by must name a conversation")
		return domain.Selector{}, false
	}
	return sel, true
}

// QueueCustomer godoc
// @ID          queueCustomer
// @Summary     Queue a customer for an agent
// @Description Moves the selected conversation to the waiting state.
// @Tags        Handoff
// @Accept      json
// @Produce     json
//
// @Param       X-Bot-ID  header  string  false "Calling bot id"  example(helpbot)
// @Param       body      body    handlers.SelectorRequest  true  "Selector"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/queue [post]
func (h *Handlers) QueueCustomer(c *gin.Context) {
	var req SelectorRequest
	sel, valid := bindSelector(c, &req, func() domain.By { return req.By })
	if !valid {
		return
	}

	queued, err := h.handoffSvc.QueueCustomerForAgent(c.Request.Context(), sel)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if !queued {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}
	noContent(c)
}

// ConnectAgent godoc
// @ID          connectAgent
// @Summary     Connect a waiting customer to an agent
// @Description Joins the agent to the selected conversation and moves it to the agent state. Customers still talking to the bot are rejected with 409.
// @Tags        Handoff
// @Accept      json
// @Produce     json
//
// @Param       X-Bot-ID  header  string  false "Calling bot id"  example(helpbot)
// @Param       body      body    handlers.ConnectAgentRequest  true  "Selector and agent address"
//
// @Success     200  {object}  domain.Conversation
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Customer not waiting"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/connect-agent [post]
func (h *Handlers) ConnectAgent(c *gin.Context) {
	var req ConnectAgentRequest
	sel, valid := bindSelector(c, &req, func() domain.By { return req.By })
	if !valid {
		return
	}

	conv, err := h.handoffSvc.ConnectCustomerToAgent(c.Request.Context(), sel, req.AgentAddress)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if conv == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}
	ok(c, http.StatusOK, conv)
}

// ConnectBot godoc
// @ID          connectBot
// @Summary     Return a customer to the bot
// @Description Moves the selected conversation back to the bot. Unless data retention is on, a conversation that had an agent is deleted.
// @Tags        Handoff
// @Accept      json
// @Produce     json
//
// @Param       X-Bot-ID  header  string  false "Calling bot id"  example(helpbot)
// @Param       body      body    handlers.SelectorRequest  true  "Selector"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/connect-bot [post]
func (h *Handlers) ConnectBot(c *gin.Context) {
	var req SelectorRequest
	sel, valid := bindSelector(c, &req, func() domain.By { return req.By })
	if !valid {
		return
	}

	done, err := h.handoffSvc.ConnectCustomerToBot(c.Request.Context(), sel)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if !done {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}
	noContent(c)
}
