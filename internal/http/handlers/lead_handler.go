// Lead HTTP handlers.
//
//   - POST   /leads/rollup        (snapshot a customer conversation onto the lead)
//   - GET    /leads/{leadId}
//   - DELETE /leads/{leadId}
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// RollUpRequest identifies the customer (by.customerId) and, through
// message.address, the channel and bot whose conversation is rolled up.
type RollUpRequest struct {
	By      domain.By             `json:"by"`
	Message domain.InboundMessage `json:"message"`
	From    string                `json:"from" example:"Customer"`
}

// RollUpLead godoc
// @ID          rollUpLead
// @Summary     Roll a conversation up into the customer's lead
// @Description Stores a snapshot of the customer's conversation on the message's channel in the lead document, creating the lead on first use. Accepted even when the customer has no conversation with a transcript.
// @Tags        Leads
// @Accept      json
// @Produce     json
//
// @Param       X-Bot-ID  header  string  false "Calling bot id"  example(helpbot)
// @Param       body      body    handlers.RollUpRequest  true  "Customer selector and triggering message"
//
// @Success     202  {string}  string  "Accepted"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /leads/rollup [post]
func (h *Handlers) RollUpLead(c *gin.Context) {
	var req RollUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.leadSvc.RollUp(c.Request.Context(), req.By, req.Message, req.From); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	c.Status(http.StatusAccepted)
}

// GetLead godoc
// @ID          getLead
// @Summary     Get a lead
// @Tags        Leads
// @Produce     json
//
// @Param       leadId  path  string  true  "External lead id (customer user id)"  example(user-42)
//
// @Success     200  {object}  domain.Lead
// @Failure     404  {object}  handlers.ErrorResponse  "Lead not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /leads/{leadId} [get]
func (h *Handlers) GetLead(c *gin.Context) {
	leadID := strings.TrimSpace(c.Param("leadId"))
	if leadID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lead id required")
		return
	}
	lead, err := h.leadSvc.Get(c.Request.Context(), leadID)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, lead)
}

// DeleteLead godoc
// @ID          deleteLead
// @Summary     Delete a lead
// @Tags        Leads
// @Produce     json
//
// @Param       leadId  path  string  true  "External lead id (customer user id)"  example(user-42)
//
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Lead not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /leads/{leadId} [delete]
func (h *Handlers) DeleteLead(c *gin.Context) {
	leadID := strings.TrimSpace(c.Param("leadId"))
	if leadID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lead id required")
		return
	}
	if err := h.leadSvc.Delete(c.Request.Context(), leadID); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
