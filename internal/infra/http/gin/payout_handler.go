package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	payoutadmin "stayride/internal/app/handlers/payoutadmin"
	"stayride/internal/app/queries"
)

type PayoutHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h PayoutHandler) ListPending(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	q := payoutadmin.ListPendingPayoutsQuery{Role: c.Query("role")}
	result, err := queries.Ask[payoutadmin.ListPendingPayoutsQuery, dto.PayoutCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type markPayoutPaidRequest struct {
	Method string `json:"method" binding:"required"`
}

func (h PayoutHandler) MarkPaid(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	var req markPayoutPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := payoutadmin.MarkPayoutPaidCommand{PayoutID: c.Param("id"), Method: req.Method}
	result, err := commands.Dispatch[payoutadmin.MarkPayoutPaidCommand, *payoutadmin.MarkPayoutPaidResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PayoutHTTP = PayoutHandler{}
