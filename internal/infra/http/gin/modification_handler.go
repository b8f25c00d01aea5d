package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/app/commands"
	modificationapp "stayride/internal/app/handlers/modification"
)

type ModificationHandler struct {
	Commands commands.Bus
}

type requestDateChangeRequest struct {
	CheckIn  time.Time `json:"check_in" binding:"required"`
	CheckOut time.Time `json:"check_out" binding:"required"`
}

func (h ModificationHandler) Request(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req requestDateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := modificationapp.RequestDateChangeCommand{
		BookingID: c.Param("id"),
		GuestID:   user.ID,
		CheckIn:   req.CheckIn,
		CheckOut:  req.CheckOut,
	}
	result, err := commands.Dispatch[modificationapp.RequestDateChangeCommand, *modificationapp.RequestDateChangeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type respondDateChangeRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h ModificationHandler) Respond(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req respondDateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := modificationapp.RespondDateChangeCommand{
		BookingID: c.Param("id"),
		HostID:    user.ID,
		Accept:    *req.Accept,
	}
	result, err := commands.Dispatch[modificationapp.RespondDateChangeCommand, *modificationapp.RespondDateChangeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ModificationHTTP = ModificationHandler{}
