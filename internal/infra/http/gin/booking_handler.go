package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stayride/internal/app/commands"
	bookingapp "stayride/internal/app/handlers/booking"
)

type BookingHandler struct {
	Commands commands.Bus
}

type createBookingRequest struct {
	ListingID string    `json:"listing_id" binding:"required"`
	TripID    string    `json:"trip_id"`
	CheckIn   time.Time `json:"check_in" binding:"required"`
	CheckOut  time.Time `json:"check_out" binding:"required"`
	Guests    int       `json:"guests" binding:"required"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		CommandID:       generateCommandID(),
		ListingID:       req.ListingID,
		TripID:          req.TripID,
		GuestID:         user.ID,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Guests:          req.Guests,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Accept(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := bookingapp.AcceptBookingCommand{BookingID: c.Param("id"), HostID: user.ID}
	result, err := commands.Dispatch[bookingapp.AcceptBookingCommand, *bookingapp.AcceptBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), ActorID: user.ID, Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) CheckIn(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := bookingapp.CheckInCommand{BookingID: c.Param("id"), GuestID: user.ID}
	result, err := commands.Dispatch[bookingapp.CheckInCommand, *bookingapp.CheckResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) CheckOut(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := bookingapp.CheckOutCommand{BookingID: c.Param("id"), GuestID: user.ID}
	result, err := commands.Dispatch[bookingapp.CheckOutCommand, *bookingapp.CheckResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
