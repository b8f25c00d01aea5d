package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayride/internal/infra/config"
	"stayride/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Accept(c *gin.Context)
	Cancel(c *gin.Context)
	CheckIn(c *gin.Context)
	CheckOut(c *gin.Context)
}

type PaymentHTTP interface {
	Initiate(c *gin.Context)
	InitiateExtra(c *gin.Context)
	Success(c *gin.Context)
	IPN(c *gin.Context)
	Failed(c *gin.Context)
	ClaimRefund(c *gin.Context)
}

type ModificationHTTP interface {
	Request(c *gin.Context)
	Respond(c *gin.Context)
}

type PayoutHTTP interface {
	ListPending(c *gin.Context)
	MarkPaid(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Payment      PaymentHTTP
	Modification ModificationHTTP
	Payout       PayoutHTTP
	Me           MeHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-User-Id", "X-User-Email", "X-User-Name", "X-User-Roles"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	router.Use(IdentityMiddleware())

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	// Gateway callbacks land outside /api: the payment provider posts to
	// these without identity headers.
	if h.Payment != nil {
		callbacks := router.Group("/v1/payments")
		callbacks.POST("/success", h.Payment.Success)
		callbacks.POST("/fail", h.Payment.Failed)
		callbacks.POST("/cancel", h.Payment.Failed)
		callbacks.POST("/ipn", h.Payment.IPN)
	}

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.POST("/bookings/:id/accept", h.Booking.Accept)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.POST("/bookings/:id/check-in", h.Booking.CheckIn)
		api.POST("/bookings/:id/check-out", h.Booking.CheckOut)
	}
	if h.Payment != nil {
		api.POST("/bookings/:id/payments", h.Payment.Initiate)
		api.POST("/bookings/:id/payments/extra", h.Payment.InitiateExtra)
		api.POST("/bookings/:id/refund-claim", h.Payment.ClaimRefund)
	}
	if h.Modification != nil {
		api.POST("/bookings/:id/date-change", h.Modification.Request)
		api.POST("/bookings/:id/date-change/respond", h.Modification.Respond)
	}
	if h.Payout != nil {
		payoutGroup := api.Group("/admin/payouts")
		payoutGroup.GET("", h.Payout.ListPending)
		payoutGroup.POST("/:id/paid", h.Payout.MarkPaid)
	}
	if h.Me != nil {
		meGroup := api.Group("/me")
		meGroup.GET("/bookings", h.Me.ListBookings)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
