package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tour-service/internal/auth"
	"tour-service/internal/models"
	"tour-service/internal/service"
	"tour-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	svc      Services
	verifier *auth.Verifier
	checks   []ReadinessCheck
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, verifier *auth.Verifier, checks ...ReadinessCheck) *Handler {
	return &Handler{
		svc:      svc,
		verifier: verifier,
		checks:   checks,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// the processor signs the raw body, so this route must stay outside any body-parsing middleware
	router.POST("/webhook", h.webhookCheckout)

	v1 := router.Group("/api/v1")
	authed := v1.Group("", h.requireAuth())

	tours := v1.Group("/tours")
	{
		tours.GET("", h.listTours)
		tours.GET("/top-5-cheap", h.topCheapTours)
		tours.GET("/tour-stats", h.tourStats)
		tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", h.toursWithin)
		tours.GET("/distances/:latlng/unit/:unit", h.distances)
		tours.GET("/:id", h.getTour)
		tours.GET("/:id/reviews", h.listReviews)
	}

	staff := authed.Group("/tours")
	{
		staff.GET("/monthly-plan/:year",
			requireRole(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide), h.monthlyPlan)
		staff.POST("", requireRole(models.RoleAdmin, models.RoleLeadGuide), h.createTour)
		staff.PATCH("/:id", requireRole(models.RoleAdmin, models.RoleLeadGuide), h.updateTour)
		staff.DELETE("/:id", requireRole(models.RoleAdmin, models.RoleLeadGuide), h.deleteTour)
		staff.POST("/:id/reviews", requireRole(models.RoleUser), h.createReview)
	}

	reviews := authed.Group("/reviews")
	{
		reviews.GET("", requireRole(models.RoleAdmin, models.RoleLeadGuide), h.listAllReviews)
		reviews.GET("/:id", h.getReview)
		reviews.PATCH("/:id", requireRole(models.RoleUser, models.RoleAdmin), h.updateReview)
		reviews.DELETE("/:id", requireRole(models.RoleUser, models.RoleAdmin), h.deleteReview)
	}

	bookings := authed.Group("/bookings")
	{
		bookings.GET("/checkout-session/:tourId", h.getCheckoutSession)
		bookings.GET("/me", h.myBookings)
		bookings.GET("", requireRole(models.RoleAdmin), h.listBookings)
		bookings.GET("/:id", h.getBooking)
	}

	cart := authed.Group("/cart")
	{
		cart.GET("", h.getCart)
		cart.POST("", h.addToCart)
		cart.DELETE("", h.clearCart)
		cart.PATCH("/:tourId/:operation", h.adjustCart)
		cart.DELETE("/:tourId", h.removeFromCart)
	}

	users := authed.Group("/users")
	{
		users.GET("/me", h.getMe)
		users.PATCH("/me", h.updateMe)
		users.DELETE("/me", h.deleteMe)

		admin := users.Group("", requireRole(models.RoleAdmin))
		admin.GET("", h.listUsers)
		admin.POST("", h.createUser)
		admin.GET("/:id", h.getUser)
		admin.PATCH("/:id", h.updateUser)
		admin.DELETE("/:id", h.deleteUser)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports whether every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", check.Name), zap.Error(err))
			failing[check.Name] = "unavailable"
		}
	}

	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "not ready",
			"dependencies": failing,
			"time":         time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError renders a service error with the status its kind maps to
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		status  int
		message string
		code    string
	)

	switch service.KindOf(err) {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindAuthentication:
		status = http.StatusUnauthorized
	case service.KindForbidden:
		status = http.StatusForbidden
	case service.KindUnavailable:
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "5")
	default:
		status = http.StatusInternalServerError
	}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		code, message = svcErr.Code, svcErr.Message
	} else {
		code, message = "internal", "something went wrong"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"status":  statusWord(status),
		"code":    code,
		"message": message,
	})
}

func statusWord(status int) string {
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}

// respondData renders the success envelope
func respondData(c *gin.Context, status int, data gin.H) {
	c.JSON(status, gin.H{
		"status": "success",
		"data":   data,
	})
}

// pagination reads page and limit query parameters
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
