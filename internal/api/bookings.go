package api

import (
	"errors"
	"io"
	"net/http"

	"tour-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody bounds the raw webhook payload read into memory
const maxWebhookBody = 64 << 10

// getCheckoutSession opens (or reuses) a checkout for the caller and a tour
func (h *Handler) getCheckoutSession(c *gin.Context) {
	actor := currentActor(c)

	session, err := h.svc.Checkout.BeginCheckout(c.Request.Context(), actor.ID, c.Param("tourId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"session": session,
	})
}

// webhookCheckout receives payment processor notifications. The body is
// handed over byte for byte; it is never parsed here.
func (h *Handler) webhookCheckout(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "fail",
			"message": "could not read webhook body",
		})
		return
	}

	result, err := h.svc.Reconciler.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		var svcErr *service.Error
		if errors.As(err, &svcErr) {
			switch svcErr.Kind {
			case service.KindAuthentication:
				c.JSON(http.StatusBadRequest, gin.H{
					"status":  "fail",
					"message": "invalid webhook signature",
				})
				return
			case service.KindValidation:
				c.JSON(http.StatusBadRequest, gin.H{
					"status":  "fail",
					"message": "malformed webhook event",
				})
				return
			}
		}

		// any other failure asks the processor to deliver again
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "temporary failure, retry later",
		})
		return
	}

	h.logger.Debug("Webhook handled",
		zap.String("event_id", result.EventID),
		zap.String("type", result.EventType),
		zap.String("outcome", string(result.Outcome)))

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) myBookings(c *gin.Context) {
	bookings, err := h.svc.Bookings.MyBookings(c.Request.Context(), currentActor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(bookings),
		"data":    gin.H{"bookings": bookings},
	})
}

func (h *Handler) listBookings(c *gin.Context) {
	page, limit := pagination(c)
	bookings, err := h.svc.Bookings.ListBookings(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(bookings),
		"data":    gin.H{"bookings": bookings},
	})
}

func (h *Handler) getBooking(c *gin.Context) {
	booking, err := h.svc.Bookings.GetBooking(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"booking": booking})
}
