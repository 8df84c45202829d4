package api

import (
	"net/http"

	"tour-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.svc.Carts.GetCart(c.Request.Context(), currentActor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"cart": cart})
}

func (h *Handler) addToCart(c *gin.Context) {
	var req service.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "tour_id is required"})
		return
	}

	cart, added, err := h.svc.Carts.AddTour(c.Request.Context(), currentActor(c).ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "tour is already in your cart",
			"data":    gin.H{"cart": cart},
		})
		return
	}
	respondData(c, http.StatusCreated, gin.H{"cart": cart})
}

func (h *Handler) adjustCart(c *gin.Context) {
	cart, err := h.svc.Carts.AdjustPersons(c.Request.Context(), currentActor(c).ID, c.Param("tourId"), c.Param("operation"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"cart": cart})
}

func (h *Handler) removeFromCart(c *gin.Context) {
	cart, err := h.svc.Carts.RemoveTour(c.Request.Context(), currentActor(c).ID, c.Param("tourId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"cart": cart})
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.svc.Carts.Clear(c.Request.Context(), currentActor(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
