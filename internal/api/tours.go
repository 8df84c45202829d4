package api

import (
	"net/http"

	"tour-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listTours(c *gin.Context) {
	var q service.TourQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "fail",
			"message": "invalid query parameters",
		})
		return
	}

	tours, err := h.svc.Tours.ListTours(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(tours),
		"data":    gin.H{"tours": tours},
	})
}

func (h *Handler) topCheapTours(c *gin.Context) {
	tours, err := h.svc.Tours.TopCheapTours(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(tours),
		"data":    gin.H{"tours": tours},
	})
}

func (h *Handler) getTour(c *gin.Context) {
	tour, err := h.svc.Tours.GetTour(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"tour": tour})
}

func (h *Handler) createTour(c *gin.Context) {
	var in service.TourInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "fail",
			"message": "invalid request body",
		})
		return
	}

	tour, err := h.svc.Tours.CreateTour(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, gin.H{"tour": tour})
}

func (h *Handler) updateTour(c *gin.Context) {
	var in service.TourInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "fail",
			"message": "invalid request body",
		})
		return
	}

	tour, err := h.svc.Tours.UpdateTour(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"tour": tour})
}

func (h *Handler) deleteTour(c *gin.Context) {
	if err := h.svc.Tours.DeleteTour(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) tourStats(c *gin.Context) {
	stats, err := h.svc.Tours.TourStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) monthlyPlan(c *gin.Context) {
	plan, err := h.svc.Tours.MonthlyPlan(c.Request.Context(), c.Param("year"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"plan": plan})
}

func (h *Handler) toursWithin(c *gin.Context) {
	tours, err := h.svc.Tours.ToursWithin(c.Request.Context(), c.Param("distance"), c.Param("latlng"), c.Param("unit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(tours),
		"data":    gin.H{"data": tours},
	})
}

func (h *Handler) distances(c *gin.Context) {
	distances, err := h.svc.Tours.Distances(c.Request.Context(), c.Param("latlng"), c.Param("unit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"data": distances})
}
