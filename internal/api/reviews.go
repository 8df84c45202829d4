package api

import (
	"net/http"

	"tour-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listReviews(c *gin.Context) {
	reviews, err := h.svc.Reviews.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(reviews),
		"data":    gin.H{"reviews": reviews},
	})
}

func (h *Handler) listAllReviews(c *gin.Context) {
	page, limit := pagination(c)
	reviews, err := h.svc.Reviews.ListAllReviews(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(reviews),
		"data":    gin.H{"reviews": reviews},
	})
}

func (h *Handler) getReview(c *gin.Context) {
	review, err := h.svc.Reviews.GetReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"review": review})
}

func (h *Handler) createReview(c *gin.Context) {
	var in service.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "invalid request body"})
		return
	}

	review, err := h.svc.Reviews.CreateReview(c.Request.Context(), currentActor(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, gin.H{"review": review})
}

func (h *Handler) updateReview(c *gin.Context) {
	var in service.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "invalid request body"})
		return
	}

	review, err := h.svc.Reviews.UpdateReview(c.Request.Context(), currentActor(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"review": review})
}

func (h *Handler) deleteReview(c *gin.Context) {
	if err := h.svc.Reviews.DeleteReview(c.Request.Context(), currentActor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
