package api

import (
	"net/http"

	"tour-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getMe(c *gin.Context) {
	user, err := h.svc.Users.GetUser(c.Request.Context(), currentActor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"user": user})
}

func (h *Handler) updateMe(c *gin.Context) {
	var req service.UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "invalid request body"})
		return
	}

	user, err := h.svc.Users.UpdateMe(c.Request.Context(), currentActor(c).ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"user": user})
}

func (h *Handler) deleteMe(c *gin.Context) {
	if err := h.svc.Users.DeactivateMe(c.Request.Context(), currentActor(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listUsers(c *gin.Context) {
	page, limit := pagination(c)
	users, err := h.svc.Users.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(users),
		"data":    gin.H{"users": users},
	})
}

func (h *Handler) createUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "name and email are required"})
		return
	}

	user, err := h.svc.Users.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.svc.Users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"user": user})
}

func (h *Handler) updateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "invalid request body"})
		return
	}

	user, err := h.svc.Users.UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"user": user})
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.svc.Users.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
