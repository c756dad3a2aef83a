package handler

import (
	"net/http"

	"hostelgrievance/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// Register creates a resident account.
func (h *Handler) Register(c *gin.Context) {
	var in auth.RegisterInput
	if !h.bind(c, &in, false) {
		return
	}
	u, err := h.Auth.Register(c.Request.Context(), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_id": u.ID})
}

// Login exchanges credentials for a signed token.
func (h *Handler) Login(c *gin.Context) {
	var in auth.LoginInput
	if !h.bind(c, &in, false) {
		return
	}
	session, err := h.Auth.Login(c.Request.Context(), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
