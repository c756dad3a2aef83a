package handler

import (
	"net/http"
	"strconv"

	"hostelgrievance/backend/internal/apperror"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	unread := c.Query("unread") == "true"
	list, err := h.Inbox.List(c.Request.Context(), currentUser(c).ID, unread)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.abort(c, apperror.Validation("invalid notification id"))
		return
	}
	if err := h.Inbox.MarkRead(c.Request.Context(), currentUser(c).ID, uint(id)); err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.Inbox.MarkAllRead(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}
