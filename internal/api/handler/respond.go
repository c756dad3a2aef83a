package handler

import (
	"errors"
	"net/http"

	"hostelgrievance/backend/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// abort writes err as {"error": ...} with its mapped status. Internal details of
// dependency failures are logged, never returned.
func (h *Handler) abort(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	body := gin.H{"error": apperror.PublicMessage(err)}

	var appErr *apperror.Error
	if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	if status >= http.StatusInternalServerError {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString(ctxRequestID),
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

// bind decodes the JSON body into v. An empty body leaves v untouched when
// optional is set.
func (h *Handler) bind(c *gin.Context, v interface{}, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		h.abort(c, apperror.Validation("invalid request body"))
		return false
	}
	return true
}
