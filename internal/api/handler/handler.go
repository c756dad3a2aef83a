// Package handler exposes the grievance services over HTTP with gin.
package handler

import (
	"context"
	"net/http"
	"time"

	"hostelgrievance/backend/internal/auth"
	"hostelgrievance/backend/internal/complaint"
	"hostelgrievance/backend/internal/escalation"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/notify"
	"hostelgrievance/backend/internal/notifyhub"
	"hostelgrievance/backend/internal/rating"
	"hostelgrievance/backend/internal/upvote"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserLookup loads the caller on every authenticated request.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Handler holds the services behind the routes. Hub and Escalation may be nil,
// which disables the websocket stream and the manual sweep triggers.
type Handler struct {
	Auth       *auth.Service
	Tokens     *auth.Tokens
	Users      UserLookup
	Complaints *complaint.Service
	Upvotes    *upvote.Service
	Ratings    *rating.Service
	Escalation *escalation.Scheduler
	Inbox      *notify.Inbox
	Hub        *notifyhub.Hub
	Log        logrus.FieldLogger
	Now        func() time.Time
}

func NewHandler(h Handler) *Handler {
	if h.Log == nil {
		h.Log = logrus.StandardLogger()
	}
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.Tokens == nil && h.Auth != nil {
		h.Tokens = h.Auth.Tokens
	}
	return &h
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/health", h.Health)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)

	api := r.Group("/api", h.Authenticate())

	complaints := api.Group("/complaints")
	complaints.GET("", h.ListComplaints)
	complaints.GET("/:id", h.GetComplaint)
	resident := complaints.Group("", h.RequireRole(models.RoleResident))
	resident.POST("", h.FileComplaint)
	resident.POST("/emergency", h.FileEmergency)
	resident.POST("/by-location", h.UpvoteCandidates)
	resident.POST("/:id/upvote", h.Upvote)
	resident.POST("/:id/remove-upvote", h.RemoveUpvote)
	resident.POST("/:id/rate", h.RateWorker)

	admin := api.Group("/admin", h.RequireRole(models.RoleAdmin))
	admin.GET("/complaints", h.AdminQueue)
	admin.GET("/complaints/emergency", h.EmergencyQueue)
	admin.POST("/complaints/check-escalations", h.CheckEscalations)
	admin.POST("/complaints/check-unassigned", h.CheckUnassigned)
	admin.POST("/complaints/:id/validate", h.ValidateComplaint)
	admin.POST("/complaints/:id/assign", h.AssignComplaint)
	admin.POST("/complaints/:id/verify", h.VerifyComplaint)
	admin.POST("/complaints/:id/escalate", h.EscalateComplaint)
	admin.POST("/complaints/:id/resolve-emergency", h.ResolveEmergency)
	admin.GET("/complaints/:id/history", h.ComplaintHistory)
	admin.GET("/workers", h.ListWorkers)
	admin.GET("/workers/performance", h.WorkerPerformance)
	admin.GET("/workers/:id/details", h.WorkerDetails)
	admin.GET("/stats", h.Stats)
	admin.GET("/dashboard", h.Dashboard)

	worker := api.Group("/worker", h.RequireRole(models.RoleWorker))
	worker.GET("/tasks", h.WorkerTasks)
	worker.POST("/tasks/:id/start", h.StartTask)
	worker.PATCH("/tasks/:id/update", h.UpdateTask)
	worker.POST("/tasks/:id/upload-progress-photo", h.UploadProgressPhoto)
	worker.POST("/tasks/:id/upload-completion-photo", h.UploadCompletionPhoto)
	worker.POST("/tasks/:id/complete", h.CompleteTask)
	worker.GET("/profile", h.WorkerProfile)

	notifications := api.Group("/notifications")
	notifications.GET("", h.ListNotifications)
	notifications.POST("/read-all", h.MarkAllNotificationsRead)
	notifications.POST("/:id/read", h.MarkNotificationRead)

	if h.Hub != nil {
		r.GET("/ws/notifications", h.Authenticate(), h.ServeWebSocket)
	}
}

// NewRouter builds the engine with the standard middleware chain.
func NewRouter(h *Handler, limiter *RateLimiter, corsOrigins []string, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.Log), CORS(corsOrigins))
	r.Use(extra...)
	if limiter != nil {
		r.Use(limiter.Middleware())
	}
	h.Routes(r)
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": h.Now().UTC()})
}
