package handler

import (
	"net/http"

	"hostelgrievance/backend/internal/complaint"
	"hostelgrievance/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func queueFilter(c *gin.Context) complaint.QueueFilter {
	return complaint.QueueFilter{
		Status:   models.ComplaintStatus(c.Query("status")),
		Category: c.Query("category"),
		Priority: models.Priority(c.Query("priority")),
		Hostel:   c.Query("hostel"),
	}
}

// AdminQueue lists the caller's work queue, emergencies first.
func (h *Handler) AdminQueue(c *gin.Context) {
	items, role, err := h.Complaints.AdminQueue(c.Request.Context(), currentUser(c).ID, queueFilter(c))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": items, "admin_role": role})
}

func (h *Handler) EmergencyQueue(c *gin.Context) {
	items, role, err := h.Complaints.EmergencyQueue(c.Request.Context(), currentUser(c).ID, queueFilter(c))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": items, "admin_role": role})
}

type validateRequest struct {
	Priority models.Priority `json:"priority"`
}

func (h *Handler) ValidateComplaint(c *gin.Context) {
	var in validateRequest
	if !h.bind(c, &in, true) {
		return
	}
	updated, err := h.Complaints.Validate(c.Request.Context(), currentUser(c).ID, c.Param("id"), in.Priority)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Complaint validated", "complaint": updated})
}

func (h *Handler) AssignComplaint(c *gin.Context) {
	var in complaint.AssignInput
	if !h.bind(c, &in, false) {
		return
	}
	updated, err := h.Complaints.Assign(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Complaint assigned", "complaint": updated})
}

func (h *Handler) VerifyComplaint(c *gin.Context) {
	var in complaint.VerifyInput
	if !h.bind(c, &in, false) {
		return
	}
	updated, err := h.Complaints.Verify(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification recorded", "complaint": updated})
}

type escalateRequest struct {
	EscalateTo models.AdminRole `json:"escalate_to"`
}

func (h *Handler) EscalateComplaint(c *gin.Context) {
	var in escalateRequest
	if !h.bind(c, &in, true) {
		return
	}
	updated, err := h.Complaints.Escalate(c.Request.Context(), currentUser(c).ID, c.Param("id"), in.EscalateTo)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Complaint escalated to " + string(*updated.EscalatedTo), "complaint": updated})
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) ResolveEmergency(c *gin.Context) {
	var in resolveRequest
	if !h.bind(c, &in, true) {
		return
	}
	updated, err := h.Complaints.ResolveEmergency(c.Request.Context(), currentUser(c).ID, c.Param("id"), in.Notes)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Emergency resolved", "complaint": updated})
}

func (h *Handler) ComplaintHistory(c *gin.Context) {
	entries, err := h.Complaints.ListHistory(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// CheckEscalations runs the deadline sweep on demand.
func (h *Handler) CheckEscalations(c *gin.Context) {
	if h.Escalation == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "escalation is not configured"})
		return
	}
	n, err := h.Escalation.DeadlineSweep(c.Request.Context(), h.Now())
	if err != nil {
		h.Log.WithError(err).Error("deadline sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "escalation sweep failed", "escalated_count": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Escalation check complete", "escalated_count": n})
}

// CheckUnassigned runs the unassigned sweep on demand.
func (h *Handler) CheckUnassigned(c *gin.Context) {
	if h.Escalation == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "escalation is not configured"})
		return
	}
	n, err := h.Escalation.UnassignedSweep(c.Request.Context(), h.Now())
	if err != nil {
		h.Log.WithError(err).Error("unassigned sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "escalation sweep failed", "escalated_count": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unassigned check complete", "escalated_count": n})
}

func (h *Handler) ListWorkers(c *gin.Context) {
	workers, err := h.Ratings.Workers(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": workers})
}

func (h *Handler) WorkerPerformance(c *gin.Context) {
	list, err := h.Ratings.WorkerPerformance(c.Request.Context())
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": list})
}

func (h *Handler) WorkerDetails(c *gin.Context) {
	d, err := h.Ratings.WorkerDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.Complaints.GlobalStats(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.Complaints.Dashboard(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
