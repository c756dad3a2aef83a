package handler

import (
	"net/http"

	"hostelgrievance/backend/internal/complaint"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/rating"

	"github.com/gin-gonic/gin"
)

func (h *Handler) FileComplaint(c *gin.Context) {
	var in complaint.FileInput
	if !h.bind(c, &in, false) {
		return
	}
	created, err := h.Complaints.File(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Complaint submitted successfully", "complaint": created})
}

func (h *Handler) FileEmergency(c *gin.Context) {
	var in complaint.FileInput
	if !h.bind(c, &in, false) {
		return
	}
	created, err := h.Complaints.FileEmergency(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Emergency complaint submitted. Wardens have been notified.", "complaint": created})
}

// ListComplaints shows residents their own complaints, workers their tasks and
// admins their role's queue.
func (h *Handler) ListComplaints(c *gin.Context) {
	u := currentUser(c)
	ctx := c.Request.Context()

	switch u.Role {
	case models.RoleResident:
		list, err := h.Complaints.ListMine(ctx, u.ID)
		if err != nil {
			h.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"complaints": nonNilComplaints(list)})
	case models.RoleWorker:
		list, err := h.Complaints.WorkerTasks(ctx, u.ID)
		if err != nil {
			h.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"complaints": nonNilComplaints(list)})
	default:
		h.AdminQueue(c)
	}
}

func (h *Handler) GetComplaint(c *gin.Context) {
	found, err := h.Complaints.Get(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": found})
}

type locationRequest struct {
	Location string `json:"location"`
}

// UpvoteCandidates lists open complaints in a hostel so a resident can support
// an existing one instead of filing a duplicate.
func (h *Handler) UpvoteCandidates(c *gin.Context) {
	var in locationRequest
	if !h.bind(c, &in, false) {
		return
	}
	list, err := h.Upvotes.Candidates(c.Request.Context(), currentUser(c).ID, in.Location)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": list})
}

func (h *Handler) Upvote(c *gin.Context) {
	count, err := h.Upvotes.Upvote(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upvoted successfully", "upvote_count": count})
}

func (h *Handler) RemoveUpvote(c *gin.Context) {
	count, err := h.Upvotes.RemoveUpvote(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upvote removed", "upvote_count": count})
}

func (h *Handler) RateWorker(c *gin.Context) {
	var in rating.RateInput
	if !h.bind(c, &in, false) {
		return
	}
	worker, err := h.Ratings.Rate(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Worker rated successfully",
		"average_rating": worker.AverageRating,
		"total_ratings":  worker.TotalRatings,
	})
}

func nonNilComplaints(list []models.Complaint) []models.Complaint {
	if list == nil {
		return []models.Complaint{}
	}
	return list
}
