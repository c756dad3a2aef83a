package handler

import (
	"net/http"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/complaint"

	"github.com/gin-gonic/gin"
)

func (h *Handler) WorkerTasks(c *gin.Context) {
	tasks, err := h.Complaints.WorkerTasks(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": nonNilComplaints(tasks)})
}

func (h *Handler) StartTask(c *gin.Context) {
	var in complaint.WorkInput
	if !h.bind(c, &in, true) {
		return
	}
	task, err := h.Complaints.StartWork(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work started", "task": task})
}

func (h *Handler) UpdateTask(c *gin.Context) {
	var in complaint.WorkInput
	if !h.bind(c, &in, false) {
		return
	}
	task, err := h.Complaints.UpdateNotes(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated", "task": task})
}

func (h *Handler) UploadProgressPhoto(c *gin.Context) {
	var in complaint.WorkInput
	if !h.bind(c, &in, false) {
		return
	}
	if in.Photo == "" {
		h.abort(c, apperror.Validation("no photo provided"))
		return
	}
	task, err := h.Complaints.UpdateNotes(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Progress photo uploaded", "photo_url": task.ProgressPhotoURL, "task": task})
}

func (h *Handler) CompleteTask(c *gin.Context) {
	var in complaint.WorkInput
	if !h.bind(c, &in, true) {
		return
	}
	task, err := h.Complaints.Complete(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task marked as completed", "task": task})
}

func (h *Handler) UploadCompletionPhoto(c *gin.Context) {
	var in complaint.WorkInput
	if !h.bind(c, &in, false) {
		return
	}
	if in.Photo == "" {
		h.abort(c, apperror.Validation("no photo provided"))
		return
	}
	task, err := h.Complaints.Complete(c.Request.Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task completed with photo", "photo_url": task.CompletionPhotoURL, "task": task})
}

func (h *Handler) WorkerProfile(c *gin.Context) {
	p, err := h.Ratings.WorkerProfile(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
