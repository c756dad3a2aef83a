package rating

import (
	"context"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"
)

// Performance summarises one worker for the admin overview.
type Performance struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Email           string                `json:"email"`
	StudentID       string                `json:"student_id"`
	AverageRating   float64               `json:"average_rating"`
	TotalRatings    int                   `json:"total_ratings"`
	CompletedTasks  int                   `json:"completed_tasks"`
	AssignedTasks   int64                 `json:"assigned_tasks"`
	InProgressTasks int64                 `json:"in_progress_tasks"`
	RecentRatings   []models.WorkerRating `json:"recent_ratings"`
}

// TaskStats counts a worker's tasks by stage.
type TaskStats struct {
	TotalAssigned int64 `json:"total_assigned"`
	Completed     int64 `json:"completed"`
	InProgress    int64 `json:"in_progress"`
	Pending       int64 `json:"pending"`
}

type WorkerDetails struct {
	Worker  *models.User          `json:"worker"`
	Ratings []models.WorkerRating `json:"ratings"`
	Tasks   []models.Complaint    `json:"tasks"`
	Stats   TaskStats             `json:"stats"`
}

type Profile struct {
	Profile        *models.User          `json:"profile"`
	Ratings        []models.WorkerRating `json:"ratings"`
	CompletedTasks []models.Complaint    `json:"completed_tasks"`
}

// WorkerPerformance lists workers by average rating, best first.
func (s *Service) WorkerPerformance(ctx context.Context) ([]Performance, error) {
	workers, err := s.Storage.ListWorkers(ctx)
	if err != nil {
		return nil, storage.Classify(err, "worker")
	}

	out := make([]Performance, 0, len(workers))
	for _, w := range workers {
		counts, err := s.Storage.CountByStatus(ctx, storage.ComplaintFilter{AssignedTo: w.ID})
		if err != nil {
			return nil, storage.Classify(err, "complaint")
		}
		recent, err := s.Storage.ListWorkerRatings(ctx, w.ID, config.RecentRatingsLimit)
		if err != nil {
			return nil, storage.Classify(err, "rating")
		}

		var assigned int64
		for _, n := range counts {
			assigned += n
		}
		out = append(out, Performance{
			ID:              w.ID,
			Name:            w.Name,
			Email:           w.Email,
			StudentID:       w.StudentID,
			AverageRating:   w.AverageRating,
			TotalRatings:    w.TotalRatings,
			CompletedTasks:  w.CompletedTasks,
			AssignedTasks:   assigned,
			InProgressTasks: counts[models.StatusInProgress],
			RecentRatings:   nonNil(recent),
		})
	}
	return out, nil
}

// WorkerDetails returns every rating and task of one worker.
func (s *Service) WorkerDetails(ctx context.Context, workerID string) (*WorkerDetails, error) {
	w, err := s.loadWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.Storage.ListWorkerRatings(ctx, w.ID, 0)
	if err != nil {
		return nil, storage.Classify(err, "rating")
	}
	tasks, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{AssignedTo: w.ID})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	d := &WorkerDetails{Worker: w, Ratings: nonNil(ratings), Tasks: tasks}
	if d.Tasks == nil {
		d.Tasks = []models.Complaint{}
	}
	d.Stats.TotalAssigned = int64(len(tasks))
	for _, t := range tasks {
		switch t.Status {
		case models.StatusCompleted:
			d.Stats.Completed++
		case models.StatusInProgress:
			d.Stats.InProgress++
		case models.StatusAssigned:
			d.Stats.Pending++
		}
	}
	return d, nil
}

// WorkerProfile is the calling worker's own view.
func (s *Service) WorkerProfile(ctx context.Context, workerID string) (*Profile, error) {
	w, err := s.loadWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.Storage.ListWorkerRatings(ctx, w.ID, 0)
	if err != nil {
		return nil, storage.Classify(err, "rating")
	}
	done, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{
		AssignedTo: w.ID,
		Statuses:   []models.ComplaintStatus{models.StatusCompleted},
	})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	if done == nil {
		done = []models.Complaint{}
	}
	return &Profile{Profile: w, Ratings: nonNil(ratings), CompletedTasks: done}, nil
}

func (s *Service) loadWorker(ctx context.Context, id string) (*models.User, error) {
	w, err := s.Storage.GetUserByID(ctx, id)
	if err != nil {
		return nil, storage.Classify(err, "worker")
	}
	if w.Role != models.RoleWorker {
		return nil, apperror.NotFound("worker not found")
	}
	return w, nil
}

func nonNil(r []models.WorkerRating) []models.WorkerRating {
	if r == nil {
		return []models.WorkerRating{}
	}
	return r
}

// Workers lists every worker, best rated first.
func (s *Service) Workers(ctx context.Context) ([]models.User, error) {
	workers, err := s.Storage.ListWorkers(ctx)
	if err != nil {
		return nil, storage.Classify(err, "worker")
	}
	if workers == nil {
		workers = []models.User{}
	}
	return workers, nil
}
