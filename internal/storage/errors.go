package storage

import (
	"errors"

	"hostelgrievance/backend/internal/apperror"
)

// Classify maps a store error onto the service error taxonomy. entity names the
// record for not-found messages.
func Classify(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound(entity + " not found")
	case errors.Is(err, ErrDuplicate):
		return apperror.Conflict(entity + " already exists")
	case errors.Is(err, ErrDuplicateVote):
		return apperror.Conflict("already upvoted")
	case errors.Is(err, ErrNotVoted):
		return apperror.Validation("you have not upvoted this complaint")
	case errors.Is(err, ErrAlreadyRated):
		return apperror.Conflict("complaint already rated")
	case errors.Is(err, ErrStatusChanged):
		return apperror.Conflict("complaint status does not allow this action")
	}
	return apperror.Dependency("store unavailable", err)
}
