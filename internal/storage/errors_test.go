package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		kind apperror.Kind
	}{
		{storage.ErrNotFound, apperror.KindNotFound},
		{fmt.Errorf("lookup: %w", storage.ErrNotFound), apperror.KindNotFound},
		{storage.ErrDuplicate, apperror.KindConflict},
		{storage.ErrDuplicateVote, apperror.KindConflict},
		{storage.ErrNotVoted, apperror.KindValidation},
		{storage.ErrAlreadyRated, apperror.KindConflict},
		{storage.ErrStatusChanged, apperror.KindConflict},
		{context.DeadlineExceeded, apperror.KindDependency},
		{errors.New("connection refused"), apperror.KindDependency},
		{apperror.Forbidden("no"), apperror.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.kind, apperror.KindOf(storage.Classify(tt.err, "complaint")))
		})
	}
	assert.NoError(t, storage.Classify(nil, "complaint"))
	assert.Equal(t, "complaint not found", storage.Classify(storage.ErrNotFound, "complaint").Error())
}
