package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"hostelgrievance/backend/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperror.Validation("missing title"), http.StatusBadRequest},
		{"auth", apperror.Auth("token expired"), http.StatusUnauthorized},
		{"forbidden", apperror.Forbidden("validators only"), http.StatusForbidden},
		{"not found", apperror.NotFound("complaint not found"), http.StatusNotFound},
		{"conflict", apperror.Conflict("already upvoted"), http.StatusConflict},
		{"dependency", apperror.Dependency("store", errors.New("timeout")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("ctx: %w", apperror.Conflict("dup")), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperror.HTTPStatus(tt.err))
		})
	}
}

func TestDependencyUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperror.Dependency("failed to load complaint", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, apperror.Is(err, apperror.KindDependency))
	assert.Equal(t, "failed to load complaint: connection refused", err.Error())
	assert.Equal(t, "internal server error", apperror.PublicMessage(err))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "already rated", apperror.PublicMessage(apperror.Conflict("already rated")))
	assert.Equal(t, "internal server error", apperror.PublicMessage(errors.New("raw sql text")))
	assert.False(t, apperror.Is(nil, apperror.KindConflict))
}

type fileInput struct {
	Title    string `validate:"required"`
	Category string `validate:"required"`
	Rating   int    `validate:"min=1,max=5"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, apperror.Validate(fileInput{Title: "t", Category: "c", Rating: 3}))

	err := apperror.Validate(fileInput{Rating: 6})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	var e *apperror.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, map[string]string{"title": "required", "category": "required", "rating": "max"}, e.Fields)
	assert.Equal(t, "invalid fields: title, category, rating", e.Message)
}
