package shared

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageRequest(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"defaults", DefaultPage, DefaultPageSize, 1, 10, 0},
		{"page below one", 0, 10, 1, 10, 0},
		{"negative size", 2, -3, 2, 1, 1},
		{"size above max", 3, 1000, 3, MaxPageSize, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewPageRequest(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, req.Page)
			assert.Equal(t, tt.wantSize, req.Size)
			assert.Equal(t, tt.wantOffset, req.Offset())
			assert.Equal(t, tt.wantSize, req.Limit())
		})
	}
}

func TestNewPageNeverNil(t *testing.T) {
	page := NewPage[string](NewPageRequest(1, 10), 0, nil)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Conflict("duplicate %s", "name"))
	assert.Equal(t, CodeConflict, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeConflict))
	assert.False(t, IsCode(nil, CodeConflict))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	cause := errors.New("disk I/O error")
	internal := Internal("failed to query", cause)
	assert.Equal(t, CodeInternal, CodeOf(internal))
	assert.ErrorIs(t, internal, cause)

	notFound := NotFound("building %d not found", 3)
	assert.Same(t, notFound, Internal("ignored", notFound))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeValidation))
	assert.Equal(t, http.StatusConflict, HTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(CodeUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeInternal))
}

type sample struct {
	Name  string   `json:"name" validate:"required,max=3"`
	Score *float64 `json:"score" validate:"required,gte=0"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := Validate(&sample{Name: "toolong"})
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeValidation, appErr.Code)

	details, ok := appErr.Details.([]FieldError)
	require.True(t, ok)
	require.Len(t, details, 2)
	assert.Equal(t, FieldError{Field: "name", Message: "field 'name' must not exceed 3", Code: "validation_max"}, details[0])
	assert.Equal(t, "score", details[1].Field)
	assert.Equal(t, "validation_required", details[1].Code)

	score := 1.5
	assert.NoError(t, Validate(&sample{Name: "ok", Score: &score}))
}

func TestDirectorySubject(t *testing.T) {
	assert.Equal(t, "directory.organizations.updated", DirectorySubject(ResourceOrganizations, EventTypeUpdated))
}
