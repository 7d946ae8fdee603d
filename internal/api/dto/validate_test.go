package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/task-service/internal/api/dto"
	apperrors "github.com/opsdesk/task-service/pkg/util/errorutil"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := dto.Validate(&dto.CreateTaskRequest{Description: "no title"})

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "required", domainErr.Details["title"])
	assert.Equal(t, "required", domainErr.Details["department_id"])
}

func TestValidateRejectsBlankComments(t *testing.T) {
	err := dto.Validate(&dto.UpdateTaskRequest{Comments: []string{"ok", ""}})

	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "comments[1]")
}

func TestValidateAcceptsValidPayloads(t *testing.T) {
	assert.NoError(t, dto.Validate(&dto.CreateTaskRequest{Title: "t", DepartmentID: "d"}))
	assert.NoError(t, dto.Validate(&dto.UpdateTaskRequest{}))
	assert.NoError(t, dto.Validate(&dto.SendNotificationRequest{Message: "hi", RecipientUsername: "bob", Kind: "TASK"}))
	assert.Error(t, dto.Validate(&dto.SendNotificationRequest{Message: "hi", RecipientUsername: "bob", Kind: "EMAIL"}))
}
