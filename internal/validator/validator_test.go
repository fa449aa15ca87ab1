package validator

import (
	"testing"

	apperrors "github.com/SAP-F-2025/ielts-exam-service/internal/errors"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moduleRequest struct {
	Module string `json:"module" validate:"required,exam_module"`
}

type gradeRequest struct {
	Module string       `json:"module" validate:"required,manual_module"`
	Band   *models.Band `json:"band" validate:"required,band"`
}

func TestValidator_ExamModule(t *testing.T) {
	v := New()

	for _, m := range []string{"reading", "listening", "writing"} {
		assert.NoError(t, v.Validate(moduleRequest{Module: m}), m)
	}
	for _, m := range []string{"speaking", "maths", "Reading"} {
		assert.Error(t, v.Validate(moduleRequest{Module: m}), m)
	}
}

func TestValidator_GradeRequest(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(gradeRequest{Module: "writing", Band: models.Band(6.5).Ptr()}))
	assert.NoError(t, v.Validate(gradeRequest{Module: "speaking", Band: models.Band(0).Ptr()}))

	err := v.Validate(gradeRequest{Module: "reading", Band: models.Band(6.25).Ptr()})
	require.Error(t, err)

	var verrs apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "module", verrs[0].Field)
	assert.Equal(t, "manual_module", verrs[0].Rule)
	assert.Equal(t, "band", verrs[1].Field)
	assert.Equal(t, "band", verrs[1].Rule)

	err = v.Validate(gradeRequest{Module: "writing", Band: models.Band(9.5).Ptr()})
	assert.Error(t, err)
}
