package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetodo_backend/internal/models"
)

type planInput struct {
	Plan   models.PlanType   `json:"plan" validate:"required,is-plan"`
	Period models.PeriodType `form:"period_type" validate:"omitempty,is-period-type"`
	Days   int               `form:"days" validate:"omitempty,min=1,max=365"`
}

func TestValidate_CustomEnumRules(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(planInput{Plan: models.PlanTeam, Period: models.PeriodWeekly}))
	assert.NoError(t, v.Validate(planInput{Plan: models.PlanFree}), "empty optional enum passes")

	err := v.Validate(planInput{Plan: "platinum", Period: "hourly", Days: 400})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Must be one of: free, starter, team, business", verr.Errors["plan"])
	assert.Equal(t, "Must be one of: daily, weekly, monthly", verr.Errors["period_type"])
	assert.Equal(t, "Must be at most 365", verr.Errors["days"])
}

func TestValidate_Required(t *testing.T) {
	err := New().Validate(planInput{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "This field is required", verr.Errors["plan"])
}
