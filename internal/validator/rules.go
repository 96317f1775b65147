package validator

import (
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"timetodo_backend/internal/models"
)

// enumRule - тег для перечисления из statuses.go и список допустимых значений
type enumRule struct {
	tag    string
	values []string
}

func values[T ~string](items ...T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it)
	}
	return out
}

var enumRules = []enumRule{
	{"is-plan", values(models.PlanFree, models.PlanStarter, models.PlanTeam, models.PlanBusiness)},
	{"is-addon-type", values(models.AddOnStorage, models.AddOnVideoAudio, models.AddOnUsers,
		models.AddOnProjects, models.AddOnFeatures, models.AddOnCombo)},
	{"is-billing-cycle", values(models.BillingMonthly, models.BillingYearly, models.BillingLifetime)},
	{"is-file-type", values(models.FileTypeImage, models.FileTypeDocument, models.FileTypeVideo,
		models.FileTypeAudio, models.FileTypeArchive, models.FileTypeOther)},
	{"is-period-type", values(models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly)},
}

func enumMessage(tag string) (string, bool) {
	for _, rule := range enumRules {
		if rule.tag == tag {
			return "Must be one of: " + strings.Join(rule.values, ", "), true
		}
	}
	return "", false
}

func registerCustomRules(v *validator.Validate) {
	for _, rule := range enumRules {
		allowed := make(map[string]struct{}, len(rule.values))
		for _, val := range rule.values {
			allowed[val] = struct{}{}
		}

		// пустое значение пропускаем, для этого есть 'required'
		fn := func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			_, ok := allowed[s]
			return ok
		}
		if err := v.RegisterValidation(rule.tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", rule.tag, err)
		}
	}
}
