package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(rv reflect.Value) interface{} {
		d := rv.Interface().(decimal.Decimal)
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	return v
}

// maxGoal keeps goal amounts within decimal(12,2).
var maxGoal = decimal.New(1, 10)

// projectPayload is the validated shape of a project's scalar fields.
type projectPayload struct {
	Title         string              `json:"title" validate:"required,max=200"`
	Description   string              `json:"description" validate:"max=10000"`
	GoalAmount    decimal.Decimal     `json:"goal_amount" validate:"gte=0"`
	RewardTiers   []models.RewardTier `json:"reward_tiers" validate:"omitempty,dive"`
	TrailerURL    string              `json:"trailer_url" validate:"omitempty,url,max=500"`
	ShortVideoURL string              `json:"short_video_url" validate:"omitempty,url,max=500"`
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "url":
		return "Enter a valid URL."
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	case "excludesall":
		return "Must not contain spaces or @."
	}
	return "Invalid value."
}

// addValidatorErrors translates validator output into field messages keyed by JSON name.
func addValidatorErrors(verr *domain.ValidationError, err error) {
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		verr.Add("non_field_errors", err.Error())
		return
	}
	for _, fe := range fes {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		verr.Add(key, fieldMessage(fe))
	}
}

// validatePayload runs the struct rules and the money rules, adding messages to verr.
func validatePayload(verr *domain.ValidationError, p projectPayload) {
	if err := validate.Struct(p); err != nil {
		addValidatorErrors(verr, err)
	}
	checkMoney(verr, "goal_amount", p.GoalAmount)
	for i, tier := range p.RewardTiers {
		checkMoney(verr, fmt.Sprintf("reward_tiers[%d].amount", i), tier.Amount)
	}
}

func checkMoney(verr *domain.ValidationError, field string, d decimal.Decimal) {
	if !d.Equal(d.Round(2)) {
		verr.Add(field, "Ensure that there are no more than 2 decimal places.")
	}
	if d.GreaterThanOrEqual(maxGoal) {
		verr.Add(field, "Ensure that there are no more than 12 digits in total.")
	}
}
