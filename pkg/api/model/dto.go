package model

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"smme_finmodel/pkg/core/assumption"
)

// Response is the JSON envelope of every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail is one rejected request field.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ModelRequest carries a model document.
type ModelRequest struct {
	Model json.RawMessage `json:"model" validate:"required"`
}

// ReportRequest selects the report format. Scenarios appends the scenario
// comparison and, when the model defines one, the sensitivity grid.
type ReportRequest struct {
	Model     json.RawMessage `json:"model" validate:"required"`
	Format    string          `json:"format" validate:"omitempty,oneof=markdown html"`
	Scenarios bool            `json:"scenarios"`
}

// SensitivityRequest overrides the model's own sweep when Sensitivity is set.
type SensitivityRequest struct {
	Model       json.RawMessage               `json:"model" validate:"required"`
	Sensitivity *assumption.SensitivityDriver `json:"sensitivity"`
}

// SaveRequest persists a model. ExpectedVersion 0 overwrites unconditionally.
type SaveRequest struct {
	Model           json.RawMessage `json:"model" validate:"required"`
	ExpectedVersion int64           `json:"expectedVersion" validate:"gte=0"`
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationDetails(err error) []ValidationDetail {
	var details []ValidationDetail
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			details = append(details, ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
		}
	}
	return details
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
