package validator

import (
	"reflect"
	"strings"

	apperrors "github.com/SAP-F-2025/ielts-exam-service/internal/errors"
	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator validates request payloads by their struct tags.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates s and converts tag failures into ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := apperrors.ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("exam_module", validateExamModule)
	validate.RegisterValidation("manual_module", validateManualModule)
	validate.RegisterValidation("band", validateBand)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateExamModule accepts the modules a candidate saves answers for.
func validateExamModule(fl validator.FieldLevel) bool {
	switch models.Module(fl.Field().String()) {
	case models.ModuleReading, models.ModuleListening, models.ModuleWriting:
		return true
	}
	return false
}

func validateManualModule(fl validator.FieldLevel) bool {
	return models.Module(fl.Field().String()).IsManual()
}

func validateBand(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		return models.Band(field.Float()).Valid()
	}
	return false
}
