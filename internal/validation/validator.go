package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

var (
	validate *validator.Validate

	filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\s\(\)]+$`)
)

// Extensions accepted for uploaded datasets
var datasetExtensions = []string{".csv", ".tsv", ".txt"}

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("run_kind", validateRunKind); err != nil {
		panic(fmt.Sprintf("Failed to register run_kind validation: %v", err))
	}
	if err := validate.RegisterValidation("filename", validateFilename); err != nil {
		panic(fmt.Sprintf("Failed to register filename validation: %v", err))
	}
	if err := validate.RegisterValidation("dataset_file", validateDatasetFile); err != nil {
		panic(fmt.Sprintf("Failed to register dataset_file validation: %v", err))
	}
	if err := validate.RegisterValidation("no_control", validateNoControl); err != nil {
		panic(fmt.Sprintf("Failed to register no_control validation: %v", err))
	}

	// Report json names so messages match the request payload
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// Validate validates a struct and returns detailed validation errors
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validatorErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	validationErrors := make(ValidationErrors, 0, len(validatorErrors))
	for _, fieldError := range validatorErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldError.Field(),
			Value:   fieldError.Value(),
			Tag:     fieldError.Tag(),
			Message: getValidationMessage(fieldError),
		})
	}
	return validationErrors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

// ToAPIError converts validation errors to a VALIDATION_ERROR response
func ToAPIError(err error) *errors.APIError {
	verrs, ok := err.(ValidationErrors)
	if !ok {
		return errors.Validation("Invalid request", err)
	}
	fields := make([]errors.ValidationError, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, errors.ValidationError{
			Field:   v.Field,
			Message: v.Message,
			Value:   v.Value,
		})
	}
	return errors.NewValidationError(verrs.Error(), fields)
}

// Custom validation functions

func validateRunKind(fl validator.FieldLevel) bool {
	_, err := models.ParseRunKind(fl.Field().String())
	return err == nil
}

func validateFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if len(filename) == 0 || len(filename) > 255 {
		return false
	}
	if strings.Contains(filename, "..") {
		return false
	}
	return filenamePattern.MatchString(filename)
}

func validateDatasetFile(fl validator.FieldLevel) bool {
	name := strings.ToLower(fl.Field().String())
	for _, ext := range datasetExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func validateNoControl(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// getValidationMessage returns a human-readable validation error message
func getValidationMessage(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, param)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "run_kind":
		kinds := make([]string, len(models.AllRunKinds))
		for i, k := range models.AllRunKinds {
			kinds[i] = string(k)
		}
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(kinds, ", "))
	case "filename":
		return fmt.Sprintf("%s contains invalid characters or is too long", field)
	case "dataset_file":
		return fmt.Sprintf("%s must have one of the extensions: %s", field, strings.Join(datasetExtensions, ", "))
	case "no_control":
		return fmt.Sprintf("%s cannot contain control characters", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed validation (tag: %s)", field, tag)
	}
}
