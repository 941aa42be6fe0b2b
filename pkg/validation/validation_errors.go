package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to user-friendly labels
var FieldLabels = map[string]string{
	"Industry":   "Industry",
	"Experience": "Years of experience",
	"Bio":        "Bio",
	"Skills":     "Skills",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	label := fieldLabel(e)
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", label)

	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at least %s characters", label, param)
		}
		return fmt.Sprintf("%s: must be at least %s", label, param)

	case "max":
		switch e.Kind().String() {
		case "string":
			return fmt.Sprintf("%s: must be at most %s characters", label, param)
		case "slice":
			return fmt.Sprintf("%s: at most %s entries allowed", label, param)
		}
		return fmt.Sprintf("%s: must be at most %s", label, param)

	case "industry_name":
		return fmt.Sprintf("%s: only letters, digits, spaces and . ' / & ( ) , + - are allowed", label)

	case "no_emoji":
		return fmt.Sprintf("%s: must not contain emoji or special symbols", label)

	default:
		return fmt.Sprintf("%s: failed validation (%s)", label, e.Tag())
	}
}

// fieldLabel resolves the label, keeping the index for slice elements:
// "Skills[2]" -> "Skills #3"
func fieldLabel(e validator.FieldError) string {
	name := e.Field()
	base, index, isElem := strings.Cut(name, "[")
	label := getFieldLabel(base)
	if isElem {
		var i int
		if _, err := fmt.Sscanf(index, "%d]", &i); err == nil {
			return fmt.Sprintf("%s #%d", label, i+1)
		}
	}
	return label
}

// getFieldLabel returns the user-friendly label for a field
func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
