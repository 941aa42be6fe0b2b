package validation

import (
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Letters, digits, spaces and the punctuation industry names actually use:
// "Banking & Finance", "E-commerce", "Health/Medical", "R&D (Pharma)"
var industryRegex = regexp.MustCompile(`^[\p{L}\p{N} .'/&(),+-]+$`)

// New returns a validator with the custom tags registered
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("industry_name", IndustryName)
	_ = v.RegisterValidation("no_emoji", NoEmoji)
}

// IndustryName rejects control characters and symbols in industry names
func IndustryName(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Optional, use required if needed
	}
	return industryRegex.MatchString(val)
}

// NoEmoji validates that a string does not contain emoji characters
func NoEmoji(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, r := range val {
		// Supplementary planes are mostly emoji/symbols
		if r > 0x1F000 {
			return false
		}
		if unicode.In(r, unicode.So, unicode.Sk) {
			return false
		}
	}
	return true
}
