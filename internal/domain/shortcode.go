package domain

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MinShortCodeLength = 3
	MaxShortCodeLength = 20
)

var shortCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// shortCodeRules is reused by ValidateShortCode and ClickRecord.Validate.
var shortCodeRules = []validation.Rule{
	validation.Required.Error("short code is required"),
	validation.Length(MinShortCodeLength, MaxShortCodeLength).Error("short code must be 3-20 characters"),
	validation.Match(shortCodeRegex).Error("short code must contain only alphanumeric characters, underscores, and hyphens"),
}

// ValidateShortCode checks the code format. The returned error wraps ErrInvalidShortCode.
func ValidateShortCode(code string) error {
	if err := validation.Validate(code, shortCodeRules...); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShortCode, err)
	}
	return nil
}
