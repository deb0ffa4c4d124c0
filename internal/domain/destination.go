package domain

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const MaxURLLength = 2048

// destinationRule accepts absolute http(s) URLs with a host.
var destinationRule = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	parsed, err := url.ParseRequestURI(s)
	if err != nil {
		return validation.NewError("validation_url_format", "must be a valid URL")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return validation.NewError("validation_url_scheme", "scheme must be http or https")
	}
	if parsed.Host == "" {
		return validation.NewError("validation_url_host", "must have a host")
	}
	return nil
})

var destinationRules = []validation.Rule{
	validation.Length(0, MaxURLLength),
	is.URL,
	destinationRule,
}

// ValidateDestinationURL checks that rawURL is an absolute http or https URL.
// The returned error wraps ErrInvalidURL.
func ValidateDestinationURL(rawURL string) error {
	rules := append([]validation.Rule{validation.Required.Error("destination url is required")}, destinationRules...)
	if err := validation.Validate(rawURL, rules...); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return nil
}
