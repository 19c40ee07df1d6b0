// Package validation holds the jellydator rules shared by request payload checks
// and the collection registry loader.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// WrapValidationError turns a validation error into a client-facing ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Errorf(apperrors.ErrInvalidInput, "%s", err.Error())
}

// PasswordStrength is the password policy applied to user create and edit.
type PasswordStrength struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

type characterClass struct {
	required bool
	code     string
	message  string
	matches  func(rune) bool
}

func isSpecial(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }

// Validate implements validation.Rule.
func (p PasswordStrength) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}
	if utf8.RuneCountInString(s) < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			fmt.Sprintf("password must be at least %d characters", p.MinLength),
		)
	}

	classes := []characterClass{
		{p.RequireUpper, "uppercase", "an uppercase letter", unicode.IsUpper},
		{p.RequireLower, "lowercase", "a lowercase letter", unicode.IsLower},
		{p.RequireNumber, "number", "a number", unicode.IsNumber},
		{p.RequireSpecial, "special", "a special character", isSpecial},
	}
	for _, class := range classes {
		if class.required && strings.IndexFunc(s, class.matches) < 0 {
			return validation.NewError(
				"validation_password_"+class.code,
				"password must contain at least "+class.message,
			)
		}
	}
	return nil
}

// Email checks the address shape used for user records.
var Email = validation.NewStringRuleWithError(
	emailRegex.MatchString,
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NoWhitespace rejects leading or trailing whitespace, as in login names.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool { return s == strings.TrimSpace(s) },
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool { return strings.TrimSpace(s) != "" },
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Identifier accepts the lowercase snake_case names of collections and actions.
var Identifier = validation.NewStringRuleWithError(
	identifierRegex.MatchString,
	validation.NewError("validation_identifier", "must be a lowercase identifier"),
)

// OneOf restricts a string to values.
func OneOf(values ...string) validation.Rule {
	allowed := make([]any, len(values))
	for i, v := range values {
		allowed[i] = v
	}
	return validation.In(allowed...).Error("must be one of: " + strings.Join(values, ", "))
}
