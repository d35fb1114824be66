package security

import (
	"errors"
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// ErrWeakPassword indicates a password that fails the configured policy.
var ErrWeakPassword = errors.New("password does not meet policy")

// PasswordRule checks a single aspect of a candidate password.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordValidator applies an ordered set of rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator builds a validator over the given rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	return &PasswordValidator{rules: rules}
}

// DefaultPasswordValidator returns the policy applied at registration and
// password change: minimum length, character classes, and an estimated
// strength floor.
func DefaultPasswordValidator(minLength, minScore int) *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule{Min: minLength},
		CharacterClassRule{},
		StrengthRule{MinScore: minScore},
	)
}

// Validate returns the first rule violation, or nil if all rules pass.
func (v *PasswordValidator) Validate(password string) error {
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule rejects passwords shorter than Min runes.
type MinLengthRule struct {
	Min int
}

func (r MinLengthRule) Validate(password string) error {
	if len([]rune(password)) < r.Min {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, r.Min)
	}
	return nil
}

// CharacterClassRule requires at least one uppercase letter, one lowercase
// letter and one digit.
type CharacterClassRule struct{}

func (r CharacterClassRule) Validate(password string) error {
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: must contain an uppercase letter", ErrWeakPassword)
	}
	if !hasLower {
		return fmt.Errorf("%w: must contain a lowercase letter", ErrWeakPassword)
	}
	if !hasDigit {
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	}
	return nil
}

// StrengthRule rejects passwords whose estimated strength score falls below
// MinScore. Scores range 0..4.
type StrengthRule struct {
	MinScore int
}

func (r StrengthRule) Validate(password string) error {
	result := zxcvbn.PasswordStrength(password, nil)
	if result.Score < r.MinScore {
		return fmt.Errorf("%w: too easy to guess", ErrWeakPassword)
	}
	return nil
}
