package validation

import (
	"errors"
	"strings"

	"github.com/authdash/internal/domain"
)

const maxCodeLength = 512

// ValidateProviderLogin checks a login reported by the OAuth provider before it
// becomes the local username. The provider owns its naming rules, so older
// forms (double or trailing hyphens, underscores) are accepted as-is.
func ValidateProviderLogin(login string) error {
	if login == "" {
		return domain.WrapRequiredFieldMissing("username")
	}
	return nil
}

// ValidateAccountID validates a provider account ID
func ValidateAccountID(accountID int64) error {
	if accountID <= 0 {
		return domain.WrapValidationError("accountID", errors.New("must be positive"))
	}
	return nil
}

// ValidateCode validates an OAuth authorization code before it is sent upstream
func ValidateCode(code string) error {
	if code == "" {
		return domain.WrapRequiredFieldMissing("code")
	}
	if len(code) > maxCodeLength {
		return domain.WrapValidationError("code", errors.New("is too long"))
	}
	if strings.ContainsAny(code, " \t\r\n") {
		return domain.WrapValidationError("code", errors.New("cannot contain whitespace"))
	}
	return nil
}

// ValidateReturnPath checks that a path remembered for after-login navigation
// stays on this site
func ValidateReturnPath(path string) error {
	if path == "" {
		return domain.WrapRequiredFieldMissing("path")
	}
	if !strings.HasPrefix(path, "/") {
		return domain.WrapValidationError("path", errors.New("must be absolute"))
	}
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return domain.WrapValidationError("path", errors.New("cannot point to another host"))
	}
	return nil
}
