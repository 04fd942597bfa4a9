package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/go-playground/validator/v10"
)

var (
	reAngle      = regexp.MustCompile(`[<>]`)
	reJSScheme   = regexp.MustCompile(`(?i)javascript:`)
	reHandler    = regexp.MustCompile(`(?i)on\w+\s*=`)
	reScript     = regexp.MustCompile(`(?i)script`)
	reNameReject = regexp.MustCompile(`[^\p{L}\s'-]`)
)

func sanitizeText(s string) string {
	s = strings.TrimSpace(s)
	s = reAngle.ReplaceAllString(s, "")
	s = reJSScheme.ReplaceAllString(s, "")
	s = reHandler.ReplaceAllString(s, "")
	s = reScript.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}

func sanitizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = reAngle.ReplaceAllString(s, "")
	s = reJSScheme.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}

// sanitizeName keeps letters, spaces, apostrophes and hyphens.
func sanitizeName(s string) string {
	s = sanitizeText(s)
	s = reNameReject.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// invalid turns validator output into an ErrValidation with field detail.
func invalid(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(parts, "; "))
}
