package logging

import (
	"context"
	"regexp"
	"strings"
)

const (
	redacted           = "[REDACTED]"
	cardNumberRedacted = "[CARD_NUMBER_REDACTED]"
)

var sensitiveKeyFragments = []string{
	"password",
	"token",
	"cvv",
	"cardnumber",
	"card_number",
	"accountnumber",
	"account_number",
	"secret",
	"apikey",
	"authorization",
}

var (
	cardNumberPattern = regexp.MustCompile(`\b\d{13,19}\b`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// RedactingLogger masks values of sensitive keys, card-number-looking
// strings and email addresses before passing records to the wrapped Logger.
type RedactingLogger struct {
	next Logger
}

func NewRedactingLogger(next Logger) *RedactingLogger {
	return &RedactingLogger{next: next}
}

func (r *RedactingLogger) Debug(ctx context.Context, msg string, args ...any) {
	r.next.Debug(redactContext(ctx), msg, redactArgs(args)...)
}

func (r *RedactingLogger) Info(ctx context.Context, msg string, args ...any) {
	r.next.Info(redactContext(ctx), msg, redactArgs(args)...)
}

func (r *RedactingLogger) Warn(ctx context.Context, msg string, args ...any) {
	r.next.Warn(redactContext(ctx), msg, redactArgs(args)...)
}

func (r *RedactingLogger) Error(ctx context.Context, msg string, args ...any) {
	r.next.Error(redactContext(ctx), msg, redactArgs(args)...)
}

func (r *RedactingLogger) With(args ...any) Logger {
	return &RedactingLogger{next: r.next.With(redactArgs(args)...)}
}

// IsSensitiveKey reports whether values logged under key must be hidden.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, f := range sensitiveKeyFragments {
		if strings.Contains(k, f) {
			return true
		}
	}
	return false
}

// MaskEmail keeps the first character of the local part and the domain.
// Values that are not an address are fully redacted.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return redacted
	}
	return email[:1] + "***" + email[at:]
}

func maskEmails(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, MaskEmail)
}

func redactArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}
	out := make([]any, len(args))
	copy(out, args)

	for i := 0; i < len(out); i++ {
		key, isKey := out[i].(string)
		if isKey && i+1 < len(out) {
			if IsSensitiveKey(key) {
				out[i+1] = redacted
			} else {
				out[i+1] = redactValue(out[i+1])
			}
			i++
			continue
		}
		out[i] = redactValue(out[i])
	}
	return out
}

// redactContext swaps fields attached with WithFields for redacted copies.
func redactContext(ctx context.Context) context.Context {
	f := Fields(ctx)
	if len(f) == 0 {
		return ctx
	}
	return context.WithValue(ctx, fieldsKey{}, redactArgs(f))
}

func redactValue(v any) any {
	switch x := v.(type) {
	case string:
		return maskEmails(cardNumberPattern.ReplaceAllString(x, cardNumberRedacted))
	case error:
		return maskEmails(cardNumberPattern.ReplaceAllString(x.Error(), cardNumberRedacted))
	}
	return v
}
