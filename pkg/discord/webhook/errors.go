package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// FailureClass groups Discord webhook failures by how a caller should react.
type FailureClass string

const (
	FailureAuthDenied         FailureClass = "auth_denied"
	FailureNotFound           FailureClass = "not_found"
	FailureRateLimited        FailureClass = "rate_limited"
	FailureDiscordUnavailable FailureClass = "discord_unavailable"
	FailureRejected           FailureClass = "rejected"
	FailureUnknown            FailureClass = "unknown"
)

// Error is a classified webhook failure.
type Error struct {
	Operation  string
	StatusCode int
	Class      FailureClass
	Temporary  bool
	Cause      error
}

func (e *Error) Error() string {
	status := "status unknown"
	if e.StatusCode > 0 {
		status = fmt.Sprintf("status %d", e.StatusCode)
	}
	var base string
	switch e.Class {
	case FailureAuthDenied:
		base = fmt.Sprintf("%s denied (%s: invalid token or missing permission)", e.Operation, status)
	case FailureNotFound:
		base = fmt.Sprintf("%s failed (%s: webhook or message not found)", e.Operation, status)
	case FailureRateLimited:
		base = fmt.Sprintf("%s failed (%s: rate limited; temporary)", e.Operation, status)
	case FailureDiscordUnavailable:
		base = fmt.Sprintf("%s failed (%s: Discord API unavailable; temporary)", e.Operation, status)
	case FailureRejected:
		base = fmt.Sprintf("%s rejected by Discord (%s)", e.Operation, status)
	default:
		base = fmt.Sprintf("%s failed (%s)", e.Operation, status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error { return e.Cause }

// classify wraps a discordgo error with its failure class.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	out := &Error{Operation: operation, Class: FailureUnknown, Cause: err}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		out.StatusCode = restErr.Response.StatusCode
		switch code := out.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			out.Class = FailureAuthDenied
		case code == http.StatusNotFound:
			out.Class = FailureNotFound
		case code == http.StatusTooManyRequests:
			out.Class, out.Temporary = FailureRateLimited, true
		case code >= 500 && code < 600:
			out.Class, out.Temporary = FailureDiscordUnavailable, true
		case code == http.StatusBadRequest:
			out.Class = FailureRejected
		}
		return out
	}
	if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		out.StatusCode = http.StatusTooManyRequests
		out.Class, out.Temporary = FailureRateLimited, true
	}
	return out
}

// IsTemporary reports whether err is a webhook failure worth retrying.
func IsTemporary(err error) bool {
	var we *Error
	return errors.As(err, &we) && we.Temporary
}
