package chat

import (
	"errors"

	"github.com/vovakirdan/flowchat/internal/auth"
	"github.com/vovakirdan/flowchat/internal/proto"
)

// Status codes sent in statuscode on error replies.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUserExists         = "USER_EXISTS"
	CodeInvalidLogin       = "INVALID_LOGIN"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeInvalidName        = "INVALID_NAME"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotAuthenticated   = proto.CodeNotAuthenticated
	CodeRecipientNotFound  = "RECIPIENT_NOT_FOUND"
	CodeNoMessages         = "NO_MESSAGES"
	CodeTranslationFailed  = "TRANSLATION_FAILED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
)

// StatusError wraps a status code and human-readable message.
type StatusError struct {
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

func statusError(code, msg string) *StatusError {
	return &StatusError{Code: code, Message: msg}
}

var authCodes = []struct {
	err  error
	code string
}{
	{auth.ErrUserExists, CodeUserExists},
	{auth.ErrInvalidLogin, CodeInvalidLogin},
	{auth.ErrInvalidPassword, CodeInvalidPassword},
	{auth.ErrInvalidName, CodeInvalidName},
	{auth.ErrInvalidCredentials, CodeInvalidCredentials},
}

// toStatusError maps err to the code reported to the client.
// Unknown errors become CodeInternal with a generic message.
func toStatusError(err error) *StatusError {
	var se *StatusError
	if errors.As(err, &se) {
		return se
	}
	for _, m := range authCodes {
		if errors.Is(err, m.err) {
			return statusError(m.code, m.err.Error())
		}
	}
	return statusError(CodeInternal, "internal server error")
}
