// Package apperr defines the typed business errors the service raises and
// the error-code taxonomy surfaced to API clients. Each value carries a
// machine-readable code, a human message and the HTTP status the response
// layer should use. Handlers return these as ordinary errors; the central
// HTTP error handler converts them into the uniform error envelope.
package apperr

import "net/http"

// Error is an expected business failure. It satisfies the error interface
// so it can flow through handler return values unchanged.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

// New builds an Error. Most callers should prefer the predeclared values
// below so that errors.Is comparisons work across layers.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

var (
	ErrUsernameExists       = New("U40401", "username already exists", http.StatusConflict)
	ErrEmailExists          = New("U40902", "email already in use", http.StatusConflict)
	ErrInvalidCredentials   = New("U40101", "invalid username or password", http.StatusUnauthorized)
	ErrMemberNotFound       = New("U40402", "member not found", http.StatusNotFound)
	ErrOldPasswordMismatch  = New("P40001", "old password is incorrect", http.StatusBadRequest)
	ErrNewPasswordSameAsOld = New("P40002", "new password must differ from the old password", http.StatusBadRequest)
	ErrUnauthorized         = New("A40101", "authentication required", http.StatusUnauthorized)
	ErrRoleAccessDenied     = New("R40301", "access denied", http.StatusForbidden)
	ErrRoleNotFound         = New("R40401", "role not found", http.StatusNotFound)
	ErrMissingToken         = New("AUTH_401", "refresh token is missing", http.StatusUnauthorized)
	ErrTokenInvalid         = New("AUTH_403", "refresh token is expired or invalid", http.StatusForbidden)
	ErrMalformedBody        = New("E40002", "malformed request body", http.StatusBadRequest)
	ErrInternal             = New("S50001", "internal server error", http.StatusInternalServerError)
)
