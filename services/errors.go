package services

import "errors"

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrInvalidCallbackURL  = errors.New("invalid callback url")
	ErrInvalidState        = errors.New("invalid oauth state")
	ErrStateExpired        = errors.New("oauth state expired")
	ErrProviderExchange    = errors.New("provider token exchange failed")
	ErrProviderProfile     = errors.New("unable to get user info")
	ErrSessionNotFound     = errors.New("session not found")

	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation failed")
)

// CallbackError gắn URL chuyển hướng lỗi (errorCallbackURL) vào lỗi của bước callback.
type CallbackError struct {
	Err      error
	ErrorURL string
}

func (e *CallbackError) Error() string { return e.Err.Error() }

func (e *CallbackError) Unwrap() error { return e.Err }

// ErrorCode trả về mã lỗi dạng snake_case dùng trong query "?error=" khi redirect.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedProvider):
		return "unsupported_provider"
	case errors.Is(err, ErrInvalidCallbackURL):
		return "invalid_callback_url"
	case errors.Is(err, ErrStateExpired):
		return "state_expired"
	case errors.Is(err, ErrInvalidState):
		return "state_mismatch"
	case errors.Is(err, ErrProviderExchange):
		return "invalid_code"
	case errors.Is(err, ErrProviderProfile):
		return "unable_to_get_user_info"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	default:
		return "internal_server_error"
	}
}
