package llm

// 统一的后端错误码，用于对齐 HTTP 状态、可重试性与投票层的丢弃策略。
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "BACKEND_INVALID_REQUEST"      // 参数/格式错误
	ErrUnauthorized        ErrorCode = "BACKEND_UNAUTHORIZED"         // 未授权或密钥失效
	ErrForbidden           ErrorCode = "BACKEND_FORBIDDEN"            // 权限或内容策略拒绝
	ErrRateLimited         ErrorCode = "BACKEND_RATE_LIMITED"         // 上游或本地限流
	ErrUpstreamTimeout     ErrorCode = "BACKEND_UPSTREAM_TIMEOUT"     // 上游超时
	ErrUpstreamError       ErrorCode = "BACKEND_UPSTREAM_ERROR"       // 上游 5xx/网络错误
	ErrProviderUnavailable ErrorCode = "BACKEND_PROVIDER_UNAVAILABLE" // Provider 不可用
)

// Error is the structured backend error returned by a Sampler. The voting
// layer treats every Sampler error the same way (discard the attempt), so the
// code/retryable split only matters to callers outside the engine.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a backend error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause attaches the underlying transport error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the upstream HTTP status.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// CodeFromStatus maps an upstream HTTP status to an ErrorCode.
func CodeFromStatus(status int) ErrorCode {
	switch {
	case status == 401:
		return ErrUnauthorized
	case status == 403:
		return ErrForbidden
	case status == 429:
		return ErrRateLimited
	case status == 408 || status == 504:
		return ErrUpstreamTimeout
	case status >= 500:
		return ErrUpstreamError
	case status >= 400:
		return ErrInvalidRequest
	default:
		return ErrUpstreamError
	}
}
