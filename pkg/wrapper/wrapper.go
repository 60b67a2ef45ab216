package wrapper

import "github.com/Alwanly/service-fleet-monitor/pkg/apperror"

// JSONResult carries the HTTP status alongside the body a handler should write.
type JSONResult struct {
	Code    int    `json:"-"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorBody is the wire shape of every failed API call.
type ErrorBody struct {
	Error string `json:"error" example:"not_found"`
}

func ResponseSuccess(httpCode int, data any) JSONResult {
	return JSONResult{
		Code:    httpCode,
		Success: true,
		Message: "Success",
		Data:    data,
	}
}

func ResponseFailed(httpCode int, message string, data any) JSONResult {
	return JSONResult{
		Code:    httpCode,
		Success: false,
		Message: message,
		Data:    data,
	}
}

// ResponseError maps a domain error onto its status code and `{error: kind}` body.
func ResponseError(err error) JSONResult {
	kind := apperror.Kind(err)
	return ResponseFailed(apperror.Status(err), kind, ErrorBody{Error: kind})
}
