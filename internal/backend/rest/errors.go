package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
)

// apiError covers both the auth and the table API error bodies.
type apiError struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Msg              string      `json:"msg"`
	Message          string      `json:"message"`
	ErrorName        string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
	Details          string      `json:"details"`
	Hint             string      `json:"hint"`
}

func (e *apiError) message() string {
	for _, candidate := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorName} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

func (e *apiError) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if s, ok := e.Code.(string); ok {
		return s
	}
	return e.ErrorName
}

// check turns a transport error or a non-2xx response into an error.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	out := &backend.Error{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*apiError); ok && body != nil {
		out.Code = body.code()
		out.Message = body.message()
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(string(resp.Body()))
	}
	if out.Message == "" {
		out.Message = http.StatusText(resp.StatusCode())
	}
	return out
}
