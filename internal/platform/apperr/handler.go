package apperr

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Body is the error half of the response envelope.
type Body struct {
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Envelope is the JSON shape of every failed response.
type Envelope struct {
	OK    bool `json:"ok"`
	Error Body `json:"error"`
}

// HTTPErrorHandler renders every error returned by a handler or middleware
// as an error envelope. Internal failures are logged and reported
// generically.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := toBody(err)
		if body.Status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", fmt.Sprintf("%v", c.Get("request_id"))).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(body.Status)
		} else {
			werr = c.JSON(body.Status, Envelope{OK: false, Error: body})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func toBody(err error) Body {
	if e, ok := As(err); ok {
		status := e.Kind.Status()
		msg := e.Message
		if e.Kind == KindInternal {
			msg = "internal server error"
		}
		return Body{Message: msg, Code: e.Code, Status: status, Details: e.Details}
	}

	if he, ok := err.(*echo.HTTPError); ok {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		if he.Code == http.StatusInternalServerError {
			msg = "internal server error"
		}
		return Body{Message: msg, Code: codeForStatus(he.Code), Status: he.Code}
	}

	return Body{Message: "internal server error", Code: CodeInternal, Status: http.StatusInternalServerError}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		return CodeInternal
	}
}
