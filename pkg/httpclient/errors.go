package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/luxemarket/storefront/pkg/errors"
)

// upstreamError is the error envelope returned by gateways that follow the
// same {"error":{"code","message"}} convention as this service.
type upstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads and closes the body of a non-2xx response and
// converts it to an error. Structured bodies keep their message; anything
// else is reported with the raw body.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", upstream, resp.StatusCode, err)
	}

	message := string(body)
	var parsed upstreamError
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
		message = parsed.Error.Message
	}

	return mapStatus(resp.StatusCode, upstream, message)
}

func mapStatus(status int, upstream, message string) error {
	qualified := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		// Our credentials were refused; the caller did nothing wrong.
		return apperrors.New("UPSTREAM_REJECTED", qualified, http.StatusBadGateway, apperrors.ErrServiceUnavail)
	case status == http.StatusTooManyRequests, status >= 500:
		return apperrors.ServiceUnavailable(qualified)
	default:
		return apperrors.New("UPSTREAM_ERROR", qualified, http.StatusBadGateway, nil)
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
