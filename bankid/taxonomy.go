package bankid

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// outcome is what came back from a single POST. A nil *outcome means no
// response was received at all (DNS, TLS handshake, refused, timeout).
type outcome struct {
	status int
	body   []byte
}

// Override replaces the default classification of one HTTP status for one call.
type Override struct {
	// Kind defaults to ErrInvalidParameters when empty.
	Kind    ErrorKind
	Message string
}

type statusMessage struct {
	kind    ErrorKind
	message string
}

var defaultErrors = map[int]statusMessage{
	401: {ErrUnauthorized, "You do not have access to the service."},
	403: {ErrUnauthorized, "You do not have access to the service."},
	404: {ErrNotFound, "An invalid URL path was used."},
	405: {ErrMethodNotAllowed, "Only HTTP method POST is allowed."},
	408: {ErrRequestTimeout, "Timeout while transmitting the request."},
	415: {ErrUnsupportedMediaType, "The type is missing or invalid."},
	500: {ErrInternal, "Internal technical error in the remote system."},
	503: {ErrMaintenance, "The service is temporarily unavailable."},
}

type errorResponseSchema struct {
	ErrorCode *string `json:"errorCode"`
	Details   *string `json:"details"`
}

// httpStatusSetter is implemented by responses that record the transport status.
type httpStatusSetter interface {
	setHTTPStatus(status int)
}

// validator is implemented by responses with fields the API always sends.
type validator interface {
	validate() error
}

// classify turns the result of one exchange into either a decoded T or an *Error.
// The checks run in a fixed order: no response, 200, per-call overrides, 400,
// the default status table, and finally everything else.
func classify[T any](res *outcome, overrides map[int]Override) (T, error) {
	var zero T

	if res == nil {
		return zero, newError(0, ErrInternal, "no response from server")
	}

	if res.status == http.StatusOK {
		var parsed T
		if err := decodeResponse(res.body, &parsed); err != nil {
			e := newError(res.status, ErrInvalidParameters, "failed to parse response: "+err.Error())
			e.Err = err
			return zero, e
		}

		if s, ok := any(&parsed).(httpStatusSetter); ok {
			s.setHTTPStatus(res.status)
		}

		return parsed, nil
	}

	if o, ok := overrides[res.status]; ok {
		kind := o.Kind
		if kind == "" {
			kind = ErrInvalidParameters
		}
		return zero, newError(res.status, kind, o.Message)
	}

	if res.status == http.StatusBadRequest {
		errResp, err := decodeErrorResponse(res.body)
		if err != nil {
			e := newError(res.status, ErrInvalidParameters, "failed to parse error response: "+err.Error())
			e.Err = err
			return zero, e
		}
		return zero, newError(res.status, ErrInvalidParameters, *errResp.ErrorCode+": "+*errResp.Details)
	}

	if def, ok := defaultErrors[res.status]; ok {
		return zero, newError(res.status, def.kind, def.message)
	}

	return zero, newError(res.status, ErrInternal, "unhandled error")
}

func decodeResponse(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return err
	}

	if val, ok := v.(validator); ok {
		return val.validate()
	}

	return nil
}

func decodeErrorResponse(body []byte) (errorResponseSchema, error) {
	var resp errorResponseSchema
	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, err
	}

	if resp.ErrorCode == nil {
		return resp, errors.New("missing field 'errorCode'")
	}
	if resp.Details == nil {
		return resp, errors.New("missing field 'details'")
	}

	return resp, nil
}

func missingField(name string) error {
	return fmt.Errorf("missing required field '%s'", name)
}
