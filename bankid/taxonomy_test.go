package bankid

import (
	"errors"
	"strings"
	"testing"
)

func classifyErr(t *testing.T, res *outcome, overrides map[int]Override) *Error {
	t.Helper()

	_, err := classify[OrderResponse](res, overrides)
	if err == nil {
		t.Fatalf("expected an error for %+v", res)
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	return e
}

func TestClassifyDefaultTable(t *testing.T) {
	tests := []struct {
		status   int
		wantKind ErrorKind
		wantMsg  string
	}{
		{401, ErrUnauthorized, "You do not have access to the service."},
		{403, ErrUnauthorized, "You do not have access to the service."},
		{404, ErrNotFound, "An invalid URL path was used."},
		{405, ErrMethodNotAllowed, "Only HTTP method POST is allowed."},
		{408, ErrRequestTimeout, "Timeout while transmitting the request."},
		{415, ErrUnsupportedMediaType, "The type is missing or invalid."},
		{500, ErrInternal, "Internal technical error in the remote system."},
		{503, ErrMaintenance, "The service is temporarily unavailable."},
	}

	for _, tt := range tests {
		// the body is ignored for table entries, and repeated calls agree
		for _, body := range []string{"", `{"errorCode":"x","details":"y"}`} {
			e := classifyErr(t, &outcome{status: tt.status, body: []byte(body)}, nil)
			if e.Status != tt.status || e.Kind != tt.wantKind || e.Details != tt.wantMsg {
				t.Errorf("%d: got (%d, %s, %q), want (%d, %s, %q)",
					tt.status, e.Status, e.Kind, e.Details, tt.status, tt.wantKind, tt.wantMsg)
			}
			if !errors.Is(e, tt.wantKind) {
				t.Errorf("%d: errors.Is(err, %s) = false", tt.status, tt.wantKind)
			}
		}
	}
}

func TestClassifyNoResponse(t *testing.T) {
	e := classifyErr(t, nil, nil)

	if e.Status != 0 || e.Kind != ErrInternal || e.Details != "no response from server" {
		t.Errorf("got (%d, %s, %q)", e.Status, e.Kind, e.Details)
	}
}

func TestClassifyUnhandledStatus(t *testing.T) {
	for _, status := range []int{302, 409, 429, 502, 504} {
		e := classifyErr(t, &outcome{status: status}, nil)
		if e.Status != status || e.Kind != ErrInternal || e.Details != "unhandled error" {
			t.Errorf("%d: got (%d, %s, %q)", status, e.Status, e.Kind, e.Details)
		}
	}
}

func TestClassifySuccessStampsStatus(t *testing.T) {
	body := `{"orderRef":"131daac9-16c6-4618-beb0-365768f37288","autoStartToken":"7c40b5c9-fa74-49cf-b98c-bfe651f9a7c6","qrStartToken":"67df3917-fa0d-44e5-b327-edcc928297f8","qrStartSecret":"d28db9a7-4cde-429e-a983-359be676944c"}`

	resp, err := classify[OrderResponse](&outcome{status: 200, body: []byte(body)}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.HTTPStatus != 200 {
		t.Errorf("HTTPStatus: got %d, want 200", resp.HTTPStatus)
	}
	if resp.OrderRef != "131daac9-16c6-4618-beb0-365768f37288" {
		t.Errorf("OrderRef: got %q", resp.OrderRef)
	}
	if !resp.HasQR() {
		t.Errorf("expected QR seed to be present")
	}
}

func TestClassifySuccessMissingField(t *testing.T) {
	e := classifyErr(t, &outcome{status: 200, body: []byte(`{"autoStartToken":"abc"}`)}, nil)

	if e.Status != 200 || e.Kind != ErrInvalidParameters {
		t.Errorf("got (%d, %s)", e.Status, e.Kind)
	}
	if !strings.Contains(e.Details, "failed to parse response") || !strings.Contains(e.Details, "orderRef") {
		t.Errorf("details do not describe the decode failure: %q", e.Details)
	}
}

func TestClassifySuccessMalformedJSON(t *testing.T) {
	e := classifyErr(t, &outcome{status: 200, body: []byte(`{"orderRef":`)}, nil)

	if e.Status != 200 || e.Kind != ErrInvalidParameters || e.Err == nil {
		t.Errorf("got (%d, %s, %v)", e.Status, e.Kind, e.Err)
	}
}

func TestClassifyCollectResponse(t *testing.T) {
	body := `{"orderRef":"abc","status":"pending","hintCode":"outstandingTransaction"}`

	resp, err := classify[CollectResponse](&outcome{status: 200, body: []byte(body)}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != OrderStatusPending || resp.HTTPStatus != 200 || resp.Done() {
		t.Errorf("got %+v", resp)
	}

	_, err = classify[CollectResponse](&outcome{status: 200, body: []byte(`{"orderRef":"abc","status":"complete"}`)}, nil)
	if !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("complete without completionData: got %v", err)
	}
}

func TestClassifyBadRequest(t *testing.T) {
	e := classifyErr(t, &outcome{status: 400, body: []byte(`{"errorCode":"alreadyInProgress","details":"order already active"}`)}, nil)

	if e.Status != 400 || e.Kind != ErrInvalidParameters || e.Details != "alreadyInProgress: order already active" {
		t.Errorf("got (%d, %s, %q)", e.Status, e.Kind, e.Details)
	}
}

func TestClassifyBadRequestMalformed(t *testing.T) {
	bodies := []string{
		``,
		`not json`,
		`{"errorCode":"invalidParameters"}`,
		`{"details":"no code"}`,
	}

	for _, body := range bodies {
		e := classifyErr(t, &outcome{status: 400, body: []byte(body)}, nil)
		if e.Status != 400 || e.Kind != ErrInvalidParameters || !strings.HasPrefix(e.Details, "failed to parse error response: ") {
			t.Errorf("%q: got (%d, %s, %q)", body, e.Status, e.Kind, e.Details)
		}
	}
}

func TestClassifyOverrides(t *testing.T) {
	overrides := map[int]Override{
		400: {Message: "custom bad request"},
		404: {Kind: ErrAlreadyInProgress, Message: "order gone"},
		418: {Message: "teapot"},
	}

	tests := []struct {
		status   int
		wantKind ErrorKind
		wantMsg  string
	}{
		{400, ErrInvalidParameters, "custom bad request"},
		{404, ErrAlreadyInProgress, "order gone"},
		{418, ErrInvalidParameters, "teapot"},
		// untouched entries keep the default mapping
		{503, ErrMaintenance, "The service is temporarily unavailable."},
	}

	for _, tt := range tests {
		e := classifyErr(t, &outcome{status: tt.status, body: []byte(`{"errorCode":"a","details":"b"}`)}, overrides)
		if e.Status != tt.status || e.Kind != tt.wantKind || e.Details != tt.wantMsg {
			t.Errorf("%d: got (%d, %s, %q), want (%s, %q)", tt.status, e.Status, e.Kind, e.Details, tt.wantKind, tt.wantMsg)
		}
	}

	// overrides never apply to a 200
	if _, err := classify[OrderResponse](&outcome{status: 200, body: []byte(`{"orderRef":"x"}`)}, map[int]Override{200: {Message: "nope"}}); err != nil {
		t.Errorf("200 with override: unexpected error %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	e := newError(404, ErrNotFound, "An invalid URL path was used.")
	if got := e.Error(); got != "bankid: NOT_FOUND (status 404): An invalid URL path was used." {
		t.Errorf("got %q", got)
	}

	e = newError(0, ErrInternal, "no response from server")
	if got := e.Error(); got != "bankid: INTERNAL_ERROR: no response from server" {
		t.Errorf("got %q", got)
	}

	if errors.Is(e, ErrNotFound) {
		t.Errorf("INTERNAL_ERROR must not match NOT_FOUND")
	}
}
