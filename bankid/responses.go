package bankid

// OrderResponse is returned by every call that starts an order
// (auth, sign, payment, phone/auth, phone/sign, other/payment).
type OrderResponse struct {
	// HTTPStatus is the transport status the response was decoded from.
	HTTPStatus int `json:"-"`

	OrderRef       string `json:"orderRef"`
	AutoStartToken string `json:"autoStartToken,omitempty"`

	// QRStartToken and QRStartSecret seed the animated QR code. They are only
	// used to build a qrcode.Handle and are never sent back to the API.
	QRStartToken  string `json:"qrStartToken,omitempty"`
	QRStartSecret string `json:"qrStartSecret,omitempty"`
}

func (r *OrderResponse) setHTTPStatus(status int) { r.HTTPStatus = status }

func (r *OrderResponse) validate() error {
	if r.OrderRef == "" {
		return missingField("orderRef")
	}
	return nil
}

// HasQR reports whether the response carries a QR seed.
func (r OrderResponse) HasQR() bool {
	return r.QRStartToken != "" && r.QRStartSecret != ""
}

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusComplete OrderStatus = "complete"
)

// CollectResponse is the result of /collect. Status is the application status
// of the order, not to be confused with HTTPStatus.
type CollectResponse struct {
	HTTPStatus int `json:"-"`

	OrderRef       string          `json:"orderRef"`
	Status         OrderStatus     `json:"status"`
	HintCode       string          `json:"hintCode,omitempty"`
	CompletionData *CompletionData `json:"completionData,omitempty"`
}

func (r *CollectResponse) setHTTPStatus(status int) { r.HTTPStatus = status }

func (r *CollectResponse) validate() error {
	if r.OrderRef == "" {
		return missingField("orderRef")
	}
	if r.Status == "" {
		return missingField("status")
	}
	if r.Status == OrderStatusComplete && r.CompletionData == nil {
		return missingField("completionData")
	}
	return nil
}

func (r CollectResponse) Done() bool {
	return r.Status == OrderStatusComplete || r.Status == OrderStatusFailed
}

type CompletionData struct {
	User            CompletionUser   `json:"user"`
	Device          CompletionDevice `json:"device"`
	StepUp          *StepUp          `json:"stepUp,omitempty"`
	BankIDIssueDate string           `json:"bankIdIssueDate"`
	Signature       string           `json:"signature"`
	OCSPResponse    string           `json:"ocspResponse"`
	Risk            string           `json:"risk,omitempty"`
}

type CompletionUser struct {
	PersonalNumber string `json:"personalNumber"`
	Name           string `json:"name"`
	GivenName      string `json:"givenName"`
	Surname        string `json:"surname"`
}

type CompletionDevice struct {
	IPAddress string `json:"ipAddress"`
	UHI       string `json:"uhi,omitempty"`
}

type StepUp struct {
	MRTD bool `json:"mrtd"`
}

// CancelResponse is the (empty) result of /cancel.
type CancelResponse struct {
	HTTPStatus int `json:"-"`
}

func (r *CancelResponse) setHTTPStatus(status int) { r.HTTPStatus = status }
