package bankid

import (
	"encoding/base64"
	"slices"
)

// Payload is the key/value body of a request. Unset optional fields are
// absent, never null or empty.
type Payload map[string]any

// Payloader is implemented by every operation configuration.
type Payloader interface {
	Payload() Payload
}

type VisibleDataFormat string

const (
	FormatPlaintext        VisibleDataFormat = "plaintext"
	FormatSimpleMarkdownV1 VisibleDataFormat = "simpleMarkdownV1"
)

type CallInitiator string

const (
	CallInitiatorUser CallInitiator = "user"
	CallInitiatorRP   CallInitiator = "RP"
)

// AppConfig describes the native app the order is started from.
type AppConfig struct {
	AppIdentifier    string `json:"appIdentifier"`
	DeviceOS         string `json:"deviceOS"`
	DeviceIdentifier string `json:"deviceIdentifier"`
	DeviceModelName  string `json:"deviceModelName"`
}

// WebConfig describes the browser the order is started from.
type WebConfig struct {
	DeviceIdentifier string `json:"deviceIdentifier"`
	ReferringDomain  string `json:"referringDomain"`
	UserAgent        string `json:"userAgent"`
}

// device is either an AppConfig or a WebConfig; a request carries at most one.
type device interface {
	payloadKey() string
}

func (AppConfig) payloadKey() string { return "app" }
func (WebConfig) payloadKey() string { return "web" }

// Requirement restricts which BankIDs may complete an order.
type Requirement struct {
	// CardReader is "class1" or "class2".
	CardReader          *string  `json:"cardReader,omitempty"`
	CertificatePolicies []string `json:"certificatePolicies,omitempty"`
	MRTD                *bool    `json:"mrtd,omitempty"`
	PersonalNumber      *string  `json:"personalNumber,omitempty"`
	PinCode             *bool    `json:"pinCode,omitempty"`
}

func (r Requirement) clone() Requirement {
	return Requirement{
		CardReader:          clonePtr(r.CardReader),
		CertificatePolicies: slices.Clone(r.CertificatePolicies),
		MRTD:                clonePtr(r.MRTD),
		PersonalNumber:      clonePtr(r.PersonalNumber),
		PinCode:             clonePtr(r.PinCode),
	}
}

// EncodeVisibleData base64-encodes UTF-8 text for userVisibleData / userNonVisibleData.
func EncodeVisibleData(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// visibleData groups the text fields shown to (or hidden from) the user.
type visibleData struct {
	userVisibleData       *string
	userNonVisibleData    *string
	userVisibleDataFormat *VisibleDataFormat
}

func (v visibleData) put(p Payload) {
	putPtr(p, "userVisibleData", v.userVisibleData)
	putPtr(p, "userNonVisibleData", v.userNonVisibleData)
	putPtr(p, "userVisibleDataFormat", v.userVisibleDataFormat)
}

// startOptions groups the fields shared by orders started on the same device.
type startOptions struct {
	returnRisk  *bool
	returnURL   *string
	requirement *Requirement
	device      device
}

func (o startOptions) put(p Payload) {
	putPtr(p, "returnRisk", o.returnRisk)
	putPtr(p, "returnUrl", o.returnURL)
	if o.requirement != nil {
		p["requirement"] = *o.requirement
	}
	if o.device != nil {
		p[o.device.payloadKey()] = o.device
	}
}

func putPtr[T any](p Payload, key string, v *T) {
	if v != nil {
		p[key] = *v
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func requirementPtr(r Requirement) *Requirement {
	c := r.clone()
	return &c
}
