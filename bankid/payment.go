package bankid

import (
	"slices"

	"gogs.mikescher.com/BlackForestBytes/goext/langext"
)

type TransactionType string

const (
	TransactionCard TransactionType = "card"
	TransactionNPA  TransactionType = "npa"
)

// Money is an amount in the form the app displays it, e.g. "100,00" and "SEK".
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type Recipient struct {
	Name string `json:"name"`
}

// Transaction is shown to the user in the app when approving a payment.
type Transaction struct {
	TransactionType TransactionType `json:"transactionType"`
	Recipient       Recipient       `json:"recipient"`
	Money           *Money          `json:"money,omitempty"`
	RiskWarning     string          `json:"riskWarning,omitempty"`
}

// CardPayment is the transaction for a card payment to recipient.
func CardPayment(recipient string, amount string, currency string) Transaction {
	return Transaction{
		TransactionType: TransactionCard,
		Recipient:       Recipient{Name: recipient},
		Money:           &Money{Amount: amount, Currency: currency},
	}
}

func (t Transaction) clone() Transaction {
	t.Money = clonePtr(t.Money)
	return t
}

// PaymentConfig is the request for /payment.
type PaymentConfig struct {
	endUserIP   string
	transaction Transaction
	riskFlags   []string
	visibleData
	startOptions
}

func NewPaymentConfig(endUserIP string, transaction Transaction) PaymentConfig {
	return PaymentConfig{endUserIP: endUserIP, transaction: transaction.clone()}
}

func (c PaymentConfig) EndUserIP() string { return c.endUserIP }

func (c PaymentConfig) WithRiskWarning(v string) PaymentConfig {
	c.transaction = c.transaction.clone()
	c.transaction.RiskWarning = v
	return c
}

func (c PaymentConfig) WithRiskFlags(flags ...string) PaymentConfig {
	c.riskFlags = slices.Clone(flags)
	return c
}

func (c PaymentConfig) WithReturnRisk(v bool) PaymentConfig {
	c.returnRisk = langext.Ptr(v)
	return c
}

func (c PaymentConfig) WithReturnURL(v string) PaymentConfig {
	c.returnURL = langext.Ptr(v)
	return c
}

func (c PaymentConfig) WithRequirement(v Requirement) PaymentConfig {
	c.requirement = requirementPtr(v)
	return c
}

func (c PaymentConfig) WithApp(v AppConfig) PaymentConfig {
	c.device = v
	return c
}

func (c PaymentConfig) WithWeb(v WebConfig) PaymentConfig {
	c.device = v
	return c
}

func (c PaymentConfig) WithUserVisibleData(v string) PaymentConfig {
	c.userVisibleData = langext.Ptr(v)
	return c
}

func (c PaymentConfig) WithUserNonVisibleData(v string) PaymentConfig {
	c.userNonVisibleData = langext.Ptr(v)
	return c
}

func (c PaymentConfig) WithUserVisibleDataFormat(v VisibleDataFormat) PaymentConfig {
	c.userVisibleDataFormat = langext.Ptr(v)
	return c
}

func (c PaymentConfig) Payload() Payload {
	p := Payload{
		"endUserIp":              c.endUserIP,
		"userVisibleTransaction": c.transaction.clone(),
	}
	if len(c.riskFlags) > 0 {
		p["riskFlags"] = slices.Clone(c.riskFlags)
	}
	c.visibleData.put(p)
	c.startOptions.put(p)
	return p
}

// OtherPaymentConfig is the request for /other/payment: a payment approved by
// the user on a device the relying party talks to out of band (e.g. over the phone).
type OtherPaymentConfig struct {
	callInitiator  CallInitiator
	transaction    Transaction
	personalNumber *string
	riskFlags      []string
	requirement    *Requirement
	visibleData
}

func NewOtherPaymentConfig(callInitiator CallInitiator, transaction Transaction) OtherPaymentConfig {
	return OtherPaymentConfig{callInitiator: callInitiator, transaction: transaction.clone()}
}

func (c OtherPaymentConfig) WithPersonalNumber(v string) OtherPaymentConfig {
	c.personalNumber = langext.Ptr(v)
	return c
}

func (c OtherPaymentConfig) WithRiskWarning(v string) OtherPaymentConfig {
	c.transaction = c.transaction.clone()
	c.transaction.RiskWarning = v
	return c
}

func (c OtherPaymentConfig) WithRiskFlags(flags ...string) OtherPaymentConfig {
	c.riskFlags = slices.Clone(flags)
	return c
}

func (c OtherPaymentConfig) WithRequirement(v Requirement) OtherPaymentConfig {
	c.requirement = requirementPtr(v)
	return c
}

func (c OtherPaymentConfig) WithUserVisibleData(v string) OtherPaymentConfig {
	c.userVisibleData = langext.Ptr(v)
	return c
}

func (c OtherPaymentConfig) WithUserNonVisibleData(v string) OtherPaymentConfig {
	c.userNonVisibleData = langext.Ptr(v)
	return c
}

func (c OtherPaymentConfig) WithUserVisibleDataFormat(v VisibleDataFormat) OtherPaymentConfig {
	c.userVisibleDataFormat = langext.Ptr(v)
	return c
}

func (c OtherPaymentConfig) Payload() Payload {
	p := Payload{
		"callInitiator":          c.callInitiator,
		"userVisibleTransaction": c.transaction.clone(),
	}
	putPtr(p, "personalNumber", c.personalNumber)
	if len(c.riskFlags) > 0 {
		p["riskFlags"] = slices.Clone(c.riskFlags)
	}
	if c.requirement != nil {
		p["requirement"] = *c.requirement
	}
	c.visibleData.put(p)
	return p
}
