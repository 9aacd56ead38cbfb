package bankid

// CollectConfig is the request for /collect.
type CollectConfig struct {
	orderRef string
}

func NewCollectConfig(orderRef string) CollectConfig {
	return CollectConfig{orderRef: orderRef}
}

func (c CollectConfig) Payload() Payload {
	return Payload{"orderRef": c.orderRef}
}

// CancelConfig is the request for /cancel.
type CancelConfig struct {
	orderRef string
}

func NewCancelConfig(orderRef string) CancelConfig {
	return CancelConfig{orderRef: orderRef}
}

func (c CancelConfig) Payload() Payload {
	return Payload{"orderRef": c.orderRef}
}
