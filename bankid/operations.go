package bankid

import "context"

const (
	endpointAuth         = "/auth"
	endpointSign         = "/sign"
	endpointPayment      = "/payment"
	endpointPhoneAuth    = "/phone/auth"
	endpointPhoneSign    = "/phone/sign"
	endpointOtherPayment = "/other/payment"
	endpointCollect      = "/collect"
	endpointCancel       = "/cancel"
)

// Auth starts an authentication order.
func (s *Session) Auth(ctx context.Context, cfg AuthConfig, opts ...CallOption) (OrderResponse, error) {
	return s.startOrder(ctx, endpointAuth, cfg, opts)
}

// Sign starts a signing order.
func (s *Session) Sign(ctx context.Context, cfg SignConfig, opts ...CallOption) (OrderResponse, error) {
	return s.startOrder(ctx, endpointSign, cfg, opts)
}

// Payment starts a payment order.
func (s *Session) Payment(ctx context.Context, cfg PaymentConfig, opts ...CallOption) (OrderResponse, error) {
	return s.startOrder(ctx, endpointPayment, cfg, opts)
}

func (s *Session) PhoneAuth(ctx context.Context, cfg PhoneAuthConfig, opts ...CallOption) (OrderResponse, error) {
	return s.startOrder(ctx, endpointPhoneAuth, cfg, opts)
}

func (s *Session) PhoneSign(ctx context.Context, cfg PhoneSignConfig, opts ...CallOption) (OrderResponse, error) {
	return s.startOrder(ctx, endpointPhoneSign, cfg, opts)
}

func (s *Session) OtherPayment(ctx context.Context, cfg OtherPaymentConfig, opts ...CallOption) (OrderResponse, error) {
	return s.startOrder(ctx, endpointOtherPayment, cfg, opts)
}

// Collect fetches the status of an order. It does not change CurrentOrder.
func (s *Session) Collect(ctx context.Context, cfg CollectConfig, opts ...CallOption) (CollectResponse, error) {
	return dispatch[CollectResponse](ctx, s, endpointCollect, cfg, opts)
}

// Cancel cancels an order. It does not change CurrentOrder.
func (s *Session) Cancel(ctx context.Context, cfg CancelConfig, opts ...CallOption) (CancelResponse, error) {
	return dispatch[CancelResponse](ctx, s, endpointCancel, cfg, opts)
}

// CollectCurrent collects the order returned by CurrentOrder.
func (s *Session) CollectCurrent(ctx context.Context, opts ...CallOption) (CollectResponse, error) {
	orderRef := s.CurrentOrder()
	if orderRef == "" && s.Initialized() {
		return CollectResponse{}, newError(0, ErrInvalidParameters, "no current order")
	}

	return s.Collect(ctx, NewCollectConfig(orderRef), opts...)
}

func (s *Session) startOrder(ctx context.Context, endpoint string, cfg Payloader, opts []CallOption) (OrderResponse, error) {
	resp, err := dispatch[OrderResponse](ctx, s, endpoint, cfg, opts)
	if err != nil {
		return OrderResponse{}, err
	}

	s.setCurrentOrder(resp.OrderRef)

	return resp, nil
}
