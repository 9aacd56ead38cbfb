package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/offlinehacker/gobankid/bankid"
	"github.com/offlinehacker/gobankid/qrcode"
	"github.com/offlinehacker/gobankid/x"
)

const (
	pollStatusQRCode      = "qrCode"
	pollStatusNewOrderRef = "newOrderRef"
	pollStatusComplete    = "complete"
	pollStatusFailed      = "failed"
)

type InitResponse struct {
	Status         string `json:"status"`
	OrderRef       string `json:"orderRef"`
	AutoStartToken string `json:"autoStartToken"`
	AuthCountdown  int    `json:"authCountdown"`
}

type PollResponse struct {
	Status   string                 `json:"status"`
	OrderRef string                 `json:"orderRef,omitempty"`
	QRCode   string                 `json:"qrCode,omitempty"`
	HintCode string                 `json:"hintCode,omitempty"`
	User     *bankid.CompletionUser `json:"user,omitempty"`
}

type CancelRequest struct {
	OrderRef string `json:"orderRef"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := x.Ternary(s.session.Initialized(), "healthy", "degraded")
	respondWithJSON(w, http.StatusOK, map[string]string{"status": status})
}

// handleInit starts an authentication order and registers its QR handle.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.startAuth(r)
	if err != nil {
		s.respondWithBankIDError(w, "auth", err)
		return
	}

	respondWithJSON(w, http.StatusOK, InitResponse{
		Status:         "success",
		OrderRef:       order.OrderRef,
		AutoStartToken: order.AutoStartToken,
		AuthCountdown:  int(s.config.AuthTimeout / time.Second),
	})
}

// handlePoll answers every call with the next QR code of a registered order.
// The remote order is collected at most once per poll interval; in between
// the last hint code is repeated. A failed authentication is replaced by a
// fresh one whose reference is returned with status newOrderRef.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	orderRef := r.URL.Query().Get("orderRef")
	if orderRef == "" {
		respondWithError(w, http.StatusBadRequest, "orderRef is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.registry.Lookup(orderRef)
	tracked := s.orders[orderRef]
	if !ok || tracked == nil {
		s.logger.Debug("no live QR handle for order", slog.String("orderRef", orderRef))
		respondWithJSON(w, http.StatusOK, PollResponse{Status: pollStatusFailed})
		return
	}

	if !tracked.limiter.Allow() {
		respondWithJSON(w, http.StatusOK, PollResponse{
			Status:   pollStatusQRCode,
			OrderRef: orderRef,
			QRCode:   handle.NextCode(),
			HintCode: tracked.hintCode,
		})
		return
	}

	resp, err := s.session.Collect(r.Context(), bankid.NewCollectConfig(orderRef))
	if err != nil {
		s.respondWithBankIDError(w, "collect", err)
		return
	}

	switch resp.Status {
	case bankid.OrderStatusComplete:
		s.forget(orderRef)
		respondWithJSON(w, http.StatusOK, PollResponse{
			Status:   pollStatusComplete,
			OrderRef: orderRef,
			User:     &resp.CompletionData.User,
		})

	case bankid.OrderStatusFailed:
		s.forget(orderRef)

		if tracked.reissue == nil {
			s.logger.Info("order failed",
				slog.String("orderRef", orderRef),
				slog.String("hintCode", resp.HintCode))
			respondWithJSON(w, http.StatusOK, PollResponse{
				Status:   pollStatusFailed,
				OrderRef: orderRef,
				HintCode: resp.HintCode,
			})
			return
		}

		s.logger.Info("order failed, starting a new one",
			slog.String("orderRef", orderRef),
			slog.String("hintCode", resp.HintCode))

		order, err := tracked.reissue(r)
		if err != nil {
			s.respondWithBankIDError(w, "reissue", err)
			return
		}

		next, ok := s.registry.Lookup(order.OrderRef)
		if !ok {
			respondWithJSON(w, http.StatusOK, PollResponse{Status: pollStatusFailed})
			return
		}

		respondWithJSON(w, http.StatusOK, PollResponse{
			Status:   pollStatusNewOrderRef,
			OrderRef: order.OrderRef,
			QRCode:   next.NextCode(),
		})

	default:
		tracked.hintCode = resp.HintCode
		respondWithJSON(w, http.StatusOK, PollResponse{
			Status:   pollStatusQRCode,
			OrderRef: orderRef,
			QRCode:   handle.NextCode(),
			HintCode: resp.HintCode,
		})
	}
}

// handlePayment starts a card payment order.
func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	cfg := bankid.NewPaymentConfig(s.config.EndUserIP, bankid.CardPayment("Test Merchant Inc.", "100,00", "SEK")).
		WithReturnRisk(true).
		WithUserVisibleData(bankid.EncodeVisibleData("Payment for test purchase")).
		WithRiskFlags("largeAmount", "newCustomer")

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.session.Payment(r.Context(), cfg)
	if err != nil {
		s.respondWithBankIDError(w, "payment", err)
		return
	}
	s.register(order, nil)

	respondWithJSON(w, http.StatusOK, InitResponse{
		Status:         "success",
		OrderRef:       order.OrderRef,
		AutoStartToken: order.AutoStartToken,
		AuthCountdown:  int(s.config.AuthTimeout / time.Second),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderRef == "" {
		respondWithError(w, http.StatusBadRequest, "orderRef is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.session.Cancel(r.Context(), bankid.NewCancelConfig(req.OrderRef)); err != nil {
		s.respondWithBankIDError(w, "cancel", err)
		return
	}
	s.forget(req.OrderRef)

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "orderRef": req.OrderRef})
}

// startAuth must be called with mu held.
func (s *Server) startAuth(r *http.Request) (bankid.OrderResponse, error) {
	cfg := bankid.NewAuthConfig(s.config.EndUserIP).
		WithUserVisibleText("Log in to the demo service")

	order, err := s.session.Auth(r.Context(), cfg)
	if err != nil {
		return bankid.OrderResponse{}, err
	}
	s.register(order, s.startAuth)

	return order, nil
}

// trackedOrder is the server-side state of an order handed out to a client.
type trackedOrder struct {
	limiter  *rate.Limiter
	hintCode string

	// reissue starts a replacement when the order fails; nil if the
	// order is not replaced.
	reissue func(*http.Request) (bankid.OrderResponse, error)
}

// register must be called with mu held.
func (s *Server) register(order bankid.OrderResponse, reissue func(*http.Request) (bankid.OrderResponse, error)) {
	if _, ok := s.registry.Register(qrcode.SeedFrom(order, time.Now())); !ok {
		s.logger.Warn("order carries no QR seed", slog.String("orderRef", order.OrderRef))
		return
	}
	s.orders[order.OrderRef] = &trackedOrder{
		limiter: rate.NewLimiter(rate.Every(s.config.PollInterval), 1),
		reissue: reissue,
	}
}

func (s *Server) forget(orderRef string) {
	s.registry.Evict(orderRef)
	delete(s.orders, orderRef)
}

// respondWithBankIDError passes the remote error status through. Anything
// that is not an error status (no response, undecodable 200) becomes 502.
func (s *Server) respondWithBankIDError(w http.ResponseWriter, op string, err error) {
	var bankidErr *bankid.Error
	if !errors.As(err, &bankidErr) {
		s.logger.Error("unexpected error", slog.String("operation", op), slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Warn("bankid call failed",
		slog.String("operation", op),
		slog.Int("status", bankidErr.Status),
		slog.String("kind", string(bankidErr.Kind)),
		slog.String("details", bankidErr.Details))

	status := bankidErr.Status
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}

	respondWithJSON(w, status, map[string]string{
		"error":   string(bankidErr.Kind),
		"details": bankidErr.Details,
	})
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
