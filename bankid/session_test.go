package bankid_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/offlinehacker/gobankid/bankid"
	"github.com/offlinehacker/gobankid/bankid/bankidtest"
)

type call struct {
	endpoint string
	do       func(ctx context.Context, s *bankid.Session) error
}

func allCalls() []call {
	tx := bankid.CardPayment("Shop", "1,00", "SEK")
	return []call{
		{"/auth", func(ctx context.Context, s *bankid.Session) error {
			_, err := s.Auth(ctx, bankid.NewAuthConfig("192.168.1.1"))
			return err
		}},
		{"/sign", func(ctx context.Context, s *bankid.Session) error {
			_, err := s.Sign(ctx, bankid.NewSignConfig("192.168.1.1", "dGV4dA=="))
			return err
		}},
		{"/payment", func(ctx context.Context, s *bankid.Session) error {
			_, err := s.Payment(ctx, bankid.NewPaymentConfig("192.168.1.1", tx))
			return err
		}},
		{"/phone/auth", func(ctx context.Context, s *bankid.Session) error {
			_, err := s.PhoneAuth(ctx, bankid.NewPhoneAuthConfig(bankid.CallInitiatorUser))
			return err
		}},
		{"/phone/sign", func(ctx context.Context, s *bankid.Session) error {
			_, err := s.PhoneSign(ctx, bankid.NewPhoneSignConfig(bankid.CallInitiatorRP, "dGV4dA=="))
			return err
		}},
		{"/other/payment", func(ctx context.Context, s *bankid.Session) error {
			_, err := s.OtherPayment(ctx, bankid.NewOtherPaymentConfig(bankid.CallInitiatorRP, tx))
			return err
		}},
		{"/collect", func(ctx context.Context, s *bankid.Session) error {
			_, err := s.Collect(ctx, bankid.NewCollectConfig("abc"))
			return err
		}},
		{"/cancel", func(ctx context.Context, s *bankid.Session) error {
			_, err := s.Cancel(ctx, bankid.NewCancelConfig("abc"))
			return err
		}},
	}
}

func TestSessionNotInitialized(t *testing.T) {
	srv := bankidtest.NewServer(t)

	cfg := srv.TLS
	cfg.CertPath = filepath.Join(t.TempDir(), "does-not-exist.pem")

	if cfg.Validate() {
		t.Fatalf("Validate() accepted a missing certificate")
	}

	session := bankid.New(cfg, bankid.WithBaseURL(srv.URL))
	defer session.Close()

	if session.State() != bankid.StateFailed || session.Initialized() {
		t.Fatalf("state: got %s, want failed", session.State())
	}
	if session.InitError() == nil {
		t.Errorf("InitError() is nil for a failed session")
	}

	ctx := context.Background()

	for _, c := range allCalls() {
		err := c.do(ctx, session)

		var e *bankid.Error
		if !errors.As(err, &e) {
			t.Fatalf("%s: expected *bankid.Error, got %v", c.endpoint, err)
		}
		if e.Kind != bankid.ErrNotInitialized || e.Status != http.StatusInternalServerError {
			t.Errorf("%s: got (%d, %s)", c.endpoint, e.Status, e.Kind)
		}
	}

	if _, err := session.CollectCurrent(ctx); !errors.Is(err, bankid.ErrNotInitialized) {
		t.Errorf("CollectCurrent: got %v", err)
	}

	if n := len(srv.Requests()); n != 0 {
		t.Errorf("uninitialized session performed %d requests", n)
	}
}

func TestSessionInvalidCA(t *testing.T) {
	srv := bankidtest.NewServer(t)

	// a readable file that holds no certificate passes Validate but not initialisation
	cfg := srv.TLS.WithCAPath(srv.TLS.KeyPath)

	session := bankid.New(cfg, bankid.WithBaseURL(srv.URL))
	if session.State() != bankid.StateFailed {
		t.Errorf("state: got %s, want failed", session.State())
	}
}

func TestSessionStatusMappedRegardlessOfEndpoint(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session()
	defer session.Close()

	if !session.Initialized() {
		t.Fatalf("session not initialized: %v", session.InitError())
	}

	ctx := context.Background()

	for _, c := range allCalls() {
		srv.Enqueue(c.endpoint, http.StatusNotFound, "")

		err := c.do(ctx, session)

		var e *bankid.Error
		if !errors.As(err, &e) {
			t.Fatalf("%s: expected *bankid.Error, got %v", c.endpoint, err)
		}
		if e.Kind != bankid.ErrNotFound || e.Status != 404 || e.Details != "An invalid URL path was used." {
			t.Errorf("%s: got (%d, %s, %q)", c.endpoint, e.Status, e.Kind, e.Details)
		}
	}
}

func TestSessionRequestShape(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session()
	defer session.Close()

	ctx := context.Background()

	for _, c := range allCalls() {
		_ = c.do(ctx, session)
	}

	reqs := srv.Requests()
	if len(reqs) != len(allCalls()) {
		t.Fatalf("got %d requests, want %d", len(reqs), len(allCalls()))
	}

	for i, c := range allCalls() {
		if reqs[i].Endpoint != c.endpoint {
			t.Errorf("request %d: endpoint %s, want %s", i, reqs[i].Endpoint, c.endpoint)
		}
		if !reqs[i].HasCert {
			t.Errorf("%s: client certificate was not presented", c.endpoint)
		}
	}

	if got := string(reqs[0].Raw); got != `{"endUserIp":"192.168.1.1"}` {
		t.Errorf("auth body: got %s", got)
	}
}

func TestSessionAuthCollectComplete(t *testing.T) {
	srv := bankidtest.NewServer(t)
	srv.CompleteAfter(1)

	session := srv.Session()
	defer session.Close()

	ctx := context.Background()

	if session.CurrentOrder() != "" {
		t.Fatalf("fresh session has a current order")
	}

	order, err := session.Auth(ctx, bankid.NewAuthConfig("192.168.1.1"))
	if err != nil {
		t.Fatalf("auth failed: %v", err)
	}
	if order.HTTPStatus != 200 || order.OrderRef == "" || order.AutoStartToken == "" || !order.HasQR() {
		t.Fatalf("unexpected auth response %+v", order)
	}
	if session.CurrentOrder() != order.OrderRef {
		t.Errorf("CurrentOrder: got %q, want %q", session.CurrentOrder(), order.OrderRef)
	}

	pending, err := session.CollectCurrent(ctx)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if pending.Status != bankid.OrderStatusPending || pending.HintCode != "outstandingTransaction" {
		t.Errorf("first collect: got %+v", pending)
	}

	done, err := session.Collect(ctx, bankid.NewCollectConfig(order.OrderRef))
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if done.Status != bankid.OrderStatusComplete || done.CompletionData == nil {
		t.Fatalf("second collect: got %+v", done)
	}
	if done.CompletionData.User.PersonalNumber != "190000000000" {
		t.Errorf("personal number: got %q", done.CompletionData.User.PersonalNumber)
	}

	if session.CurrentOrder() != order.OrderRef {
		t.Errorf("collect changed the current order")
	}
}

func TestSessionPhoneOrderHasNoQR(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session()
	defer session.Close()

	order, err := session.PhoneAuth(context.Background(), bankid.NewPhoneAuthConfig(bankid.CallInitiatorUser))
	if err != nil {
		t.Fatalf("phone auth failed: %v", err)
	}
	if order.HasQR() || order.AutoStartToken != "" {
		t.Errorf("phone order carried a QR seed: %+v", order)
	}
	if session.CurrentOrder() != order.OrderRef {
		t.Errorf("CurrentOrder not updated by phone auth")
	}
}

func TestSessionCancel(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session()
	defer session.Close()

	ctx := context.Background()

	order, err := session.Sign(ctx, bankid.NewSignConfig("192.168.1.1", bankid.EncodeVisibleData("I agree")))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	resp, err := session.Cancel(ctx, bankid.NewCancelConfig(order.OrderRef))
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if resp.HTTPStatus != 200 {
		t.Errorf("HTTPStatus: got %d", resp.HTTPStatus)
	}
	if _, ok := srv.OrderStatus(order.OrderRef); ok {
		t.Errorf("order still exists after cancel")
	}

	_, err = session.Collect(ctx, bankid.NewCollectConfig(order.OrderRef))

	var e *bankid.Error
	if !errors.As(err, &e) || e.Status != 400 || e.Details != "notFound: No such order" {
		t.Errorf("collect after cancel: got %v", err)
	}
}

func TestSessionFailedStartKeepsCurrentOrder(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session()
	defer session.Close()

	ctx := context.Background()

	first, err := session.Auth(ctx, bankid.NewAuthConfig("192.168.1.1"))
	if err != nil {
		t.Fatalf("auth failed: %v", err)
	}

	srv.Enqueue("/auth", 400, `{"errorCode":"alreadyInProgress","details":"order already active"}`)

	_, err = session.Auth(ctx, bankid.NewAuthConfig("192.168.1.1"))

	var e *bankid.Error
	if !errors.As(err, &e) || e.Kind != bankid.ErrInvalidParameters || e.Details != "alreadyInProgress: order already active" {
		t.Fatalf("got %v", err)
	}

	if session.CurrentOrder() != first.OrderRef {
		t.Errorf("failed start replaced the current order")
	}
}

func TestSessionCollectCurrentWithoutOrder(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session()
	defer session.Close()

	_, err := session.CollectCurrent(context.Background())

	var e *bankid.Error
	if !errors.As(err, &e) || e.Kind != bankid.ErrInvalidParameters || e.Status != 0 {
		t.Errorf("got %v", err)
	}
	if len(srv.Requests()) != 0 {
		t.Errorf("CollectCurrent without an order performed I/O")
	}
}

func TestSessionStatusOverride(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session()
	defer session.Close()

	srv.Enqueue("/auth", 503, "")

	_, err := session.Auth(context.Background(), bankid.NewAuthConfig("192.168.1.1"),
		bankid.WithStatusOverride(503, "", "try again in a minute"))

	var e *bankid.Error
	if !errors.As(err, &e) || e.Kind != bankid.ErrInvalidParameters || e.Details != "try again in a minute" {
		t.Errorf("got %v", err)
	}
}

func TestSessionMalformedSuccess(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session()
	defer session.Close()

	srv.Enqueue("/auth", 200, `{"autoStartToken":"abc"}`)

	_, err := session.Auth(context.Background(), bankid.NewAuthConfig("192.168.1.1"))

	var e *bankid.Error
	if !errors.As(err, &e) || e.Kind != bankid.ErrInvalidParameters || e.Status != 200 || !strings.Contains(e.Details, "failed to parse response") {
		t.Errorf("got %v", err)
	}
	if session.CurrentOrder() != "" {
		t.Errorf("undecodable response set the current order")
	}
}

func TestSessionNoResponse(t *testing.T) {
	srv := bankidtest.NewServer(t)
	session := srv.Session(bankid.WithTimeout(2 * time.Second))
	defer session.Close()

	srv.Close()

	_, err := session.Auth(context.Background(), bankid.NewAuthConfig("192.168.1.1"))

	var e *bankid.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *bankid.Error, got %v", err)
	}
	if e.Kind != bankid.ErrInternal || e.Status != 0 || e.Details != "no response from server" {
		t.Errorf("got (%d, %s, %q)", e.Status, e.Kind, e.Details)
	}
	if e.Err == nil {
		t.Errorf("transport error not attached")
	}
}
