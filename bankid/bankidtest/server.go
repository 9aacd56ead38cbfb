// Package bankidtest provides a fake BankID relying-party API for tests.
//
// The fake speaks HTTPS with mandatory client certificates, keeps a small
// in-memory order book so auth/collect/cancel round trips behave like the
// real service, and lets tests queue canned replies per endpoint.
package bankidtest

import (
	"crypto/tls"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/offlinehacker/gobankid/bankid"
)

const apiPrefix = "/rp/v6.0"

// Reply is a canned response for one call.
type Reply struct {
	Status int
	Body   string
}

// Request is a request as received by the fake.
type Request struct {
	Endpoint string
	Body     map[string]any
	Raw      []byte
	HasCert  bool
}

type order struct {
	ref      string
	status   bankid.OrderStatus
	endpoint string
	collects int
}

type Server struct {
	*httptest.Server

	// TLS points at a client certificate and a CA trusting the fake.
	TLS bankid.TLSConfig

	mu            sync.Mutex
	replies       map[string][]Reply
	requests      []Request
	orders        map[string]*order
	completeAfter int
	failOrders    bool
}

// NewServer starts a fake and writes the certificate material into a temp dir.
// The server is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		replies:       make(map[string][]Reply),
		orders:        make(map[string]*order),
		completeAfter: 1,
	}

	s.Server = httptest.NewUnstartedServer(http.HandlerFunc(s.serveHTTP))
	s.Server.TLS = &tls.Config{ClientAuth: tls.RequireAnyClientCert}
	s.Server.StartTLS()
	t.Cleanup(s.Server.Close)

	dir := t.TempDir()
	certPath, keyPath := WriteClientCertificate(t, dir)
	caPath := WriteCA(t, dir, s.Server.Certificate())

	s.TLS = bankid.NewTLSConfig(bankid.EnvironmentTest, certPath, keyPath).WithCAPath(caPath)

	return s
}

// Session returns a session configured against the fake.
func (s *Server) Session(opts ...bankid.Option) *bankid.Session {
	opts = append([]bankid.Option{bankid.WithBaseURL(s.URL)}, opts...)
	return bankid.New(s.TLS, opts...)
}

// Enqueue makes the next call to endpoint (e.g. "/auth") answer with status and body
// instead of the order book.
func (s *Server) Enqueue(endpoint string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replies[endpoint] = append(s.replies[endpoint], Reply{Status: status, Body: body})
}

// CompleteAfter sets how many collects an order answers "pending" before "complete".
func (s *Server) CompleteAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completeAfter = n
}

// FailOrders makes every pending order answer "failed" on its next collect.
func (s *Server) FailOrders() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failOrders = true
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// OrderStatus returns the status of orderRef and whether it exists.
func (s *Server) OrderStatus(orderRef string) (bankid.OrderStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderRef]
	if !ok {
		return "", false
	}
	return o.status, true
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}

	endpoint, ok := strings.CutPrefix(r.URL.Path, apiPrefix)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	req := Request{
		Endpoint: endpoint,
		Raw:      raw,
		HasCert:  r.TLS != nil && len(r.TLS.PeerCertificates) > 0,
	}
	_ = json.Unmarshal(raw, &req.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)

	if queued := s.replies[endpoint]; len(queued) > 0 {
		s.replies[endpoint] = queued[1:]
		writeRaw(w, queued[0].Status, queued[0].Body)
		return
	}

	switch endpoint {
	case "/auth", "/sign", "/payment":
		s.startOrder(w, endpoint, true)
	case "/phone/auth", "/phone/sign", "/other/payment":
		s.startOrder(w, endpoint, false)
	case "/collect":
		s.collect(w, req.Body)
	case "/cancel":
		s.cancel(w, req.Body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) startOrder(w http.ResponseWriter, endpoint string, withQR bool) {
	for _, o := range s.orders {
		if o.status == bankid.OrderStatusPending {
			o.status = bankid.OrderStatusFailed
		}
	}

	o := &order{ref: uuid.NewString(), status: bankid.OrderStatusPending, endpoint: endpoint}
	s.orders[o.ref] = o

	resp := map[string]string{"orderRef": o.ref}
	if withQR {
		resp["autoStartToken"] = uuid.NewString()
		resp["qrStartToken"] = uuid.NewString()
		resp["qrStartSecret"] = uuid.NewString()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) collect(w http.ResponseWriter, body map[string]any) {
	o, ok := s.lookup(body)
	if !ok {
		writeError(w, "notFound", "No such order")
		return
	}

	o.collects++

	if o.status == bankid.OrderStatusPending {
		switch {
		case s.failOrders:
			o.status = bankid.OrderStatusFailed
		case o.collects > s.completeAfter:
			o.status = bankid.OrderStatusComplete
		}
	}

	resp := map[string]any{"orderRef": o.ref, "status": o.status}

	switch o.status {
	case bankid.OrderStatusPending:
		resp["hintCode"] = "outstandingTransaction"
	case bankid.OrderStatusFailed:
		resp["hintCode"] = "startFailed"
	case bankid.OrderStatusComplete:
		resp["completionData"] = map[string]any{
			"user": map[string]string{
				"personalNumber": "190000000000",
				"name":           "Test Testsson",
				"givenName":      "Test",
				"surname":        "Testsson",
			},
			"device":          map[string]string{"ipAddress": "192.168.1.1", "uhi": "OZvYM9VvyiAmG7NA5jU5zqGcVpo="},
			"bankIdIssueDate": "2024-01-01",
			"signature":       "PD94bWwgdmVyc2lvbj0iMS4wIj8+",
			"ocspResponse":    "MIIHegoBAKCCB3MwggdvBgkrBgEFBQcwAQEEggdgMIIHXDCC",
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cancel(w http.ResponseWriter, body map[string]any) {
	o, ok := s.lookup(body)
	if !ok {
		writeError(w, "notFound", "No such order")
		return
	}

	delete(s.orders, o.ref)

	writeRaw(w, http.StatusOK, "{}")
}

func (s *Server) lookup(body map[string]any) (*order, bool) {
	ref, _ := body["orderRef"].(string)
	o, ok := s.orders[ref]
	return o, ok
}

func writeError(w http.ResponseWriter, code string, details string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"errorCode": code, "details": details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, string(data))
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
