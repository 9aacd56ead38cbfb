// Package qrcode holds the per-order rotating QR code handles.
//
// The codes themselves are derived from the qrStartToken and qrStartSecret a
// start-order call returns. This package does not derive them: a Factory
// supplied by the caller builds the Handle for an order, and the Registry
// keeps one Handle per order reference until it expires or is evicted.
package qrcode

import (
	"time"

	"github.com/offlinehacker/gobankid/bankid"
)

// Handle produces the display codes of one order.
//
// NextCode may return a different value on every call depending on the time
// elapsed since the order started. Once Expired reports true it stays true and
// NextCode must not be used any more.
type Handle interface {
	Expired() bool
	NextCode() string
}

// Seed is everything a Factory needs to build a Handle.
type Seed struct {
	OrderRef  string
	Token     string
	Secret    string
	StartedAt time.Time
}

// Valid reports whether the seed carries QR material.
func (s Seed) Valid() bool {
	return s.OrderRef != "" && s.Token != "" && s.Secret != ""
}

// SeedFrom takes the QR seed out of a start-order response. Phone and
// other-payment orders carry none; the returned seed is then not Valid.
func SeedFrom(resp bankid.OrderResponse, startedAt time.Time) Seed {
	return Seed{
		OrderRef:  resp.OrderRef,
		Token:     resp.QRStartToken,
		Secret:    resp.QRStartSecret,
		StartedAt: startedAt,
	}
}

type Factory func(Seed) Handle

// Lifetime returns a Factory whose handles expire ttl after the order started
// and never produce a code. It is used where only order liveness matters.
func Lifetime(ttl time.Duration, now func() time.Time) Factory {
	if now == nil {
		now = time.Now
	}
	return func(seed Seed) Handle {
		return &lifetimeHandle{deadline: seed.StartedAt.Add(ttl), now: now}
	}
}

type lifetimeHandle struct {
	deadline time.Time
	now      func() time.Time
}

func (h *lifetimeHandle) Expired() bool {
	return !h.now().Before(h.deadline)
}

func (h *lifetimeHandle) NextCode() string {
	return ""
}
