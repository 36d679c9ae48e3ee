package rest

import (
	"net/http"

	authkit "github.com/voyagio/authkit-go"
)

// Transport is an http.RoundTripper for application calls to the booking API
// (catalog, bookings, uploads). It injects the current bearer token from the
// session store and reports 401 replies through OnUnauthorized, closing the
// window where a request raced a logout in another instance: the 401 itself
// drops the local session.
type Transport struct {
	// Base performs the request. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Store supplies the access token. When empty, requests go out bare.
	Store authkit.Store

	// OnUnauthorized fires after any 401 reply, typically bound to
	// Manager.Invalidate.
	OnUnauthorized func()
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Store != nil {
		if s, err := t.Store.Read(); err == nil && s != nil {
			// Per RoundTripper contract the request must not be mutated.
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+s.AccessToken)
			req = clone
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized()
	}
	return resp, nil
}
