// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import "net/http"

// CookieName is the request cookie that carries the token credential.
const CookieName = "token"

// AuthContext is the credential a request is sent under. Exactly two
// implementations exist: [TokenCookie] attaches an explicit token, and
// [ImplicitPeerTrust] attaches nothing because the socket peer's
// identity is the credential. Modeling both as one capability keeps
// the framing code free of transport special cases.
type AuthContext interface {
	// attach adds the credential to an outgoing request.
	attach(request *http.Request)

	// String names the variant for logs and error messages.
	String() string
}

// TokenCookie authenticates a request with an explicit token carried
// as a request cookie.
type TokenCookie string

func (t TokenCookie) attach(request *http.Request) {
	request.AddCookie(&http.Cookie{Name: CookieName, Value: string(t)})
}

func (t TokenCookie) String() string {
	return "token-cookie"
}

// ImplicitPeerTrust authenticates a request by the connection's peer
// identity. Valid only on the socket transport, where the daemon
// resolves the caller's uid from the connection itself; no credential
// is attached to the request.
type ImplicitPeerTrust struct{}

func (ImplicitPeerTrust) attach(*http.Request) {}

func (ImplicitPeerTrust) String() string {
	return "implicit-peer-trust"
}
