// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultRequestTimeout bounds every network round trip when the
// config does not override it. Exceeding it is a failure, never an
// indefinite hang.
const defaultRequestTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body the client reads.
// Daemon responses are small JSON documents; 4 MB is generous.
const maxResponseSize = 4 * 1024 * 1024

// socketBaseURL is the URL the socket transport uses for request
// construction. The host part is irrelevant — the dialer connects to
// the socket path — but net/http requires one, so the daemon's name
// stands in.
const socketBaseURL = "http://cordond"

// Config configures a Client.
type Config struct {
	// BaseURL is the daemon's HTTPS endpoint, e.g.
	// "https://localhost:2224". Required.
	BaseURL string

	// SocketPath is the daemon's local Unix domain socket. Required
	// only when socket-transport calls are made.
	SocketPath string

	// RequestTimeout bounds each call's full round trip. Defaults to
	// 30 seconds if zero.
	RequestTimeout time.Duration

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Client dispatches requests to one daemon across all three API
// generations and both transports. A Client is safe for sequential
// use; the harness never issues concurrent calls.
type Client struct {
	baseURL        string
	socketPath     string
	requestTimeout time.Duration
	logger         *slog.Logger

	httpsClient  *http.Client
	socketClient *http.Client
}

// NewClient validates the config and builds a client. The HTTPS
// transport skips certificate verification: the daemon serves a
// self-signed certificate after a fresh install, and the issued token
// is the trust anchor, matching the daemon's own inter-node calls.
func NewClient(config Config) (*Client, error) {
	if config.Logger == nil {
		return nil, fmt.Errorf("dispatch: Logger is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("dispatch: invalid base URL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return nil, fmt.Errorf("dispatch: base URL %q must use http or https", config.BaseURL)
	}

	timeout := config.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	socketPath := config.SocketPath
	client := &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		socketPath:     socketPath,
		requestTimeout: timeout,
		logger:         config.Logger,
		httpsClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		socketClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					dialer := net.Dialer{}
					return dialer.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
	return client, nil
}

// Authenticate performs the interactive authentication exchange:
// username and password submitted to /remote/auth, raw token text
// returned. An empty or non-200 response means the daemon refused the
// credentials; that surfaces as [ErrAuthenticationRefused]. This is
// the one endpoint that attaches no credential.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	status, body, err := c.do(ctx, TransportHTTPS, nil, http.MethodPost, authPath,
		"application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(body))
	if status != http.StatusOK || token == "" {
		c.logger.Debug("authentication refused", "username", username, "http_status", status)
		return "", ErrAuthenticationRefused
	}
	return token, nil
}

// CallV0 sends a legacy plaintext API request over HTTPS: the payload
// JSON wrapped in a data_json form field, credential as a cookie. The
// call fails exactly when the decoded status is "exception" — any
// other status passes, regardless of the HTTP status code.
func (c *Client) CallV0(ctx context.Context, auth AuthContext, operation string, payload any) (*Outcome, error) {
	if err := checkAuth(TransportHTTPS, auth); err != nil {
		return nil, err
	}

	encoded, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding v0 payload for %q: %w", operation, err)
	}
	form := url.Values{"data_json": {string(encoded)}}

	_, body, err := c.do(ctx, TransportHTTPS, auth, http.MethodPost, v0PathPrefix+operation,
		"application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return nil, err
	}

	outcome, err := decodeOutcome(body)
	if err != nil {
		return nil, fmt.Errorf("v0 call %q: %w", operation, err)
	}
	if outcome.Status == "exception" {
		return outcome, &ContractError{
			Generation: GenerationV0,
			Transport:  TransportHTTPS,
			Operation:  operation,
			Outcome:    outcome,
		}
	}
	return outcome, nil
}

// CallV1 sends a versioned API request: raw JSON body to
// /api/v1/<operation>/<version>. The identical framing works on both
// transports; only the AuthContext rules differ. Success requires the
// decoded status to equal "success" — transport-level success is not
// enough.
func (c *Client) CallV1(ctx context.Context, transport Transport, auth AuthContext, operation, version string, params any) (*Outcome, error) {
	if err := checkAuth(transport, auth); err != nil {
		return nil, err
	}

	encoded, err := marshalPayload(params)
	if err != nil {
		return nil, fmt.Errorf("encoding v1 params for %q: %w", operation, err)
	}

	_, body, err := c.do(ctx, transport, auth, http.MethodPost,
		v1PathPrefix+operation+"/"+version, "application/json", encoded)
	if err != nil {
		return nil, err
	}

	outcome, err := decodeOutcome(body)
	if err != nil {
		return nil, fmt.Errorf("v1 call %q: %w", operation, err)
	}
	if outcome.Status != "success" {
		return outcome, &ContractError{
			Generation: GenerationV1,
			Transport:  transport,
			Operation:  operation,
			Outcome:    outcome,
		}
	}
	return outcome, nil
}

// checkAuth enforces the authorization contract shared by both
// transports: every call carries an AuthContext, HTTPS accepts only
// explicit tokens, and implicit peer trust exists only where a peer
// identity exists — on the socket.
func checkAuth(transport Transport, auth AuthContext) error {
	if auth == nil {
		return fmt.Errorf("dispatch: an AuthContext is required")
	}
	if transport == TransportHTTPS {
		if _, ok := auth.(TokenCookie); !ok {
			return fmt.Errorf("dispatch: https transport requires a token credential, got %s", auth)
		}
	}
	return nil
}

// marshalPayload encodes a request payload, normalizing nil to an
// empty JSON object so "no parameters" never serializes as null.
func marshalPayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(payload)
}

// do performs one bounded round trip on the chosen transport and
// returns the HTTP status code and the response body. Connection
// failures come back as a *TransportError; non-2xx responses do not —
// the generation-specific callers decide what a body means.
func (c *Client) do(ctx context.Context, transport Transport, auth AuthContext, method, path, contentType string, requestBody []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	endpoint := c.endpointURL(transport, path)
	request, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return 0, nil, fmt.Errorf("building request for %s: %w", endpoint, err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if auth != nil {
		auth.attach(request)
	}

	httpClient := c.httpsClient
	reported := endpoint
	if transport == TransportSocket {
		httpClient = c.socketClient
		reported = c.socketPath + path
	}

	c.logger.Debug("dispatching request",
		"transport", transport.String(),
		"method", method,
		"path", path,
	)

	response, err := httpClient.Do(request)
	if err != nil {
		return 0, nil, &TransportError{
			Transport: transport,
			Endpoint:  reported,
			Err:       err,
		}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return 0, nil, &TransportError{
			Transport: transport,
			Endpoint:  reported,
			Err:       fmt.Errorf("reading response: %w", err),
		}
	}
	return response.StatusCode, body, nil
}

// endpointURL resolves a path against the transport's base URL.
func (c *Client) endpointURL(transport Transport, path string) string {
	if transport == TransportSocket {
		return socketBaseURL + path
	}
	return c.baseURL + path
}
