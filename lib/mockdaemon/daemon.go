// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package mockdaemon

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// cookieName is the request cookie carrying the token credential.
const cookieName = "token"

// Config configures a mock daemon.
type Config struct {
	// SocketPath is where the Unix domain socket is created.
	// Required. The socket file is created with mode 0660 — the
	// filesystem is the access-control mechanism for local callers.
	SocketPath string

	// ListenAddress is the TCP address for the HTTPS listener.
	// Defaults to "127.0.0.1:0" (OS-assigned port).
	ListenAddress string

	// Accounts maps username to plaintext password. Hashed with
	// bcrypt at construction; the plaintext is not retained.
	Accounts map[string]string

	// TrustedPeerUIDs are the uids granted implicit trust on the
	// socket transport. Defaults to root and the daemon's own euid.
	TrustedPeerUIDs []uint32

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Daemon is the in-process cordond stand-in. Create with New,
// run with Serve, and wait on Ready before dispatching requests.
type Daemon struct {
	socketPath    string
	listenAddress string
	trustedUIDs   map[uint32]bool
	logger        *slog.Logger

	mu       sync.Mutex
	accounts map[string]*account
	hosts    map[string]*hostRecord
	tasks    map[string]*taskRecord
	taskSeq  uint64

	ready   chan struct{}
	baseURL string
}

// account is one daemon user. The token is issued on first successful
// authentication and re-issued verbatim afterwards, so authenticating
// twice never produces two conflicting credentials.
type account struct {
	passwordHash []byte
	token        string
}

// New builds a daemon from the config. Passwords are bcrypt-hashed
// here; construction cost scales with the account count.
func New(config Config) (*Daemon, error) {
	if config.SocketPath == "" {
		return nil, fmt.Errorf("mockdaemon: SocketPath is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("mockdaemon: Logger is required")
	}

	listenAddress := config.ListenAddress
	if listenAddress == "" {
		listenAddress = "127.0.0.1:0"
	}

	daemon := &Daemon{
		socketPath:    config.SocketPath,
		listenAddress: listenAddress,
		trustedUIDs:   make(map[uint32]bool),
		logger:        config.Logger,
		accounts:      make(map[string]*account),
		hosts:         make(map[string]*hostRecord),
		tasks:         make(map[string]*taskRecord),
		ready:         make(chan struct{}),
	}

	for username, password := range config.Accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password for %q: %w", username, err)
		}
		daemon.accounts[username] = &account{passwordHash: hash}
	}

	if len(config.TrustedPeerUIDs) == 0 {
		daemon.trustedUIDs[0] = true
		daemon.trustedUIDs[uint32(os.Geteuid())] = true
	} else {
		for _, uid := range config.TrustedPeerUIDs {
			daemon.trustedUIDs[uid] = true
		}
	}

	return daemon, nil
}

// Ready returns a channel closed once both listeners are bound and
// accepting connections.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// BaseURL returns the HTTPS endpoint, e.g. "https://127.0.0.1:38443".
// Only valid after Ready is closed.
func (d *Daemon) BaseURL() string {
	return d.baseURL
}

// SocketPath returns the Unix socket path.
func (d *Daemon) SocketPath() string {
	return d.socketPath
}

// SeedToken installs a known token for an account before any
// authentication exchange. This models the administrative principal
// whose credential is established out of band at install time.
func (d *Daemon) SeedToken(username, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, exists := d.accounts[username]
	if !exists {
		return fmt.Errorf("mockdaemon: unknown account %q", username)
	}
	record.token = token
	return nil
}

// Serve binds the HTTPS and socket listeners and blocks until ctx is
// cancelled, then shuts both down gracefully. Any stale socket file
// at the configured path is removed before listening; the socket file
// is removed on return.
func (d *Daemon) Serve(ctx context.Context) error {
	mux := d.routes()

	tcpListener, err := net.Listen("tcp", d.listenAddress)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.listenAddress, err)
	}
	defer tcpListener.Close()

	certificate, err := selfSignedCertificate()
	if err != nil {
		return fmt.Errorf("generating TLS certificate: %w", err)
	}
	tlsListener := tls.NewListener(tcpListener, &tls.Config{
		Certificates: []tls.Certificate{certificate},
	})

	if err := os.Remove(d.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", d.socketPath, err)
	}
	socketListener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.socketPath, err)
	}
	defer func() {
		socketListener.Close()
		os.Remove(d.socketPath)
	}()
	if err := os.Chmod(d.socketPath, 0660); err != nil {
		return fmt.Errorf("setting socket mode on %s: %w", d.socketPath, err)
	}

	d.baseURL = fmt.Sprintf("https://%s", tcpListener.Addr().String())

	httpsServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	socketServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,

		// ConnContext records the socket peer's uid so handlers can
		// grant implicit trust by peer identity.
		ConnContext: connContext,
	}

	serveErrors := make(chan error, 2)
	go func() {
		if err := httpsServer.Serve(tlsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrors <- fmt.Errorf("https listener: %w", err)
			return
		}
		serveErrors <- nil
	}()
	go func() {
		if err := socketServer.Serve(socketListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrors <- fmt.Errorf("socket listener: %w", err)
			return
		}
		serveErrors <- nil
	}()

	d.logger.Info("mock daemon listening",
		"https", d.baseURL,
		"socket", d.socketPath,
	)
	close(d.ready)

	select {
	case <-ctx.Done():
	case err := <-serveErrors:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpsServer.Shutdown(shutdownCtx); err != nil {
		d.logger.Error("https shutdown error", "error", err)
	}
	if err := socketServer.Shutdown(shutdownCtx); err != nil {
		d.logger.Error("socket shutdown error", "error", err)
	}
	return nil
}

// routes builds the daemon's request mux: the authentication
// exchange, the V0 legacy surface, the V1 versioned surface, and the
// V2 task endpoints. The same mux serves both transports — the path
// scheme is transport-independent by contract.
func (d *Daemon) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /remote/auth", d.handleAuth)
	mux.HandleFunc("POST /remote/{operation}", d.handleV0)
	mux.HandleFunc("POST /api/v1/{operation}/{version}", d.handleV1)
	mux.HandleFunc("POST /api/v2/task/run", d.handleTaskRun)
	mux.HandleFunc("POST /api/v2/task/create", d.handleTaskCreate)
	mux.HandleFunc("GET /api/v2/task/result", d.handleTaskResult)
	return mux
}

// authorized reports whether a request may reach an API handler:
// either its token cookie matches an issued account token or a
// trusted host token, or it arrived on the socket from a trusted peer
// uid. Pending host tokens do not validate.
func (d *Daemon) authorized(r *http.Request) bool {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return d.tokenValid(cookie.Value)
	}
	if uid, ok := peerUIDFromContext(r.Context()); ok {
		return d.trustedUIDs[uid]
	}
	return false
}

// tokenValid checks a presented token against issued account tokens
// and trusted host tokens.
func (d *Daemon) tokenValid(token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, record := range d.accounts {
		if record.token != "" && record.token == token {
			return true
		}
	}
	for _, host := range d.hosts {
		if host.state == hostTrusted && host.token == token {
			return true
		}
	}
	return false
}
