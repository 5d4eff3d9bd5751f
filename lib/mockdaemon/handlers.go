// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package mockdaemon

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// envelope is the response shape shared by the V0 and V1 surfaces.
type envelope struct {
	Status    string `json:"status"`
	StatusMsg string `json:"status_msg,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// writeJSON encodes a response envelope. Encoding failures are a
// programming error in the fixed response shapes; they are logged and
// the connection is left to close.
func (d *Daemon) writeJSON(w http.ResponseWriter, httpStatus int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		d.logger.Error("encoding response", "error", err)
	}
}

// handleAuth is the interactive authentication exchange. On success
// the response body is the raw token text; on refusal the body is
// empty with HTTP 401. The optional name/addr form fields register
// the authenticated host as trusted, mirroring how the daemon records
// the node it just authenticated.
func (d *Daemon) handleAuth(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	d.mu.Lock()
	record, exists := d.accounts[username]
	d.mu.Unlock()
	if !exists {
		d.logger.Debug("auth refused", "username", username, "reason", "unknown account")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword(record.passwordHash, []byte(password)); err != nil {
		d.logger.Debug("auth refused", "username", username, "reason", "bad password")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token, err := d.issueToken(username)
	if err != nil {
		d.logger.Error("issuing token", "username", username, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	hostName := r.PostFormValue("name")
	if hostName == "" {
		hostName = "localhost"
	}
	d.upsertTrustedHost(hostName, r.PostFormValue("addr"), token)

	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, token)
}

// issueToken returns the account's token, minting one on first use.
// Re-authentication returns the same token, so a second issuance
// never invalidates the first.
func (d *Daemon) issueToken(username string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record := d.accounts[username]
	if record.token != "" {
		return record.token, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	record.token = base64.RawURLEncoding.EncodeToString(raw)
	return record.token, nil
}

// handleV0 serves the legacy plaintext surface. The payload arrives
// as a JSON object in the data_json form field; failures are signaled
// with status "exception" and nothing else — intermediate statuses
// such as "in_progress" pass the legacy sentinel check.
func (d *Daemon) handleV0(w http.ResponseWriter, r *http.Request) {
	if !d.authorized(r) {
		d.writeJSON(w, http.StatusUnauthorized, envelope{
			Status:    "exception",
			StatusMsg: "authentication required",
		})
		return
	}
	if err := r.ParseForm(); err != nil {
		d.writeJSON(w, http.StatusBadRequest, envelope{
			Status:    "exception",
			StatusMsg: "malformed form body",
		})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.PostFormValue("data_json")), &payload); err != nil {
		d.writeJSON(w, http.StatusBadRequest, envelope{
			Status:    "exception",
			StatusMsg: "data_json is not a JSON object",
		})
		return
	}

	switch operation := r.PathValue("operation"); operation {
	case "cluster_status_plaintext":
		d.writeJSON(w, http.StatusOK, envelope{
			Status: "success",
			Data: map[string]any{
				"text": "Cluster name: cordon\nStack: corosync\nNodes configured: 1\n",
			},
		})
	case "cluster_start":
		// Start is fire-and-forget in the legacy API; the status
		// reflects that the operation is underway, not done.
		d.writeJSON(w, http.StatusOK, envelope{
			Status: "in_progress",
		})
	default:
		d.writeJSON(w, http.StatusNotFound, envelope{
			Status:    "exception",
			StatusMsg: fmt.Sprintf("unknown operation %q", operation),
		})
	}
}

// v1Request covers the parameter fields of every V1 operation the
// daemon implements; each operation reads the fields it needs.
type v1Request struct {
	Name  string `json:"name"`
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// handleV1 serves the versioned JSON surface over both transports.
func (d *Daemon) handleV1(w http.ResponseWriter, r *http.Request) {
	if !d.authorized(r) {
		d.writeJSON(w, http.StatusUnauthorized, envelope{
			Status:    "unauthorized",
			StatusMsg: "authentication required",
		})
		return
	}

	operation := r.PathValue("operation")
	if version := r.PathValue("version"); version != "v1" {
		d.writeJSON(w, http.StatusNotFound, envelope{
			Status:    "failure",
			StatusMsg: fmt.Sprintf("unknown version %q for operation %q", version, operation),
		})
		return
	}

	var request v1Request
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		d.writeJSON(w, http.StatusBadRequest, envelope{
			Status:    "failure",
			StatusMsg: "request body is not valid JSON",
		})
		return
	}

	switch operation {
	case "resource-agent-get-agents-list":
		d.writeJSON(w, http.StatusOK, envelope{
			Status: "success",
			Data:   map[string]any{"agents": agentNames()},
		})
	case "host-register":
		if err := d.registerHost(request.Name, request.Addr, request.Token); err != nil {
			d.writeJSON(w, http.StatusConflict, envelope{
				Status:    "failure",
				StatusMsg: err.Error(),
			})
			return
		}
		d.writeJSON(w, http.StatusOK, envelope{
			Status: "success",
			Data:   map[string]any{"name": request.Name, "state": "pending"},
		})
	case "host-accept-token":
		if err := d.acceptHostToken(request.Name, request.Token); err != nil {
			d.writeJSON(w, http.StatusConflict, envelope{
				Status:    "failure",
				StatusMsg: err.Error(),
			})
			return
		}
		d.writeJSON(w, http.StatusOK, envelope{
			Status: "success",
			Data:   map[string]any{"name": request.Name, "state": "trusted"},
		})
	case "host-status":
		status, err := d.hostStatus(request.Name)
		if err != nil {
			d.writeJSON(w, http.StatusForbidden, envelope{
				Status:    "failure",
				StatusMsg: err.Error(),
			})
			return
		}
		d.writeJSON(w, http.StatusOK, envelope{
			Status: "success",
			Data:   status,
		})
	default:
		d.writeJSON(w, http.StatusNotFound, envelope{
			Status:    "failure",
			StatusMsg: fmt.Sprintf("unknown operation %q", operation),
		})
	}
}
