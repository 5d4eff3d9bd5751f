// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package mockdaemon

import (
	"context"
	"net"

	"golang.org/x/sys/unix"
)

// peerUIDKey carries the socket peer's uid through the request
// context. Only connections accepted on the Unix listener have it.
type peerUIDKey struct{}

// connContext is installed as the socket server's ConnContext hook.
// It resolves the connecting process's uid via SO_PEERCRED and stores
// it in the context for the authorization check. Resolution failures
// leave the context unchanged — the request then has no peer identity
// and must present a token.
func connContext(ctx context.Context, conn net.Conn) context.Context {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return ctx
	}
	uid, err := peerUID(unixConn)
	if err != nil {
		return ctx
	}
	return context.WithValue(ctx, peerUIDKey{}, uid)
}

// peerUIDFromContext extracts the peer uid recorded by connContext.
func peerUIDFromContext(ctx context.Context) (uint32, bool) {
	uid, ok := ctx.Value(peerUIDKey{}).(uint32)
	return uid, ok
}

// peerUID reads the peer credentials of a connected Unix socket.
func peerUID(conn *net.UnixConn) (uint32, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}

	var credentials *unix.Ucred
	var credentialsErr error
	if err := raw.Control(func(fd uintptr) {
		credentials, credentialsErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return 0, err
	}
	if credentialsErr != nil {
		return 0, credentialsErr
	}
	return credentials.Uid, nil
}
