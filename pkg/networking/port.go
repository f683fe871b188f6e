// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"fmt"
	"net"
	"strconv"
)

// IsAvailable reports whether a TCP port can be bound on the loopback interface.
func IsAvailable(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// FindAvailable asks the kernel for a free loopback port.
func FindAvailable() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("could not find an available port: %w", err)
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FindOrUsePort returns port when it is free, and any free port when port
// is 0. A busy non-zero port is an error because redirect URIs registered
// with the identity provider are port-specific.
func FindOrUsePort(port int) (int, error) {
	if port == 0 {
		return FindAvailable()
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d", port)
	}
	if !IsAvailable(port) {
		return 0, fmt.Errorf("port %d is already in use", port)
	}
	return port, nil
}
