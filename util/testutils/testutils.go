package testutils

import (
	"fmt"
	"net"
)

/*
Helpers for test fixtures.
*/

////////////////////////////////////////////////////////////////////////////////

// GetOpenPort returns an open TCP port on the local host.
func GetOpenPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
