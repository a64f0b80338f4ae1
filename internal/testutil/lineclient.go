// Package testutil provides helpers for integration testing against a
// running server.
package testutil

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

// LineClient is a simple line-protocol test client for integration testing.
type LineClient struct {
	conn   net.Conn
	reader *bufio.Reader
	t      *testing.T
}

// NewLineClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected LineClient or fails the test.
func NewLineClient(t *testing.T, addr string) *LineClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	client := &LineClient{
		conn:   conn,
		reader: bufio.NewReader(conn),
		t:      t,
	}

	t.Logf("line client connected to %s [%s]", addr, time.Since(start))
	return client
}

// ReadLine reads the next event line, without the trailing newline.
//
// Postcondition: Returns the next line, or fails the test on timeout.
func (c *LineClient) ReadLine(timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("reading line: got %q, error: %v", line, err)
	}
	return strings.TrimRight(line, "\r\n")
}

// ReadUntilPrefix reads event lines until one starts with prefix, skipping
// interleaved broadcasts, and returns the matching line.
//
// Precondition: prefix must be non-empty.
// Postcondition: Returns the first matching line, or fails on timeout.
func (c *LineClient) ReadUntilPrefix(prefix string, timeout time.Duration) string {
	c.t.Helper()
	deadline := time.Now().Add(timeout)

	var skipped []string
	for time.Now().Before(deadline) {
		line := c.ReadLine(time.Until(deadline))
		if strings.HasPrefix(line, prefix) {
			return line
		}
		skipped = append(skipped, line)
	}

	c.t.Fatalf("no line with prefix %q within %s, skipped: %v", prefix, timeout, skipped)
	return ""
}

// Send writes a command line to the server, appending \n.
//
// Precondition: text should not contain trailing newline characters.
// Postcondition: text + \n is written to the connection.
func (c *LineClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := fmt.Fprintf(c.conn, "%s\n", text)
	if err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the underlying connection.
func (c *LineClient) Close() {
	c.conn.Close()
}
