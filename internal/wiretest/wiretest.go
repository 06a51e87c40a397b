// Package wiretest sends raw request bytes to a listening server and splits
// the raw reply back into status line, headers and body for assertions.
package wiretest

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// Response is a reply as it appeared on the wire.
type Response struct {
	StatusLine string
	// HeaderLines keeps the header lines in the order they were received.
	HeaderLines []string
	Headers     map[string]string
	Body        string
	Raw         []byte
}

// StatusCode returns the numeric code from the status line, or 0.
func (r *Response) StatusCode() int {
	fields := strings.Fields(r.StatusLine)
	if len(fields) < 2 {
		return 0
	}
	code, _ := strconv.Atoi(fields[1])
	return code
}

// Parse splits raw at the first blank line.
func Parse(raw []byte) (*Response, error) {
	head, body, ok := bytes.Cut(raw, []byte("\r\n\r\n"))
	if !ok {
		return nil, fmt.Errorf("no blank line after headers in %q", raw)
	}
	lines := strings.Split(string(head), "\r\n")
	res := &Response{
		StatusLine:  lines[0],
		HeaderLines: lines[1:],
		Headers:     make(map[string]string),
		Body:        string(body),
		Raw:         raw,
	}
	for _, line := range res.HeaderLines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header line %q", line)
		}
		res.Headers[name] = strings.TrimSpace(value)
	}
	return res, nil
}

// Exchange dials addr, writes request and reads until the server closes the
// connection. It fails t on any I/O error.
func Exchange(t testing.TB, addr, request string) *Response {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	if _, err := io.WriteString(conn, request); err != nil {
		t.Fatalf("write request: %v", err)
	}
	raw, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	res, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// CheckContentLength fails t unless the declared Content-length equals the
// body size in bytes.
func CheckContentLength(t testing.TB, res *Response) {
	t.Helper()

	declared, ok := res.Headers["Content-length"]
	if !ok {
		t.Fatalf("no Content-length header in %q", res.HeaderLines)
	}
	n, err := strconv.Atoi(declared)
	if err != nil {
		t.Fatalf("Content-length %q: %v", declared, err)
	}
	if n != len(res.Body) {
		t.Errorf("Content-length = %d, body has %d bytes", n, len(res.Body))
	}
}
