// Package request reads the head of an HTTP/1.x request: the request line
// and the header lines up to the first blank line. Bodies are never read.
package request

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"strings"
)

// Limit the request head to 1MB
const maxHeaderBytes = 1 << 20

var (
	// ErrMalformed is wrapped by every error caused by the client sending
	// something that is not a request head.
	ErrMalformed = errors.New("malformed request")

	// ErrEmptyRequest means the stream ended before a single line was read.
	ErrEmptyRequest = errors.New("empty request")

	ErrHeaderTooLarge = fmt.Errorf("%w: request head exceeds %d bytes", ErrMalformed, maxHeaderBytes)
)

// Request is the parsed request head. Header names are kept exactly as the
// client sent them; a repeated name keeps the last value.
type Request struct {
	Method  string
	Target  string
	Proto   string
	Headers map[string]string
}

// LogValue implements slog.LogValuer.
func (r *Request) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("method", r.Method),
		slog.String("target", r.Target),
		slog.String("proto", r.Proto),
		slog.Any("headers", r.Headers),
	)
}

// Read consumes lines from r until a blank line or end of stream and parses
// them into a Request.
func Read(r io.Reader) (*Request, error) {
	limitReader := &io.LimitedReader{R: r, N: maxHeaderBytes}
	headerReader := textproto.NewReader(bufio.NewReader(limitReader))

	// Read the request line: GET /about HTTP/1.1
	line, err := headerReader.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyRequest
		}
		return nil, fmt.Errorf("read request line: %w", err)
	}

	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	req.Headers = make(map[string]string)
	for {
		line, err := headerReader.ReadLine()
		if errors.Is(err, io.EOF) {
			if limitReader.N <= 0 {
				return nil, ErrHeaderTooLarge
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			if limitReader.N <= 0 {
				return nil, ErrHeaderTooLarge
			}
			return nil, fmt.Errorf("%w: header line %q has no colon", ErrMalformed, line)
		}
		req.Headers[name] = strings.TrimSpace(value)
	}

	return req, nil
}

func parseRequestLine(line string) (*Request, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: request line %q has %d fields, want 3", ErrMalformed, line, len(fields))
	}
	return &Request{
		Method: fields[0],
		Target: fields[1],
		Proto:  fields[2],
	}, nil
}
