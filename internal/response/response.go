// Package response selects a page for a request target and writes it as a
// complete HTTP/1.1 response that always closes the connection.
package response

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// TimeLayout is the local date-time format printed after "Now:" on every page.
const TimeLayout = "2006-01-02T15:04:05.000"

const document = `<!doctype html>
<html lang='en'>
    <head>
        <title>Hello Web World!</title>
    </head>
    <body>
        %s
        <p>Now: %s</p>
    </body>
</html>
`

var nlcf = []byte{0x0d, 0x0a}

// Route is the status line and body fragment chosen for a request.
type Route struct {
	StatusCode int
	StatusText string
	Fragment   string
}

func newRoute(code int, fragment string) Route {
	return Route{StatusCode: code, StatusText: StatusText(code), Fragment: fragment}
}

var (
	Home       = newRoute(200, "<h1>Home</h1>")
	About      = newRoute(200, "<h1>About</h1>")
	NotFound   = newRoute(404, "<h1>Not found</h1>")
	BadRequest = newRoute(400, "<h1>Bad request</h1>")

	// Hello is the only page of the single-shot server.
	Hello = newRoute(200, "<h1>Hello World!</h1>")
)

var routes = map[string]Route{
	"/":      Home,
	"/about": About,
}

// Lookup returns the route registered for target, or NotFound.
func Lookup(target string) Route {
	if route, ok := routes[target]; ok {
		return route
	}
	return NotFound
}

// StatusText returns the reason phrase for code, or "Unknown".
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	}
	return "Unknown"
}

// Render embeds fragment and now into the page document.
func Render(fragment string, now time.Time) string {
	return fmt.Sprintf(document, fragment, now.Format(TimeLayout))
}

// Bytes returns the full response for route rendered at now.
// Content-length counts bytes, not characters.
func Bytes(route Route, now time.Time) []byte {
	body := Render(route.Fragment, now)

	var buf bytes.Buffer
	buf.Grow(128 + len(body))
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(route.StatusCode))
	buf.WriteByte(' ')
	buf.WriteString(route.StatusText)
	buf.Write(nlcf)
	buf.WriteString("Content-type: text/html")
	buf.Write(nlcf)
	buf.WriteString("Content-length: ")
	buf.WriteString(strconv.Itoa(len(body)))
	buf.Write(nlcf)
	buf.WriteString("Connection: close")
	buf.Write(nlcf)
	buf.Write(nlcf)
	buf.WriteString(body)
	return buf.Bytes()
}

// Write sends the response for route to w in a single write.
func Write(w io.Writer, route Route, now time.Time) (int, error) {
	n, err := w.Write(Bytes(route, now))
	if err != nil {
		return n, fmt.Errorf("write %d response: %w", route.StatusCode, err)
	}
	return n, nil
}
