// Package httperr emits bounded HTML error responses with HTTP/1.0
// status lines, for the transaction handler's PARSE-stage failures.
package httperr

import (
	"fmt"
	"io"
)

// MaxBuf bounds the size of a rendered error response. If the rendered
// body would not fit, Write returns without writing anything.
const MaxBuf = 8192

const bodyTemplate = `<html>
<head><title>%d %s: %s</title></head>
<body>
<h1>%d %s: %s</h1>
<p>%s</p>
</body>
</html>
`

// BadRequest writes an HTTP/1.0 400 Bad Request response to w.
func BadRequest(w io.Writer, long string) error {
	return write(w, 400, "Bad Request", long)
}

// NotImplemented writes an HTTP/1.0 501 Not Implemented response to w.
func NotImplemented(w io.Writer, long string) error {
	return write(w, 501, "Not Implemented", long)
}

// write renders and emits a status line, headers, and an HTML body for
// code/short/long. It silently does nothing if the rendered body would
// overflow MaxBuf.
func write(w io.Writer, code int, short, long string) error {
	body := fmt.Sprintf(bodyTemplate, code, short, long, code, short, long, long)
	if len(body) > MaxBuf {
		return nil
	}

	statusLine := fmt.Sprintf("HTTP/1.0 %d %s\r\n", code, short)
	headers := fmt.Sprintf("Content-Type: text/html\r\nContent-Length: %d\r\n\r\n", len(body))

	if _, err := io.WriteString(w, statusLine); err != nil {
		return err
	}
	if _, err := io.WriteString(w, headers); err != nil {
		return err
	}
	_, err := io.WriteString(w, body)
	return err
}
