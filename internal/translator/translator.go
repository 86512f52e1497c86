// Package translator builds the sanitised upstream HTTP/1.0 request the
// proxy sends to an origin server, from the client's parsed request URI
// and the header lines that followed the request line.
package translator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:3.10.0) Gecko/20191101 Firefox/63.0.1"

// excludedHeaderNames holds the case-sensitive substrings that, if
// present in a client header's name, cause that header line to be
// dropped from passthrough because the translator emits its own fixed
// version instead.
var excludedHeaderNames = []string{"Host", "Connection", "Proxy-Connection", "User-Agent"}

// ReadClientHeaders reads CRLF-terminated header lines from r until an
// empty line or EOF, returning them verbatim (without their line
// terminators) in the order received.
func ReadClientHeaders(r *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			return lines, nil
		}
		lines = append(lines, trimmed)
		if err != nil {
			if err == io.EOF {
				return lines, nil
			}
			return lines, err
		}
	}
}

// Build writes the upstream request line and headers for a GET of path
// on hostname, given the client's raw header lines, to w.
func Build(w io.Writer, path, hostname string, clientHeaders []string) error {
	if _, err := fmt.Fprintf(w, "GET %s HTTP/1.0\r\n", path); err != nil {
		return err
	}

	hostHeader, passthrough := splitHostHeader(clientHeaders)
	if hostHeader == "" {
		hostHeader = "Host: " + hostname
	}
	if _, err := fmt.Fprintf(w, "%s\r\n", hostHeader); err != nil {
		return err
	}

	fixed := []string{
		"User-Agent: " + userAgent,
		"Connection: close",
		"Proxy-Connection: close",
	}
	for _, h := range fixed {
		if _, err := fmt.Fprintf(w, "%s\r\n", h); err != nil {
			return err
		}
	}

	for _, h := range passthrough {
		if _, err := fmt.Fprintf(w, "%s\r\n", h); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "\r\n")
	return err
}

// splitHostHeader pulls the client's Host header (if any) out of the
// header set and returns the remaining lines with all fixed-header
// names excluded, preserving original order.
func splitHostHeader(clientHeaders []string) (hostHeader string, passthrough []string) {
	for _, line := range clientHeaders {
		name := headerName(line)
		if isExcluded(name) {
			if name == "Host" {
				hostHeader = line
			}
			continue
		}
		passthrough = append(passthrough, line)
	}
	return hostHeader, passthrough
}

// headerName returns the portion of a header line before its first
// colon.
func headerName(line string) string {
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return line[:i]
	}
	return line
}

// isExcluded reports whether name matches (as a case-sensitive
// substring) one of the header names the translator overrides.
func isExcluded(name string) bool {
	for _, excl := range excludedHeaderNames {
		if strings.Contains(name, excl) {
			return true
		}
	}
	return false
}
