package translator

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestBuildSynthesisesHostWhenAbsent(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(&buf, "/a/b?c=d", "example.test", nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "GET /a/b?c=d HTTP/1.0\r\n") {
		t.Fatalf("bad request line: %q", out)
	}
	if !strings.Contains(out, "Host: example.test\r\n") {
		t.Fatalf("expected synthesised Host header, got %q", out)
	}
}

func TestBuildForwardsClientHostVerbatim(t *testing.T) {
	var buf bytes.Buffer
	err := Build(&buf, "/", "example.test", []string{"Host: other.example:8080"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Host: other.example:8080\r\n") {
		t.Fatalf("expected client Host forwarded verbatim, got %q", buf.String())
	}
}

func TestBuildAlwaysEmitsFixedHeaders(t *testing.T) {
	var buf bytes.Buffer
	err := Build(&buf, "/", "example.test", []string{
		"User-Agent: some-other-agent",
		"Connection: keep-alive",
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "some-other-agent") {
		t.Fatal("client User-Agent should be overridden, not forwarded")
	}
	if strings.Contains(out, "keep-alive") {
		t.Fatal("client Connection should be overridden, not forwarded")
	}
	if !strings.Contains(out, "Connection: close\r\n") {
		t.Fatal("expected fixed Connection: close header")
	}
	if !strings.Contains(out, "Proxy-Connection: close\r\n") {
		t.Fatal("expected fixed Proxy-Connection: close header")
	}
}

func TestBuildPassesThroughOtherHeadersInOrder(t *testing.T) {
	var buf bytes.Buffer
	err := Build(&buf, "/", "example.test", []string{
		"Accept: text/html",
		"Accept-Language: en-US",
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	accept := strings.Index(out, "Accept: text/html")
	lang := strings.Index(out, "Accept-Language: en-US")
	if accept < 0 || lang < 0 || accept > lang {
		t.Fatalf("expected passthrough headers in order, got %q", out)
	}
}

func TestBuildTerminatesWithEmptyLine(t *testing.T) {
	var buf bytes.Buffer
	if err := Build(&buf, "/", "example.test", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "\r\n\r\n") {
		t.Fatalf("expected trailing blank line, got %q", buf.String())
	}
}

func TestReadClientHeadersStopsAtBlankLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Accept: */*\r\nX-Foo: bar\r\n\r\nGET /next HTTP/1.0\r\n"))
	lines, err := ReadClientHeaders(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "Accept: */*" || lines[1] != "X-Foo: bar" {
		t.Fatalf("unexpected header lines: %v", lines)
	}
}

func TestReadClientHeadersHandlesEOFWithoutBlankLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Accept: */*\r\n"))
	lines, err := ReadClientHeaders(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "Accept: */*" {
		t.Fatalf("unexpected header lines: %v", lines)
	}
}
