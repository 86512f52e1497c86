// Package transaction drives one client connection end-to-end: it reads
// the request line, consults the cache, and on a miss opens an upstream
// connection, forwards a sanitised request, relays the response back to
// the client, and conditionally admits it to the cache.
//
// States: READ_REQUEST -> PARSE -> LOOKUP -> [HIT:SERVE_CACHE |
// MISS:CONNECT -> FORWARD -> RELAY -> ADMIT] -> DONE. Every terminal
// state closes the client socket.
package transaction

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gocacheproxy/proxy/internal/auditlog"
	"github.com/gocacheproxy/proxy/internal/cache"
	"github.com/gocacheproxy/proxy/internal/httperr"
	"github.com/gocacheproxy/proxy/internal/translator"
	"github.com/gocacheproxy/proxy/internal/txid"
)

// relayChunkSize is the fixed-size buffer used to read from the origin
// during RELAY (spec's MAXLINE).
const relayChunkSize = 8192

// Dialer opens a TCP connection to an origin. Production code uses
// net.Dialer; tests substitute a fake to avoid real network I/O.
type Dialer interface {
	Dial(network, address string) (net.Conn, error)
}

// netDialer adapts net.Dialer to the Dialer interface with a
// connect-only timeout; the spec places no per-request deadline on the
// transaction as a whole, only on establishing the upstream connection.
type netDialer struct {
	timeout time.Duration
}

func (d netDialer) Dial(network, address string) (net.Conn, error) {
	return net.DialTimeout(network, address, d.timeout)
}

// NewDialer returns the production Dialer.
func NewDialer(connectTimeout time.Duration) Dialer {
	return netDialer{timeout: connectTimeout}
}

// Handler drives transactions against a shared cache store, dialer, and
// optional audit log.
type Handler struct {
	Store  *cache.Store
	Dial   Dialer
	Audit  *auditlog.Log
	Logger zerolog.Logger
}

// Handle runs one transaction to completion on conn, closing it on every
// exit path.
func (h *Handler) Handle(conn net.Conn) {
	id := txid.New()
	log := h.Logger.With().Str("txid", id).Logger()
	started := time.Now()

	defer conn.Close()

	reader := bufio.NewReader(conn)

	// READ_REQUEST
	requestLine, err := reader.ReadString('\n')
	if err != nil {
		log.Debug().Err(err).Msg("client closed before sending a request")
		return
	}
	requestLine = strings.TrimRight(requestLine, "\r\n")

	// PARSE
	method, uri, ok := parseRequestLine(requestLine)
	if !ok {
		log.Info().Str("line", requestLine).Msg("malformed request line")
		httperr.BadRequest(conn, "Could not parse request line: "+requestLine)
		h.audit(id, "", auditlog.OutcomeBadRequest, 0, started)
		return
	}
	headers, err := translator.ReadClientHeaders(reader)
	if err != nil {
		log.Debug().Err(err).Msg("error reading client headers")
		return
	}
	if method != "GET" {
		log.Info().Str("method", method).Msg("unsupported method")
		httperr.NotImplemented(conn, "Method not implemented: "+method)
		h.audit(id, uri, auditlog.OutcomeNotImpl, 0, started)
		return
	}
	log = log.With().Str("uri", uri).Logger()

	// LOOKUP
	key := []byte(uri)
	if lease, hit := h.Store.Lookup(key); hit {
		log.Debug().Msg("cache hit")
		n, werr := conn.Write(lease.Bytes())
		h.Store.Release(lease)
		if werr != nil {
			log.Debug().Err(werr).Msg("client write failed during hit")
		}
		h.audit(id, uri, auditlog.OutcomeHit, n, started)
		return
	}
	log.Debug().Msg("cache miss")

	// CONNECT
	hostname, port, path, err := parseTarget(uri)
	if err != nil {
		log.Info().Err(err).Msg("could not parse target URI")
		h.audit(id, uri, auditlog.OutcomeConnectError, 0, started)
		return
	}
	upstream, err := h.Dial.Dial("tcp", net.JoinHostPort(hostname, port))
	if err != nil {
		log.Info().Err(err).Str("host", hostname).Str("port", port).Msg("could not connect to origin")
		h.audit(id, uri, auditlog.OutcomeConnectError, 0, started)
		return
	}
	defer upstream.Close()

	// FORWARD
	if err := translator.Build(upstream, path, hostname, headers); err != nil {
		log.Info().Err(err).Msg("could not forward request to origin")
		h.audit(id, uri, auditlog.OutcomeConnectError, 0, started)
		return
	}

	// RELAY
	written, admissible, admitBuf, relayErr := h.relay(conn, upstream)
	if relayErr != nil {
		log.Debug().Err(relayErr).Msg("relay aborted")
		h.audit(id, uri, auditlog.OutcomeClientError, written, started)
		return
	}

	// ADMIT
	outcome := auditlog.OutcomeNotAdmitted
	if admissible {
		// double-check under a fresh lookup to avoid duplicate admission
		// under a race with a concurrent miss for the same URI.
		if lease, present := h.Store.Lookup(key); present {
			h.Store.Release(lease)
		} else {
			h.Store.Admit(key, admitBuf)
			outcome = auditlog.OutcomeAdmitted
		}
	}
	log.Debug().Bool("admissible", admissible).Int("bytes", written).Msg("transaction complete")
	h.audit(id, uri, outcome, written, started)
}

// relay reads from upstream in fixed-size chunks until EOF, writing
// each chunk to client and, while the running total stays within
// cache.MaxObjectSize, appending it to an admission buffer built outside
// any lock. It returns the total bytes written to the client, whether
// the response is admissible, the admission buffer if admissible, and
// any fatal client-write error.
func (h *Handler) relay(client, upstream net.Conn) (written int, admissible bool, admitBuf []byte, err error) {
	buf := make([]byte, relayChunkSize)
	admitBuffer := make([]byte, 0, cache.MaxObjectSize)
	admissible = true

	for {
		n, rerr := upstream.Read(buf)
		if n > 0 {
			if _, werr := client.Write(buf[:n]); werr != nil {
				return written, false, nil, werr
			}
			written += n
			if admissible {
				if len(admitBuffer)+n <= cache.MaxObjectSize {
					admitBuffer = append(admitBuffer, buf[:n]...)
				} else {
					admissible = false
					admitBuffer = nil
				}
			}
		}
		if rerr != nil {
			break
		}
	}

	if !admissible {
		return written, false, nil, nil
	}
	return written, true, admitBuffer, nil
}

// audit sends a summary entry to the audit log; it is a no-op if
// h.Audit is nil.
func (h *Handler) audit(id, uri string, outcome auditlog.Outcome, bytesWritten int, started time.Time) {
	h.Audit.Record(auditlog.Entry{
		TxID:       id,
		URI:        uri,
		Outcome:    outcome,
		Bytes:      bytesWritten,
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
	})
}

// parseRequestLine extracts method, uri, and version tokens from a
// request line, accepting only HTTP/1.0 and HTTP/1.1.
func parseRequestLine(line string) (method, uri string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return "", "", false
	}
	method, uri, version := fields[0], fields[1], fields[2]
	if version != "HTTP/1.0" && version != "HTTP/1.1" {
		return "", "", false
	}
	if uri == "" {
		return "", "", false
	}
	return method, uri, true
}

// parseTarget resolves an absolute-URI into hostname, port (default 80),
// and path-plus-query.
func parseTarget(rawURI string) (hostname, port, path string, err error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", "", "", err
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("URI %q is not absolute", rawURI)
	}
	hostname = u.Hostname()
	port = u.Port()
	if port == "" {
		port = "80"
	}
	path = u.RequestURI()
	return hostname, port, path, nil
}
