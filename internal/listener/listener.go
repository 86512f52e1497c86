// Package listener runs the proxy's accept loop: one thread does
// accept() while each accepted connection is dispatched to a freshly
// spawned goroutine that runs one transaction to completion.
package listener

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/gocacheproxy/proxy/internal/transaction"
)

// Run opens a TCP listener on addr and serves transactions with handler
// until ctx is cancelled or a signal requests shutdown. ready, if
// non-nil, is called once the listener is accepting connections.
func Run(ctx context.Context, addr string, handler *transaction.Handler, log zerolog.Logger, ready func()) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer ln.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shuttingDown := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-sigCh:
			log.Info().Msg("shutdown signal received, closing listener")
		}
		close(shuttingDown)
		ln.Close()
	}()

	if ready != nil {
		ready()
	}
	log.Info().Str("addr", addr).Msg("accepting connections")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-shuttingDown:
				return nil
			default:
				log.Error().Err(err).Msg("accept error")
				continue
			}
		}
		go handler.Handle(conn)
	}
}
