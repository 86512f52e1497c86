// Command proxyd runs the concurrent forwarding HTTP/1.0 cache proxy.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gocacheproxy/proxy/internal/admin"
	"github.com/gocacheproxy/proxy/internal/auditlog"
	"github.com/gocacheproxy/proxy/internal/cache"
	"github.com/gocacheproxy/proxy/internal/config"
	"github.com/gocacheproxy/proxy/internal/listener"
	"github.com/gocacheproxy/proxy/internal/transaction"
)

var (
	configFilenameFlag string
	portFlag           int
	adminPortFlag      int
	auditLogFlag       string
	verbosityTraceFlag bool
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	flag.IntVar(&adminPortFlag, "admin-port", 0, "Port for the admin/stats HTTP server (overrides config)")
	flag.StringVar(&auditLogFlag, "audit-log", "", "Path to the SQLite audit log (overrides config; empty disables)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
}

func main() {
	flag.Parse()

	logLevel := zerolog.InfoLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout})

	var fileConfig config.Config
	if configFilenameFlag != "" {
		var err error
		fileConfig, err = config.Load(configFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Str("file", configFilenameFlag).Msg("could not load config")
		}
	}

	// the single positional port argument is the primary CLI contract
	// (spec.md §6); it wins over -port unless absent.
	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "usage: proxyd [flags] [port]")
		os.Exit(1)
	}
	if flag.NArg() == 1 {
		p, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "usage: proxyd [flags] [port]: invalid port %q\n", flag.Arg(0))
			os.Exit(1)
		}
		portFlag = p
	}

	cfg := config.Resolve(fileConfig, portFlag, adminPortFlag, auditLogFlag)
	if cfg.Port == 0 {
		fmt.Fprintln(os.Stderr, "usage: proxyd [flags] [port]: no port specified")
		os.Exit(1)
	}

	store := cache.NewWithLimits(cfg.MaxObjectSize, cfg.MaxCacheSize)

	var auditor *auditlog.Log
	if cfg.AuditLogPath != "" {
		var err error
		auditor, err = auditlog.Open(cfg.AuditLogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.AuditLogPath).Msg("could not open audit log")
		}
		defer auditor.Close()
	}

	adminSrv := admin.New(store)
	adminAddr := fmt.Sprintf(":%d", cfg.AdminPort)
	go func() {
		log.Info().Str("addr", adminAddr).Msg("starting admin server")
		if err := http.ListenAndServe(adminAddr, adminSrv); err != nil {
			log.Fatal().Err(err).Msg("admin server failed")
		}
	}()

	handler := &transaction.Handler{
		Store:  store,
		Dial:   transaction.NewDialer(10 * time.Second),
		Audit:  auditor,
		Logger: log.Logger,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	if err := listener.Run(context.Background(), addr, handler, log.Logger, adminSrv.SetReady); err != nil {
		log.Fatal().Err(err).Msg("listener failed")
	}
}
