// Command redhub-kv runs the RESP key/value server defined by the root
// redhub package: one goroutine per connection, a single shared
// internal/store.Store, talking RESP2/RESP3 over plain TCP.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"redhubkv"
	"redhubkv/internal/logging"
	"redhubkv/internal/store"
)

func main() {
	// Define command-line arguments
	var addr string
	var logLevel string
	var logFile string

	flag.StringVar(&addr, "addr", redhub.DefaultAddr, "server address")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&logFile, "log-file", "", "log file path; empty logs to stderr")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: logLevel, Filename: logFile})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	s := redhub.New(redhub.Options{
		Addr:   addr,
		Logger: logger,
	}, store.New())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Fatalw("server stopped", "err", err)
		}
	case sig := <-sigCh:
		logger.Infow("shutting down", "signal", sig)
		if err := s.Close(); err != nil {
			logger.Errorw("shutdown error", "err", err)
		}
	}
}
