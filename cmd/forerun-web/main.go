// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/forerun-app/forerun/logx"
	"github.com/forerun-app/forerun/web"
)

var (
	configPath   = flag.String("config", "config.json", "Path to configuration file")
	httpAddr     = flag.String("addr", ":5010", "HTTP server address")
	inProduction = flag.Bool("production", false, "are we running in production")
)

func main() {
	flag.Parse()

	log, ring := logx.New(!*inProduction)

	config, cookieCodec, err := web.ReadConfig(*configPath)
	if err != nil {
		log.Fatalf("reading config: %s", err)
	}

	server, err := web.NewServer(config, cookieCodec, log, ring, !*inProduction)
	if err != nil {
		log.Fatalf("starting frontend server: %s", err)
	}

	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("frontend server listening on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %s", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %s", err)
	}
}
