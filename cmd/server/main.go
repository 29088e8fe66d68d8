package main

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jannskiee/floe/internal/logging"
	"github.com/jannskiee/floe/internal/server"
	"github.com/jannskiee/floe/internal/signaling"
)

func main() {
	logging.Init()

	cfg := server.ConfigFromEnv()

	hub := signaling.NewHub()
	go hub.Run()

	limiter := signaling.NewRateLimiter(signaling.DefaultRateLimit, signaling.DefaultRateWindow)
	done := make(chan struct{})
	defer close(done)
	go limiter.Run(done)

	mux := server.Routes(hub, limiter, cfg)

	logrus.WithField("port", cfg.Port).Info("starting signaling server")
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
