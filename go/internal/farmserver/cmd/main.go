package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Du7chy/Seedlings/go/internal/farmserver"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config := loadConfig()
	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	catalog, err := config.catalog()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	clock := clockwork.NewRealClock()
	store := farmserver.NewStore(catalog, clock, rand.New(rand.NewSource(time.Now().UnixNano())))
	conns := farmserver.NewConnectionManager(farmserver.DefaultConnectionConfig(), store)
	server := farmserver.NewServer(store, conns)

	log.Info().
		Str("port", config.Port).
		Str("nats_url", config.NatsURL).
		Int("seeds", len(catalog.Seeds)).
		Msg("starting farm server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go conns.Start(ctx)

	if config.NatsURL != "" {
		noticeConfig := farmserver.DefaultNoticeConsumerConfig()
		noticeConfig.URL = config.NatsURL
		notices, err := farmserver.NewNoticeConsumer(conns, noticeConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create notice consumer")
		}
		defer notices.Close()

		go func() {
			if err := notices.Start(ctx); err != nil {
				log.Error().Err(err).Msg("notice consumer failed")
			}
		}()
	}

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%s", config.Port),
		Handler:     h2c.NewHandler(server.Routes(), &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// stops the broadcast loop, which closes every open socket
	cancel()

	log.Info().Msg("farm server shutdown complete")
}
