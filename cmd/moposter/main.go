// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package main contains moposter main function to start the inbound message
// callback worker.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/onlineprabhakar/aiosmpp"
	"github.com/onlineprabhakar/aiosmpp/internal/server"
	httpserver "github.com/onlineprabhakar/aiosmpp/internal/server/http"
	"github.com/onlineprabhakar/aiosmpp/logger"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq/brokers"
	"github.com/onlineprabhakar/aiosmpp/pkg/uuid"
	"github.com/onlineprabhakar/aiosmpp/poster"
)

const (
	svcName       = "moposter"
	envPrefix     = "SMPP_GATEWAY_"
	envPrefixHTTP = "SMPP_GATEWAY_MOPOSTER_HTTP_"
	defSvcPort    = "8083"
)

type mainConfig struct {
	LogLevel    string `env:"SMPP_GATEWAY_LOG_LEVEL"            envDefault:"info"`
	InstanceID  string `env:"SMPP_GATEWAY_MOPOSTER_INSTANCE_ID" envDefault:""`
	CallbackURL string `env:"SMPP_GATEWAY_MO_CALLBACK_URL"      envDefault:""`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	cfg := mainConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	lgr, err := logger.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %s", err)
	}

	var exitCode int
	defer logger.ExitWithError(&exitCode)

	if cfg.CallbackURL == "" {
		lgr.Error("SMPP_GATEWAY_MO_CALLBACK_URL must be set")
		exitCode = 1
		return
	}

	if cfg.InstanceID == "" {
		if cfg.InstanceID, err = uuid.New().ID(); err != nil {
			lgr.Error(fmt.Sprintf("failed to generate instanceID: %s", err))
			exitCode = 1
			return
		}
	}

	brokerCfg := brokers.Config{}
	if err := env.ParseWithOptions(&brokerCfg, env.Options{Prefix: envPrefix}); err != nil {
		lgr.Error(fmt.Sprintf("failed to load broker configuration : %s", err))
		exitCode = 1
		return
	}
	broker, err := brokers.New(ctx, brokerCfg, lgr)
	if err != nil {
		lgr.Error(fmt.Sprintf("failed to connect to queue broker: %s", err))
		exitCode = 1
		return
	}
	defer broker.Close()

	p := poster.NewMO(broker, brokerCfg.QueueNames(), cfg.CallbackURL, lgr)
	g.Go(func() error {
		return p.Run(ctx)
	})

	mux := chi.NewRouter()
	mux.Get("/health", aiosmpp.Health(svcName, cfg.InstanceID))
	mux.Handle("/metrics", promhttp.Handler())

	httpServerConfig := server.Config{Port: defSvcPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		lgr.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err))
		exitCode = 1
		return
	}
	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, mux, lgr)

	g.Go(func() error {
		return hs.Start()
	})
	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, lgr, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		lgr.Error(fmt.Sprintf("%s service terminated: %s", svcName, err))
	}
}
