// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package main contains smppmanager main function to start the SMPP
// connector manager.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"golang.org/x/sync/errgroup"

	"github.com/onlineprabhakar/aiosmpp/config"
	redisclient "github.com/onlineprabhakar/aiosmpp/internal/clients/redis"
	"github.com/onlineprabhakar/aiosmpp/internal/server"
	httpserver "github.com/onlineprabhakar/aiosmpp/internal/server/http"
	"github.com/onlineprabhakar/aiosmpp/logger"
	"github.com/onlineprabhakar/aiosmpp/manager"
	"github.com/onlineprabhakar/aiosmpp/manager/api"
	"github.com/onlineprabhakar/aiosmpp/manager/middleware"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq/brokers"
	"github.com/onlineprabhakar/aiosmpp/pkg/prometheus"
	"github.com/onlineprabhakar/aiosmpp/pkg/uuid"
)

const (
	svcName       = "smppmanager"
	envPrefix     = "SMPP_GATEWAY_"
	envPrefixHTTP = "SMPP_GATEWAY_MANAGER_HTTP_"
	defSvcPort    = "8081"
)

type mainConfig struct {
	LogLevel   string `env:"SMPP_GATEWAY_LOG_LEVEL"           envDefault:"info"`
	InstanceID string `env:"SMPP_GATEWAY_MANAGER_INSTANCE_ID" envDefault:""`
	ConfigFile string `env:"SMPP_GATEWAY_CONFIG_FILE"         envDefault:""`
	RedisURL   string `env:"SMPP_GATEWAY_REDIS_URL"           envDefault:"redis://localhost:6379/0"`
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

	if cfg.InstanceID == "" {
		if cfg.InstanceID, err = uuid.New().ID(); err != nil {
			lgr.Error(fmt.Sprintf("failed to generate instanceID: %s", err))
			exitCode = 1
			return
		}
	}

	gateway, err := config.Load(cfg.ConfigFile)
	if err != nil {
		lgr.Error(fmt.Sprintf("failed to load gateway config: %s", err))
		exitCode = 1
		return
	}

	redisDB, err := redisclient.Connect(cfg.RedisURL)
	if err != nil {
		lgr.Error(fmt.Sprintf("failed to connect to redis: %s", err))
		exitCode = 1
		return
	}
	defer redisDB.Close()
	store := manager.NewStore(redisDB)

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

	mgr := manager.New(gateway, broker, brokerCfg.QueueNames(), store, uuid.New(), manager.SMPPDialer(lgr), lgr)
	g.Go(func() error {
		return mgr.Run(ctx)
	})

	var svc manager.Service = mgr
	svc = middleware.LoggingMiddleware(svc, lgr)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.MetricsMiddleware(svc, counter, latency)

	httpServerConfig := server.Config{Port: defSvcPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		lgr.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err))
		exitCode = 1
		return
	}
	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, lgr, cfg.InstanceID), lgr)

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
