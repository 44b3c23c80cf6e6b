package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prismo-finance/prismo-ingest/internal/awsx"
	"github.com/prismo-finance/prismo-ingest/internal/config"
	"github.com/prismo-finance/prismo-ingest/internal/handlers"
	"github.com/prismo-finance/prismo-ingest/internal/logger"
	"github.com/prismo-finance/prismo-ingest/internal/rawstore"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health, unauthenticated
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterTransactionRoutes(r, cfg)

	return r
}

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	clients, err := awsx.NewClients(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init aws clients")
	}

	r := setupRouter(handlers.HandlerConfig{
		Store:  rawstore.NewStore(clients.DynamoDB, cfg.RawRecordsTable),
		APIKey: cfg.APIKey,
		Logger: log,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("intake API listening")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
