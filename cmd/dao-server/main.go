package main

import (
	"context"
	"os"

	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao_configuration"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao_server"
	"github.com/mattiabonardi/endor-dao-go/pkg/logging"
	"github.com/mattiabonardi/endor-dao-go/pkg/memstore"
	"github.com/mattiabonardi/endor-dao-go/pkg/metrics"
	"github.com/mattiabonardi/endor-dao-go/pkg/mongostore"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// load configuration
	config := dao_configuration.GetConfig()

	logger, level := logging.NewAtomicLogger(logging.Config{
		LogType: logging.LogType(config.LogType),
		Level:   logging.LogLevel(config.LogLevel),
	})
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// the log level follows edits of the configuration file
	if path := os.Getenv("DAO_CONFIG_FILE"); path != "" {
		go func() {
			err := dao_configuration.Watch(context.Background(), path, func(cfg *dao_configuration.ServerConfig) {
				level.SetLevel(logging.ParseLevel(logging.LogLevel(cfg.LogLevel)))
				logger.Info("configuration reloaded", zap.String("level", cfg.LogLevel))
			})
			if err != nil {
				logger.Warn("configuration watcher stopped", zap.Error(err))
			}
		}()
	}

	reporter, err := metrics.NewReporter(prometheus.DefaultRegisterer, dao.NewZapReporter(logger))
	if err != nil {
		logger.Fatal("metrics registration failed", zap.Error(err))
	}
	requests, err := metrics.NewRequestCounter(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("metrics registration failed", zap.Error(err))
	}

	models, err := resolver(config)
	if err != nil {
		logger.Fatal("store initialization failed", zap.String("store", config.Store), zap.Error(err))
	}

	server := dao_server.NewServerInitializer(dao.New(dao.WithReporter(reporter)), models).
		WithLogger(logger).
		WithMiddleware(requests.Handler()).
		Build()

	logger.Info("starting dao server", zap.String("port", config.ServerPort), zap.String("store", config.Store))
	if err := server.Run(":" + config.ServerPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func resolver(config *dao_configuration.ServerConfig) (dao_server.ModelResolver, error) {
	if config.Store == dao_configuration.StoreMemory {
		store := memstore.New()
		return func(collection string) (dao.Model, error) {
			return store.Model(collection), nil
		}, nil
	}

	client, err := mongostore.GetClient()
	if err != nil {
		return nil, err
	}
	db := client.Database(config.DocumentDBName)
	return func(collection string) (dao.Model, error) {
		return mongostore.NewModel(db, collection, mongostore.Options{}), nil
	}, nil
}
