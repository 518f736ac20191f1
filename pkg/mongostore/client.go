package mongostore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mattiabonardi/endor-dao-go/pkg/dao_configuration"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	clientInstance    *mongo.Client
	clientInstanceErr error
	mongoOnce         sync.Once
)

// GetClient returns the process-wide MongoDB client built from
// dao_configuration.GetConfig.
func GetClient() (*mongo.Client, error) {
	configuration := dao_configuration.GetConfig()
	mongoOnce.Do(func() {
		clientInstance, clientInstanceErr = Connect(context.Background(), configuration.DocumentDBUri, configuration.DocumentDBTimeout)
		if clientInstanceErr == nil {
			zap.L().Info("MongoDB connected successfully", zap.String("database", configuration.DocumentDBName))
		}
	})
	return clientInstance, clientInstanceErr
}

// Connect dials uri and pings the primary, giving up after timeout.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping %s: %w", uri, err)
	}
	return client, nil
}
