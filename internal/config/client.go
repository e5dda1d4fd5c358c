package config

import (
	"fmt"

	"github.com/usestring/iothub-service/pkg/client"
)

// NewClient builds a service client from cfg. extra options are applied
// after the ones derived from cfg.
func NewClient(cfg *Config, extra ...client.Option) (*client.Client, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("IOTHUB_CONNECTION_STRING is required")
	}

	conn, err := client.ParseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}

	tokens, err := client.NewTokenCache(cfg.TokenCacheItems)
	if err != nil {
		return nil, fmt.Errorf("creating token cache: %w", err)
	}
	auth, err := conn.Authorizer(
		client.WithTokenTTL(cfg.SASTokenTTL),
		client.WithTokenCache(tokens),
	)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithAuthorizer(auth),
		client.WithBaseTimeout(cfg.BaseTimeout),
		client.WithQueryTimeout(cfg.QueryTimeout),
		client.WithWorkers(cfg.FetchWorkers),
	}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithAPIVersion(cfg.APIVersion))
	}
	if cfg.PageSize > 0 {
		opts = append(opts, client.WithPageSize(cfg.PageSize))
	}
	return client.New(conn.HostName, append(opts, extra...)...), nil
}
