package root

import (
	"context"

	"growthline/internal/config"
	"growthline/internal/engine"
	"growthline/internal/storage"
)

func openService(ctx context.Context) (*engine.Service, config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	path, err := storage.ResolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	svc, err := engine.Open(ctx, path)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	cleanup := func() {
		_ = svc.Close()
	}
	return svc, cfg, cleanup, nil
}
