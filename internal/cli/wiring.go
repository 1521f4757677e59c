package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"quiz-sync-service/internal/config"
	"quiz-sync-service/internal/infra/file"
	"quiz-sync-service/internal/infra/memory"
	"quiz-sync-service/internal/infra/postgres"
	redisstore "quiz-sync-service/internal/infra/redis"
	"quiz-sync-service/internal/local"
	"quiz-sync-service/internal/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// stores bundles what every command needs to talk to persistence.
type stores struct {
	service *persistence.Service
	local   *local.Store
	remote  *postgres.Store
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*stores, error) {
	out := &stores{}

	backend, err := openLocalBackend(cfg, out)
	if err != nil {
		return nil, err
	}
	out.local = local.NewStore(backend)

	var remote persistence.Backend
	if cfg.RemoteEnabled() {
		pg, err := postgres.Open(ctx, cfg.Remote.URL)
		if err != nil {
			// A bad URL is still just "remote unavailable": keep serving locally.
			log.Printf("remote store disabled: %v", err)
		} else {
			out.remote = pg
			out.closers = append(out.closers, pg.Close)
			remote = pg
		}
	} else {
		log.Printf("no remote store configured, using local %s storage", cfg.Local.Backend)
	}

	out.service = persistence.NewService(remote, out.local, persistence.Config{
		RemoteEnabled: remote != nil,
		RemoteTimeout: config.TTLDuration(cfg.Remote.Timeout, 0),
	}, persistence.NewMetrics(reg))
	return out, nil
}

func openLocalBackend(cfg config.Config, out *stores) (local.Backend, error) {
	switch cfg.Local.Backend {
	case "memory":
		return memory.NewCollectionStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Local.Redis.Addr,
			Password: cfg.Local.Redis.Password,
			DB:       cfg.Local.Redis.DB,
		})
		out.closers = append(out.closers, func() { _ = client.Close() })
		return redisstore.NewCollectionStore(client, 2*time.Second), nil
	case "file", "":
		return file.NewCollectionStore(cfg.Local.Dir)
	default:
		return nil, fmt.Errorf("unknown local backend %q", cfg.Local.Backend)
	}
}
