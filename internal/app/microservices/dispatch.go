package microservices

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/kafka"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/locationIQ"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	redisadapter "github.com/Temutjin2k/ride-dispatch/internal/adapter/redis"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// DispatchService runs the API, the websocket gateway and the background workers
// on top of the configured backends.
type DispatchService struct {
	postgresDB *postgres.PostgreDB
	redis      *goredis.Client
	rabbit     *rabbit.RabbitMQ
	kafka      *kafka.EventProducer

	hub        *ws.ConnectionHub
	notifier   *notify.Service
	relay      *rabbitadapter.NotificationRelay
	pending    *redisadapter.PendingIndex
	rides      *ride.Service
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewDispatch(ctx context.Context, cfg config.Config, log logger.Logger) (_ *DispatchService, err error) {
	s := &DispatchService{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			s.close(ctx)
		}
	}()

	s.hub = ws.NewConnHub(log)
	s.notifier = notify.New(s.hub, log)

	deps := ride.Deps{
		Notifier: s.notifier,
		Pricing:  ridecalc.New(ridecalc.DefaultTariff),
	}
	checks := map[string]handler.Check{}

	if err := s.setupStorage(ctx, &deps, checks); err != nil {
		return nil, err
	}
	if err := s.setupRedis(ctx, &deps, checks); err != nil {
		return nil, err
	}
	if err := s.setupBrokers(ctx, &deps); err != nil {
		return nil, err
	}

	if cfg.Geocoder.APIKey != "" {
		deps.Geocoder = locationIQ.New(cfg.Geocoder.APIKey, cfg.Geocoder.Timeout)
	}

	s.rides = ride.New(deps, ride.Config{
		SearchRadiusMeters:   cfg.Dispatch.SearchRadiusMeters,
		CandidateLimit:       cfg.Dispatch.CandidateLimit,
		ClaimTimeout:         cfg.Dispatch.ClaimTimeout,
		DefaultPaymentMethod: types.PaymentMethod(cfg.Dispatch.DefaultPaymentMethod),
		PendingTTL:           cfg.Dispatch.PendingTTL,
		SweepInterval:        cfg.Dispatch.SweepInterval,
	}, log)

	s.httpServer, err = server.New(cfg, server.Deps{
		Rides:    s.rides,
		Auth:     auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Presence: s.hub,
		Checks:   checks,
	}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return s, nil
}

func (s *DispatchService) setupStorage(ctx context.Context, deps *ride.Deps, checks map[string]handler.Check) error {
	if s.cfg.Storage.Driver == "memory" {
		store := memory.New()
		deps.Store, deps.Finder, deps.Locations, deps.Events = store, store, store, store
		s.log.Warn(ctx, "using in-memory storage, rides are lost on restart")
		return nil
	}

	db, err := openPostgres(ctx, s.cfg)
	if err != nil {
		s.log.Error(ctx, "Failed to setup database", err)
		return err
	}
	s.postgresDB = db

	store := repo.NewStore(db.Pool)
	deps.Store = store
	deps.Finder = store
	deps.Locations = repo.NewLocationRepo(db.Pool)
	deps.Events = repo.NewRideEventRepo(db.Pool)
	deps.TxManager = repo.NewTxManager(db.Pool)
	checks["postgres"] = db.Pool.Ping
	return nil
}

// setupRedis moves candidate search and driver positions to Redis GEO sets.
func (s *DispatchService) setupRedis(ctx context.Context, deps *ride.Deps, checks map[string]handler.Check) error {
	if !s.cfg.Redis.Enabled {
		return nil
	}

	client, err := redisadapter.Connect(ctx, redisadapter.Config{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})
	if err != nil {
		s.log.Error(ctx, "Failed to connect to redis", err)
		return err
	}
	s.redis = client

	s.pending = redisadapter.NewPendingIndex(client, deps.Store, s.cfg.Redis.PendingKey, s.log)
	deps.Finder = s.pending
	deps.Locations = redisadapter.NewDriverLocations(client, s.cfg.Redis.DriversKey)
	deps.Publishers = append(deps.Publishers, s.pending)
	checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return nil
}

func (s *DispatchService) setupBrokers(ctx context.Context, deps *ride.Deps) error {
	if s.cfg.Kafka.Enabled {
		s.kafka = kafka.NewEventProducer(s.cfg.Kafka.Brokers, s.cfg.Kafka.Topic)
		deps.Publishers = append(deps.Publishers, s.kafka)
	}

	if !s.cfg.RabbitMQ.Enabled {
		return nil
	}

	rmq, err := rabbit.New(ctx, s.cfg.RabbitMQ.GetDSN(), s.log)
	if err != nil {
		s.log.Error(ctx, "Failed to connect to rabbitmq", err)
		return err
	}
	s.rabbit = rmq

	statusPublisher, err := rabbitadapter.NewRideStatusPublisher(rmq)
	if err != nil {
		return err
	}
	deps.Publishers = append(deps.Publishers, statusPublisher)

	s.relay, err = rabbitadapter.NewNotificationRelay(rmq, s.log)
	if err != nil {
		return err
	}
	s.notifier.WithRelay(s.relay)
	return nil
}

func (s *DispatchService) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	s.httpServer.Run(ctx, errCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err := <-errCh:
			return err
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		return s.rides.RunSweeper(wrap.WithAction(gctx, types.ActionRideExpired))
	})
	if s.relay != nil {
		g.Go(func() error {
			return s.relay.Consume(gctx, s.notifier.Deliver)
		})
	}
	if s.pending != nil {
		g.Go(func() error {
			n, err := s.pending.Warm(gctx, 0)
			if err != nil {
				s.log.Warn(gctx, "failed to warm pending ride index", "error", err.Error())
				return nil
			}
			s.log.Info(gctx, "pending ride index warmed", "rides", n)
			return nil
		})
	}

	s.log.Info(ctx, "Dispatch service has been started", "storage", s.cfg.Storage.Driver,
		"redis", s.cfg.Redis.Enabled, "rabbitmq", s.cfg.RabbitMQ.Enabled, "kafka", s.cfg.Kafka.Enabled)

	err := g.Wait()
	if ctx.Err() != nil {
		s.log.Info(ctx, "shutting down application")
	}

	s.close(context.WithoutCancel(ctx))
	s.log.Info(ctx, "dispatch service closed")
	return err
}

func (s *DispatchService) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}
	// hijacked websocket connections outlive Shutdown
	if s.hub != nil {
		s.hub.Close()
	}
	if s.notifier != nil {
		s.notifier.Wait()
	}
	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close kafka writer", "error", err.Error())
		}
	}
	if s.rabbit != nil {
		if err := s.rabbit.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitmq", "error", err.Error())
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close redis", "error", err.Error())
		}
	}
	s.postgresDB.Close()
}

func openPostgres(ctx context.Context, cfg config.Config) (*postgres.PostgreDB, error) {
	return postgres.New(ctx, cfg.Database,
		postgres.WithMaxConns(cfg.Database.MaxConns),
		postgres.WithMinConns(cfg.Database.MinConns),
		postgres.WithConnLifetime(cfg.Database.MaxConnLifetime, cfg.Database.MaxConnIdleTime),
	)
}
