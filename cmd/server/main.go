// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"credgate/internal/identity/credential"
	"credgate/internal/identity/service"
	"credgate/internal/identity/store/reservation"
	userstore "credgate/internal/identity/store/user"
	"credgate/internal/platform/config"
	"credgate/internal/platform/httpserver"
	"credgate/internal/platform/logger"
	"credgate/internal/platform/metrics"
	platformredis "credgate/internal/platform/redis"
	httptransport "credgate/internal/transport/http"
	auditpublisher "credgate/pkg/platform/audit/publisher"
	auditmemory "credgate/pkg/platform/audit/store/memory"
	auditworker "credgate/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var users service.UserStore = userstore.New()
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		users = userstore.NewPostgres(db)
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithReservations(reservation.NewRedis(redisClient.Client)))
	}

	group, ctx := errgroup.WithContext(ctx)

	var publisher service.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := auditpublisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic,
			auditpublisher.WithLogger(log))
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		if err := kafka.EnsureTopic(ctx, 3, 1); err != nil {
			log.Error("ensure audit topic", "error", err)
			os.Exit(1)
		}
		publisher = kafka
	} else {
		var w *auditworker.Worker
		publisher, w = auditworker.Buffered(auditmemory.New(), 256,
			auditworker.WithLogger(log))
		group.Go(func() error {
			if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	opts = append(opts, service.WithAuditPublisher(publisher))

	svc := service.New(users, credential.Config{
		PasswordMinLength: cfg.Password.MinLength,
		PasswordMaxLength: cfg.Password.MaxLength,
	}, opts...)

	router := httptransport.NewRouter(httptransport.NewHandler(svc))
	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting credgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
