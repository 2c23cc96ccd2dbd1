// Command server runs the turnstile HTTP API: pass issuance, scanning,
// reporting and device administration. Stores are postgres-backed when
// DATABASE_URL is set and in-memory otherwise; the recent-scans feed and the
// token revocation list prefer Redis when REDIS_URL is set.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	checkinHandler "turnstile/internal/checkin/handler"
	checkinMetrics "turnstile/internal/checkin/metrics"
	checkinService "turnstile/internal/checkin/service"
	"turnstile/internal/checkin/store/feed"
	"turnstile/internal/checkin/store/scanlog"
	"turnstile/internal/device"
	deviceHandler "turnstile/internal/device/handler"
	deviceService "turnstile/internal/device/service"
	devicestore "turnstile/internal/device/store/device"
	"turnstile/internal/device/store/revocation"
	httpapi "turnstile/internal/http"
	jwttoken "turnstile/internal/jwt_token"
	"turnstile/internal/platform/config"
	"turnstile/internal/platform/httpserver"
	"turnstile/internal/platform/logger"
	platformMetrics "turnstile/internal/platform/metrics"
	platformRedis "turnstile/internal/platform/redis"
	ratelimitMetrics "turnstile/internal/ratelimit/metrics"
	ratelimitMiddleware "turnstile/internal/ratelimit/middleware"
	"turnstile/internal/ratelimit/store/bucket"
	registrationHandler "turnstile/internal/registration/handler"
	registrationMetrics "turnstile/internal/registration/metrics"
	registrationService "turnstile/internal/registration/service"
	regstore "turnstile/internal/registration/store/registration"
	reportHandler "turnstile/internal/report/handler"
	reportMetrics "turnstile/internal/report/metrics"
	reportService "turnstile/internal/report/service"
	rosterHandler "turnstile/internal/roster/handler"
	rosterService "turnstile/internal/roster/service"
	eventstore "turnstile/internal/roster/store/event"
	studentstore "turnstile/internal/roster/store/student"
	audit "turnstile/pkg/platform/audit"
	auditPublisher "turnstile/pkg/platform/audit/publisher"
	auditMemory "turnstile/pkg/platform/audit/store/memory"
	auditPostgres "turnstile/pkg/platform/audit/store/postgres"
	"turnstile/pkg/platform/tx"
)

// Store unions so one variable serves every service interface regardless of
// the memory/postgres choice.
type studentDirectory interface {
	rosterService.StudentStore
	reportService.StudentDirectory
}

type eventDirectory interface {
	rosterService.EventStore
	reportService.EventDirectory
}

type registrationLedger interface {
	registrationService.RegistrationStore
	checkinService.Ledger
	reportService.Ledger
}

type scanLog interface {
	checkinService.ScanLog
	reportService.ScanLog
}

type scanFeed interface {
	checkinService.Feed
	reportService.Feed
}

type revocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = openPostgres(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("postgres stores enabled")
	} else {
		log.Info("no DATABASE_URL configured, using in-memory stores")
	}

	redisClient, err := platformRedis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis enabled")
	}

	// Audit: postgres store writes the queryable table and the outbox in one
	// transaction; the relay process ships the outbox to Kafka.
	var auditStore audit.Store
	if db != nil {
		auditStore = auditPostgres.New(db)
	} else {
		auditStore = auditMemory.NewInMemoryStore()
	}
	publisher := auditPublisher.NewPublisher(auditStore,
		auditPublisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
	)
	defer publisher.Close()

	var (
		students studentDirectory
		events   eventDirectory
		ledger   registrationLedger
		scans    scanLog
		devices  deviceService.DeviceStore
		runner   tx.Runner
	)
	if db != nil {
		students = studentstore.NewPostgres(db)
		events = eventstore.NewPostgres(db)
		ledger = regstore.NewPostgres(db)
		scans = scanlog.NewPostgres(db)
		devices = devicestore.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
	} else {
		students = studentstore.New()
		events = eventstore.New()
		ledger = regstore.New()
		scans = scanlog.New()
		devices = devicestore.New()
		runner = tx.NewShardedRunner()
	}

	var recentFeed scanFeed
	if redisClient != nil {
		recentFeed = feed.NewRedis(redisClient.Client, feed.WithFeedSize(cfg.CheckIn.FeedSize))
	} else {
		recentFeed = feed.NewInMemory(cfg.CheckIn.FeedSize)
	}

	var trl revocationList
	switch {
	case redisClient != nil:
		trl = revocation.NewRedisTRL(redisClient.Client)
	case db != nil:
		trl = revocation.NewPostgresTRL(db)
	default:
		trl = revocation.NewInMemoryTRL()
	}

	fingerprints := device.NewService(cfg.Auth.DeviceBindingOn)
	jwtService := jwttoken.NewJWTService(cfg.Auth.DeviceJWTSecret, "turnstile", "scanners")

	rosterSvc := rosterService.New(students, events,
		rosterService.WithLogger(log),
		rosterService.WithAuditPublisher(publisher),
	)
	registrationSvc := registrationService.New(ledger, rosterSvc,
		registrationService.WithLogger(log),
		registrationService.WithAuditPublisher(publisher),
		registrationService.WithMetrics(registrationMetrics.New()),
	)
	checkinSvc := checkinService.New(ledger, scans, rosterSvc, runner,
		checkinService.WithLogger(log),
		checkinService.WithAuditPublisher(publisher),
		checkinService.WithMetrics(checkinMetrics.New()),
		checkinService.WithFeed(recentFeed),
		checkinService.WithGracePeriod(cfg.CheckIn.Grace),
	)
	deviceSvc := deviceService.New(devices, jwtService, trl, fingerprints,
		deviceService.WithLogger(log),
		deviceService.WithAuditPublisher(publisher),
		deviceService.WithTokenTTL(cfg.Auth.DeviceTokenTTL),
	)
	reportSvc := reportService.New(ledger, students, events, scans,
		reportService.WithLogger(log),
		reportService.WithAuditPublisher(publisher),
		reportService.WithMetrics(reportMetrics.New()),
		reportService.WithDeviceNames(deviceSvc),
		reportService.WithFeed(recentFeed),
	)

	throttle := ratelimitMiddleware.New(bucket.New(), log,
		ratelimitMiddleware.WithMetrics(ratelimitMetrics.New()),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:  log,
		Metrics: platformMetrics.New(),

		AdminToken:        cfg.Auth.AdminToken,
		TokenValidator:    jwttoken.NewJWTServiceAdapter(jwtService),
		RevocationChecker: trl,
		Fingerprinter:     fingerprints,

		Throttle:   throttle,
		ScanLimit:  cfg.CheckIn.ScanLimit,
		ScanWindow: cfg.CheckIn.ScanWindow,

		Roster:        rosterHandler.New(rosterSvc, log),
		Registrations: registrationHandler.New(registrationSvc, log),
		CheckIns:      checkinHandler.New(checkinSvc, log),
		Reports: reportHandler.New(reportSvc, reportHandler.DocumentFor{
			Report:     reportService.ReportDocument,
			Attendance: reportService.AttendanceDocument,
		}, log),
		Devices: deviceHandler.New(deviceSvc, log),
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting turnstile server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
