package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/backend"
	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/channel"
	"github.com/fjod/go_pos/internal/checkout"
	"github.com/fjod/go_pos/internal/config"
	displaygrpc "github.com/fjod/go_pos/internal/grpc"
	h "github.com/fjod/go_pos/internal/http"
	"github.com/fjod/go_pos/internal/metrics"
	"github.com/fjod/go_pos/internal/publisher"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/fjod/go_pos/internal/scanner"
	"github.com/fjod/go_pos/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New("register", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	registerID := cfg.Checkout.RegisterID
	log.Info("register starting...", zap.String("register_id", registerID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckout(reg)
	serverMetrics := metrics.NewServerMetrics(reg, "register")

	opts := []checkout.Option{
		checkout.WithLogger(log),
		checkout.WithObserver(checkoutMetrics),
	}

	// Channel bus and snapshot cache
	var bus channel.Bus
	var sessionCache cache.SessionCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer redisClient.Close()
		bus = channel.NewRedis(redisClient, registerID, log)
		sessionCache = cache.NewRedisCache(redisClient)
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	} else {
		local := channel.NewLocal()
		defer local.Close()
		bus = local
	}
	opts = append(opts, checkout.WithPublisher(bus))

	// Database setup
	var poller *publisher.OutboxPoller
	if cfg.DB.Host != "" {
		repo, err := repository.NewRepository(&cfg.DB)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer repo.Close()

		if err := repo.RunMigrations(&cfg.DB); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		log.Info("database migrations completed")
		opts = append(opts, checkout.WithRecorder(repo))

		if len(cfg.KafkaBrokers) > 0 {
			poller = publisher.NewOutboxPoller(repo, log, cfg.KafkaBrokers...)
			defer poller.Close()
		}
	}

	client := backend.NewClient(cfg.BackendURL, backend.WithLogger(log))
	machine := checkout.New(cfg.Checkout, client, opts...)

	if sessionCache != nil {
		initial := machine.Session()
		cacheSession(sessionCache, registerID, &initial, log)
		unsubscribe := machine.Subscribe(func(s d.CheckoutSession) {
			go cacheSession(sessionCache, registerID, &s, log)
		})
		defer unsubscribe()
	}

	if poller != nil {
		go poller.Run(ctx)
		log.Info("outbox poller started", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	// Scanner
	buf := scanner.NewBuffer()
	defer buf.Close()
	handler := h.NewHandler(machine, buf, client, cfg.RequestTimeout, log)
	go handler.ScanLoop(ctx, buf.Scans())
	if cfg.ScannerStdin {
		go readKeys(os.Stdin, buf, log)
	}

	// Start gRPC server
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcServer, healthServer := displaygrpc.NewServer(displaygrpc.NewDisplayServiceServer(machine, bus, log))
	go func() {
		log.Info("display service listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("failed to serve grpc", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(handler, serverMetrics, metrics.Handler(reg), cfg.MaxRequestBodySize),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("console API starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down register...")

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("register stopped")
}

func cacheSession(c cache.SessionCache, registerID string, s *d.CheckoutSession, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Set(ctx, registerID, s); err != nil {
		log.Warn("failed to cache session snapshot", zap.Uint64("version", s.Version), zap.Error(err))
	}
}

// readKeys forwards raw keystrokes of a keyboard-wedge scanner attached to stdin.
func readKeys(r io.Reader, buf *scanner.Buffer, log *zap.Logger) {
	in := bufio.NewReader(r)
	for {
		ch, _, err := in.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn("scanner input closed", zap.Error(err))
			}
			return
		}
		buf.Key(ch)
	}
}
