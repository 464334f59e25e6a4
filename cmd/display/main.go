package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/config"
	"github.com/fjod/go_pos/internal/displaysync"
	displaygrpc "github.com/fjod/go_pos/internal/grpc"
	"github.com/fjod/go_pos/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const maxBackoff = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New("display", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	registerID := cfg.Checkout.RegisterID
	log.Info("customer display starting...", zap.String("register_id", registerID), zap.String("register_addr", cfg.DisplayAddr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(cfg.DisplayAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		log.Fatal("failed to connect to register", zap.Error(err))
	}
	defer conn.Close()
	client := displaygrpc.NewDisplayClient(conn)

	act := func(ctx context.Context, action *d.CustomerAction) error {
		_, err := client.Act(ctx, action)
		return err
	}
	p := tea.NewProgram(newModel(act, cfg.RequestTimeout))

	replica := displaysync.NewReplica(log, func(s d.CheckoutSession) {
		log.Debug("display updated", zap.String("screen", string(s.Screen)), zap.Uint64("version", s.Version))
		p.Send(sessionMsg(s))
	})

	var sessionCache cache.SessionCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		sessionCache = cache.NewRedisCache(redisClient)
	}

	go func() {
		if sessionCache != nil {
			bootstrap(ctx, sessionCache, registerID, replica, log)
		}
		watchLoop(ctx, client, registerID, replica, log)
	}()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		log.Error("display terminal failed", zap.Error(err))
	}
	stop()
	log.Info("customer display stopped")
}

// bootstrap renders the last cached snapshot so the display is not blank until the stream connects.
func bootstrap(ctx context.Context, c cache.SessionCache, registerID string, replica *displaysync.Replica, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	s, err := c.Get(ctx, registerID)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		log.Debug("no cached session for register")
	case err != nil:
		log.Warn("failed to read cached session", zap.Error(err))
	default:
		replica.ApplySnapshot(*s)
	}
}

func watch(ctx context.Context, client *displaygrpc.DisplayClient, registerID string, replica *displaysync.Replica) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Watch(ctx, &displaygrpc.WatchRequest{RegisterID: registerID})
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	msgs, errc := displaygrpc.Stream(ctx, stream)
	if err := replica.Run(ctx, msgs); err != nil {
		return err
	}
	return <-errc
}

func watchLoop(ctx context.Context, client *displaygrpc.DisplayClient, registerID string, replica *displaysync.Replica, log *zap.Logger) {
	backoff := 250 * time.Millisecond
	for {
		err := watch(ctx, client, registerID, replica)
		if ctx.Err() != nil {
			return
		}
		log.Warn("display stream ended, reconnecting", zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}
