package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sequencer/api/grpcserver"
	"sequencer/config"
	"sequencer/domain/sequencer"
	"sequencer/infra/kafka"
	"sequencer/infra/metrics"
	entrywal "sequencer/infra/wal/entry"
	exitwal "sequencer/infra/wal/exit"
	"sequencer/jobs/broadcaster"
	"sequencer/pkg/logger"
	"sequencer/service"
	"sequencer/snapshot"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("load config", zap.Error(err))
	}

	log, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.Level(cfg.Log.Level)),
		logger.WithEncoding(cfg.Log.Encoding),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// ---------------- Input log ----------------

	input, err := entrywal.Open(entrywal.Config{
		Dir:             cfg.Input.Dir,
		SegmentSize:     cfg.Input.SegmentSize,
		SegmentDuration: cfg.Input.SegmentDuration,
		Fsync:           cfg.Input.Fsync,
	})
	if err != nil {
		return err
	}
	defer input.Close()

	// ---------------- Output log ----------------

	output, err := exitwal.Open(cfg.Output.Dir, exitwal.Options{NoSync: cfg.Output.NoSync})
	if err != nil {
		return err
	}
	defer output.Close()

	// ---------------- Checkpoints ----------------

	checkpoints, err := openCheckpoints(ctx, cfg.Checkpoint)
	if err != nil {
		return err
	}
	if checkpoints != nil {
		defer checkpoints.Close()
	}

	// ---------------- Engine ----------------

	engine := service.NewEngine(
		service.EngineConfig{
			StrictReplay: cfg.Sequencer.StrictReplay,
			EcoMode:      cfg.Sequencer.EcoMode,
			PollInterval: cfg.Sequencer.PollInterval,
			PruneInput:   cfg.Sequencer.PruneInput,
		},
		input,
		output,
		checkpoints,
		sequencer.NewProcessor(nil, sequencer.WithSandbox(cfg.Sequencer.Sandbox)),
		log.WithFields(logger.NewField("component", "engine")),
		m,
	)
	if err := engine.Recover(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(ctx) })

	// ---------------- Broadcast ----------------

	publisher, err := openPublisher(cfg.Broadcast, log.WithFields(logger.NewField("component", "kafka")))
	if err != nil {
		return err
	}
	if publisher != nil {
		bc := broadcaster.New(output, publisher, broadcaster.Config{
			Cursor:   cfg.Broadcast.Cursor,
			Key:      cfg.Broadcast.Key,
			Interval: cfg.Broadcast.Interval,
			Batch:    cfg.Broadcast.Batch,
		}, log.WithFields(logger.NewField("component", "broadcaster")), m)
		defer bc.Close()
		g.Go(func() error { return bc.Run(ctx) })
	}

	// ---------------- gRPC ----------------

	gateway := service.NewGateway(input, output, cfg.GRPC.AwaitPoll,
		log.WithFields(logger.NewField("component", "gateway")), m)
	grpcSrv, healthSrv := grpcserver.NewGRPCServer(
		grpcserver.NewServer(gateway, cfg.GRPC.AwaitTimeout),
		log.WithFields(logger.NewField("component", "grpc")),
	)
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return err
	}
	g.Go(func() error { return grpcserver.Serve(ctx, grpcSrv, healthSrv, lis) })

	// ---------------- Metrics ----------------

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		httpSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	log.Info("sequencer running",
		logger.NewField("grpc", cfg.GRPC.Addr),
		logger.NewField("metrics", cfg.MetricsAddr),
		logger.NewField("lastSequence", engine.LastSequence()),
	)

	err = g.Wait()
	log.Info("sequencer stopped", logger.NewField("lastSequence", engine.LastSequence()))
	return err
}

func openCheckpoints(ctx context.Context, cfg config.CheckpointConfig) (snapshot.Store, error) {
	switch cfg.Backend {
	case "pebble":
		return snapshot.OpenPebble(cfg.Dir)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		return snapshot.NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		return nil, nil
	}
}

func openPublisher(cfg config.BroadcastConfig, log logger.Interface) (broadcaster.Publisher, error) {
	switch cfg.Backend {
	case "sarama":
		return broadcaster.NewSaramaPublisher(cfg.Brokers, cfg.Topic)
	case "kafkago":
		return kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Brokers, Topic: cfg.Topic}, log), nil
	default:
		return nil, nil
	}
}
