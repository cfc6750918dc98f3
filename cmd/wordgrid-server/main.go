package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wordgrid/server/internal/api"
	"github.com/wordgrid/server/internal/config"
	"github.com/wordgrid/server/internal/dictionary"
	"github.com/wordgrid/server/internal/events"
	"github.com/wordgrid/server/internal/logging"
	"github.com/wordgrid/server/internal/performance"
	"github.com/wordgrid/server/internal/procedural"
	"github.com/wordgrid/server/internal/streaming"
	"github.com/wordgrid/server/internal/world"
)

const shutdownTimeout = 10 * time.Second

// main starts the word grid server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logFile, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}
	defer logFile.Close()

	words, err := loadDictionary(cfg.Grid.DictionaryPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dictionary")
	}
	if long := dictionary.LongerThan(words, cfg.Grid.ChunkSize); len(long) > 0 {
		log.Warn().Strs("words", long).Int("chunk_size", cfg.Grid.ChunkSize).Msg("words longer than a chunk will never be placed")
	}

	generator, err := procedural.NewGenerator(words, cfg.Grid.ProceduralOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create generator")
	}

	profiler := performance.NewProfiler(cfg.Performance.ProfilingEnabled)
	hub := api.NewWebSocketHub()
	sinks := events.NewFanout(hub)

	if cfg.Events.KafkaEnabled() {
		kafka, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.Events.KafkaBrokers).Msg("failed to connect to Kafka")
		}
		defer func() {
			if err := kafka.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close Kafka producer")
			}
		}()
		// Kafka delivery runs off the validation path.
		async := events.NewAsyncPublisher(kafka, events.DefaultQueueSize)
		defer async.Close()
		sinks.Add(async)
		log.Info().Strs("brokers", cfg.Events.KafkaBrokers).Str("topic", cfg.Events.KafkaTopic).Msg("publishing word_found events to Kafka")
	}

	grid := world.New(generator,
		world.WithSink(sinks),
		world.WithProfiler(profiler),
		world.WithMaxRegionCells(cfg.Grid.MaxRegionCells),
	)
	streams := streaming.NewManager(grid.ChunkSize(), streaming.DefaultMaxChunks)
	wsHandlers := api.NewWebSocketHandlers(grid, hub, streams, cfg, profiler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      api.NewRouter(cfg, grid, wsHandlers, profiler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("environment", cfg.Server.Environment).
			Int("chunk_size", cfg.Grid.ChunkSize).
			Int("words", len(words)).
			Msg("word grid server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	stopHub()

	if profiler.IsEnabled() {
		profiler.LogReport()
	}
}

func loadDictionary(path string) ([]string, error) {
	if path == "" {
		return dictionary.Default()
	}
	return dictionary.Load(path)
}
