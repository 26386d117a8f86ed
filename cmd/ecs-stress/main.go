package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/plus3/archecs/ecs"
	"github.com/plus3/archecs/internal/log"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := log.New(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	runID := uuid.New()
	logger = logger.With(zap.Stringer("run", runID))

	if stop := startProfile(cfg); stop != nil {
		defer stop()
	}

	ctx := context.Background()
	if cfg.Ticks <= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	report, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error("stress test failed", zap.Error(err))
		os.Exit(1)
	}
	report.RunID = runID

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		logger.Fatal("failed to generate report", zap.Error(err))
	}
	fmt.Println("--- End of Report ---")
}

func startProfile(cfg Config) func() {
	var mode func(*profile.Profile)
	switch cfg.Profile {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "allocs":
		mode = profile.MemProfileAllocs
	default:
		return nil
	}
	return profile.Start(mode, profile.ProfilePath(cfg.ProfilePath), profile.NoShutdownHook, profile.Quiet).Stop
}

// run populates a world, ticks it until ctx is done or cfg.Ticks ticks have
// run, and optionally round-trips a snapshot of the final state.
func run(ctx context.Context, cfg Config, logger *zap.Logger) (*Report, error) {
	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	world := ecs.NewWorld(registry,
		ecs.WithLogger(logger),
		ecs.WithInitialCapacity(cfg.Entities),
	)

	report := &Report{
		WorldID:        world.ID(),
		Duration:       cfg.Duration,
		Ticks:          cfg.Ticks,
		Entities:       cfg.Entities,
		Components:     registry.Len(),
		Churn:          cfg.Churn,
		Readers:        cfg.Readers,
		GCPauseMetrics: cfg.GCPauseMetrics,
	}

	world.Subscribe(func(ev ecs.Event) {
		switch ev.Kind {
		case ecs.EntityCreated:
			report.Spawned++
		case ecs.EntityDestroyed:
			report.Despawned++
		case ecs.ArchetypeCreated:
			report.ArchetypesCreated++
		}
	})

	churn := newChurnSystem(registry, cfg.Seed, cfg.Churn)
	scheduler := ecs.NewScheduler(world)
	scheduler.Register(&MovementSystem{})
	scheduler.Register(newDecaySystem(registry))
	scheduler.Register(churn)

	readers := make([]*EnergyReader, cfg.Readers)
	for i := range readers {
		readers[i] = newEnergyReader(registry)
		scheduler.RegisterReader(readers[i])
	}

	logger.Info("populating world", zap.Int("entities", cfg.Entities))
	for i := 0; i < cfg.Entities; i++ {
		e, err := world.Spawn(randomComponents(churn.rng)...)
		if err != nil {
			return nil, eris.Wrap(err, "populate world")
		}
		churn.Track(e)
	}
	world.DispatchEvents()

	runtime.ReadMemStats(&report.MemStatsStart)
	logger.Info("running simulation", zap.Duration("duration", cfg.Duration), zap.Int("ticks", cfg.Ticks))

	startTime := time.Now()
	lastFrameTime := startTime

Loop:
	for cfg.Ticks <= 0 || report.TotalUpdates < int64(cfg.Ticks) {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		deltaTime := time.Since(lastFrameTime)
		lastFrameTime = time.Now()

		updateStart := time.Now()
		if err := scheduler.Once(deltaTime.Seconds()); err != nil {
			report.TickErrors++
			logger.Debug("tick reported errors", zap.Error(err))
		}
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
		report.TotalUpdates++
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	report.FinalEntities = world.Len()
	report.World = world.CollectStats()
	report.Scheduler = scheduler.GetStats()
	for _, r := range readers {
		bodies, energy := r.Totals()
		report.BodiesRead += bodies
		report.Energy += energy
	}

	if cfg.Snapshot {
		if err := snapshotRoundTrip(world, report); err != nil {
			return nil, err
		}
	}

	logger.Info("simulation finished",
		zap.Int64("updates", report.TotalUpdates),
		zap.Int("entities", report.FinalEntities),
	)
	return report, nil
}

// snapshotRoundTrip writes the world to memory, restores it into a fresh
// world and checks that every entity came back.
func snapshotRoundTrip(world *ecs.World, report *Report) error {
	var buf bytes.Buffer

	start := time.Now()
	if err := world.WriteSnapshot(&buf); err != nil {
		return eris.Wrap(err, "write snapshot")
	}
	report.SnapshotWrite = time.Since(start)
	report.SnapshotBytes = buf.Len()

	restored := ecs.NewWorld(world.Registry(), ecs.WithLogger(world.Logger()))
	start = time.Now()
	mapping, err := restored.ReadSnapshot(&buf)
	if err != nil {
		return eris.Wrap(err, "read snapshot")
	}
	report.SnapshotRead = time.Since(start)

	if len(mapping) != world.Len() || restored.Len() != world.Len() {
		return eris.Errorf("snapshot restored %d of %d entities", restored.Len(), world.Len())
	}
	return nil
}
