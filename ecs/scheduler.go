package ecs

import (
	"context"
	"reflect"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	FlushFailures   int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ReadOnly       bool
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	readOnly       bool
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func (st *systemStatsInternal) record(duration time.Duration) {
	st.executionCount++
	st.lastDuration = duration
	st.totalDuration += duration
	if duration < st.minDuration {
		st.minDuration = duration
	}
	if duration > st.maxDuration {
		st.maxDuration = duration
	}
}

// ReadSystem is a system that only reads and updates component values in
// place. Read systems run concurrently with each other in the read phase,
// after all structural changes of the tick have been applied.
type ReadSystem interface {
	Read(world *World) error
}

// worldBinder is implemented by Query and Singleton fields so the scheduler
// can bind them to its world.
type worldBinder interface {
	Init(world *World)
}

// Scheduler manages and executes systems. A tick has two phases: the write
// phase runs Systems in registration order, flushes the queued commands and
// dispatches world events; the read phase then runs every ReadSystem
// concurrently.
type Scheduler struct {
	world         *World
	systems       []System
	systemStats   []*systemStatsInternal
	readers       []ReadSystem
	readerStats   []*systemStatsInternal
	flushFailures int64
}

// NewScheduler creates a new scheduler for the given world.
func NewScheduler(world *World) *Scheduler {
	return &Scheduler{
		world:   world,
		systems: make([]System, 0),
	}
}

// Register adds a system to the write phase and binds its Query and
// Singleton fields to the world.
func (s *Scheduler) Register(system System) {
	s.bindFields(system)
	s.systems = append(s.systems, system)
	s.systemStats = append(s.systemStats, newSystemStats(system, false))
}

// RegisterReader adds a system to the concurrent read phase.
func (s *Scheduler) RegisterReader(reader ReadSystem) {
	s.bindFields(reader)
	s.readers = append(s.readers, reader)
	s.readerStats = append(s.readerStats, newSystemStats(reader, true))
}

func newSystemStats(system any, readOnly bool) *systemStatsInternal {
	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Pointer {
		systemType = systemType.Elem()
	}
	return &systemStatsInternal{
		name:        systemType.Name(),
		readOnly:    readOnly,
		minDuration: time.Duration(1<<63 - 1),
	}
}

func (s *Scheduler) bindFields(system any) {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() != reflect.Pointer {
		return
	}
	systemValue = systemValue.Elem()
	if systemValue.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}
		if binder, ok := field.Addr().Interface().(worldBinder); ok {
			binder.Init(s.world)
		}
	}
}

// Once runs one tick with the given delta time. It returns the command flush
// errors joined with the first read-phase error, if any.
func (s *Scheduler) Once(dt float64) error {
	frame := newUpdateFrame(dt, s.world)

	for i, system := range s.systems {
		start := time.Now()
		system.Execute(frame)
		s.systemStats[i].record(time.Since(start))
	}

	flushErr := frame.Commands.Flush(s.world)
	if flushErr != nil {
		s.flushFailures++
	}
	s.world.DispatchEvents()

	return multierr.Append(flushErr, s.readPhase())
}

func (s *Scheduler) readPhase() error {
	if len(s.readers) == 0 {
		return nil
	}
	s.world.refreshGroups()

	var mu sync.Mutex
	var eg errgroup.Group
	for i, reader := range s.readers {
		eg.Go(func() error {
			start := time.Now()
			err := reader.Read(s.world)
			duration := time.Since(start)

			mu.Lock()
			s.readerStats[i].record(duration)
			mu.Unlock()
			return err
		})
	}
	return eg.Wait()
}

// Run executes ticks at the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			if err := s.Once(dt); err != nil {
				s.world.logger.Warn("tick finished with errors", zap.Error(err))
			}
		}
	}
}

// GetStats returns statistics about system execution. Write-phase systems
// come first, in registration order, followed by read systems.
func (s *Scheduler) GetStats() *SchedulerStats {
	all := make([]*systemStatsInternal, 0, len(s.systemStats)+len(s.readerStats))
	all = append(all, s.systemStats...)
	all = append(all, s.readerStats...)

	stats := &SchedulerStats{
		SystemCount:   len(all),
		FlushFailures: s.flushFailures,
		Systems:       make([]SystemStats, len(all)),
	}

	for i, internal := range all {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ReadOnly:       internal.readOnly,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		stats.TotalExecutions += internal.executionCount
	}

	return stats
}
