package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/plus3/archecs/ecs"
)

type Report struct {
	RunID   uuid.UUID
	WorldID uuid.UUID

	// Configuration
	Duration   time.Duration
	Ticks      int
	Entities   int
	Components int
	Churn      int
	Readers    int

	// Results
	TotalUpdates      int64
	TotalTime         time.Duration
	TickErrors        int64
	UpdateTime        Stats
	Spawned           int64
	Despawned         int64
	ArchetypesCreated int64
	FinalEntities     int
	BodiesRead        int64
	Energy            float64
	World             ecs.WorldStats
	Scheduler         *ecs.SchedulerStats

	SnapshotBytes int
	SnapshotWrite time.Duration
	SnapshotRead  time.Duration

	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P99     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	for _, sample := range s.Samples {
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))

	sorted := slices.Clone(s.Samples)
	slices.Sort(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.P99 = sorted[(len(sorted)-1)*99/100]
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# ECS Stress Test Report

- **Run:** {{.RunID}}
- **World:** {{.WorldID}}

## Test Configuration
- **Run Duration:** {{.Duration}}{{if .Ticks}} (capped at {{.Ticks}} ticks){{end}}
- **Initial Entities:** {{.Entities}}
- **Component Types:** {{.Components}}
- **Churn Per Tick:** {{.Churn}}
- **Read Systems:** {{.Readers}}

## Performance Results
- **Total Updates:** {{.TotalUpdates}}
- **Total Test Time:** {{.TotalTime}}
- **Ticks With Errors:** {{.TickErrors}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **Min:** {{.UpdateTime.Min}}
  - **P99:** {{.UpdateTime.P99}}
  - **Max:** {{.UpdateTime.Max}}

## World
- **Entities:** {{.FinalEntities}} (spawned {{.Spawned}}, despawned {{.Despawned}})
- **Archetypes:** {{.World.ArchetypeCount}} ({{.ArchetypesCreated}} created during the run)
- **Row Capacity:** {{.World.TotalCapacity}}
- **Cached Queries:** {{.World.GroupCount}}
- **Bodies Read:** {{.BodiesRead}} (energy {{printf "%.2f" .Energy}})
{{with .Scheduler}}
## Systems
| System | Read | Runs | Avg | Max |
|---|---|---|---|---|
{{range .Systems}}| {{.Name}} | {{.ReadOnly}} | {{.ExecutionCount}} | {{.AvgDuration}} | {{.MaxDuration}} |
{{end}}
- **Flush Failures:** {{.FlushFailures}}
{{end}}
{{if .SnapshotBytes}}
## Snapshot
- **Size:** {{mb .SnapshotBytes}} MB ({{.SnapshotBytes}} bytes)
- **Write:** {{.SnapshotWrite}}
- **Read:** {{.SnapshotRead}}
{{end}}
## Memory Usage (Raw Bytes)
- Heap Alloc:     {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Sys Memory:     {{.MemStatsStart.Sys}} (start) -> {{.MemStatsEnd.Sys}} (end) -> delta: {{bsub .MemStatsEnd.Sys .MemStatsStart.Sys}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

	fm := template.FuncMap{
		"mb": func(v any) string {
			switch val := v.(type) {
			case int:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case uint64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			case int64:
				return fmt.Sprintf("%.2f", float64(val)/1024/1024)
			default:
				return "N/A"
			}
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}
