package debugui

import (
	"github.com/plus3/archecs/ecs"
)

type EntityBrowserComponent struct {
	cache              *EntityBrowserCache
	selectedEntityId   ecs.EntityId
	filterText         string
	filterArchetypeId  *ecs.ArchetypeId
	maxEntitiesPerPage int
	currentPage        int
}

type ComponentInspectorComponent struct {
	selectedEntityId ecs.EntityId
	fields           *ReflectionCache
}

type ArchetypeViewerComponent struct {
	cache          *ArchetypeViewerCache
	selectedArchId *ecs.ArchetypeId
	hideEmpty      bool
}

type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}

type QueryDebuggerComponent struct {
	roles map[ecs.ComponentId]FilterRole
	cache *QueryDebuggerCache
}
