package wave

import (
	"context"
	"time"

	ecs "github.com/forgeworks/ecscore"
)

// System is one schedulable unit of per-frame logic, declaring its
// component/resource access up front so the planner can compute conflicts
// without running it (§4.8 "static conflict analysis").
type System interface {
	Name() string
	Reads() []ecs.TypeID
	Writes() []ecs.TypeID
	ResourceReads() []string
	ResourceWrites() []string

	// Before/After/DependsOn name other systems explicitly, independent of
	// any component/resource conflict the planner would otherwise infer.
	Before() []string
	After() []string
	DependsOn() []string

	Priority() int
	EstimatedRuntime() time.Duration
	Parallelizable() bool

	Run(ctx context.Context, w *ecs.World) error
}

// BaseSystem is an embeddable convenience implementing every metadata
// accessor from fixed fields, so concrete systems only need to set what
// they actually use and override Run.
type BaseSystem struct {
	SystemName       string
	ReadTypes        []ecs.TypeID
	WriteTypes       []ecs.TypeID
	ReadResources    []string
	WriteResources   []string
	BeforeNames      []string
	AfterNames       []string
	DependsOnNames   []string
	SystemPriority   int
	RuntimeEstimate  time.Duration
	AllowParallel    bool
}

func (b BaseSystem) Name() string                { return b.SystemName }
func (b BaseSystem) Reads() []ecs.TypeID         { return b.ReadTypes }
func (b BaseSystem) Writes() []ecs.TypeID        { return b.WriteTypes }
func (b BaseSystem) ResourceReads() []string     { return b.ReadResources }
func (b BaseSystem) ResourceWrites() []string    { return b.WriteResources }
func (b BaseSystem) Before() []string            { return b.BeforeNames }
func (b BaseSystem) After() []string             { return b.AfterNames }
func (b BaseSystem) DependsOn() []string         { return b.DependsOnNames }
func (b BaseSystem) Priority() int                { return b.SystemPriority }
func (b BaseSystem) EstimatedRuntime() time.Duration { return b.RuntimeEstimate }
func (b BaseSystem) Parallelizable() bool        { return b.AllowParallel }
