// Package core wires every surveillance subsystem — ingest, evidence
// acquisition, AI dispatch, entity recognition, fan-out — into the single
// Core value one process constructs at startup, per spec.md §9's "Global
// state" design note. Grounded on cmd/server/main.go's monolithic wiring
// function, generalized into a constructible struct instead of a flat
// sequence of package-level assignments, since this core has many more
// optional collaborators (bus transport, object storage backend, message
// broker) that vary by deployment.
package core

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/surveillance-core/internal/surveillance/aiprovider"
	"github.com/technosupport/surveillance-core/internal/surveillance/bridge"
	"github.com/technosupport/surveillance-core/internal/surveillance/bus"
	"github.com/technosupport/surveillance-core/internal/surveillance/costing"
	"github.com/technosupport/surveillance-core/internal/surveillance/entity"
	"github.com/technosupport/surveillance-core/internal/surveillance/evidence"
	"github.com/technosupport/surveillance-core/internal/surveillance/fanout"
	"github.com/technosupport/surveillance-core/internal/surveillance/ingest"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
	"github.com/technosupport/surveillance-core/internal/surveillance/queue"
	"github.com/technosupport/surveillance-core/internal/surveillance/storage"
)

// Core bundles every long-lived collaborator the pipeline needs. Built
// once in cmd/surveillance-core/main.go and never copied.
type Core struct {
	Queue    *queue.Processor
	Ingest   *ingest.Handler
	Acquirer *evidence.Acquirer
	Entities *entity.Service
	Bridge   *bridge.Bridge
	Bus      *bus.Bus
	Storage  storage.ObjectStore
	CostCap  *costing.DailyMonthlyCap
	Fanout   fanout.Deps

	Events  EventStore
	Cameras CameraResolver
	Logger  *log.Logger
}

func (c *Core) cameraByID(id uuid.UUID) (*model.Camera, bool) {
	if c.Cameras == nil {
		return nil, false
	}
	return c.Cameras.ByID(id)
}

// EventStore is the persistence boundary core.Pipeline needs for the
// synchronous half of the pipeline — narrow on purpose, mirroring
// fanout.Persister's "no direct database dependency leaking upward" shape.
type EventStore interface {
	CreateEvent(ctx context.Context, evt *model.StoredEvent) error
	CountSince(ctx context.Context, cameraID uuid.UUID, since time.Time) (int, error)
}

func (c *Core) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// BuildChain constructs an aiprovider.Chain from configured provider names
// and API keys, skipping any name with no registered factory or no key —
// mirrors aiprovider.Build's "configured and video-capable" filtering.
func BuildChain(order []string, apiKeys map[string]string, usage aiprovider.UsageLog) *aiprovider.Chain {
	built := make(map[string]aiprovider.Provider, len(order))
	var resolvedOrder []string
	for _, name := range order {
		p, ok := aiprovider.Build(name, apiKeys[name])
		if !ok {
			continue
		}
		built[name] = p
		resolvedOrder = append(resolvedOrder, name)
	}
	return &aiprovider.Chain{Order: resolvedOrder, Built: built, Usage: usage}
}
