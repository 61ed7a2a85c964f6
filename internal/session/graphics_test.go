package session

import (
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"galaxy-server/internal/galaxy"
)

// countingGraphics stands in for the GPU: it counts live uploads so leaks
// and double releases show up in assertions.
type countingGraphics struct {
	mu        sync.Mutex
	live      int
	uploads   int
	releases  int
	failNext  bool
	lastCount int
}

type countingResource struct {
	g        *countingGraphics
	released bool
}

func (g *countingGraphics) Upload(cloud *galaxy.PointCloud, _ galaxy.Parameters) (Resource, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failNext {
		g.failNext = false
		return nil, stderrors.New("out of video memory")
	}
	g.live++
	g.uploads++
	g.lastCount = cloud.Len()
	return &countingResource{g: g}, nil
}

func (r *countingResource) Release() error {
	r.g.mu.Lock()
	defer r.g.mu.Unlock()

	if r.released {
		return stderrors.New("resource released twice")
	}
	r.released = true
	r.g.live--
	r.g.releases++
	return nil
}

func (g *countingGraphics) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

// gatedGraphics blocks uploads while armed, so tests can hold a
// regeneration in flight.
type gatedGraphics struct {
	countingGraphics
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
}

func newGatedGraphics() *gatedGraphics {
	return &gatedGraphics{entered: make(chan struct{}, 1), gate: make(chan struct{})}
}

func (g *gatedGraphics) Upload(cloud *galaxy.PointCloud, params galaxy.Parameters) (Resource, error) {
	if g.armed.CompareAndSwap(true, false) {
		g.entered <- struct{}{}
		<-g.gate
	}
	return g.countingGraphics.Upload(cloud, params)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallParameters() galaxy.Parameters {
	params := galaxy.DefaultParameters()
	params.Count = 500
	return params
}
