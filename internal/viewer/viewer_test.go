package viewer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"galaxy-server/internal/galaxy"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestViewer(t *testing.T) (*Viewer, tcell.SimulationScreen) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(100, 30)
	t.Cleanup(screen.Fini)

	params := galaxy.DefaultParameters()
	params.Count = 3000

	v, err := New(screen, Options{
		Settings: Settings{Parameters: params, RotationY: DefaultRotationY},
		Seed:     7,
		Ranges:   galaxy.DefaultRanges(),
		Debounce: time.Hour,
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	return v, screen
}

func key(k tcell.Key, r rune) *tcell.EventKey {
	return tcell.NewEventKey(k, r, tcell.ModNone)
}

func TestNewUploadsFirstCloud(t *testing.T) {
	v, _ := newTestViewer(t)

	assert.Equal(t, 1, v.Graphics().Live())
	require.NotNil(t, v.Graphics().Bound())
	assert.Equal(t, 3000, v.Graphics().Bound().Len())
	assert.Equal(t, galaxy.DefaultParameters().Size, v.Graphics().Bound().Size())
	assert.Equal(t, uint64(1), v.Controller().Generation())
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()

	params := galaxy.DefaultParameters()
	params.Branches = 0

	_, err := New(screen, Options{
		Settings: Settings{Parameters: params},
		Ranges:   galaxy.DefaultRanges(),
	}, discardLogger())
	assert.ErrorIs(t, err, galaxy.ErrInvalidParameter)
}

func TestDrawShowsGalaxyAndPanel(t *testing.T) {
	v, screen := newTestViewer(t)

	v.Draw(0)

	cells, width, height := screen.GetContents()
	require.Equal(t, 100, width)
	require.Equal(t, 30, height)

	lit := 0
	for y := range height - 1 {
		for x := range width - panelWidth {
			if r := cells[y*width+x].Runes; len(r) > 0 && r[0] != ' ' {
				lit++
			}
		}
	}
	assert.Positive(t, lit)

	r, _, _, _ := screen.GetContent(width-panelWidth+1, 0)
	assert.Equal(t, 'g', r)
}

func TestEditsAreDebounced(t *testing.T) {
	v, _ := newTestViewer(t)

	for range 5 {
		assert.True(t, v.HandleEvent(key(tcell.KeyRight, 0)))
	}

	assert.Equal(t, 3500, v.Settings().Parameters.Count)
	assert.True(t, v.Debouncer().Pending())
	assert.Equal(t, uint64(1), v.Controller().Generation())

	v.Debouncer().Flush()

	assert.Equal(t, uint64(2), v.Controller().Generation())
	assert.Equal(t, 1, v.Graphics().Live())
	assert.Equal(t, 3500, v.Graphics().Bound().Len())
}

func TestRotationEditDoesNotRegenerate(t *testing.T) {
	v, _ := newTestViewer(t)

	v.HandleEvent(key(tcell.KeyUp, 0))
	// Up from the first row wraps to rotationZ.
	v.HandleEvent(key(tcell.KeyRight, 0))

	assert.InDelta(t, 0.001, v.Settings().RotationZ, 1e-12)
	assert.False(t, v.Debouncer().Pending())
}

func TestShiftStepsTen(t *testing.T) {
	v, _ := newTestViewer(t)

	v.HandleEvent(key(tcell.KeyDown, 0))
	v.HandleEvent(key(tcell.KeyDown, 0))
	v.HandleEvent(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModShift))

	assert.InDelta(t, 4.9, v.Settings().Parameters.Radius, 1e-9)
}

func TestReseedKeepsParameters(t *testing.T) {
	v, _ := newTestViewer(t)
	before := v.Settings()

	v.HandleEvent(key(tcell.KeyRune, 'r'))
	v.Debouncer().Flush()

	assert.Equal(t, before, v.Settings())
	assert.Equal(t, uint64(2), v.Controller().Generation())
	assert.Equal(t, 1, v.Graphics().Live())
}

func TestQuitKeys(t *testing.T) {
	v, _ := newTestViewer(t)

	assert.False(t, v.HandleEvent(key(tcell.KeyEscape, 0)))
	assert.False(t, v.HandleEvent(key(tcell.KeyCtrlC, 0)))
	assert.False(t, v.HandleEvent(key(tcell.KeyRune, 'q')))
	assert.True(t, v.HandleEvent(key(tcell.KeyRune, 'x')))
}

func TestRunStopsOnQuit(t *testing.T) {
	v, screen := newTestViewer(t)

	done := make(chan error, 1)
	go func() { done <- v.Run(context.Background()) }()

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("viewer did not stop")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	v, _ := newTestViewer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, v.Run(ctx))
}

func TestCloseReleasesCloud(t *testing.T) {
	v, _ := newTestViewer(t)

	require.NoError(t, v.Close())
	assert.Zero(t, v.Graphics().Live())
	assert.Nil(t, v.Graphics().Bound())
}

func TestPointSizeWidensSplat(t *testing.T) {
	lit := func(size float64) int {
		screen := tcell.NewSimulationScreen("UTF-8")
		require.NoError(t, screen.Init())
		defer screen.Fini()
		screen.SetSize(100, 30)

		params := galaxy.DefaultParameters()
		params.Count = 200
		params.Size = size
		params.Radius = 0.05

		v, err := New(screen, Options{
			Settings: Settings{Parameters: params},
			Seed:     4,
			Ranges:   galaxy.DefaultRanges(),
			Debounce: time.Hour,
		}, discardLogger())
		require.NoError(t, err)
		defer v.Close()

		v.Draw(0)
		cells, width, height := screen.GetContents()
		count := 0
		for y := range height {
			for x := range width - panelWidth {
				if r := cells[y*width+x].Runes; len(r) > 0 && r[0] != ' ' {
					count++
				}
			}
		}
		return count
	}

	assert.Greater(t, lit(0.1), lit(0.001))
}
