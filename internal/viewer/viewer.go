package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"galaxy-server/internal/galaxy"
	"galaxy-server/internal/render"
	"galaxy-server/internal/session"

	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	frameInterval = 33 * time.Millisecond
	panelWidth    = 32
	// cellAspect is the width of a terminal cell over its height.
	cellAspect = 0.5
)

// glyphs ramp from faint to dense light.
var glyphs = []rune{'.', ':', '*', 'o', '@'}

type Options struct {
	Settings Settings
	Seed     uint64
	Ranges   galaxy.Ranges
	Debounce time.Duration
}

// Viewer draws the current cloud into a terminal and edits its parameters.
type Viewer struct {
	screen     tcell.Screen
	graphics   *TerminalGraphics
	controller *session.Controller
	debouncer  *session.Debouncer
	panel      *Panel
	acc        *render.Accumulator
	logger     *slog.Logger

	mu       sync.Mutex
	settings Settings
	seed     uint64
	status   string

	start time.Time
}

// New generates the first cloud synchronously so the first frame has
// something to show.
func New(screen tcell.Screen, opts Options, logger *slog.Logger) (*Viewer, error) {
	logger = logger.With("component", "viewer")

	graphics := NewTerminalGraphics()
	v := &Viewer{
		screen:     screen,
		graphics:   graphics,
		controller: session.NewController(graphics, logger),
		panel:      NewPanel(opts.Ranges),
		acc:        render.NewAccumulator(0, 0),
		logger:     logger,
		settings:   opts.Settings,
		seed:       opts.Seed,
		start:      time.Now(),
	}
	v.debouncer = session.NewDebouncer(opts.Debounce, v.regenerate)

	if _, err := v.controller.Regenerate(opts.Settings.Parameters, opts.Seed); err != nil {
		return nil, fmt.Errorf("initial generation failed: %w", err)
	}
	v.setStatus(fmt.Sprintf("%d points", opts.Settings.Parameters.Count))
	return v, nil
}

func (v *Viewer) Graphics() *TerminalGraphics {
	return v.graphics
}

func (v *Viewer) Controller() *session.Controller {
	return v.controller
}

func (v *Viewer) Debouncer() *session.Debouncer {
	return v.debouncer
}

func (v *Viewer) Settings() Settings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settings
}

func (v *Viewer) Status() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

func (v *Viewer) setStatus(s string) {
	v.mu.Lock()
	v.status = s
	v.mu.Unlock()
}

func (v *Viewer) regenerate(req session.RegenerateRequested) {
	start := time.Now()
	current, err := v.controller.Regenerate(req.Parameters, req.Seed)
	if err != nil {
		v.logger.Warn("Regeneration rejected", "operation", "regenerate", "error", err)
		v.setStatus(err.Error())
		return
	}
	v.setStatus(fmt.Sprintf("%d points in %s", current.Cloud.Len(), time.Since(start).Round(time.Millisecond)))
}

// Run drives the frame loop until ctx ends or a quit key arrives.
func (v *Viewer) Run(ctx context.Context) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	v.Draw(time.Since(v.start))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok || !v.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			v.Draw(time.Since(v.start))
		}
	}
}

// HandleEvent applies one input event and reports whether the viewer
// should keep running.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			v.panel.Move(-1)
		case tcell.KeyDown:
			v.panel.Move(1)
		case tcell.KeyLeft:
			v.adjust(-stepsFor(ev))
		case tcell.KeyRight:
			v.adjust(stepsFor(ev))
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 'r':
				v.reseed()
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func stepsFor(ev *tcell.EventKey) int {
	if ev.Modifiers()&tcell.ModShift != 0 {
		return 10
	}
	return 1
}

func (v *Viewer) adjust(n int) {
	v.mu.Lock()
	changed, regenerate := v.panel.Adjust(&v.settings, n)
	req := session.RegenerateRequested{Parameters: v.settings.Parameters, Seed: v.seed}
	v.mu.Unlock()

	if changed && regenerate {
		v.debouncer.Request(req)
	}
}

func (v *Viewer) reseed() {
	v.mu.Lock()
	v.seed = galaxy.NewSeed()
	req := session.RegenerateRequested{Parameters: v.settings.Parameters, Seed: v.seed}
	v.mu.Unlock()

	v.debouncer.Request(req)
}

// Draw renders one frame: the bound buffer spun by elapsed time, then the
// panel on the right.
func (v *Viewer) Draw(elapsed time.Duration) {
	v.screen.Clear()
	width, height := v.screen.Size()
	areaWidth := max(width-panelWidth, 0)

	settings := v.Settings()
	if buf := v.graphics.Bound(); buf != nil && areaWidth > 0 && height > 1 {
		v.drawCloud(buf, settings, elapsed, areaWidth, height-1)
	}

	v.drawPanel(settings, areaWidth)
	v.drawText(0, height-1, v.Status(), tcell.StyleDefault.Foreground(tcell.ColorGray))
	v.screen.Show()
}

func (v *Viewer) drawCloud(buf *VertexBuffer, s Settings, elapsed time.Duration, width, height int) {
	seconds := elapsed.Seconds()
	camera := render.FitCamera(width, int(float64(height)/cellAspect), buf.Radius())
	camera.CenterY = float64(height) / 2
	camera.Aspect = cellAspect
	camera.Rotation = r3.Vec{X: seconds * s.RotationX, Y: seconds * s.RotationY, Z: seconds * s.RotationZ}

	v.acc.Resize(width, height)
	render.Splat(v.acc, buf, camera.Projector(), render.PointPixels(buf.Size(), camera.Scale))

	for y := range height {
		for x := range width {
			intensity := v.acc.Intensity(x, y)
			if intensity == 0 {
				continue
			}
			c := v.acc.At(x, y)
			r, g, b := c.RGB255()
			style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
			v.screen.SetContent(x, y, glyph(intensity), nil, style)
		}
	}
}

func glyph(intensity float64) rune {
	i := min(int(intensity), len(glyphs)-1)
	return glyphs[i]
}

func (v *Viewer) drawPanel(s Settings, left int) {
	title := tcell.StyleDefault.Bold(true)
	v.drawText(left+1, 0, "galaxy", title)
	for i, line := range v.panel.Lines(&s) {
		v.drawText(left+1, i+2, line, tcell.StyleDefault)
	}
	_, height := v.screen.Size()
	v.drawText(left+1, height-3, "arrows edit, r reseed, q quit", tcell.StyleDefault.Foreground(tcell.ColorGray))
}

func (v *Viewer) drawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// Close stops pending edits and releases the current cloud.
func (v *Viewer) Close() error {
	v.debouncer.Stop()
	return v.controller.Close()
}
