// Package render draws chip8 framebuffer snapshots to a window, using
// faiface/pixel exactly as the teacher's internal/pixel package did.
// Generalized from a hardcoded 64x32 framebuffer to any width/height so it
// isn't wedded to one display size.
package render

import (
	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
)

const (
	defaultScreenWidth  = 1024
	defaultScreenHeight = 768
)

// Window is a pixelgl window that renders a monochrome framebuffer snapshot
// scaled up to fill the screen.
type Window struct {
	*pixelgl.Window
	gridW, gridH int
}

// Option configures a Window at construction.
type Option func(*windowConfig)

type windowConfig struct {
	title            string
	screenW, screenH float64
}

// WithTitle overrides the window title.
func WithTitle(title string) Option {
	return func(c *windowConfig) { c.title = title }
}

// WithScreenSize overrides the window's pixel dimensions.
func WithScreenSize(w, h float64) Option {
	return func(c *windowConfig) { c.screenW, c.screenH = w, h }
}

// NewWindow opens a pixelgl window sized for a gridW x gridH monochrome
// framebuffer. Must be called on the main thread, via pixelgl.Run, exactly
// as the teacher's main.go does.
func NewWindow(gridW, gridH int, opts ...Option) (*Window, error) {
	cfg := windowConfig{
		title:   "chip8vm",
		screenW: defaultScreenWidth,
		screenH: defaultScreenHeight,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	pw, err := pixelgl.NewWindow(pixelgl.WindowConfig{
		Title:  cfg.title,
		Bounds: pixel.R(0, 0, cfg.screenW, cfg.screenH),
		VSync:  true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating pixelgl window")
	}

	return &Window{
		Window: pw,
		gridW:  gridW,
		gridH:  gridH,
	}, nil
}

// DrawGraphics renders a row-major gridW*gridH monochrome buffer. pixel's
// origin is bottom-left, so rows are flipped vertically: CHIP-8 row 0 is
// drawn at the top of the window.
func (w *Window) DrawGraphics(gfx []byte) {
	w.Clear(colornames.Black)
	draw := imdraw.New(nil)
	draw.Color = pixel.RGB(1, 1, 1)

	cellW := w.Bounds().W() / float64(w.gridW)
	cellH := w.Bounds().H() / float64(w.gridH)

	for row := 0; row < w.gridH; row++ {
		for col := 0; col < w.gridW; col++ {
			if gfx[row*w.gridW+col] == 0 {
				continue
			}
			screenRow := w.gridH - 1 - row
			x := float64(col) * cellW
			y := float64(screenRow) * cellH
			draw.Push(pixel.V(x, y))
			draw.Push(pixel.V(x+cellW, y+cellH))
			draw.Rectangle(0)
		}
	}

	draw.Draw(w)
	w.Update()
}

// Closed reports whether the user has asked to close the window, so the
// caller's run loop (cmd/run.go) can stop cleanly.
func (w *Window) Closed() bool {
	return w.Window.Closed()
}
