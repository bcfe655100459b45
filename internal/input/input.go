// Package input polls a pixelgl window's keyboard state and drives the
// core's latching Keypad, adapted from the teacher's handleKeyInput/KeyMap/
// KeysDown repeat-rate logic in internal/chip8/chip8.go.
package input

import (
	"time"

	"github.com/faiface/pixel/pixelgl"
)

const keyRepeatDur = time.Second / 5

// Keypad is the write side of chip8.LatchingKeypad that a poller drives.
// Defined locally so this package doesn't import internal/chip8 just to
// depend on two methods.
type Keypad interface {
	Press(key byte)
	Release(key byte)
}

// window is the subset of *pixelgl.Window a Poller needs, so tests can fake
// it without opening a real window.
type window interface {
	JustPressed(pixelgl.Button) bool
	JustReleased(pixelgl.Button) bool
}

// DefaultKeyMap is the teacher's 4x4 QWERTY block (1234/qwer/asdf/zxcv)
// mapped onto CHIP-8's hex keypad layout.
var DefaultKeyMap = map[byte]pixelgl.Button{
	0x1: pixelgl.Key1, 0x2: pixelgl.Key2,
	0x3: pixelgl.Key3, 0xC: pixelgl.Key4,
	0x4: pixelgl.KeyQ, 0x5: pixelgl.KeyW,
	0x6: pixelgl.KeyE, 0xD: pixelgl.KeyR,
	0x7: pixelgl.KeyA, 0x8: pixelgl.KeyS,
	0x9: pixelgl.KeyD, 0xE: pixelgl.KeyF,
	0xA: pixelgl.KeyZ, 0x0: pixelgl.KeyX,
	0xB: pixelgl.KeyC, 0xF: pixelgl.KeyV,
}

// Poller polls a window's keyboard state once per Run frame and reflects
// transitions into a Keypad, re-asserting held keys at keyRepeatDur so a
// polling-based Keypad still sees a key as down between pixelgl polls (the
// teacher's window only reports one-shot JustPressed/JustReleased events).
type Poller struct {
	win      window
	keyMap   map[byte]pixelgl.Button
	keysDown map[byte]*time.Ticker
}

// NewPoller builds a Poller over win using keyMap, or DefaultKeyMap when nil.
func NewPoller(win interface {
	JustPressed(pixelgl.Button) bool
	JustReleased(pixelgl.Button) bool
}, keyMap map[byte]pixelgl.Button) *Poller {
	if keyMap == nil {
		keyMap = DefaultKeyMap
	}
	return &Poller{
		win:      win,
		keyMap:   keyMap,
		keysDown: make(map[byte]*time.Ticker),
	}
}

// Poll checks every mapped key for a press/release transition and forwards
// it to keypad. Call once per render frame.
func (p *Poller) Poll(keypad Keypad) {
	for code, btn := range p.keyMap {
		switch {
		case p.win.JustReleased(btn):
			if t, ok := p.keysDown[code]; ok {
				t.Stop()
				delete(p.keysDown, code)
			}
			keypad.Release(code)
		case p.win.JustPressed(btn):
			if _, ok := p.keysDown[code]; !ok {
				p.keysDown[code] = time.NewTicker(keyRepeatDur)
			}
			keypad.Press(code)
		}

		t, ok := p.keysDown[code]
		if !ok {
			continue
		}
		select {
		case <-t.C:
			keypad.Press(code)
		default:
		}
	}
}

// Close stops all outstanding repeat tickers.
func (p *Poller) Close() {
	for _, t := range p.keysDown {
		t.Stop()
	}
	p.keysDown = make(map[byte]*time.Ticker)
}
