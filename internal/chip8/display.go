package chip8

const (
	// DisplayWidth is the framebuffer width in pixels.
	DisplayWidth = 64
	// DisplayHeight is the framebuffer height in pixels.
	DisplayHeight = 32
	// DisplaySize is the total pixel count, row-major.
	DisplaySize = DisplayWidth * DisplayHeight
)

// display is the 64x32 monochrome framebuffer and the XOR sprite blitter.
// Each cell holds 0 or 1; row-major, top row first.
type display struct {
	gfx [DisplaySize]byte
}

func (d *display) clear() {
	d.gfx = [DisplaySize]byte{}
}

// snapshot returns a copy of the framebuffer for an external renderer.
func (d *display) snapshot() [DisplaySize]byte {
	return d.gfx
}

// draw XOR-blits an n-row, 8-column sprite read from mem[addr:addr+n] at
// (vx, vy). The starting coordinate wraps modulo the display dimensions;
// per-pixel coordinates beyond the edge are clipped, not wrapped. Returns
// whether any set pixel was cleared (collision), per the VF rule in 4.3.
func (d *display) draw(mem []byte, addr int, vx, vy byte, n byte) (collision bool, outOfRange bool, oorIndex int) {
	startX := int(vx) % DisplayWidth
	startY := int(vy) % DisplayHeight

	for row := 0; row < int(n); row++ {
		memIdx := addr + row
		if memIdx < 0 || memIdx >= len(mem) {
			return collision, true, memIdx
		}
		spriteByte := mem[memIdx]

		y := startY + row
		if y >= DisplayHeight {
			break
		}

		for col := 0; col < 8; col++ {
			x := startX + col
			if x >= DisplayWidth {
				break
			}

			bit := (spriteByte >> (7 - col)) & 1
			if bit == 0 {
				continue
			}

			idx := y*DisplayWidth + x
			if d.gfx[idx] == 1 {
				collision = true
			}
			d.gfx[idx] ^= 1
		}
	}

	return collision, false, 0
}
