package device

import (
	"encoding/binary"
	"sync"
)

// cursor walks a PCM buffer for the device data callback.
type cursor struct {
	mu       sync.Mutex
	samples  []int16
	channels int
	pos      int
	loop     bool
	finished bool
}

func newCursor(pcm *PCM, loop bool) *cursor {
	return &cursor{samples: pcm.Samples, channels: pcm.Channels, loop: loop}
}

// fill writes frames little-endian S16 frames to out. Past the end it wraps
// when looping and writes silence otherwise.
func (c *cursor) fill(out []byte, frames int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	want := min(frames*c.channels, len(out)/2)
	for i := range want {
		if c.pos >= len(c.samples) {
			if c.loop && len(c.samples) > 0 {
				c.pos = 0
			} else {
				c.finished = true
				clear(out[i*2 : want*2])
				return
			}
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(c.samples[c.pos]))
		c.pos++
	}
}

func (c *cursor) rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = 0
	c.finished = false
}

func (c *cursor) done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}
