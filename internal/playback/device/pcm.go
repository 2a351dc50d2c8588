package device

import (
	"math"
	"time"
)

// PCM is decoded interleaved signed 16-bit audio.
type PCM struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Frames returns the number of sample frames.
func (p *PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the playback length.
func (p *PCM) Duration() time.Duration {
	if p.SampleRate == 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

// Convert returns p remixed to channels and resampled to rate with linear
// interpolation. Mono is duplicated to every output channel; multichannel
// input mixed down to mono is averaged. p is returned as-is when it already
// matches.
func (p *PCM) Convert(rate, channels int) *PCM {
	if rate <= 0 {
		rate = p.SampleRate
	}
	if channels <= 0 {
		channels = p.Channels
	}
	if rate == p.SampleRate && channels == p.Channels {
		return p
	}

	src := p.remix(channels)
	if rate == p.SampleRate {
		return &PCM{SampleRate: rate, Channels: channels, Samples: src}
	}

	inFrames := len(src) / channels
	if inFrames == 0 {
		return &PCM{SampleRate: rate, Channels: channels}
	}
	ratio := float64(rate) / float64(p.SampleRate)
	outFrames := int(float64(inFrames) * ratio)
	out := make([]int16, outFrames*channels)

	for i := range outFrames {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= inFrames-1 {
			idx = inFrames - 1
		}
		next := min(idx+1, inFrames-1)
		frac := pos - float64(idx)

		for ch := range channels {
			a := float64(src[idx*channels+ch])
			b := float64(src[next*channels+ch])
			out[i*channels+ch] = clamp16(a + (b-a)*frac)
		}
	}
	return &PCM{SampleRate: rate, Channels: channels, Samples: out}
}

func (p *PCM) remix(channels int) []int16 {
	if channels == p.Channels {
		return p.Samples
	}
	frames := p.Frames()
	out := make([]int16, frames*channels)
	for f := range frames {
		frame := p.Samples[f*p.Channels : (f+1)*p.Channels]
		if p.Channels == 1 {
			for ch := range channels {
				out[f*channels+ch] = frame[0]
			}
			continue
		}
		if channels == 1 {
			sum := 0
			for _, s := range frame {
				sum += int(s)
			}
			out[f] = int16(sum / len(frame))
			continue
		}
		for ch := range channels {
			out[f*channels+ch] = frame[min(ch, p.Channels-1)]
		}
	}
	return out
}

func clamp16(v float64) int16 {
	v = math.Round(v)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
