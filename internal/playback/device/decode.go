package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/flac"

	"github.com/lexiplay/soundtrack/internal/errors"
)

// Container formats understood by Decode.
const (
	FormatWAV  = "wav"
	FormatFLAC = "flac"
)

const wavReadFrames = 4096

// ErrUnknownFormat is returned when neither the data nor the hint identify a supported container.
var ErrUnknownFormat = errors.NewStd("unsupported audio format")

// Sniff identifies the container from magic bytes, then from the extension of hint.
func Sniff(data []byte, hint string) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return FormatFLAC
	}

	if i := strings.IndexAny(hint, "?#"); i >= 0 {
		hint = hint[:i]
	}
	switch strings.ToLower(path.Ext(hint)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".flac":
		return FormatFLAC
	}
	return ""
}

// Decode converts a WAV or FLAC file held in data to 16-bit PCM.
// hint is the source locator, used when the magic bytes are inconclusive.
func Decode(data []byte, hint string) (*PCM, error) {
	var (
		pcm *PCM
		err error
	)
	format := Sniff(data, hint)
	switch format {
	case FormatWAV:
		pcm, err = decodeWAV(data)
	case FormatFLAC:
		pcm, err = decodeFLAC(data)
	default:
		err = ErrUnknownFormat
	}
	if err == nil && pcm.Frames() == 0 {
		err = errors.NewStd("track contains no audio frames")
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("decode %s: %w", format, err)).
			Component(componentName).
			Category(errors.CategoryFileParsing).
			Context("format", format).
			Context("size", len(data)).
			SourceContext(hint).
			Build()
	}
	return pcm, nil
}

func decodeWAV(data []byte) (*PCM, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, errors.NewStd("invalid WAV file")
	}

	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	shift, err := shiftTo16(bitDepth)
	if err != nil {
		return nil, err
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, wavReadFrames*channels),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}

	pcm := &PCM{SampleRate: int(decoder.SampleRate), Channels: channels}
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			if bitDepth == 8 {
				// 8-bit WAV is unsigned
				s -= 128
			}
			pcm.Samples = append(pcm.Samples, scaleTo16(s, shift))
		}
	}
	return pcm, nil
}

func decodeFLAC(data []byte) (*PCM, error) {
	decoder, err := flac.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bitDepth := decoder.BitsPerSample
	channels := decoder.NChannels
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	shift, err := shiftTo16(bitDepth)
	if err != nil {
		return nil, err
	}
	width := bitDepth / 8

	pcm := &PCM{SampleRate: decoder.SampleRate, Channels: channels}
	if decoder.TotalSamples > 0 {
		pcm.Samples = make([]int16, 0, int(decoder.TotalSamples)*channels)
	}

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := 0; i+width <= len(frame); i += width {
			var s int
			switch bitDepth {
			case 8:
				s = int(int8(frame[i]))
			case 16:
				s = int(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				s = int(int32(uint32(frame[i])|uint32(frame[i+1])<<8|uint32(frame[i+2])<<16) << 8 >> 8)
			case 32:
				s = int(int32(binary.LittleEndian.Uint32(frame[i:])))
			}
			pcm.Samples = append(pcm.Samples, scaleTo16(s, shift))
		}
	}
	return pcm, nil
}

// shiftTo16 returns the left shift (negative for right) that maps bitDepth samples to 16 bits.
func shiftTo16(bitDepth int) (int, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
		return 16 - bitDepth, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
}

func scaleTo16(s, shift int) int16 {
	if shift >= 0 {
		return int16(s << shift)
	}
	return int16(s >> -shift)
}
