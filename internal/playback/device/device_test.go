package device

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/playback"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// encodeWAV writes samples to a temporary WAV file and returns its bytes.
func encodeWAV(t *testing.T, rate, depth, channels int, samples []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "track.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, depth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: depth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestSniff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		hint string
		want string
	}{
		{"riff magic", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), "", FormatWAV},
		{"flac magic", []byte("fLaC\x00\x00"), "", FormatFLAC},
		{"magic beats extension", []byte("fLaC\x00\x00"), "song.wav", FormatFLAC},
		{"extension", nil, "/tracks/theme.FLAC", FormatFLAC},
		{"extension with query", nil, "https://cdn.example.com/a.wav?sig=abc", FormatWAV},
		{"unknown", []byte("ID3"), "song.mp3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Sniff(tt.data, tt.hint))
		})
	}
}

func TestDecodeWAV16Stereo(t *testing.T) {
	t.Parallel()

	data := encodeWAV(t, 22050, 16, 2, []int{100, -100, 2000, -2000, 32767, -32768})
	pcm, err := Decode(data, "track.wav")
	require.NoError(t, err)

	assert.Equal(t, 22050, pcm.SampleRate)
	assert.Equal(t, 2, pcm.Channels)
	assert.Equal(t, 3, pcm.Frames())
	assert.Equal(t, []int16{100, -100, 2000, -2000, 32767, -32768}, pcm.Samples)
}

func TestDecodeWAV24Mono(t *testing.T) {
	t.Parallel()

	data := encodeWAV(t, 48000, 24, 1, []int{256, -256, 8388607})
	pcm, err := Decode(data, "")
	require.NoError(t, err)

	assert.Equal(t, 1, pcm.Channels)
	assert.Equal(t, []int16{1, -1, 32767}, pcm.Samples)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("not audio at all"), "clip.ogg")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Decode([]byte("RIFF\x00\x00\x00\x00WAVE"), "clip.wav")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestConvert(t *testing.T) {
	t.Parallel()

	t.Run("identity", func(t *testing.T) {
		t.Parallel()
		pcm := &PCM{SampleRate: 48000, Channels: 2, Samples: []int16{1, 2}}
		assert.Same(t, pcm, pcm.Convert(48000, 2))
		assert.Same(t, pcm, pcm.Convert(0, 0))
	})

	t.Run("mono to stereo", func(t *testing.T) {
		t.Parallel()
		pcm := &PCM{SampleRate: 8000, Channels: 1, Samples: []int16{5, -7}}
		out := pcm.Convert(8000, 2)
		assert.Equal(t, []int16{5, 5, -7, -7}, out.Samples)
	})

	t.Run("stereo to mono averages", func(t *testing.T) {
		t.Parallel()
		pcm := &PCM{SampleRate: 8000, Channels: 2, Samples: []int16{10, 20, -10, -30}}
		out := pcm.Convert(8000, 1)
		assert.Equal(t, []int16{15, -20}, out.Samples)
	})

	t.Run("upsample doubles frames", func(t *testing.T) {
		t.Parallel()
		pcm := &PCM{SampleRate: 8000, Channels: 1, Samples: []int16{0, 100, 200, 300}}
		out := pcm.Convert(16000, 1)
		assert.Equal(t, 16000, out.SampleRate)
		assert.Equal(t, 8, out.Frames())
		assert.Equal(t, []int16{0, 50, 100, 150, 200, 250, 300, 300}, out.Samples)
		assert.Equal(t, pcm.Duration(), out.Duration())
	})
}

func TestCursorFill(t *testing.T) {
	t.Parallel()

	read := func(out []byte) []int16 {
		s := make([]int16, len(out)/2)
		for i := range s {
			s[i] = int16(binary.LittleEndian.Uint16(out[i*2:]))
		}
		return s
	}

	t.Run("loops", func(t *testing.T) {
		t.Parallel()
		c := newCursor(&PCM{SampleRate: 8000, Channels: 1, Samples: []int16{1, 2, 3}}, true)
		out := make([]byte, 10)
		c.fill(out, 5)
		assert.Equal(t, []int16{1, 2, 3, 1, 2}, read(out))
		assert.False(t, c.done())
	})

	t.Run("pads with silence", func(t *testing.T) {
		t.Parallel()
		c := newCursor(&PCM{SampleRate: 8000, Channels: 1, Samples: []int16{1, 2}}, false)
		out := []byte{9, 9, 9, 9, 9, 9, 9, 9}
		c.fill(out, 4)
		assert.Equal(t, []int16{1, 2, 0, 0}, read(out))
		assert.True(t, c.done())

		c.rewind()
		assert.False(t, c.done())
		c.fill(out, 1)
		assert.Equal(t, int16(1), read(out)[0])
	})
}

type fakeDevice struct {
	mu      sync.Mutex
	starts  int
	stops   int
	uninits int
	err     error
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	return d.err
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

func (d *fakeDevice) Uninit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uninits++
}

func TestPlayerLifecycle(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{}
	cur := newCursor(&PCM{SampleRate: 8000, Channels: 1, Samples: []int16{1, 2, 3}}, true)
	p := newPlayer(dev, cur)

	require.NoError(t, p.Play())
	require.NoError(t, p.Play())
	assert.Equal(t, 1, dev.starts, "second Play must not restart the device")

	require.NoError(t, p.Pause())
	require.NoError(t, p.Pause())
	assert.Equal(t, 1, dev.stops)

	require.NoError(t, p.Play())
	cur.fill(make([]byte, 4), 2)
	require.NoError(t, p.Stop())
	assert.Equal(t, 2, dev.stops)
	assert.Equal(t, 0, cur.pos, "Stop rewinds")

	require.NoError(t, p.Release())
	require.NoError(t, p.Release())
	assert.Equal(t, 1, dev.uninits)

	require.Error(t, p.Play())
	require.NoError(t, p.Stop())
}

func TestPlayerStartError(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{err: errors.NewStd("device busy")}
	p := newPlayer(dev, newCursor(&PCM{SampleRate: 8000, Channels: 1, Samples: []int16{1}}, false))

	require.Error(t, p.Play())
	require.NoError(t, p.Pause(), "a failed start leaves the player paused")
	require.NoError(t, p.Release())
}

type stubFetcher struct {
	data []byte
	err  error
	hook func()
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	if f.hook != nil {
		f.hook()
	}
	return f.data, f.err
}

type stubPlayer struct{}

func (stubPlayer) Play() error    { return nil }
func (stubPlayer) Pause() error   { return nil }
func (stubPlayer) Stop() error    { return nil }
func (stubPlayer) Release() error { return nil }

type stubFactory struct {
	got  *PCM
	loop bool
	err  error
}

func (f *stubFactory) NewPlayer(pcm *PCM, loop bool) (playback.Player, error) {
	f.got, f.loop = pcm, loop
	if f.err != nil {
		return nil, f.err
	}
	return stubPlayer{}, nil
}

func loadRequest(source string) playback.LoadRequest {
	return playback.LoadRequest{
		Channel:    playback.Ambient,
		Source:     source,
		Loop:       true,
		Generation: 1,
		LoadID:     "test",
	}
}

func TestLoader(t *testing.T) {
	t.Parallel()

	wavData := encodeWAV(t, 8000, 16, 1, []int{1, 2, 3, 4})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		factory := &stubFactory{}
		l := NewLoader(&stubFetcher{data: wavData}, factory, logger.Discard())

		p, err := l.Load(t.Context(), loadRequest("file:///tracks/a.wav"))
		require.NoError(t, err)
		assert.NotNil(t, p)
		require.NotNil(t, factory.got)
		assert.Equal(t, 4, factory.got.Frames())
		assert.True(t, factory.loop)
	})

	t.Run("fetch error passes through", func(t *testing.T) {
		t.Parallel()
		fetchErr := errors.NewStd("offline")
		factory := &stubFactory{}
		l := NewLoader(&stubFetcher{err: fetchErr}, factory, logger.Discard())

		_, err := l.Load(t.Context(), loadRequest("https://example.com/a.wav"))
		require.ErrorIs(t, err, fetchErr)
		assert.Nil(t, factory.got)
	})

	t.Run("cancelled after fetch never opens a device", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		factory := &stubFactory{}
		l := NewLoader(&stubFetcher{data: wavData, hook: cancel}, factory, logger.Discard())

		_, err := l.Load(ctx, loadRequest("a.wav"))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, factory.got)
	})

	t.Run("decode error", func(t *testing.T) {
		t.Parallel()
		factory := &stubFactory{}
		l := NewLoader(&stubFetcher{data: []byte("junk")}, factory, logger.Discard())

		_, err := l.Load(t.Context(), loadRequest("a.mp3"))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
		assert.Nil(t, factory.got)
	})
}

func TestParseBackend(t *testing.T) {
	t.Parallel()

	b, err := ParseBackend("auto")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = ParseBackend("NULL")
	require.NoError(t, err)
	assert.Len(t, b, 1)

	_, err = ParseBackend("oss")
	require.Error(t, err)
}

func TestEngineNullBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping native audio test in short mode")
	}

	engine, err := NewEngine(EngineConfig{Backend: "null", SampleRate: 8000, Channels: 1}, logger.Discard())
	if err != nil {
		t.Skipf("null backend unavailable: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	p, err := engine.NewPlayer(&PCM{SampleRate: 8000, Channels: 1, Samples: make([]int16, 800)}, true)
	require.NoError(t, err)
	require.NoError(t, p.Play())
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Pause())
	require.NoError(t, p.Release())

	require.NoError(t, engine.Close())
	_, err = engine.NewPlayer(&PCM{SampleRate: 8000, Channels: 1, Samples: []int16{1}}, false)
	require.Error(t, err)
}
