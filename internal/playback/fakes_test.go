package playback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
)

const waitTimeout = 2 * time.Second

// fakePlayer records calls and fails on demand.
type fakePlayer struct {
	name string

	mu       sync.Mutex
	plays    int
	pauses   int
	stops    int
	releases int

	playErr  error
	pauseErr error
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return p.playErr
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
	return p.pauseErr
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func (p *fakePlayer) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releases++
	if p.releases > 1 {
		return fmt.Errorf("%s released %d times", p.name, p.releases)
	}
	return nil
}

func (p *fakePlayer) Releases() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releases
}

func (p *fakePlayer) Plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

// loadCall is one Load invocation waiting for the test to resolve it.
type loadCall struct {
	req    LoadRequest
	ctx    context.Context
	result chan loadResult
}

type loadResult struct {
	player Player
	err    error
}

func (lc *loadCall) succeed(p Player) { lc.result <- loadResult{player: p} }

func (lc *loadCall) fail(err error, partial Player) { lc.result <- loadResult{player: partial, err: err} }

// fakeLoader hands each Load call to the test through calls. When
// honorCancel is set a cancelled load returns ctx.Err() without a player.
type fakeLoader struct {
	honorCancel bool
	calls       chan *loadCall
	issued      atomic.Int32
}

func newFakeLoader(honorCancel bool) *fakeLoader {
	return &fakeLoader{honorCancel: honorCancel, calls: make(chan *loadCall, 64)}
}

func (l *fakeLoader) Load(ctx context.Context, req LoadRequest) (Player, error) {
	l.issued.Add(1)
	call := &loadCall{req: req, ctx: ctx, result: make(chan loadResult, 1)}
	l.calls <- call

	if l.honorCancel {
		select {
		case r := <-call.result:
			return r.player, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r := <-call.result
	return r.player, r.err
}

// next returns the next issued load or fails the test.
func (l *fakeLoader) next(t *testing.T) *loadCall {
	t.Helper()
	select {
	case call := <-l.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("no load issued")
		return nil
	}
}

// eventRecorder keeps every event, safe for use as an Observer.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) kinds(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (r *eventRecorder) count(kind EventKind) int {
	return len(r.kinds(kind))
}

func testOptions(extra ...Option) []Option {
	return append([]Option{
		WithLogger(logger.Discard()),
		WithLoadTimeout(0),
	}, extra...)
}

func waitState(t *testing.T, c *Channel, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, waitTimeout, time.Millisecond,
		"channel %s never reached %s, last %s", c.Identity(), want, c.State())
}

func waitReleased(t *testing.T, p *fakePlayer) {
	t.Helper()
	require.Eventually(t, func() bool { return p.Releases() >= 1 }, waitTimeout, time.Millisecond,
		"player %s never released", p.name)
}

func waitEvents(t *testing.T, r *eventRecorder, kind EventKind, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.count(kind) >= n }, waitTimeout, time.Millisecond,
		"expected %d %s events", n, kind)
}

func drain(t *testing.T, c interface{ Wait(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

var errNetwork = errors.NewStd("connection reset")
