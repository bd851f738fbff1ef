package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeTransport struct {
	calls []string
}

func (t *fakeTransport) Start() error  { t.calls = append(t.calls, "start"); return nil }
func (t *fakeTransport) Pause() error  { t.calls = append(t.calls, "pause"); return nil }
func (t *fakeTransport) Resume() error { t.calls = append(t.calls, "resume"); return nil }
func (t *fakeTransport) Stop() error   { t.calls = append(t.calls, "stop"); return nil }

func newTest(offset time.Duration) (*Scheduler, *fakeClock, *fakeTransport) {
	c := &fakeClock{t: time.Unix(1000, 0)}
	tr := &fakeTransport{}
	return NewScheduler(c, tr, offset), c, tr
}

func TestSchedulerDeadline(t *testing.T) {
	s, c, tr := newTest(500 * time.Millisecond)
	require.NoError(t, s.Update())
	assert.Empty(t, tr.calls, "idle scheduler must not start")
	assert.Equal(t, time.Duration(0), s.Elapsed())

	s.Play()
	c.advance(499 * time.Millisecond)
	require.NoError(t, s.Update())
	assert.Empty(t, tr.calls)
	assert.Equal(t, "scheduled", s.State())
	assert.Equal(t, 499*time.Millisecond, s.Elapsed())
	assert.Equal(t, time.Duration(0), s.SongTime())

	c.advance(time.Millisecond)
	require.NoError(t, s.Update())
	assert.Equal(t, []string{"start"}, tr.calls)
	assert.True(t, s.Running())

	// Start is one-shot.
	c.advance(time.Second)
	require.NoError(t, s.Update())
	assert.Equal(t, []string{"start"}, tr.calls)
	assert.Equal(t, 1500*time.Millisecond, s.Elapsed())
	assert.Equal(t, time.Second, s.SongTime())
}

func TestSchedulerNegativeOffset(t *testing.T) {
	s, c, tr := newTest(-2 * time.Second)
	s.Play()
	require.NoError(t, s.Update())
	assert.Equal(t, []string{"start"}, tr.calls)
	c.advance(time.Second)
	assert.Equal(t, 3*time.Second, s.SongTime())
	assert.Equal(t, time.Second, s.Elapsed())
}

func TestSchedulerPause(t *testing.T) {
	s, c, tr := newTest(0)
	s.Play()
	require.NoError(t, s.Update())
	c.advance(2 * time.Second)

	require.NoError(t, s.Pause())
	c.advance(10 * time.Second)
	assert.Equal(t, 2*time.Second, s.Elapsed(), "clock stands still while paused")
	assert.Equal(t, 2*time.Second, s.SongTime())

	require.NoError(t, s.Resume())
	c.advance(time.Second)
	assert.Equal(t, 3*time.Second, s.Elapsed())
	assert.Equal(t, 3*time.Second, s.SongTime())
	assert.Equal(t, []string{"start", "pause", "resume"}, tr.calls)

	require.NoError(t, s.Stop())
	assert.Equal(t, []string{"start", "pause", "resume", "stop"}, tr.calls)
	assert.Equal(t, time.Duration(0), s.Elapsed())
	assert.Equal(t, "idle", s.State())
}

func TestSchedulerPauseBeforeStart(t *testing.T) {
	s, c, tr := newTest(time.Second)
	s.Play()
	c.advance(400 * time.Millisecond)
	require.NoError(t, s.Pause())
	c.advance(5 * time.Second)
	require.NoError(t, s.Update())
	assert.Empty(t, tr.calls, "paused scheduler must not start")

	require.NoError(t, s.Resume())
	c.advance(599 * time.Millisecond)
	require.NoError(t, s.Update())
	assert.Empty(t, tr.calls, "deadline moves by the paused time")
	c.advance(time.Millisecond)
	require.NoError(t, s.Update())
	assert.Equal(t, []string{"start"}, tr.calls)
	assert.Equal(t, time.Second, s.Elapsed())
	assert.Equal(t, time.Duration(0), s.SongTime())
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	s, _, tr := newTest(time.Second)
	s.Play()
	require.NoError(t, s.Stop())
	require.NoError(t, s.Update())
	assert.Empty(t, tr.calls)
}
