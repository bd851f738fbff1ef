// Package playback schedules the audio transport against a wall clock without
// ever blocking the frame loop.
package playback

import (
	"fmt"
	"time"
)

// A Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// A Transport plays the song audio. Calls never block for the length of the
// song.
type Transport interface {
	Start() error
	Pause() error
	Resume() error
	Stop() error
}

type state uint32

const (
	stateIdle state = iota
	stateScheduled
	stateRunning
	statePaused
)

var stateNames = [...]string{"idle", "scheduled", "running", "paused"}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// A Scheduler starts the transport once a deadline passes and tracks how long
// playback has been paused. Update must be called every tick.
//
// A positive audio offset delays the audio relative to the chart clock; a
// negative one means the audio is already that far in when it starts.
type Scheduler struct {
	clock     Clock
	transport Transport
	offset    time.Duration

	state       state
	resumeState state
	played      time.Time
	deadline    time.Time
	started     time.Time
	pausedAt    time.Time

	// paused is the total time spent paused since Play, songPaused the part
	// of it after the transport started.
	paused     time.Duration
	songPaused time.Duration
}

// NewScheduler returns an idle scheduler.
func NewScheduler(c Clock, t Transport, audioOffset time.Duration) *Scheduler {
	if c == nil {
		c = SystemClock
	}
	return &Scheduler{clock: c, transport: t, offset: audioOffset}
}

func positive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// Play schedules the transport to start after the audio offset. Any previous
// schedule is discarded.
func (s *Scheduler) Play() {
	now := s.clock.Now()
	s.state = stateScheduled
	s.played = now
	s.deadline = now.Add(positive(s.offset))
	s.started = time.Time{}
	s.pausedAt = time.Time{}
	s.paused = 0
	s.songPaused = 0
}

// Update starts the transport if its deadline has passed.
func (s *Scheduler) Update() error {
	if s.state != stateScheduled {
		return nil
	}
	now := s.clock.Now()
	if now.Before(s.deadline) {
		return nil
	}
	if err := s.transport.Start(); err != nil {
		return err
	}
	s.started = now.Add(-positive(-s.offset))
	s.state = stateRunning
	return nil
}

// Pause pauses playback. It does nothing unless playback is scheduled or
// running.
func (s *Scheduler) Pause() error {
	switch s.state {
	case stateRunning:
		if err := s.transport.Pause(); err != nil {
			return err
		}
	case stateScheduled:
	default:
		return nil
	}
	s.pausedAt = s.clock.Now()
	s.resumeState = s.state
	s.state = statePaused
	return nil
}

// Resume continues after Pause, shifting any pending deadline by the time
// spent paused.
func (s *Scheduler) Resume() error {
	if s.state != statePaused {
		return nil
	}
	d := s.clock.Now().Sub(s.pausedAt)
	if s.resumeState == stateRunning {
		if err := s.transport.Resume(); err != nil {
			return err
		}
		s.songPaused += d
	} else {
		s.deadline = s.deadline.Add(d)
	}
	s.paused += d
	s.pausedAt = time.Time{}
	s.state = s.resumeState
	return nil
}

// Stop stops the transport and forgets the schedule.
func (s *Scheduler) Stop() error {
	started := !s.started.IsZero()
	*s = Scheduler{clock: s.clock, transport: s.transport, offset: s.offset}
	if started {
		return s.transport.Stop()
	}
	return nil
}

// Elapsed returns the chart clock: the time since Play, excluding time spent
// paused. It is zero when idle.
func (s *Scheduler) Elapsed() time.Duration {
	if s.state == stateIdle {
		return 0
	}
	now := s.clock.Now()
	if s.state == statePaused {
		now = s.pausedAt
	}
	return now.Sub(s.played) - s.paused
}

// SongTime returns the position in the audio, excluding time spent paused. It
// is zero until the transport starts.
func (s *Scheduler) SongTime() time.Duration {
	if s.started.IsZero() {
		return 0
	}
	now := s.clock.Now()
	if s.state == statePaused {
		now = s.pausedAt
	}
	return now.Sub(s.started) - s.songPaused
}

// Running reports whether the transport has been started and is not paused.
func (s *Scheduler) Running() bool {
	return s.state == stateRunning
}

// State returns the scheduler state, for logging.
func (s *Scheduler) State() string {
	return s.state.String()
}
