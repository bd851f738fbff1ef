// Package session plays a compiled chart: it releases grid lines and notes to
// a renderer as the playback clock reaches them.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"moria.us/chartline/build/chart"
	"moria.us/chartline/build/playback"
	"moria.us/chartline/build/project"
	"moria.us/chartline/build/timeline"
)

// A Renderer receives events when they become live. It is called from the
// tick loop and must not block.
type Renderer interface {
	AddLine(e chart.GridEvent)
	AddNote(e chart.NoteEvent)
}

// A Session owns the event queues and the playback scheduler for one play of
// a chart. It is not safe for concurrent use: every method is meant to be
// called from the one loop that drives it.
type Session struct {
	ID       uuid.UUID
	Timeline *chart.Timeline

	grid   *timeline.Queue[chart.GridEvent]
	notes  *timeline.Queue[chart.NoteEvent]
	sched  *playback.Scheduler
	render Renderer
	log    *logrus.Entry
}

// New creates a session for a compiled timeline. The queues take copies of
// the timeline's events.
func New(tl *chart.Timeline, sched *playback.Scheduler, r Renderer) (*Session, error) {
	grid, err := timeline.New(append([]chart.GridEvent(nil), tl.Grid...))
	if err != nil {
		return nil, errors.Wrap(err, "grid")
	}
	notes, err := timeline.New(append([]chart.NoteEvent(nil), tl.Notes...))
	if err != nil {
		return nil, errors.Wrap(err, "notes")
	}
	id := uuid.New()
	return &Session{
		ID:       id,
		Timeline: tl,
		grid:     grid,
		notes:    notes,
		sched:    sched,
		render:   r,
		log:      logrus.StandardLogger().WithField("session", id.String()),
	}, nil
}

// Load compiles a project chart and creates a session for it.
func Load(ctx context.Context, p *project.Project, c playback.Clock, t playback.Transport, r Renderer) (*Session, error) {
	tl, err := p.Compile(ctx)
	if err != nil {
		return nil, err
	}
	s, err := New(tl, playback.NewScheduler(c, t, p.AudioOffset()), r)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Loaded %q: %d grid lines, %d notes, %.1fs",
		p.Config.Title, len(tl.Grid), len(tl.Notes), tl.Duration())
	return s, nil
}

// Start schedules playback. Events are released relative to this moment.
func (s *Session) Start() {
	s.log.Infoln("Start")
	s.sched.Play()
}

// Tick advances the session to the current clock. It starts the transport
// when due and hands every due event to the renderer.
func (s *Session) Tick() error {
	if err := s.sched.Update(); err != nil {
		return errors.Wrap(err, "start transport")
	}
	now := s.Clock()
	s.grid.Drain(now, s.render.AddLine)
	s.notes.Drain(now, s.render.AddNote)
	return nil
}

// Clock returns the chart clock, in seconds.
func (s *Session) Clock() float64 {
	return s.sched.Elapsed().Seconds()
}

// Pause pauses playback and the chart clock.
func (s *Session) Pause() error {
	s.log.Infoln("Pause at", s.Clock())
	return s.sched.Pause()
}

// Resume continues after Pause.
func (s *Session) Resume() error {
	s.log.Infoln("Resume")
	return s.sched.Resume()
}

// Stop stops playback. The session cannot be restarted afterwards since its
// released events are gone.
func (s *Session) Stop() error {
	s.log.Infoln("Stop")
	return s.sched.Stop()
}

// Done reports whether every event has been released.
func (s *Session) Done() bool {
	return s.grid.Done() && s.notes.Done()
}

// Remaining returns the number of grid lines and notes not yet released.
func (s *Session) Remaining() (grid, notes int) {
	return s.grid.Len(), s.notes.Len()
}

// Run starts the session and ticks it at the given rate until every event
// has been released or the context is canceled.
func (s *Session) Run(ctx context.Context, rate time.Duration) error {
	s.Start()
	defer s.Stop()
	t := time.NewTicker(rate)
	defer t.Stop()
	for {
		if err := s.Tick(); err != nil {
			return err
		}
		if s.Done() {
			s.log.Infoln("Done")
			return nil
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
