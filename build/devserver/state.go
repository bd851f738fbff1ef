package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"moria.us/chartline/build/chart"
	"moria.us/chartline/build/watcher"
)

// chartState holds the latest compile result and passes each new one to
// listeners.
type chartState struct {
	lock      sync.RWMutex
	data      *watcher.State
	listeners []chan<- *watcher.State
}

func logState(s *watcher.State) {
	if s.Err != nil {
		logrus.Errorln("Compile:", s.Err)
		var e *chart.DurationError
		if errors.As(s.Err, &e) {
			for _, line := range strings.Split(strings.TrimSuffix(e.Dump(), "\n"), "\n") {
				logrus.Errorln("  ", line)
			}
		}
		return
	}
	tl := s.Timeline
	logrus.Infof("Compiled %q: %d grid lines, %d notes, %.1fs",
		s.Project.Config.Title, len(tl.Grid), len(tl.Notes), tl.Duration())
}

func (c *chartState) watch(ch <-chan watcher.State) {
	for {
		s, ok := <-ch
		if !ok {
			logrus.Fatalln("watch channel closed")
		}
		logState(&s)
		c.update(&s)
	}
}

func (c *chartState) update(s *watcher.State) {
	c.lock.Lock()
	c.data = s
	ls := c.listeners
	var pos int
	for _, l := range ls {
		select {
		case l <- s:
			ls[pos] = l
			pos++
		default:
			close(l)
		}
	}
	c.listeners = ls[:pos]
	for ; pos < len(ls); pos++ {
		ls[pos] = nil
	}
	c.lock.Unlock()
}

func (c *chartState) listenerCount() int {
	c.lock.RLock()
	n := len(c.listeners)
	c.lock.RUnlock()
	return n
}

func (c *chartState) addListener(ch chan<- *watcher.State) *watcher.State {
	if ch == nil {
		panic("nil channel")
	}

	c.lock.Lock()
	d := c.data
	c.listeners = append(c.listeners, ch)
	c.lock.Unlock()

	return d
}

func (c *chartState) removeListener(ch chan<- *watcher.State) {
	c.lock.Lock()
	for i, l := range c.listeners {
		if l == ch {
			c.listeners[i] = c.listeners[len(c.listeners)-1]
			c.listeners[len(c.listeners)-1] = nil
			c.listeners = c.listeners[:len(c.listeners)-1]
			close(ch)
			break
		}
	}
	c.lock.Unlock()
}

func (c *chartState) getStateImpl(ctx context.Context) *watcher.State {
	c.lock.RLock()
	d := c.data
	c.lock.RUnlock()

	if d != nil {
		return d
	}
	ch := make(chan *watcher.State, 1)

	c.lock.Lock()
	if d = c.data; d != nil {
		c.lock.Unlock()
		return d
	}
	c.listeners = append(c.listeners, ch)
	c.lock.Unlock()
	defer c.removeListener(ch)

	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return nil
			}
			if d != nil {
				return d
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// getState waits for the first compile to finish and returns the latest
// result. The error is only set if the context is done first.
func (c *chartState) getState(ctx context.Context) (*watcher.State, error) {
	d := c.getStateImpl(ctx)
	if d == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("listener dropped")
	}
	return d, nil
}
