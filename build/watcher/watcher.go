// Package watcher recompiles a project's chart whenever the project file or
// the chart changes.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"moria.us/chartline/build/chart"
	"moria.us/chartline/build/project"
)

type bstate uint32

const (
	bstateNone bstate = iota
	bstateBuilding
	bstateCanceled
)

const rebuildDelay = 100 * time.Millisecond

// State is the result of loading a project and compiling its chart. If the
// project could not be loaded, Project is nil.
type State struct {
	Err      error
	Project  *project.Project
	Timeline *chart.Timeline
}

type watcher struct {
	config    string
	cfgpath   string
	cfgdir    string
	chartdir  string
	output    chan<- State
	fs        *fsnotify.Watcher
	delay     delay
	project   *project.Project
	bstate    bstate
	wantbuild bool
	log       *logrus.Entry

	cancelfunc context.CancelFunc
	result     chan State
}

// Watch loads the project and compiles it, and then does so again each time
// the project file or chart changes. The channel is closed when the context
// is canceled or watching fails, in which case the last state sent carries
// the error.
func Watch(ctx context.Context, baseDir, config string) (<-chan State, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cfgpath := filepath.Join(baseDir, config)
	cfgdir := filepath.Dir(cfgpath)
	if err := fw.Add(cfgdir); err != nil {
		fw.Close()
		return nil, err
	}
	ch := make(chan State, 1)
	w := watcher{
		config:  config,
		cfgpath: cfgpath,
		cfgdir:  cfgdir,
		output:  ch,
		fs:      fw,
		delay:   delay{dt: rebuildDelay},
		log:     logrus.StandardLogger().WithField("config", config),
		result:  make(chan State, 1),
	}
	go w.watch(ctx, baseDir)
	return ch, nil
}

func (w *watcher) watch(ctx context.Context, baseDir string) {
	defer close(w.output)
	defer w.fs.Close()
	defer w.delay.stop()
	if err := w.watchFunc(ctx, baseDir); err != nil && !errors.Is(err, context.Canceled) {
		w.send(ctx, State{Err: err})
	}
	w.cancelBuild()
}

func (w *watcher) send(ctx context.Context, s State) {
	select {
	case w.output <- s:
	case <-ctx.Done():
	}
}

func (w *watcher) watchFunc(ctx context.Context, baseDir string) error {
	if err := w.loadProject(ctx, baseDir); err != nil {
		return err
	}
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}
			if ev.Op&^fsnotify.Chmod == 0 {
				break
			}
			name := filepath.Clean(ev.Name)
			if name == w.cfgpath {
				// Project config changed.
				if err := w.loadProject(ctx, baseDir); err != nil {
					return err
				}
			} else if w.project != nil && name == w.project.ChartPath() {
				w.log.Debugln("chart changed:", ev)
				w.cancelBuild()
				w.triggerBuild()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher channel closed")
			}
			return err
		case <-w.delay.C:
			if w.delay.fired() && w.wantbuild && w.bstate == bstateNone {
				w.startBuild(ctx)
			}
		case s := <-w.result:
			if w.bstate == bstateBuilding {
				w.send(ctx, s)
			}
			if w.cancelfunc != nil {
				w.cancelfunc()
				w.cancelfunc = nil
			}
			w.bstate = bstateNone
			if w.wantbuild && w.delay.C == nil {
				w.startBuild(ctx)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *watcher) loadProject(ctx context.Context, baseDir string) error {
	w.cancelBuild()
	p, err := project.Load(baseDir, w.config)
	if err != nil {
		w.project = nil
		w.send(ctx, State{Err: err})
		return nil
	}
	if dir := filepath.Dir(p.ChartPath()); dir != w.chartdir {
		if w.chartdir != "" && w.chartdir != w.cfgdir {
			if err := w.fs.Remove(w.chartdir); err != nil {
				return err
			}
		}
		if dir != w.cfgdir {
			if err := w.fs.Add(dir); err != nil {
				return err
			}
		}
		w.chartdir = dir
	}
	w.project = p
	w.triggerBuild()
	return nil
}

func (w *watcher) cancelBuild() {
	switch w.bstate {
	case bstateNone, bstateCanceled:
	case bstateBuilding:
		w.cancelfunc()
		w.cancelfunc = nil
		w.bstate = bstateCanceled
	default:
		panic("unknown state")
	}
	w.wantbuild = false
}

func (w *watcher) triggerBuild() {
	if w.project == nil {
		panic("nil project")
	}
	w.delay.trigger()
	w.wantbuild = true
}

func (w *watcher) startBuild(ctx context.Context) {
	if w.bstate != bstateNone {
		panic("invalid state")
	}
	if w.project == nil {
		panic("nil project")
	}
	ctx, cancel := context.WithCancel(ctx)
	go w.build(ctx, w.project)
	w.cancelfunc = cancel
	w.bstate = bstateBuilding
	w.wantbuild = false
}

func (w *watcher) build(ctx context.Context, p *project.Project) {
	s := State{Project: p}
	s.Timeline, s.Err = p.Compile(ctx)
	if s.Err == nil {
		w.log.Debugf("compiled %d grid lines, %d notes", len(s.Timeline.Grid), len(s.Timeline.Notes))
	}
	w.result <- s
}
