package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"moria.us/chartline/build/chart"
	"moria.us/chartline/build/playback"
	"moria.us/chartline/build/session"
)

// logRenderer logs events as they are released.
type logRenderer struct {
	log *logrus.Entry
}

func (r logRenderer) AddLine(e chart.GridEvent) {
	if e.Kind == chart.Subdivision {
		r.log.Debugf("%8.3f %s", e.Time, e.Kind)
	} else {
		r.log.Infof("%8.3f %s", e.Time, e.Kind)
	}
}

func (r logRenderer) AddNote(e chart.NoteEvent) {
	r.log.Infof("%8.3f note %s (measure %d)", e.Time, e.Duration, e.Measure)
}

// logTransport stands in for audio output.
type logTransport struct {
	log   *logrus.Entry
	audio string
}

func (t logTransport) Start() error {
	t.log.Infoln("Audio start:", t.audio)
	return nil
}

func (t logTransport) Pause() error {
	t.log.Infoln("Audio pause")
	return nil
}

func (t logTransport) Resume() error {
	t.log.Infoln("Audio resume")
	return nil
}

func (t logTransport) Stop() error {
	t.log.Infoln("Audio stop")
	return nil
}

func newPlayCmd(opts *options) *cobra.Command {
	var fps int
	var verbose bool
	cmd := &cobra.Command{
		Use:   "play [chart.tja]",
		Short: "Play the chart in real time, logging events as they are reached",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.StandardLogger()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			ctx := cmd.Context()
			p, err := loadProject(opts, args)
			if err != nil {
				return err
			}
			r := logRenderer{log: log.WithField("src", "render")}
			t := &logTransport{log: log.WithField("src", "audio")}
			s, err := session.Load(ctx, p, playback.SystemClock, t, r)
			if err != nil {
				return err
			}
			t.audio = p.AudioPath(s.Timeline.Header)
			if fps <= 0 {
				fps = 60
			}
			return s.Run(ctx, time.Second/time.Duration(fps))
		},
	}
	f := cmd.Flags()
	f.IntVar(&fps, "fps", 60, "tick rate")
	f.BoolVarP(&verbose, "verbose", "v", false, "also log subdivisions")
	return cmd
}
