package project

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"moria.us/chartline/build/chart"
)

// DefaultConfig is the name of the project file looked for in the base
// directory.
const DefaultConfig = "chartline.json"

// A Config contains the project configuration.
type Config struct {
	Title string `json:"title"`
	Chart string `json:"chart"`
	Audio string `json:"audio"`

	// ChartOffset is added to every compiled event, in seconds.
	ChartOffset float64 `json:"chartOffset"`

	// AudioOffset delays the start of the audio, in seconds. A negative value
	// starts the audio that far in.
	AudioOffset float64 `json:"audioOffset"`
}

// A Project is a chart together with the audio it is played against.
type Project struct {
	BaseDir string
	Config  Config
}

// Load loads a project with the given base directory and configuration
// file.
func Load(base, config string) (*Project, error) {
	p := Project{
		BaseDir: filepath.Clean(base),
	}
	data, err := ioutil.ReadFile(filepath.Join(base, config))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	c := &p.Config
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("invalid config %q: %v", config, err)
	}
	if c.Chart == "" {
		return nil, fmt.Errorf("invalid config %q: missing or empty 'chart'", config)
	}
	log := logrus.StandardLogger().WithField("config", config)
	if !IsChartName(filepath.Base(c.Chart)) {
		log.Warnf("chart does not have a .tja extension: %q", c.Chart)
	}
	if c.Title == "" {
		log.Warn("missing or empty 'title'")
	}
	if c.Audio == "" {
		log.Warn("missing or empty 'audio', using the chart's WAVE header")
	}
	return &p, nil
}

var chartName = regexp.MustCompile(`^[^/\\]+\.(?i:tja)$`)

// IsChartName returns true if the filename is the name of a chart file.
func IsChartName(name string) bool {
	return chartName.MatchString(name) && !strings.HasPrefix(name, ".")
}

// ChartPath returns the path to the chart file.
func (p *Project) ChartPath() string {
	return p.path(p.Config.Chart)
}

// AudioPath returns the path to the audio file, or "" if there is none. The
// project file takes precedence over the chart's WAVE header.
func (p *Project) AudioPath(h chart.Header) string {
	name := p.Config.Audio
	if name == "" {
		name = h.Wave
	}
	if name == "" {
		return ""
	}
	return p.path(name)
}

func (p *Project) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.BaseDir, name)
}

// AudioOffset returns the audio offset as a duration.
func (p *Project) AudioOffset() time.Duration {
	return time.Duration(p.Config.AudioOffset * float64(time.Second))
}

// Compile reads and compiles the project chart.
func (p *Project) Compile(ctx context.Context) (*chart.Timeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := p.ChartPath()
	data, err := ioutil.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read chart")
	}
	tl, err := chart.Compile(data, chart.Offset(p.Config.ChartOffset))
	if err != nil {
		return nil, errors.Wrapf(err, "chart %s", filepath.Base(name))
	}
	return tl, nil
}
