package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"moria.us/chartline/build/chart"
	"moria.us/chartline/build/export"
	"moria.us/chartline/build/project"
	"moria.us/chartline/build/watcher"
)

const (
	jsonType  = "application/json"
	protoType = "application/x-protobuf"
	midiType  = "audio/midi"
)

type contextKey struct{}

func (contextKey) String() string {
	return "devserver context key"
}

type handler struct {
	baseDir string
	chart   chartState
}

func newHandler(baseDir string) *handler {
	return &handler{baseDir: baseDir}
}

func getHandler(ctx context.Context) *handler {
	val := ctx.Value(contextKey{})
	if val == nil {
		panic("missing context key")
	}
	v, ok := val.(*handler)
	if !ok {
		panic("context key has wrong value")
	}
	return v
}

func (h *handler) watch(ctx context.Context, config string) {
	ch, err := watcher.Watch(ctx, h.baseDir, config)
	if err != nil {
		logrus.Fatalln("watcher.Watch:", err)
	}
	h.chart.watch(ch)
}

func logResponse(r *http.Request, status int, msg string) {
	if status >= 400 {
		if msg == "" {
			msg = http.StatusText(status)
		}
		logrus.Errorln(status, r.URL, msg)
	} else if msg == "" {
		logrus.Infoln(status, r.URL)
	} else {
		logrus.Infoln(status, r.URL, msg)
	}
}

func serveData(w http.ResponseWriter, r *http.Request, status int, ctype string, data []byte) {
	hdr := w.Header()
	hdr.Set("Content-Type", ctype)
	hdr.Set("Content-Length", strconv.Itoa(len(data)))
	hdr.Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	w.Write(data)
}

func serveJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logResponse(r, http.StatusInternalServerError, err.Error())
		serveData(w, r, http.StatusInternalServerError, jsonType, []byte(`{"status":500}`))
		return
	}
	serveData(w, r, status, jsonType, data)
}

type statusData struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Message    string `json:"message,omitempty"`

	// Durations lists the notes before an unclassifiable gap, one line per
	// measure.
	Durations string `json:"durations,omitempty"`
}

func serveStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	logResponse(r, status, msg)
	serveJSON(w, r, status, &statusData{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    msg,
	})
}

func serveCompileError(w http.ResponseWriter, r *http.Request, err error) {
	const status = http.StatusInternalServerError
	d := statusData{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    err.Error(),
	}
	var e *chart.DurationError
	if errors.As(err, &e) {
		d.Durations = e.Dump()
	}
	logResponse(r, status, "Compile failed")
	serveJSON(w, r, status, &d)
}

// getTimeline returns the latest compiled timeline. If there is none, it
// writes a response and returns nil.
func getTimeline(w http.ResponseWriter, r *http.Request) (*project.Project, *chart.Timeline) {
	ctx := r.Context()
	h := getHandler(ctx)
	s, err := h.chart.getState(ctx)
	if err != nil {
		// ctx canceled.
		return nil, nil
	}
	if s.Err != nil {
		serveCompileError(w, r, s.Err)
		return nil, nil
	}
	return s.Project, s.Timeline
}

type indexData struct {
	Title     string  `json:"title,omitempty"`
	State     string  `json:"state"`
	Error     string  `json:"error,omitempty"`
	GridLines int     `json:"gridLines"`
	Notes     int     `json:"notes"`
	Duration  float64 `json:"duration"`
	Clients   int     `json:"clients"`
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h := getHandler(ctx)
	s, err := h.chart.getState(ctx)
	if err != nil {
		return
	}
	d := indexData{
		State:   "ok",
		Clients: h.chart.listenerCount(),
	}
	if s.Project != nil {
		d.Title = s.Project.Config.Title
	}
	if s.Err != nil {
		d.State = "fail"
		d.Error = s.Err.Error()
	} else {
		d.GridLines = len(s.Timeline.Grid)
		d.Notes = len(s.Timeline.Notes)
		d.Duration = s.Timeline.Duration()
	}
	logResponse(r, http.StatusOK, "")
	serveJSON(w, r, http.StatusOK, &d)
}

func serveTimelineJSON(w http.ResponseWriter, r *http.Request) {
	_, tl := getTimeline(w, r)
	if tl == nil {
		return
	}
	logResponse(r, http.StatusOK, "")
	serveJSON(w, r, http.StatusOK, export.NewTimeline(tl))
}

func serveGrid(w http.ResponseWriter, r *http.Request) {
	_, tl := getTimeline(w, r)
	if tl == nil {
		return
	}
	logResponse(r, http.StatusOK, "")
	serveJSON(w, r, http.StatusOK, export.NewTimeline(tl).Grid)
}

func serveNotes(w http.ResponseWriter, r *http.Request) {
	_, tl := getTimeline(w, r)
	if tl == nil {
		return
	}
	logResponse(r, http.StatusOK, "")
	serveJSON(w, r, http.StatusOK, export.NewTimeline(tl).Notes)
}

func serveProto(w http.ResponseWriter, r *http.Request) {
	_, tl := getTimeline(w, r)
	if tl == nil {
		return
	}
	logResponse(r, http.StatusOK, "")
	serveData(w, r, http.StatusOK, protoType, export.MarshalProto(tl))
}

func serveMIDI(w http.ResponseWriter, r *http.Request) {
	_, tl := getTimeline(w, r)
	if tl == nil {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteMIDI(&buf, tl); err != nil {
		serveStatus(w, r, http.StatusInternalServerError, fmt.Sprintf("Could not write MIDI: %v", err))
		return
	}
	logResponse(r, http.StatusOK, "")
	serveData(w, r, http.StatusOK, midiType, buf.Bytes())
}

func serveAudio(w http.ResponseWriter, r *http.Request) {
	p, tl := getTimeline(w, r)
	if tl == nil {
		return
	}
	name := p.AudioPath(tl.Header)
	if name == "" {
		serveNotFound(w, r)
		return
	}
	fp, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			serveNotFound(w, r)
		} else {
			serveStatus(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}
	defer fp.Close()
	st, err := fp.Stat()
	if err != nil {
		serveStatus(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	logResponse(r, http.StatusOK, "")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, filepath.Base(name), st.ModTime(), fp)
}

func serveNotFound(w http.ResponseWriter, r *http.Request) {
	serveStatus(w, r, http.StatusNotFound, fmt.Sprintf("Page not found: %q", r.URL))
}

func newMux() http.Handler {
	mx := chi.NewMux()
	mx.Get("/", serveIndex)
	mx.Get("/timeline.json", serveTimelineJSON)
	mx.Get("/grid.json", serveGrid)
	mx.Get("/notes.json", serveNotes)
	mx.Get("/timeline.pb", serveProto)
	mx.Get("/notes.mid", serveMIDI)
	mx.Get("/audio", serveAudio)
	mx.Get("/socket", serveSocket)
	mx.NotFound(serveNotFound)
	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mx)
}

func mainE() error {
	fHost := pflag.String("host", "localhost", "host to serve from, or * to bind to all local addresses")
	fPort := pflag.Int("port", 9013, "port to serve from")
	fDir := pflag.String("dir", ".", "project directory")
	fConfig := pflag.String("config", project.DefaultConfig, "project file, relative to the project directory")
	pflag.Parse()
	if args := pflag.Args(); len(args) != 0 {
		return fmt.Errorf("unexpected argument: %q", args[0])
	}

	baseDir, err := filepath.Abs(*fDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	log := logrus.StandardLogger()
	host := *fHost
	var addrs []net.IPAddr
	if host == "*" {
		addrs = []net.IPAddr{{IP: net.IPv6zero}}
		host = "localhost"
	} else {
		var err error
		rslv := net.DefaultResolver
		addrs, err = rslv.LookupIPAddr(ctx, host)
		if err != nil {
			return fmt.Errorf("could not look up host: %v", err)
		}
		if host == "" {
			host = "localhost"
		}
	}
	h := newHandler(baseDir)
	go h.watch(ctx, *fConfig)
	ctx = context.WithValue(ctx, contextKey{}, h)
	s := http.Server{
		Handler:     newMux(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	var root *url.URL
	for _, addr := range addrs {
		ta := net.TCPAddr{
			IP:   addr.IP,
			Zone: addr.Zone,
			Port: *fPort,
		}
		l, err := net.ListenTCP("tcp", &ta)
		if err != nil {
			return err
		}
		if root == nil {
			root = &url.URL{
				Scheme: "http",
				Host:   net.JoinHostPort(host, strconv.Itoa(*fPort)),
				Path:   "/",
			}
			log.Infoln("Serving on:", root)
		}
		go func(l *net.TCPListener) {
			err := s.Serve(l)
			log.Fatalln("serve:", err)
		}(l)
	}
	if root == nil {
		return errors.New("no address to serve on")
	}
	select {}
}

func main() {
	if err := mainE(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
