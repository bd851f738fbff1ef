package main

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moria.us/chartline/build/chart"
	"moria.us/chartline/build/export"
	"moria.us/chartline/build/project"
	"moria.us/chartline/build/watcher"
)

func newTestServer(t *testing.T, h *handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(newMux())
	srv.Config.BaseContext = func(net.Listener) context.Context {
		return context.WithValue(context.Background(), contextKey{}, h)
	}
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func compiledState(t *testing.T, src string) *watcher.State {
	t.Helper()
	p := &project.Project{Config: project.Config{Title: "Test", Chart: "test.tja"}}
	tl, err := chart.Compile([]byte(src), 0)
	return &watcher.State{Err: err, Project: p, Timeline: tl}
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

const quarters = "BPM:120\n#START\n1111,\n#END\n"

func TestServeTimeline(t *testing.T) {
	h := newHandler(t.TempDir())
	h.chart.update(compiledState(t, quarters))
	srv := newTestServer(t, h)

	resp, body := get(t, srv, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var idx indexData
	require.NoError(t, json.Unmarshal(body, &idx))
	assert.Equal(t, "ok", idx.State)
	assert.Equal(t, "Test", idx.Title)
	assert.Equal(t, 4, idx.Notes)
	assert.Equal(t, 17, idx.GridLines)

	resp, body = get(t, srv, "/notes.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notes []export.Note
	require.NoError(t, json.Unmarshal(body, &notes))
	assert.Len(t, notes, 4)

	resp, body = get(t, srv, "/grid.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grid []export.GridLine
	require.NoError(t, json.Unmarshal(body, &grid))
	assert.Len(t, grid, 17)

	resp, body = get(t, srv, "/timeline.pb")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, protoType, resp.Header.Get("Content-Type"))
	tl, err := export.UnmarshalProto(body)
	require.NoError(t, err)
	assert.Len(t, tl.Notes, 4)

	resp, body = get(t, srv, "/notes.mid")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, midiType, resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "MThd"))

	resp, _ = get(t, srv, "/audio")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv, "/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeCompileError(t *testing.T) {
	h := newHandler(t.TempDir())
	h.chart.update(compiledState(t, "BPM:120\n#START\n1000100010001000,\n100010100000,\n#END\n"))
	srv := newTestServer(t, h)

	resp, body := get(t, srv, "/notes.json")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var st statusData
	require.NoError(t, json.Unmarshal(body, &st))
	assert.NotEmpty(t, st.Message)
	assert.Equal(t, 2, strings.Count(st.Durations, "\n"), "one line per measure")

	resp, body = get(t, srv, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var idx indexData
	require.NoError(t, json.Unmarshal(body, &idx))
	assert.Equal(t, "fail", idx.State)
}

func TestSocket(t *testing.T) {
	h := newHandler(t.TempDir())
	h.chart.update(compiledState(t, quarters))
	srv := newTestServer(t, h)

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/socket", nil)
	require.NoError(t, err)
	defer c.Close()
	c.SetReadDeadline(time.Now().Add(5 * time.Second))

	var m compileMessage
	require.NoError(t, c.ReadJSON(&m))
	assert.Equal(t, compileMessage{State: "ok", Title: "Test", Notes: 4, Duration: 1.875}, m)

	h.chart.update(compiledState(t, "#START\n1,\n#END\n"))
	m = compileMessage{}
	require.NoError(t, c.ReadJSON(&m))
	assert.Equal(t, "fail", m.State)
	assert.NotEmpty(t, m.Error)
}

func TestServeAudioFromWave(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "song.ogg"), []byte("OggS audio"), 0o644))
	tl, err := chart.Compile([]byte("WAVE:song.ogg\n"+quarters), 0)
	require.NoError(t, err)
	h := newHandler(dir)
	h.chart.update(&watcher.State{
		Project:  &project.Project{BaseDir: dir, Config: project.Config{Chart: "test.tja"}},
		Timeline: tl,
	})
	srv := newTestServer(t, h)

	resp, body := get(t, srv, "/audio")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OggS audio", string(body))
}
