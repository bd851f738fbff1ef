package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"moria.us/chartline/build/watcher"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type wshandler struct {
	handler *handler
	conn    *websocket.Conn
	log     *logrus.Entry
}

func serveSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h := getHandler(ctx)
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorln("Upgrade:", err)
		return
	}
	wh := wshandler{
		handler: h,
		conn:    c,
		log:     logrus.StandardLogger().WithField("client", uuid.New().String()),
	}
	wh.log.Infoln("Websocket connected:", r.RemoteAddr)
	endch := make(chan struct{})
	go wh.read(endch)
	go wh.write(endch)
}

func (h *wshandler) read(endch chan struct{}) {
	defer close(endch)
	for {
		mt, _, err := h.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Errorln("Websocket read:", err)
			}
			break
		}
		h.log.Infoln("Websocket message:", mt)
	}
}

func (h *wshandler) write(endch chan struct{}) {
	defer h.conn.Close()
	ch := make(chan *watcher.State, 10)
	d := h.handler.chart.addListener(ch)
	defer h.handler.chart.removeListener(ch)
	if err := h.send(d); err != nil {
		h.log.Error("Websocket send:", err)
		return
	}
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return
			}
			if err := h.send(d); err != nil {
				h.log.Error("Websocket send:", err)
				return
			}
		case <-t.C:
			h.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := h.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Error("Websocket ping:", err)
				return
			}
		case <-endch:
			return
		}
	}
}

type compileMessage struct {
	State    string  `json:"state"`
	Error    string  `json:"error,omitempty"`
	Title    string  `json:"title,omitempty"`
	Notes    int     `json:"notes,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

func newCompileMessage(d *watcher.State) *compileMessage {
	var m compileMessage
	switch {
	case d == nil:
		m.State = "building"
	case d.Err != nil:
		m.State = "fail"
		m.Error = d.Err.Error()
	default:
		m.State = "ok"
		m.Title = d.Project.Config.Title
		m.Notes = len(d.Timeline.Notes)
		m.Duration = d.Timeline.Duration()
	}
	return &m
}

func (h *wshandler) send(d *watcher.State) error {
	md, err := json.Marshal(newCompileMessage(d))
	if err != nil {
		return err
	}
	h.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return h.conn.WriteMessage(websocket.TextMessage, md)
}
