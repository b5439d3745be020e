package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/roadwatch/roadwatch/server/broadcast"
)

type webSocketMsg int

const (
	webSocketMsgClosed webSocketMsg = iota // The websocket client has closed the connection
)

// httpStream upgrades the connection to a websocket and forwards every
// published detection result to it as a JSON text message, until the client
// goes away. Late subscribers see only results published after they joined.
func (s *Server) httpStream(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warnf("Websocket upgrade failed: %v", err)
		return
	}
	streamer := newResultStreamer(s.Log, s.registry)
	streamer.Run(conn)
}

// resultStreamer pumps detection results from the broadcast registry into a
// single websocket connection. Flow control lives in the registry: if this
// connection can't keep up, the registry drops results for it, and the
// streamer never blocks the publisher.
type resultStreamer struct {
	log           logs.Log
	registry      *broadcast.Registry
	fromWebSocket chan webSocketMsg
	lastDropMsg   time.Time
	nSent         int64
	nFailed       int64
}

func newResultStreamer(log logs.Log, registry *broadcast.Registry) *resultStreamer {
	return &resultStreamer{
		log:      log,
		registry: registry,
	}
}

func (s *resultStreamer) Run(conn *websocket.Conn) {
	sub := s.registry.Subscribe()
	defer s.registry.Unsubscribe(sub)
	defer conn.Close()

	s.fromWebSocket = make(chan webSocketMsg, 1)
	go s.webSocketReader(conn)

	for {
		select {
		case res, more := <-sub.Results():
			if !more {
				// Registry shut down underneath us (server shutdown)
				return
			}
			body, err := json.Marshal(res)
			if err != nil {
				s.log.Errorf("Failed to marshal detection result: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
				s.nFailed++
				if time.Since(s.lastDropMsg) > 5*time.Second {
					s.log.Infof("Error writing to websocket (%v failed, %v sent): %v", s.nFailed, s.nSent, err)
					s.lastDropMsg = time.Now()
				}
				return
			}
			s.nSent++
		case <-s.fromWebSocket:
			return
		}
	}
}

// Read from the websocket and post to our own channel, so that Run can
// handle results and connection teardown in a single loop. Incoming frames
// from the client are ignored, the stream is one-way.
func (s *resultStreamer) webSocketReader(conn *websocket.Conn) {
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
	s.fromWebSocket <- webSocketMsgClosed
}
