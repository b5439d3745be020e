package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/roadwatch/roadwatch/pkg/detection"
)

// Stream is a live websocket subscription to the server's detection results.
// A message that fails to parse is logged and dropped, the stream stays up.
// A transport failure tears the stream down; watch Done() and reconnect if
// you want the stream back.
type Stream struct {
	log       logs.Log
	conn      *websocket.Conn
	onResult  func(*detection.Result)
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Stream subscribes to the server's result stream. onResult is called from a
// single goroutine, once per result, in the order the server published them.
func (c *Client) Stream(ctx context.Context, onResult func(*detection.Result)) (*Stream, error) {
	url := strings.Replace(c.Server, "http", "ws", 1) + "/api/stream"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	s := &Stream{
		log:      c.log,
		conn:     conn,
		onResult: onResult,
		done:     make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Stream) run() {
	defer close(s.done)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.err = err
				s.log.Warnf("Result stream closed: %v", err)
			}
			return
		}
		res := &detection.Result{}
		if err := json.Unmarshal(msg, res); err != nil {
			// A malformed message doesn't kill the stream
			s.log.Warnf("Dropping undecodable stream message (%v bytes): %v", len(msg), err)
			continue
		}
		s.onResult(res)
	}
}

// Done is closed when the stream has terminated, for any reason.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the transport error that ended the stream, or nil after a
// clean close.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Close tears the stream down. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
	<-s.done
}
