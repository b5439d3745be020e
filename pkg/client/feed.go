package client

import (
	"context"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/roadwatch/roadwatch/pkg/detection"
)

type FeedMode int

const (
	FeedModeIdle FeedMode = iota
	FeedModeStream
	FeedModeDemo
)

func (m FeedMode) String() string {
	switch m {
	case FeedModeStream:
		return "stream"
	case FeedModeDemo:
		return "demo"
	}
	return "idle"
}

// Feed delivers detection results to a consumer from exactly one source at a
// time: either a live server stream, or the local demo generator. Switching
// source stops the previous one first, so the consumer never receives
// interleaved results from both.
type Feed struct {
	log      logs.Log
	onResult func(*detection.Result)

	lock   sync.Mutex
	mode   FeedMode
	stream *Stream
	demo   *Generator
}

func NewFeed(log logs.Log, onResult func(*detection.Result)) *Feed {
	return &Feed{
		log:      log,
		onResult: onResult,
	}
}

// UseStream switches the feed to a live server stream.
func (f *Feed) UseStream(ctx context.Context, c *Client) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.stopLocked()
	stream, err := c.Stream(ctx, f.onResult)
	if err != nil {
		return err
	}
	f.stream = stream
	f.mode = FeedModeStream
	f.log.Infof("Feed switched to live stream from %v", c.Server)
	return nil
}

// UseDemo switches the feed to the local demo generator.
func (f *Feed) UseDemo(interval time.Duration) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.stopLocked()
	f.demo = NewGenerator(f.log, f.onResult, interval)
	f.demo.Start()
	f.mode = FeedModeDemo
	f.log.Infof("Feed switched to demo generator")
}

// Stop halts whichever source is active.
func (f *Feed) Stop() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.stopLocked()
}

func (f *Feed) Mode() FeedMode {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.mode
}

func (f *Feed) stopLocked() {
	if f.stream != nil {
		f.stream.Close()
		f.stream = nil
	}
	if f.demo != nil {
		f.demo.Stop()
		f.demo = nil
	}
	f.mode = FeedModeIdle
}
