// Package client is a Go client for a roadwatch server: it submits frames
// for detection, and subscribes to the server's result stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/roadwatch/roadwatch/pkg/detection"
)

type Client struct {
	Server string // eg "http://localhost:8080"
	APIKey string // Sent in the x-api-key header when non-empty

	log  logs.Log
	http *http.Client
}

func NewClient(log logs.Log, server, apiKey string) *Client {
	return &Client{
		Server: strings.TrimRight(server, "/"),
		APIKey: apiKey,
		log:    log,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Submit sends one encoded frame to the server and returns its detection
// result. frameW/frameH are the coordinate space that boxes should be
// expressed in; pass zero to let the server infer dimensions from the image.
func (c *Client) Submit(ctx context.Context, frame []byte, filename string, frameW, frameH int) (*detection.Result, error) {
	body := bytes.Buffer{}
	mw := multipart.NewWriter(&body)
	if filename == "" {
		filename = "frame.jpg"
	}
	fw, err := mw.CreateFormFile("frame", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(frame); err != nil {
		return nil, err
	}
	if frameW > 0 {
		mw.WriteField("frame_w", strconv.Itoa(frameW))
	}
	if frameH > 0 {
		mw.WriteField("frame_h", strconv.Itoa(frameH))
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.Server+"/api/detect", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	res := &detection.Result{}
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, fmt.Errorf("Failed to decode detection result: %w", err)
	}
	return res, nil
}

// responseError turns a non-200 response into an error, preferring the
// server's {"error": ...} body when it has one.
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	body := struct {
		Error string `json:"error"`
	}{}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return fmt.Errorf("%v: %v", resp.Status, body.Error)
	}
	return fmt.Errorf("%v", resp.Status)
}
