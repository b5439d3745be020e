package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/roadwatch/roadwatch/pkg/detection"
	"github.com/roadwatch/roadwatch/server/detect"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	return &Config{
		Port:          DefaultPort,
		SaveUploads:   true,
		UploadDir:     t.TempDir(),
		DBDir:         t.TempDir(),
		MaxFrameSize:  DefaultMaxFrameSize,
		ConfThreshold: DefaultConfThreshold,
		AlertConf:     DefaultAlertConf,
	}
}

func newTestServer(t *testing.T, cfg *Config, detector detect.Detector) (*Server, *httptest.Server) {
	s, err := NewServer(logs.NewTestingLog(t), cfg, detector)
	require.NoError(t, err)
	ts := httptest.NewServer(s.httpRouter)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { s.alerts.Close() })
	return s, ts
}

func makeJPEG(t *testing.T, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	buf := bytes.Buffer{}
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}

// postFrame submits 'frame' as multipart form data to /api/detect.
// fields are extra form values, apiKey goes into the x-api-key header when non-empty.
func postFrame(t *testing.T, url, apiKey string, frame []byte, filename string, fields map[string]string) *http.Response {
	body := bytes.Buffer{}
	mw := multipart.NewWriter(&body)
	if frame != nil || filename != "" {
		fw, err := mw.CreateFormFile("frame", filename)
		require.NoError(t, err)
		_, err = fw.Write(frame)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req, err := http.NewRequest("POST", url+"/api/detect", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func readResult(t *testing.T, resp *http.Response) *detection.Result {
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := &detection.Result{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(res))
	return res
}

func readError(t *testing.T, resp *http.Response) string {
	defer resp.Body.Close()
	body := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func TestDetectEmptyResult(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), detect.NewStubDetector())

	resp := postFrame(t, ts.URL, "", makeJPEG(t, 320, 180), "road.jpg", nil)
	res := readResult(t, resp)
	require.Equal(t, 320, res.FrameWidth)
	require.Equal(t, 180, res.FrameHeight)
	require.Empty(t, res.Detections)
	require.Empty(t, res.Alerts)
	require.NotEmpty(t, res.SavedName)
	require.True(t, strings.HasSuffix(res.SavedName, "_road.jpg"))

	// The archived frame must be retrievable
	getResp, err := http.Get(ts.URL + "/uploads/" + res.SavedName)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	stored, err := io.ReadAll(getResp.Body)
	require.NoError(t, err)
	require.Equal(t, makeJPEG(t, 320, 180), stored)
}

func TestDetectDeclaredDimensionsWin(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), detect.NewStubDetector())
	resp := postFrame(t, ts.URL, "", makeJPEG(t, 320, 180), "road.jpg", map[string]string{"frame_w": "1280", "frame_h": "720"})
	res := readResult(t, resp)
	require.Equal(t, 1280, res.FrameWidth)
	require.Equal(t, 720, res.FrameHeight)
}

func TestDetectUndecodableFrame(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), detect.NewStubDetector())
	resp := postFrame(t, ts.URL, "", []byte("not a jpeg"), "junk.bin", nil)
	res := readResult(t, resp)
	require.Equal(t, detection.DefaultFrameWidth, res.FrameWidth)
	require.Equal(t, detection.DefaultFrameHeight, res.FrameHeight)
}

func TestDetectRequiresAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIKey = "secret123"
	_, ts := newTestServer(t, cfg, detect.NewStubDetector())

	resp := postFrame(t, ts.URL, "", makeJPEG(t, 64, 64), "road.jpg", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unauthorized", readError(t, resp))

	resp = postFrame(t, ts.URL, "wrong", makeJPEG(t, 64, 64), "road.jpg", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unauthorized", readError(t, resp))

	resp = postFrame(t, ts.URL, "secret123", makeJPEG(t, 64, 64), "road.jpg", nil)
	readResult(t, resp)

	// Read endpoints stay open
	healthResp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	healthResp.Body.Close()
	require.Equal(t, http.StatusOK, healthResp.StatusCode)
}

func TestDetectMissingFrame(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), detect.NewStubDetector())
	resp := postFrame(t, ts.URL, "", nil, "", map[string]string{"note": "no file here"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotEmpty(t, readError(t, resp))
}

func TestDetectEmptyFrame(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), detect.NewStubDetector())
	resp := postFrame(t, ts.URL, "", []byte{}, "empty.jpg", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotEmpty(t, readError(t, resp))
}

func TestDetectOversizedFrame(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFrameSize = 1024
	_, ts := newTestServer(t, cfg, detect.NewStubDetector())
	big := make([]byte, 4096)
	resp := postFrame(t, ts.URL, "", big, "big.jpg", nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestDetectOversizedChunkedUpload(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFrameSize = 1024
	_, ts := newTestServer(t, cfg, detect.NewStubDetector())

	body := bytes.Buffer{}
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("frame", "big.jpg")
	require.NoError(t, err)
	_, err = fw.Write(make([]byte, 8192))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	// io.NopCloser hides the buffer's length, so the request goes out chunked
	// with no Content-Length and only the bounded body read can catch it.
	req, err := http.NewRequest("POST", ts.URL+"/api/detect", io.NopCloser(&body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestDetectWithDetectionsAndAlerts(t *testing.T) {
	detector := &detect.StaticDetector{
		Objects: []detection.Detection{
			{Box: detection.MakeBox(10, 20, 110, 220), Confidence: 0.9, Label: "pothole"},
			{Box: detection.MakeBox(300, 40, 380, 120), Confidence: 0.4, Label: "debris"},
		},
	}
	_, ts := newTestServer(t, testConfig(t), detector)

	resp := postFrame(t, ts.URL, "", makeJPEG(t, 640, 360), "road.jpg", nil)
	res := readResult(t, resp)
	require.Len(t, res.Detections, 2)
	require.Equal(t, "pothole", res.Detections[0].Label)

	// Only the 0.9 detection crosses the alert threshold
	require.Len(t, res.Alerts, 1)
	require.Equal(t, "pothole", res.Alerts[0].Label)
	require.NotEmpty(t, res.Alerts[0].Timestamp)
	require.NotEmpty(t, res.Alerts[0].Thumb)

	// And it lands in the alert history
	alertsResp, err := http.Get(ts.URL + "/api/alerts")
	require.NoError(t, err)
	defer alertsResp.Body.Close()
	require.Equal(t, http.StatusOK, alertsResp.StatusCode)
	history := []alertJSON{}
	require.NoError(t, json.NewDecoder(alertsResp.Body).Decode(&history))
	require.Len(t, history, 1)
	require.Equal(t, "pothole", history[0].Label)
	require.Equal(t, res.SavedName, history[0].Frame)
}

func TestStreamDelivery(t *testing.T) {
	detector := &detect.StaticDetector{
		Objects: []detection.Detection{
			{Box: detection.MakeBox(10, 20, 110, 220), Confidence: 0.8, Label: "pothole"},
		},
	}
	_, ts := newTestServer(t, testConfig(t), detector)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, wsResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if wsResp != nil {
		wsResp.Body.Close()
	}
	defer conn.Close()

	frame := makeJPEG(t, 640, 360)
	first := readResult(t, postFrame(t, ts.URL, "", frame, "a.jpg", nil))
	second := readResult(t, postFrame(t, ts.URL, "", frame, "b.jpg", nil))

	// Both results arrive, in submission order
	for _, want := range []*detection.Result{first, second} {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		got := &detection.Result{}
		require.NoError(t, json.Unmarshal(msg, got))
		require.Equal(t, want.SavedName, got.SavedName)
		require.Len(t, got.Detections, 1)
		require.Equal(t, "pothole", got.Detections[0].Label)
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), detect.NewStubDetector())
	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := healthJSON{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "stub", health.Detector)
	require.NotEmpty(t, health.Time)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), detect.NewStubDetector())
	postFrame(t, ts.URL, "", makeJPEG(t, 64, 64), "road.jpg", nil).Body.Close()
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "roadwatch_frames_submitted_total 1")
}
