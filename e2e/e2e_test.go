package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/posekit/internal/annotate"
	"github.com/ayusman/posekit/internal/app"
	"github.com/ayusman/posekit/internal/capture"
	"github.com/ayusman/posekit/internal/landmark"
	"github.com/ayusman/posekit/internal/server"
	"github.com/ayusman/posekit/internal/store"
	"github.com/ayusman/posekit/internal/vision"
	"github.com/ayusman/posekit/testdata"
)

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	srv := server.New(server.Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	mockDetector := landmark.NewMockDetector()
	mockDetector.SetResult(landmark.RaisedHands())

	opts := annotate.DefaultOptions()
	opts.Rescale = 50
	annotator, err := annotate.New(mockDetector, opts)
	if err != nil {
		t.Fatalf("annotate.New() error = %v", err)
	}

	var imageRunID, videoRunID string

	t.Run("AnnotateImage", func(t *testing.T) {
		path, err := testdata.WriteImage(tmpDir, "person.png", 200, 300)
		if err != nil {
			t.Fatal(err)
		}

		recorder, err := s.NewRunRecorder(&store.Run{Kind: store.RunKindImage, Source: path})
		if err != nil {
			t.Fatalf("NewRunRecorder() error = %v", err)
		}
		annotator.SetRecorder(recorder)
		defer annotator.SetRecorder(nil)

		img, result, err := annotator.Image(vision.PathSource(path))
		if err != nil {
			t.Fatalf("Image() error = %v", err)
		}
		defer img.Close()

		if img.Cols() != 150 || img.Rows() != 100 {
			t.Errorf("size = %dx%d, want 150x100", img.Cols(), img.Rows())
		}
		if !result.HasPose() {
			t.Error("expected a pose in the result")
		}

		if err := recorder.Finish(1, img.Cols(), img.Rows()); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		imageRunID = recorder.RunID()
	})

	t.Run("AnnotateVideo", func(t *testing.T) {
		frames := testdata.Sequence(4, 120, 160)
		defer testdata.CloseAll(frames)
		stream := capture.NewMockStream(frames, false)
		defer stream.Close()

		recorder, err := s.NewRunRecorder(&store.Run{Kind: store.RunKindVideo, Source: "mock"})
		if err != nil {
			t.Fatalf("NewRunRecorder() error = %v", err)
		}
		annotator.SetRecorder(recorder)
		defer annotator.SetRecorder(nil)

		out := filepath.Join(tmpDir, "annotated.avi")
		writer := capture.NewVideoWriter(out, stream.FPS())

		stats, err := annotator.Video(context.Background(), stream, writer)
		if err != nil {
			t.Fatalf("Video() error = %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("writer.Close() error = %v", err)
		}

		if stats.Frames != 4 || stats.Detected != 4 {
			t.Errorf("stats = %+v, want 4 frames all detected", stats)
		}
		if writer.Frames() != 4 {
			t.Errorf("wrote %d frames, want 4", writer.Frames())
		}

		if err := recorder.Finish(stats.Frames, 80, 60); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		videoRunID = recorder.RunID()
	})

	t.Run("ListRuns", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/runs")
		if err != nil {
			t.Fatalf("list runs error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var result struct {
			Runs []struct {
				ID       string `json:"id"`
				Kind     string `json:"kind"`
				Frames   int    `json:"frames"`
				Detected int    `json:"detected"`
			} `json:"runs"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode error = %v", err)
		}

		if len(result.Runs) != 2 {
			t.Fatalf("got %d runs, want 2", len(result.Runs))
		}
		for _, run := range result.Runs {
			switch run.ID {
			case imageRunID:
				if run.Kind != "image" || run.Frames != 1 || run.Detected != 1 {
					t.Errorf("unexpected image run %+v", run)
				}
			case videoRunID:
				if run.Kind != "video" || run.Frames != 4 || run.Detected != 4 {
					t.Errorf("unexpected video run %+v", run)
				}
			default:
				t.Errorf("unexpected run %s", run.ID)
			}
		}
	})

	t.Run("RunDetections", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/runs/" + videoRunID + "/detections")
		if err != nil {
			t.Fatalf("get detections error = %v", err)
		}
		defer resp.Body.Close()

		var result struct {
			Detections []struct {
				FrameIndex int  `json:"frame_index"`
				LeftHand   bool `json:"left_hand"`
				RightHand  bool `json:"right_hand"`
			} `json:"detections"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode error = %v", err)
		}

		if len(result.Detections) != 4 {
			t.Fatalf("got %d detections, want 4", len(result.Detections))
		}
		for i, d := range result.Detections {
			if d.FrameIndex != i || !d.LeftHand || !d.RightHand {
				t.Errorf("detection %d = %+v", i, d)
			}
		}
	})

	t.Run("DeleteRun", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/"+imageRunID, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("delete run error = %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}

		resp, err = client.Get(ts.URL + "/api/runs/" + imageRunID)
		if err != nil {
			t.Fatalf("get run error = %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})
}

func TestE2E_LivePreview(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	hub := server.NewHub()
	ts := httptest.NewServer(server.New(server.Config{Store: s, Hub: hub}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/landmarks", nil)
	if err != nil {
		t.Fatalf("dial landmarks: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	frames := testdata.Sequence(2, 120, 160)
	defer testdata.CloseAll(frames)

	mockDetector := landmark.NewMockDetector()
	mockDetector.SetResult(landmark.StandingPose())

	preview, err := app.New(app.Config{
		Stream:   capture.NewMockStream(frames, false),
		Source:   "mock",
		Detector: mockDetector,
		Hub:      hub,
		Store:    s,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	if err := preview.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read landmarks: %v", err)
	}
	var result landmark.Result
	if err := json.Unmarshal(msg, &result); err != nil {
		t.Fatalf("decode landmarks: %v", err)
	}
	if !result.HasPose() {
		t.Error("expected a pose in the broadcast result")
	}

	select {
	case <-preview.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("preview did not finish")
	}
	preview.Stop()

	resp, err := ts.Client().Get(ts.URL + "/api/runs/" + preview.RunID())
	if err != nil {
		t.Fatalf("get run error = %v", err)
	}
	defer resp.Body.Close()

	var run struct {
		Kind   string `json:"kind"`
		Frames int    `json:"frames"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if run.Kind != "live" || run.Frames != 2 {
		t.Errorf("unexpected run %+v", run)
	}
}
