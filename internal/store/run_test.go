package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/posekit/internal/landmark"
)

// newTestStore creates a new Store backed by a temporary database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "posekit-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	s, err := New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestRunRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Runs()

	run := &Run{Kind: RunKindImage, Source: "person.jpg", Width: 640, Height: 480, Frames: 1}
	if err := repo.Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if run.ID == "" {
		t.Error("ID should be generated on create")
	}
	if run.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Kind != RunKindImage || got.Source != "person.jpg" {
		t.Errorf("got %+v, want kind image and source person.jpg", got)
	}
	if got.Width != 640 || got.Height != 480 || got.Frames != 1 {
		t.Errorf("got size %dx%d frames %d", got.Width, got.Height, got.Frames)
	}
}

func TestRunRepository_Create_KeepsID(t *testing.T) {
	s := newTestStore(t)

	run := &Run{ID: "fixed-id", Kind: RunKindVideo, Source: "0"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if run.ID != "fixed-id" {
		t.Errorf("ID = %q, want fixed-id", run.ID)
	}

	if err := s.Runs().Create(&Run{ID: "fixed-id", Kind: RunKindVideo, Source: "0"}); err == nil {
		t.Error("expected error creating a run with a duplicate ID")
	}
}

func TestRunRepository_Create_InvalidKind(t *testing.T) {
	s := newTestStore(t)

	if err := s.Runs().Create(&Run{Kind: RunKind("audio"), Source: "x"}); err == nil {
		t.Error("expected check constraint error for unknown kind")
	}
}

func TestRunRepository_List(t *testing.T) {
	s := newTestStore(t)

	runs, err := s.Runs().List()
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	for _, src := range []string{"a.jpg", "b.mp4"} {
		if err := s.Runs().Create(&Run{Kind: RunKindImage, Source: src}); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}

	runs, err = s.Runs().List()
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestRunRepository_Finish(t *testing.T) {
	s := newTestStore(t)

	run := &Run{Kind: RunKindVideo, Source: "clip.mp4"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if err := s.Runs().Finish(run.ID, 42, 320, 240); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	got, err := s.Runs().GetByID(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Frames != 42 || got.Width != 320 || got.Height != 240 {
		t.Errorf("got frames %d size %dx%d, want 42 320x240", got.Frames, got.Width, got.Height)
	}

	if err := s.Runs().Finish("missing", 1, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunRepository_Delete(t *testing.T) {
	s := newTestStore(t)

	run := &Run{Kind: RunKindVideo, Source: "clip.mp4"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if err := s.Detections().Add(run.ID, 0, landmark.StandingPose()); err != nil {
		t.Fatalf("failed to add detection: %v", err)
	}

	if err := s.Runs().Delete(run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}

	if _, err := s.Runs().GetByID(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	detections, err := s.Detections().ListByRun(run.ID)
	if err != nil {
		t.Fatalf("failed to list detections: %v", err)
	}
	if len(detections) != 0 {
		t.Errorf("expected detections to cascade, got %d", len(detections))
	}

	if err := s.Runs().Delete(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Runs().GetByID("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDetectionRepository(t *testing.T) {
	s := newTestStore(t)

	run := &Run{Kind: RunKindVideo, Source: "clip.mp4"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	results := []*landmark.Result{landmark.RaisedHands(), nil, landmark.StandingPose()}
	for i, r := range results {
		if err := s.Detections().Add(run.ID, i, r); err != nil {
			t.Fatalf("failed to add detection %d: %v", i, err)
		}
	}

	detections, err := s.Detections().ListByRun(run.ID)
	if err != nil {
		t.Fatalf("failed to list detections: %v", err)
	}
	if len(detections) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(detections))
	}

	first := detections[0]
	if !first.HasPose || !first.LeftHand || !first.RightHand {
		t.Errorf("frame 0 flags = %v %v %v, want all true", first.HasPose, first.LeftHand, first.RightHand)
	}
	if len(first.Result.Pose) != landmark.NumPoseLandmarks {
		t.Errorf("frame 0 pose has %d landmarks", len(first.Result.Pose))
	}
	if v := first.Result.Pose[landmark.Nose].Visibility; v == nil || *v != 0.95 {
		t.Errorf("visibility did not round trip: %v", v)
	}

	if detections[1].HasPose || !detections[1].Result.Empty() {
		t.Errorf("frame 1 should be empty, got %+v", detections[1])
	}
	if detections[2].LeftHand || detections[2].RightHand {
		t.Error("frame 2 should have no hands")
	}

	n, err := s.Detections().CountByRun(run.ID)
	if err != nil {
		t.Fatalf("failed to count detections: %v", err)
	}
	if n != 2 {
		t.Errorf("CountByRun() = %d, want 2", n)
	}

	if err := s.Detections().Add(run.ID, 0, nil); err == nil {
		t.Error("expected error adding a duplicate frame")
	}
	if err := s.Detections().Add("missing-run", 0, nil); err == nil {
		t.Error("expected foreign key error for unknown run")
	}
}

func TestRunRecorder(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.NewRunRecorder(&Run{Kind: RunKindImage, Source: "person.jpg"})
	if err != nil {
		t.Fatalf("NewRunRecorder() error = %v", err)
	}

	if err := rec.Record(0, landmark.StandingPose()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := rec.Finish(1, 100, 50); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	run, err := s.Runs().GetByID(rec.RunID())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Frames != 1 || run.Width != 100 || run.Height != 50 {
		t.Errorf("run = %+v", run)
	}

	detections, err := s.Detections().ListByRun(rec.RunID())
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(detections) != 1 || !detections[0].HasPose {
		t.Errorf("detections = %+v", detections)
	}
}

func TestRunRecorder_Discard(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.NewRunRecorder(&Run{Kind: RunKindVideo, Source: "broken.mp4"})
	if err != nil {
		t.Fatalf("NewRunRecorder() error = %v", err)
	}
	if err := rec.Record(0, landmark.StandingPose()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if err := rec.Discard(); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}

	runs, err := s.Runs().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs after Discard, got %d", len(runs))
	}
	if n, _ := s.Detections().CountByRun(rec.RunID()); n != 0 {
		t.Errorf("expected detections to be removed, got %d", n)
	}

	if err := rec.Discard(); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Discard() error = %v, want ErrNotFound", err)
	}
}

func TestRunKind_Constants(t *testing.T) {
	if RunKindImage != "image" || RunKindVideo != "video" || RunKindLive != "live" {
		t.Error("run kind constants changed")
	}
}

func TestRunRepository_Thumbnail(t *testing.T) {
	s := newTestStore(t)

	run := &Run{Kind: RunKindImage, Source: "pose.png"}
	if err := s.Runs().Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	if _, err := s.Runs().Thumbnail(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound before a thumbnail is set, got %v", err)
	}

	if err := s.Runs().SetThumbnail(run.ID, []byte{0xFF, 0xD8, 0x01}); err != nil {
		t.Fatalf("failed to set thumbnail: %v", err)
	}
	if err := s.Runs().SetThumbnail(run.ID, []byte{0xFF, 0xD8, 0x02}); err != nil {
		t.Fatalf("failed to replace thumbnail: %v", err)
	}

	data, err := s.Runs().Thumbnail(run.ID)
	if err != nil {
		t.Fatalf("failed to get thumbnail: %v", err)
	}
	if len(data) != 3 || data[2] != 0x02 {
		t.Errorf("expected replaced thumbnail, got %v", data)
	}

	if err := s.Runs().SetThumbnail("missing-run", []byte{1}); err == nil {
		t.Error("expected foreign key error for unknown run")
	}

	if err := s.Runs().Delete(run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if _, err := s.Runs().Thumbnail(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected thumbnail to cascade, got %v", err)
	}
}
