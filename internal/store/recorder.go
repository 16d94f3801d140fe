package store

import "github.com/ayusman/posekit/internal/landmark"

// RunRecorder stores every frame result of a single run.
type RunRecorder struct {
	store *Store
	runID string
}

// NewRunRecorder creates run in the store and returns a recorder for it.
func (s *Store) NewRunRecorder(run *Run) (*RunRecorder, error) {
	if err := s.Runs().Create(run); err != nil {
		return nil, err
	}
	return &RunRecorder{store: s, runID: run.ID}, nil
}

// RunID returns the ID of the run being recorded.
func (r *RunRecorder) RunID() string {
	return r.runID
}

// Record stores the result of one frame.
func (r *RunRecorder) Record(frameIndex int, result *landmark.Result) error {
	return r.store.Detections().Add(r.runID, frameIndex, result)
}

// Finish stores the final frame count and size of the run.
func (r *RunRecorder) Finish(frames, width, height int) error {
	return r.store.Runs().Finish(r.runID, frames, width, height)
}

// SetThumbnail stores a JPEG preview for the run.
func (r *RunRecorder) SetThumbnail(jpeg []byte) error {
	return r.store.Runs().SetThumbnail(r.runID, jpeg)
}

// Discard deletes the run and everything recorded for it. It is used when
// the run fails before producing a frame.
func (r *RunRecorder) Discard() error {
	return r.store.Runs().Delete(r.runID)
}
