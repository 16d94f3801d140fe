package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ayusman/posekit/internal/landmark"
)

// Detection is the landmark result of one frame of a run.
type Detection struct {
	ID         int64            `json:"id"`
	RunID      string           `json:"run_id"`
	FrameIndex int              `json:"frame_index"`
	HasPose    bool             `json:"has_pose"`
	LeftHand   bool             `json:"left_hand"`
	RightHand  bool             `json:"right_hand"`
	Result     *landmark.Result `json:"result"`
}

// DetectionRepository stores per-frame detection results.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

// Add stores the result for frame frameIndex of run runID.
func (r *DetectionRepository) Add(runID string, frameIndex int, result *landmark.Result) error {
	if result == nil {
		result = &landmark.Result{}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO detections (run_id, frame_index, has_pose, left_hand, right_hand, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, frameIndex, result.HasPose(), len(result.LeftHand) > 0, len(result.RightHand) > 0, string(data),
	)
	return err
}

// ListByRun retrieves the detections of a run ordered by frame.
func (r *DetectionRepository) ListByRun(runID string) ([]Detection, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, frame_index, has_pose, left_hand, right_hand, data
		 FROM detections
		 WHERE run_id = ?
		 ORDER BY frame_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []Detection
	for rows.Next() {
		var d Detection
		var data string
		if err := rows.Scan(&d.ID, &d.RunID, &d.FrameIndex, &d.HasPose, &d.LeftHand, &d.RightHand, &data); err != nil {
			return nil, err
		}
		d.Result = &landmark.Result{}
		if err := json.Unmarshal([]byte(data), d.Result); err != nil {
			return nil, fmt.Errorf("decode detection %d: %w", d.ID, err)
		}
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return detections, nil
}

// CountByRun returns how many frames of a run had a pose detected.
func (r *DetectionRepository) CountByRun(runID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM detections WHERE run_id = ? AND has_pose = 1`,
		runID,
	).Scan(&n)
	return n, err
}
