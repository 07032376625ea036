package dashboard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"

	"github.com/google/uuid"

	"github.com/yanqian/thermostraw/internal/domain/chart"
)

func (j SnapshotJob) payload() map[string]any {
	raw, err := json.Marshal(j)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func decodeSnapshotJob(payload map[string]any) (SnapshotJob, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return SnapshotJob{}, err
	}
	var job SnapshotJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return SnapshotJob{}, err
	}
	if job.SessionID == "" {
		return SnapshotJob{}, fmt.Errorf("snapshot job without session id")
	}
	return job, nil
}

// HandleJob is the queue handler for background jobs.
func (s *Service) HandleJob(ctx context.Context, name string, payload map[string]any) {
	switch name {
	case JobChartSnapshot:
		job, err := decodeSnapshotJob(payload)
		if err != nil {
			s.logger.Warn("invalid chart_snapshot payload", "error", err)
			return
		}
		if _, err := s.Snapshot(ctx, job); err != nil {
			s.logger.Error("chart_snapshot failed", "session_id", job.SessionID, "error", err)
		}
	default:
		s.logger.Warn("unknown job", "name", name)
	}
}

// Snapshot renders the chart of a job, archives it and posts it to the backend.
// Rendering is synchronous, so the image is complete once Capture returns.
func (s *Service) Snapshot(ctx context.Context, job SnapshotJob) (string, error) {
	points := chart.Build(chart.InputsFrom(job.Fractions, job.OptimalRanges))
	img, err := s.exporter.Capture(points)
	if err != nil {
		return "", err
	}

	if s.archive != nil {
		key := path.Join(s.cfg.ArchivePrefix, s.now().Format("2006/01/02"), uuid.NewString()+".png")
		location, err := s.archive.Put(ctx, key, img.PNG)
		if err != nil {
			s.logger.Warn("chart archive failed", "key", key, "error", err)
		} else {
			s.logger.Info("chart archived", "location", location)
		}
	}

	encoded := base64.StdEncoding.EncodeToString(img.PNG)
	id, err := s.predictor.SaveChartImage(ctx, job.Fractions, encoded)
	if err != nil {
		return "", err
	}
	s.logger.Info("chart snapshot saved", "session_id", job.SessionID, "batch", job.BatchNumber, "id", id)
	return id, nil
}
