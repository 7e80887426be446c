package listener

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"avance/internal"
	"avance/internal/config"
	"avance/internal/logging"
	"avance/internal/pipeline"
	"avance/internal/storage"
	"avance/internal/workbook"
)

// Service periodically normalizes every area and stores the result as a
// snapshot, building a history of surveyor progress.
type Service struct {
	db     *storage.DB
	cfg    config.Config
	report *pipeline.Report
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db *storage.DB, cfg config.Config, cache *workbook.Cache, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		cfg:    cfg,
		report: pipeline.NewReport(cfg, cache),
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.SnapshotIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.Error("snapshot cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle snapshots every discovered area once and returns what it stored.
func (s *Service) RunCycle(ctx context.Context) ([]internal.SnapshotRow, error) {
	areas, adv := s.report.Areas()
	logging.Advisories(s.logger, adv)

	stamp := s.now().UTC().Format(time.RFC3339Nano)
	out := make([]internal.SnapshotRow, 0, len(areas))
	for _, a := range areas {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		n, nadv := s.report.NormalizeArea(a)
		logging.Advisories(s.logger.With(zap.String("area", a.Label)), nadv)

		row, err := s.db.InsertSnapshot(internal.SnapshotRow{
			Area:      a.Label,
			Source:    filepath.Base(a.Path),
			Kind:      n.Kind,
			Records:   n.Records,
			CreatedAt: stamp,
		})
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}

	if err := s.db.SetMetadata(storage.MetaLastSnapshotAt, stamp); err != nil {
		return out, err
	}
	s.logger.Info("snapshot cycle done", zap.Int("areas", len(out)), zap.String("at", stamp))
	return out, nil
}
