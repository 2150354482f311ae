package manager

import (
	"context"
	"errors"
	"io"

	"segmentd/internal/archive"
	"segmentd/internal/store"
	"segmentd/pkg/types"
)

// Export writes a zip of every file under predict/<id>/ to w. Entry names
// are relative to the base directory. Predictions still pending or running
// are refused.
func (m *Manager) Export(ctx context.Context, id string, w io.Writer) error {
	dir, err := m.cfg.Layout.PredictionDir(id)
	if err != nil {
		return err
	}
	p, err := m.cfg.Store.GetPrediction(ctx, id)
	switch {
	case err == nil:
		if st := types.PredictionStatus(p.Status); !st.Done() {
			return predictionBusyError{id: id, status: string(st)}
		}
	case errors.Is(err, store.ErrNotFound):
		// Directories without a record (created by hand or by an older
		// deployment) are exported as they are.
	default:
		return err
	}
	n, err := archive.ZipDir(w, dir, m.cfg.Layout.ArchivePrefix(id))
	if err != nil {
		return err
	}
	m.log.Info().Str("prediction", id).Int("files", n).Msg("export built")
	m.cfg.Publisher.Publish(Event{Name: EventExported, ID: id, Fields: map[string]any{"files": n}})
	return nil
}
