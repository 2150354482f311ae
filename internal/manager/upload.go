package manager

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"segmentd/internal/common/fsutil"
	"segmentd/internal/store"
)

// fallbackUploadName is used when sanitizing leaves nothing usable.
const fallbackUploadName = "upload"

// AllowedExtensions returns the accepted upload suffixes.
func (m *Manager) AllowedExtensions() []string {
	return append([]string(nil), m.cfg.AllowedExtensions...)
}

// CheckUploadName validates the client-supplied file name before any bytes
// are read. It returns the name the file will be stored under.
func (m *Manager) CheckUploadName(filename string) (string, error) {
	if filename == "" {
		return "", NewInvalidUploadError("No file selected for uploading")
	}
	ext := fsutil.MatchSuffix(filename, m.cfg.AllowedExtensions)
	if ext == "" {
		return "", NewInvalidUploadError(fmt.Sprintf("Allowed file types are [%s]", strings.Join(m.cfg.AllowedExtensions, ", ")))
	}
	name := fsutil.SanitizeFilename(filename)
	if name == "" || fsutil.MatchSuffix(name, m.cfg.AllowedExtensions) == "" {
		name = fallbackUploadName + ext
	}
	return name, nil
}

// Upload stages the file read from r and returns the new upload identifier.
func (m *Manager) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	name, err := m.CheckUploadName(filename)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	id, n, err := m.cfg.Layout.SaveUpload(name, r)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := m.cfg.Store.CreateUpload(ctx, store.Upload{Id: id, Filename: name, SizeBytes: n, CreatedAt: start}); err != nil {
		// The staged file stays usable by id; only the record is missing.
		m.log.Error().Err(err).Str("upload", id).Msg("record upload")
	}
	uploadsTotal.WithLabelValues("ok").Inc()
	uploadBytes.Add(float64(n))
	m.log.Info().Str("upload", id).Str("file", name).Int64("bytes", n).Dur("took", time.Since(start)).Msg("upload stored")
	m.cfg.Publisher.Publish(Event{Name: EventUploaded, ID: id, Fields: map[string]any{"file": name, "bytes": n}})
	return id, nil
}
