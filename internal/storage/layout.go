// Package storage manages the on-disk layout of uploads, predictions and
// model weights. Every upload and prediction owns one directory named by a
// random identifier under its root.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an identifier has no directory or staged file.
var ErrNotFound = errors.New("not found")

// VisualizationFile is the image the inference process renders into each
// prediction directory.
const VisualizationFile = "visualization.png"

// IDGenerator produces directory identifiers.
type IDGenerator func() string

// NewID returns a random (version 4) UUID string.
func NewID() string { return uuid.NewString() }

// ValidateID rejects anything that is not a canonical UUID string, which
// also keeps identifiers from escaping their root directory.
func ValidateID(id string) error {
	if len(id) != 36 {
		return fmt.Errorf("invalid identifier %q", id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid identifier %q: %w", id, err)
	}
	return nil
}

// Layout resolves per-request directories under the configured roots.
type Layout struct {
	BaseDir    string
	WeightsDir string
	UploadDir  string
	PredictDir string

	newID IDGenerator
}

// NewLayout returns a Layout over absolute directory paths.
func NewLayout(baseDir, weightsDir, uploadDir, predictDir string) *Layout {
	return &Layout{
		BaseDir:    baseDir,
		WeightsDir: weightsDir,
		UploadDir:  uploadDir,
		PredictDir: predictDir,
		newID:      NewID,
	}
}

// SetIDGenerator overrides identifier generation (tests).
func (l *Layout) SetIDGenerator(gen IDGenerator) {
	if gen == nil {
		gen = NewID
	}
	l.newID = gen
}

// Ensure creates the weights, upload and predict roots.
func (l *Layout) Ensure() error {
	for _, d := range []string{l.WeightsDir, l.UploadDir, l.PredictDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// SaveUpload stores data as upload/<id>/<name> under a fresh identifier and
// returns the identifier and the number of bytes written. name must already
// be sanitized. A failed write removes the identifier's directory.
func (l *Layout) SaveUpload(name string, data io.Reader) (string, int64, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", 0, fmt.Errorf("invalid upload file name %q", name)
	}
	id := l.newID()
	dir := filepath.Join(l.UploadDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}
	n, err := writeFile(filepath.Join(dir, name), data)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", 0, err
	}
	return id, n, nil
}

func writeFile(path string, data io.Reader) (int64, error) {
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(dst, data)
	if err != nil {
		_ = dst.Close()
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", path, err)
	}
	return n, nil
}

// ResolveUpload returns the path of the file staged under upload/<id>/.
// When several entries exist, the lexically first one wins.
func (l *Layout) ResolveUpload(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	matches, err := filepath.Glob(filepath.Join(l.UploadDir, id, "*"))
	if err != nil {
		return "", fmt.Errorf("glob upload %s: %w", id, err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			return m, nil
		}
	}
	return "", fmt.Errorf("upload %s: %w", id, ErrNotFound)
}

// CreatePrediction allocates predict/<id>/ under a fresh identifier.
func (l *Layout) CreatePrediction() (string, string, error) {
	id := l.newID()
	dir := filepath.Join(l.PredictDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create predict dir: %w", err)
	}
	return id, dir, nil
}

// PredictionDir returns predict/<id>/ and verifies it is an existing directory.
func (l *Layout) PredictionDir(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	dir := filepath.Join(l.PredictDir, id)
	fi, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("prediction %s: %w", id, ErrNotFound)
		}
		return "", err
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("prediction %s is not a directory", id)
	}
	return dir, nil
}

// VisualizationPath is the path the inference process renders its slice image to.
func (l *Layout) VisualizationPath(predictDir string) string {
	return filepath.Join(predictDir, VisualizationFile)
}

// WeightsPath returns the checkpoint path for a weights file name.
func (l *Layout) WeightsPath(file string) string {
	return filepath.Join(l.WeightsDir, file)
}

// ArchivePrefix is the zip entry prefix for a prediction: its directory
// relative to BaseDir, or predict-root-name/<id> when it lies outside.
func (l *Layout) ArchivePrefix(id string) string {
	dir := filepath.Join(l.PredictDir, id)
	if rel, err := filepath.Rel(l.BaseDir, dir); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.Base(l.PredictDir) + "/" + id
}
