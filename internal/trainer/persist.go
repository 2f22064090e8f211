package trainer

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/telmetric/churnsight/internal/common"
)

// artifactVersion guards model artifacts against format drift: artifacts
// written by a different version refuse to load instead of decoding
// garbage.
const artifactVersion = 1

// artifact is the on-disk envelope around a Model.
type artifact struct {
	Model   Model
	Version int
}

// Save writes the model as a versioned gob blob at path, creating parent
// directories as needed. Training is expensive, so artifacts are written
// once and reloaded on later runs.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model artifact: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(artifact{Model: *m, Version: artifactVersion}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode model artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close model artifact: %w", err)
	}
	return nil
}

// LoadModel reads a model artifact written by Save. A version mismatch is
// an explicit error telling the caller to retrain rather than a decode
// failure.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model artifact: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact %s: %w", path, err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("%s has version %d, want %d (retrain to refresh): %w",
			path, a.Version, artifactVersion, common.ErrArtifactVersion)
	}
	return &a.Model, nil
}
