package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gabien21/project-airfare/models"
)

// ArtifactStore persists fitted transformers and the trained model as one
// atomic generation: each training run writes a fresh generation directory,
// then swaps the CURRENT pointer file by rename. Readers always load a
// complete, internally consistent set.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore roots the store at dir, creating it if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("artifacts: create dir %q: %w", dir, err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Artifact file names within a generation directory, mirroring the pieces
// the training run produces.
const (
	scalersFile   = "scalers.json"
	encoderFile   = "onehot_encoder.json"
	binarizerFile = "refund_binarizer.json"
	columnsFile   = "columns.json"
	modelFile     = "model.json"
	currentFile   = "CURRENT"
)

// SaveGeneration writes the bundle and model under their generation
// directory and atomically repoints CURRENT at it. The bundle and model
// must carry the same generation tag.
func (as *ArtifactStore) SaveGeneration(set *models.TransformerSet, model *models.TrainedModel) error {
	if set.Generation == "" || set.Generation != model.Generation {
		return fmt.Errorf("artifacts: bundle generation %q and model generation %q must match and be non-empty",
			set.Generation, model.Generation)
	}

	genDir := filepath.Join(as.dir, set.Generation)
	if err := os.MkdirAll(genDir, 0755); err != nil {
		return fmt.Errorf("artifacts: create generation dir: %w", err)
	}

	files := map[string]any{
		scalersFile:   set.Scalers,
		encoderFile:   set.Encoder,
		binarizerFile: set.Refund,
		columnsFile:   set.Columns,
		modelFile:     model,
	}
	for name, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("artifacts: marshal %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(genDir, name), data, 0644); err != nil {
			return fmt.Errorf("artifacts: write %s: %w", name, err)
		}
	}

	// Swap the pointer last, via rename, so in-flight loads never observe a
	// half-written generation.
	tmp := filepath.Join(as.dir, currentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(set.Generation+"\n"), 0644); err != nil {
		return fmt.Errorf("artifacts: write pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(as.dir, currentFile)); err != nil {
		return fmt.Errorf("artifacts: swap pointer: %w", err)
	}
	return nil
}

// LoadCurrent reads the generation CURRENT points at. All pieces must be
// present and carry the same generation tag or the load fails.
func (as *ArtifactStore) LoadCurrent() (*models.TransformerSet, *models.TrainedModel, error) {
	data, err := os.ReadFile(filepath.Join(as.dir, currentFile))
	if err != nil {
		return nil, nil, fmt.Errorf("artifacts: no current generation: %w", err)
	}
	generation := strings.TrimSpace(string(data))
	if generation == "" {
		return nil, nil, fmt.Errorf("artifacts: empty generation pointer")
	}
	genDir := filepath.Join(as.dir, generation)

	set := &models.TransformerSet{Generation: generation}
	if err := readJSON(filepath.Join(genDir, scalersFile), &set.Scalers); err != nil {
		return nil, nil, err
	}
	if err := readJSON(filepath.Join(genDir, encoderFile), &set.Encoder); err != nil {
		return nil, nil, err
	}
	if err := readJSON(filepath.Join(genDir, binarizerFile), &set.Refund); err != nil {
		return nil, nil, err
	}
	if err := readJSON(filepath.Join(genDir, columnsFile), &set.Columns); err != nil {
		return nil, nil, err
	}

	model := &models.TrainedModel{}
	if err := readJSON(filepath.Join(genDir, modelFile), model); err != nil {
		return nil, nil, err
	}
	if model.Generation != generation {
		return nil, nil, fmt.Errorf("artifacts: model generation %q does not match pointer %q",
			model.Generation, generation)
	}
	return set, model, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("artifacts: read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("artifacts: parse %q: %w", path, err)
	}
	return nil
}
