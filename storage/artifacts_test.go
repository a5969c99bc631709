package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Gabien21/project-airfare/models"
)

func bundleFixture(generation string) (*models.TransformerSet, *models.TrainedModel) {
	set := &models.TransformerSet{
		Generation: generation,
		Scalers: map[string]models.StandardScaler{
			"Flight_Duration": {Mean: 1.8, Std: 0.4},
			"Total_Price":     {Mean: 2450000, Std: 1274754.9},
		},
		Encoder: models.OneHotEncoder{
			Columns:    []string{"Fare_Class"},
			Categories: map[string][]string{"Fare_Class": {"Eco", "Pho_thong"}},
		},
		Refund:  models.MultiLabelBinarizer{Classes: []string{"Khong_hoan_ve"}},
		Columns: []string{"Flight_Duration", "Fare_Class_Eco", "Fare_Class_Pho_thong", "Khong_hoan_ve", "Total_Price"},
	}
	model := &models.TrainedModel{
		Name:       "LinearRegression",
		Generation: generation,
		Intercept:  0.2,
		Weights:    []float64{0.5, -0.1, 0.3, 0.05},
		MeanR2:     0.91,
		MeanRMSE:   210000,
	}
	return set, model
}

func TestArtifactRoundTrip(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}

	set, model := bundleFixture("20250622_090000")
	if err := store.SaveGeneration(set, model); err != nil {
		t.Fatalf("SaveGeneration: %v", err)
	}

	gotSet, gotModel, err := store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if gotSet.Generation != set.Generation {
		t.Errorf("generation = %q; want %q", gotSet.Generation, set.Generation)
	}
	if !reflect.DeepEqual(gotSet.Scalers, set.Scalers) {
		t.Errorf("scalers differ:\n%+v\n%+v", gotSet.Scalers, set.Scalers)
	}
	if !reflect.DeepEqual(gotSet.Encoder, set.Encoder) {
		t.Errorf("encoder differs")
	}
	if !reflect.DeepEqual(gotSet.Columns, set.Columns) {
		t.Errorf("columns differ: %v vs %v", gotSet.Columns, set.Columns)
	}
	if !reflect.DeepEqual(gotModel, model) {
		t.Errorf("model differs:\n%+v\n%+v", gotModel, model)
	}
}

func TestSaveGenerationMismatch(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	set, model := bundleFixture("g1")
	model.Generation = "g2"
	if err := store.SaveGeneration(set, model); err == nil {
		t.Error("mismatched generations must not be persisted")
	}

	set.Generation, model.Generation = "", ""
	if err := store.SaveGeneration(set, model); err == nil {
		t.Error("empty generation must not be persisted")
	}
}

func TestCurrentPointerSwap(t *testing.T) {
	dir := t.TempDir()
	store, err := NewArtifactStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	set1, model1 := bundleFixture("gen_a")
	if err := store.SaveGeneration(set1, model1); err != nil {
		t.Fatalf("save gen_a: %v", err)
	}
	set2, model2 := bundleFixture("gen_b")
	set2.Scalers["Flight_Duration"] = models.StandardScaler{Mean: 2.0, Std: 0.5}
	if err := store.SaveGeneration(set2, model2); err != nil {
		t.Fatalf("save gen_b: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "CURRENT"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "gen_b" {
		t.Errorf("pointer = %q; want gen_b", got)
	}

	gotSet, _, err := store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if gotSet.Scalers["Flight_Duration"].Mean != 2.0 {
		t.Errorf("LoadCurrent returned the old generation")
	}

	// The superseded generation stays on disk for rollback.
	if _, err := os.Stat(filepath.Join(dir, "gen_a", "model.json")); err != nil {
		t.Errorf("previous generation should remain: %v", err)
	}
}

func TestLoadCurrentWithoutPointer(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.LoadCurrent(); err == nil {
		t.Error("empty store must fail to load")
	}
}

func TestLoadCurrentStaleModel(t *testing.T) {
	dir := t.TempDir()
	store, err := NewArtifactStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	set, model := bundleFixture("gen_a")
	if err := store.SaveGeneration(set, model); err != nil {
		t.Fatal(err)
	}

	// A model file from another run inside the generation dir must be caught.
	bad := []byte(`{"name":"LinearRegression","generation":"gen_x","intercept":0,"weights":[]}`)
	if err := os.WriteFile(filepath.Join(dir, "gen_a", "model.json"), bad, 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.LoadCurrent(); err == nil {
		t.Error("model generation mismatch must fail the load")
	}
}
