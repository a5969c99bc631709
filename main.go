package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gabien21/project-airfare/config"
	"github.com/Gabien21/project-airfare/modeling"
	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/scraper/abay"
	"github.com/Gabien21/project-airfare/services"
	"github.com/Gabien21/project-airfare/storage"
	"github.com/Gabien21/project-airfare/utils"
)

func main() {
	stage := flag.String("stage", "all", "pipeline stage: scrape | etl | train | predict | cleanup | all")
	loadMode := flag.String("mode", "replace", "table load mode for etl: replace | append")
	requestPath := flag.String("request", "-", "predict: path to a JSON request, or - for stdin")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewFileLogger(cfg.LogPath)
	defer logger.Close()

	logger.Info("=== Airfare Pipeline starting (stage: %s) ===", *stage)

	mode := storage.Replace
	switch *loadMode {
	case "replace":
	case "append":
		mode = storage.Append
	default:
		logger.Error("Unknown load mode %q", *loadMode)
		os.Exit(2)
	}

	var err error
	switch *stage {
	case "scrape":
		err = runScrape(cfg, logger)
	case "etl":
		err = runETL(cfg, logger, mode)
	case "train":
		err = runTrain(cfg, logger)
	case "predict":
		err = runPredict(cfg, logger, *requestPath)
	case "cleanup":
		err = runCleanup(cfg, logger)
	case "all":
		if err = runScrape(cfg, logger); err == nil {
			if err = runETL(cfg, logger, mode); err == nil {
				err = runTrain(cfg, logger)
			}
		}
	default:
		logger.Error("Unknown stage %q", *stage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Stage %s failed: %v", *stage, err)
		os.Exit(1)
	}
	logger.Info("=== Stage %s completed ===", *stage)
}

// runScrape sweeps the configured routes and saves one raw CSV per route.
func runScrape(cfg *config.Config, logger *utils.Logger) error {
	routes, err := cfg.LoadRoutes()
	if err != nil {
		return err
	}

	scraper := abay.New(cfg, logger)
	byRoute, err := scraper.Scrape(routes)
	if err != nil {
		return err
	}

	for routeKey, rows := range byRoute {
		path := rawRoutePath(cfg, routeKey)
		if err := storage.WriteRawCSV(path, rows); err != nil {
			return err
		}
		logger.Info("Raw rows for %s saved to %s", routeKey, path)
	}
	return nil
}

// runETL cleans the latest raw route files, normalizes them into the five
// entity tables, and loads table store, CSV snapshots and option catalog.
func runETL(cfg *config.Config, logger *utils.Logger, mode storage.LoadMode) error {
	routes, err := cfg.LoadRoutes()
	if err != nil {
		return err
	}

	var routeTables [][]*models.RawFlight
	for _, r := range routes.Routes {
		path := rawRoutePath(cfg, r.From+"-"+r.To)
		rows, err := storage.ReadRawCSV(path)
		if err != nil {
			logger.Warn("Skipping route %s-%s: %v", r.From, r.To, err)
			continue
		}
		routeTables = append(routeTables, rows)
	}
	if len(routeTables) == 0 {
		return fmt.Errorf("etl: no raw route files found under %s", cfg.RawDataPath)
	}

	cleaner := services.NewCleaner(logger)
	clean := cleaner.Clean(routeTables...)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		return err
	}
	defer store.Close()

	normalizer := services.NewNormalizer(logger)
	var tables *models.NormalizedTables
	if mode == storage.Append {
		// Incremental load: merge against persisted dimensions so existing
		// airline ids are never re-minted.
		existingAirports, err := store.FetchAirports()
		if err != nil {
			return err
		}
		existingAirlines, err := store.FetchAirlines()
		if err != nil {
			return err
		}
		tables = normalizer.NormalizeWithExisting(clean, existingAirports, existingAirlines)
	} else {
		tables = normalizer.Normalize(clean)
	}

	combinedPath := filepath.Join(cfg.CleanDataPath, "flight_prices_combined_cleaned.csv")
	if err := storage.WriteCleanCSV(combinedPath, clean); err != nil {
		return err
	}
	logger.Info("Combined clean data saved to %s", combinedPath)

	tablesDir := filepath.Join(cfg.CleanDataPath, "flight_prices")
	if err := storage.WriteTableCSVs(tablesDir, tables); err != nil {
		return err
	}
	logger.Info("Normalized table snapshots saved to %s", tablesDir)

	if err := store.WriteTables(tables, mode); err != nil {
		return err
	}
	logger.Info("Tables loaded into PostgreSQL (mode: %v)", modeName(mode))

	optionSvc := services.NewOptionService(logger)
	catalog := optionSvc.Generate(clean)
	if err := optionSvc.WriteJSON(catalog, filepath.Join(tablesDir, "options.json")); err != nil {
		return err
	}

	optionSvc.PrintSummary(clean)
	return nil
}

// runTrain joins the fact tables, fits the transformer bundle, selects the
// best regressor by K-fold CV, and persists one atomic artifact generation.
func runTrain(cfg *config.Config, logger *utils.Logger) error {
	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		return err
	}
	defer store.Close()

	joined, err := store.FetchJoined()
	if err != nil {
		return err
	}
	logger.Info("Loaded %d joined rows for training", len(joined))

	generation := time.Now().Format("20060102_150405")
	builder := services.NewFeatureBuilder(logger)
	set, matrix, err := builder.Fit(joined, generation)
	if err != nil {
		return err
	}

	// Split the matrix: target column is last by contract.
	X := make([][]float64, len(matrix.Rows))
	y := make([]float64, len(matrix.Rows))
	for i, row := range matrix.Rows {
		X[i] = row[:len(row)-1]
		y[i] = row[len(row)-1]
	}

	selector := modeling.NewSelector(5, logger)
	results, err := selector.Run(modeling.DefaultGrids(), X, y)
	if err != nil {
		return err
	}
	best := modeling.Best(results)
	logger.Info("Best model: %s (R2 %.4f, RMSE %.2f)", best.Name, best.MeanR2, best.MeanRMSE)

	linear, ok := best.Model.(modeling.Linear)
	if !ok {
		return fmt.Errorf("train: selected model %s cannot be persisted as a linear form", best.Name)
	}
	if err := linear.Fit(X, y); err != nil {
		return fmt.Errorf("train: final fit: %w", err)
	}
	intercept, weights := linear.Coefficients()

	model := &models.TrainedModel{
		Name:       best.Name,
		Generation: generation,
		Intercept:  intercept,
		Weights:    weights,
		MeanR2:     best.MeanR2,
		MeanRMSE:   best.MeanRMSE,
	}

	artifacts, err := storage.NewArtifactStore(cfg.ArtifactsPath)
	if err != nil {
		return err
	}
	if err := artifacts.SaveGeneration(set, model); err != nil {
		return err
	}
	logger.Info("Artifact generation %s saved to %s", generation, cfg.ArtifactsPath)
	return nil
}

// runPredict scores one JSON request against the current artifact generation.
func runPredict(cfg *config.Config, logger *utils.Logger, requestPath string) error {
	var data []byte
	var err error
	if requestPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(requestPath)
	}
	if err != nil {
		return fmt.Errorf("predict: read request: %w", err)
	}

	var req models.PredictionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("predict: parse request: %w", err)
	}

	artifacts, err := storage.NewArtifactStore(cfg.ArtifactsPath)
	if err != nil {
		return err
	}
	set, model, err := artifacts.LoadCurrent()
	if err != nil {
		return err
	}

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		return err
	}
	defer store.Close()

	predictor, err := services.NewPredictor(store, set, model, logger)
	if err != nil {
		return err
	}
	price, err := predictor.Predict(&req)
	if err != nil {
		return err
	}

	fmt.Printf("predicted_price %d\n", price)
	return nil
}

// runCleanup prunes tickets older than three months, orphan schedules, and
// dimension duplicates left by append-mode loads.
func runCleanup(cfg *config.Config, logger *utils.Logger) error {
	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		return err
	}
	defer store.Close()

	cutoff := time.Now().AddDate(0, -3, 0)
	logger.Info("Cutoff date for deletion: %s", cutoff.Format("2006-01-02 15:04:05"))

	deleted, err := store.Cleanup(cutoff)
	if err != nil {
		return err
	}
	logger.Info("Cleanup done — removed %d old ticket(s)", deleted)
	return nil
}

// rawRoutePath maps "SGN-HAN" to data/raw/flight_prices_SGN_to_HAN.csv.
func rawRoutePath(cfg *config.Config, routeKey string) string {
	name := "flight_prices_" + strings.Replace(routeKey, "-", "_to_", 1) + ".csv"
	return filepath.Join(cfg.RawDataPath, name)
}

func modeName(mode storage.LoadMode) string {
	if mode == storage.Append {
		return "append"
	}
	return "replace"
}
