package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	content := `routes:
  - from: SGN
    to: HAN
  - from: SGN
    to: DAD
days_ahead: 30
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{RoutesPath: path}
	routes, err := cfg.LoadRoutes()
	if err != nil {
		t.Fatalf("LoadRoutes: %v", err)
	}
	if len(routes.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes.Routes))
	}
	if routes.Routes[0].From != "SGN" || routes.Routes[0].To != "HAN" {
		t.Errorf("first route = %+v", routes.Routes[0])
	}
	if routes.DaysAhead != 30 {
		t.Errorf("days ahead = %d; want 30", routes.DaysAhead)
	}
}

func TestLoadRoutesDefaultsDaysAhead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	content := "routes:\n  - from: SGN\n    to: HAN\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{RoutesPath: path}
	routes, err := cfg.LoadRoutes()
	if err != nil {
		t.Fatalf("LoadRoutes: %v", err)
	}
	if routes.DaysAhead != 1 {
		t.Errorf("days ahead = %d; want default 1", routes.DaysAhead)
	}
}

func TestLoadRoutesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte("days_ahead: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{RoutesPath: path}
	if _, err := cfg.LoadRoutes(); err == nil {
		t.Error("routes file without routes must fail")
	}
}

func TestLoadRoutesMissingFile(t *testing.T) {
	cfg := &Config{RoutesPath: filepath.Join(t.TempDir(), "nope.yaml")}
	if _, err := cfg.LoadRoutes(); err == nil {
		t.Error("missing routes file must fail")
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "flight_db",
		PostgresSSLMode:  "disable",
	}
	want := "host=db port=5433 user=u password=p dbname=flight_db sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN = %q; want %q", got, want)
	}
}
