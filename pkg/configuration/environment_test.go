package configuration

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv_MissingFilesAreSkipped(t *testing.T) {
	tmp := t.TempDir()
	requireWriteFile(t, filepath.Join(tmp, ".env"), "CREWLEDGER_TEST_ENV_LOAD=ok\n")

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	_ = os.Unsetenv("CREWLEDGER_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("CREWLEDGER_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded, got %q", got)
	}
}

func TestMatchingOptionsValidate(t *testing.T) {
	valid := MatchingOptions{FuzzyThreshold: 80, ReviewFloor: 60, NewEntityReviewFloor: 85}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid options, got %v", err)
	}

	outOfRange := MatchingOptions{FuzzyThreshold: 120, ReviewFloor: 60, NewEntityReviewFloor: 85}
	if err := outOfRange.Validate(); err == nil {
		t.Fatal("expected error for out-of-range threshold")
	}

	inverted := MatchingOptions{FuzzyThreshold: 80, ReviewFloor: 70, NewEntityReviewFloor: 65}
	if err := inverted.Validate(); err == nil {
		t.Fatal("expected error for new-entity floor below review floor")
	}
}

func TestDatabaseOptionsConnectionString(t *testing.T) {
	opts := DatabaseOptions{
		Name:     "crewledger",
		Host:     "db.internal",
		Port:     "6432",
		User:     "svc",
		Password: "secret",
	}
	want := "host=db.internal port=6432 user=svc dbname=crewledger password=secret sslmode=disable"
	if got := opts.ConnectionString(); got != want {
		t.Fatalf("connection string mismatch:\n got %q\nwant %q", got, want)
	}
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
