package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-user-cache/users"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadUsers reads a JSON array of users. IDs in the fixture are cleared so
// the store under test assigns them.
func LoadUsers(t testing.TB, path string) []*users.User {
	t.Helper()

	var records []*users.User
	LoadFixtureJSON(t, path, &records)
	for _, u := range records {
		u.ID = 0
	}
	return records
}

// SeedUsers inserts records into store in order and fails the test on the first error.
func SeedUsers(t testing.TB, ctx context.Context, store users.Store, records []*users.User) {
	t.Helper()

	for _, u := range records {
		if err := store.Insert(ctx, u); err != nil {
			t.Fatalf("failed to seed user %q: %v", u.Username, err)
		}
	}
}

// TempFile writes content to name inside a per-test temporary directory and
// returns its path. The directory is removed when the test ends.
func TempFile(t testing.TB, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write temp file %s: %v", path, err)
	}
	return path
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}
