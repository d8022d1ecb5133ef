package migrations

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	seen := map[string]int{}
	for _, name := range names {
		base := strings.TrimSuffix(strings.TrimSuffix(name, ".up.sql"), ".down.sql")
		seen[base]++
	}
	for base, n := range seen {
		if n != 2 {
			t.Fatalf("migration %s needs both up and down files", base)
		}
	}
}

func TestSourceDriverWalksVersions(t *testing.T) {
	src, err := iofs.New(FS, ".")
	if err != nil {
		t.Fatalf("source driver: %v", err)
	}
	defer func() { _ = src.Close() }()

	version, err := src.First()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	var versions []uint
	for {
		versions = append(versions, version)
		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			t.Fatalf("next after %d: %v", version, err)
		}
		version = next
	}
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("unexpected versions %v", versions)
	}
}
