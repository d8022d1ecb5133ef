package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  int
	version uint
	verErr  error
}

func (f *fakeMigrator) Up() error                    { return f.upErr }
func (f *fakeMigrator) Steps(n int) error            { f.steps = append(f.steps, n); return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, f.verErr }
func (f *fakeMigrator) Force(v int) error            { f.forced = v; return nil }

func TestRunUpIgnoresNoChange(t *testing.T) {
	if err := run(&fakeMigrator{upErr: migrate.ErrNoChange}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := run(&fakeMigrator{upErr: errors.New("boom")}, []string{"up"}); err == nil {
		t.Fatalf("expected up failure to surface")
	}
}

func TestRunDownStepsBackOnce(t *testing.T) {
	m := &fakeMigrator{}
	if err := run(m, []string{"down"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.steps) != 1 || m.steps[0] != -1 {
		t.Fatalf("expected a single -1 step, got %v", m.steps)
	}
}

func TestRunForce(t *testing.T) {
	m := &fakeMigrator{}
	if err := run(m, []string{"force", "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.forced != 2 {
		t.Fatalf("expected forced version 2, got %d", m.forced)
	}
	if err := run(m, []string{"force"}); err == nil {
		t.Fatalf("expected error without version")
	}
	if err := run(m, []string{"force", "x"}); err == nil {
		t.Fatalf("expected error for bad version")
	}
}

func TestRunVersionWithoutMigrations(t *testing.T) {
	if err := run(&fakeMigrator{verErr: migrate.ErrNilVersion}, []string{"version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := run(&fakeMigrator{}, []string{"sideways"}); err == nil {
		t.Fatalf("expected unknown command error")
	}
}
