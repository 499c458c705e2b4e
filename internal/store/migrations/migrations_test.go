package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
)

func TestEmbeddedScriptsDeclareConstraints(test *testing.T) {
	test.Parallel()
	raw, err := fs.ReadFile(Files(), "sql/00001_init.sql")
	if err != nil {
		test.Fatalf("read: %v", err)
	}
	script := string(raw)
	for _, fragment := range []string{
		"-- +goose Up",
		"-- +goose Down",
		"uniq_vehicles_vin",
		"uniq_orders_reference",
		"uniq_payments_checkout",
		"ON DELETE CASCADE",
	} {
		if !strings.Contains(script, fragment) {
			test.Fatalf("expected migration to contain %q", fragment)
		}
	}
}

func TestRunRequiresDSN(test *testing.T) {
	test.Parallel()
	if err := Run(context.Background(), ""); !errors.Is(err, errEmptyDSN) {
		test.Fatalf("expected errEmptyDSN, got %v", err)
	}
}

func TestUpUsesEmbeddedDirectory(test *testing.T) {
	original := gooseUpContext
	defer func() { gooseUpContext = original }()
	var seenDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		seenDir = dir
		return errors.New("boom")
	}
	err := Up(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		test.Fatalf("expected wrapped goose error, got %v", err)
	}
	if seenDir != directory {
		test.Fatalf("expected directory %q, got %q", directory, seenDir)
	}
}
