package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "snapshot store unavailable")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped error to match its cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsResolvesNestedError(t *testing.T) {
	inner := New(CodeNotFound, "campaign missing")
	outer := fmt.Errorf("fetch campaign: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error to be found")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_metric_snapshots",
		TableName:      "metric_snapshots",
	}
	err := fmt.Errorf("create snapshot: %w", pgErr)

	dump := Dump(err)
	if dump.PGCode != "23505" {
		t.Fatalf("expected pg code 23505, got %q", dump.PGCode)
	}
	if dump.PGConstraint != "ux_metric_snapshots" {
		t.Fatalf("unexpected constraint %q", dump.PGConstraint)
	}
	if len(dump.Chain) == 0 {
		t.Fatal("expected error chain to be captured")
	}
}
