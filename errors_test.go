package pagekit_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lvillar/pagekit"
)

func TestOpErrorUnwrap(t *testing.T) {
	err := pagekit.NewOpError("DeletePages", "/tmp/a.pdf", pagekit.ErrOutOfRange)
	if !errors.Is(err, pagekit.ErrOutOfRange) {
		t.Fatalf("errors.Is(%v, ErrOutOfRange) = false", err)
	}

	var oe *pagekit.OpError
	if !errors.As(err, &oe) {
		t.Fatal("errors.As did not find *OpError")
	}
	if oe.Op != "DeletePages" || oe.Path != "/tmp/a.pdf" {
		t.Errorf("OpError = %+v", oe)
	}
	if got := err.Error(); !strings.Contains(got, "DeletePages") || !strings.Contains(got, "/tmp/a.pdf") {
		t.Errorf("Error() = %q", got)
	}
}

func TestNewOpErrorNil(t *testing.T) {
	if err := pagekit.NewOpError("Rotate", "x.pdf", nil); err != nil {
		t.Errorf("NewOpError(nil) = %v, want nil", err)
	}
}

func TestNewOpErrorSameOp(t *testing.T) {
	inner := pagekit.NewOpError("MergeDocuments", "", pagekit.ErrNoDocumentsToMerge)
	outer := pagekit.NewOpError("MergeDocuments", "", inner)
	if outer != inner {
		t.Errorf("same-op wrap should return the original error, got %v", outer)
	}

	wrapped := pagekit.NewOpError("SplitAllPages", "b.pdf", inner)
	if wrapped == inner {
		t.Error("different op should wrap")
	}
	if !errors.Is(wrapped, pagekit.ErrNoDocumentsToMerge) {
		t.Error("wrapped error lost its sentinel")
	}
}

func TestOpErrorNoPath(t *testing.T) {
	err := &pagekit.OpError{Op: "MergeDocuments", Err: fmt.Errorf("%w: empty list", pagekit.ErrNoDocumentsToMerge)}
	want := "pagekit.MergeDocuments: pagekit: no documents to merge: empty list"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
