package validate_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pagekit"
	"github.com/lvillar/pagekit/validate"
)

func TestValidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.pdf")
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()
	pdf.Text(20, 20, "one")
	pdf.AddPage()
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("creating PDF: %v", err)
	}

	if err := validate.Pages(path, 2); err != nil {
		t.Errorf("Pages: %v", err)
	}
	if err := validate.Pages(path, 3); !errors.Is(err, pagekit.ErrValidation) {
		t.Errorf("wrong count: expected ErrValidation, got %v", err)
	}
}

func TestInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	os.WriteFile(path, []byte("%PDF-1.4\ngarbage"), 0o644)

	if err := validate.File(path); !errors.Is(err, pagekit.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
