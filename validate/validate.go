// Package validate checks produced documents with pdfcpu, a parser that
// shares no code with the reader and writer packages.
package validate

import (
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/lvillar/pagekit"
)

var configOnce sync.Once

// config returns a relaxed pdfcpu configuration that never touches the
// user's configuration directory.
func config() *model.Configuration {
	configOnce.Do(func() {
		model.ConfigPath = "disable"
	})
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// File validates the document at path.
func File(path string) error {
	if err := api.ValidateFile(path, config()); err != nil {
		return fmt.Errorf("validate: %s: %w: %w", path, pagekit.ErrValidation, err)
	}
	return nil
}

// PageCount returns the page count of path as seen by pdfcpu.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("validate: %s: %w: %w", path, pagekit.ErrValidation, err)
	}
	return n, nil
}

// Pages validates path and checks that it has want pages.
func Pages(path string, want int) error {
	if err := File(path); err != nil {
		return err
	}
	got, err := PageCount(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("validate: %s has %d pages, want %d: %w", path, got, want, pagekit.ErrValidation)
	}
	return nil
}
