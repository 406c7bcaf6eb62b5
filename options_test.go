package pagekit_test

import (
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/lvillar/pagekit"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := pagekit.NewConfig()
	if cfg.Dirs != nil {
		t.Errorf("Dirs = %v, want nil", cfg.Dirs)
	}
	if cfg.Logger == nil || cfg.Now == nil {
		t.Fatal("logger and clock must be set")
	}
	if cfg.CompressionLevel != zlib.DefaultCompression {
		t.Errorf("CompressionLevel = %d", cfg.CompressionLevel)
	}
	if cfg.DefaultPageSize != pagekit.PageSizeA4 {
		t.Errorf("DefaultPageSize = %v", cfg.DefaultPageSize)
	}
	if cfg.Validate {
		t.Error("validation should be off by default")
	}
}

func TestNewConfigOptions(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 9, 30, 5, 0, time.UTC)
	cfg := pagekit.NewConfig(
		pagekit.WithClock(func() time.Time { return fixed }),
		pagekit.WithCompressionLevel(zlib.BestSpeed),
		pagekit.WithValidation(true),
		pagekit.WithDefaultPageSize(pagekit.PageSizeLetter),
	)
	if !cfg.Now().Equal(fixed) {
		t.Errorf("Now() = %v", cfg.Now())
	}
	if cfg.CompressionLevel != zlib.BestSpeed {
		t.Errorf("CompressionLevel = %d", cfg.CompressionLevel)
	}
	if !cfg.Validate {
		t.Error("Validate = false")
	}
	if cfg.DefaultPageSize != pagekit.PageSizeLetter {
		t.Errorf("DefaultPageSize = %v", cfg.DefaultPageSize)
	}
}

func TestNewConfigClamps(t *testing.T) {
	cfg := pagekit.NewConfig(
		pagekit.WithCompressionLevel(42),
		pagekit.WithDefaultPageSize(pagekit.SizeType{Wd: -1, Ht: 10}),
		pagekit.WithClock(nil),
	)
	if cfg.CompressionLevel != zlib.DefaultCompression {
		t.Errorf("CompressionLevel = %d, want default", cfg.CompressionLevel)
	}
	if cfg.DefaultPageSize != pagekit.PageSizeA4 {
		t.Errorf("DefaultPageSize = %v, want A4", cfg.DefaultPageSize)
	}
	if cfg.Now == nil {
		t.Error("nil clock not replaced")
	}
}

func TestPageSizeByName(t *testing.T) {
	tests := []struct {
		name string
		want pagekit.SizeType
		ok   bool
	}{
		{"A4", pagekit.PageSizeA4, true},
		{"letter", pagekit.PageSizeLetter, true},
		{"LEGAL", pagekit.PageSizeLegal, true},
		{"a3", pagekit.PageSizeA3, true},
		{"B5", pagekit.SizeType{}, false},
	}
	for _, tt := range tests {
		got, ok := pagekit.PageSizeByName(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PageSizeByName(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLandscape(t *testing.T) {
	l := pagekit.PageSizeA4.Landscape()
	if l.Wd != pagekit.PageSizeA4.Ht || l.Ht != pagekit.PageSizeA4.Wd {
		t.Errorf("Landscape() = %v", l)
	}
	if l.Landscape() != l {
		t.Error("Landscape should be idempotent")
	}
	if (pagekit.SizeType{}).Valid() {
		t.Error("zero size reported valid")
	}
}
