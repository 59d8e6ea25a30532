package api

import (
	"net/url"
	"testing"

	"github.com/bytepress/bytepress/internal/format"
	"github.com/bytepress/bytepress/internal/processor"
)

func TestParseImageOptions_Target(t *testing.T) {
	q := url.Values{}
	q.Set("target_kb", "200")
	q.Set("quality", "80")
	q.Set("format", "webp")

	opts, err := parseImageOptions(q)
	if err != nil {
		t.Fatalf("parseImageOptions() error = %v", err)
	}
	if opts.TargetSizeBytes != 200*1024 {
		t.Errorf("TargetSizeBytes = %d, want %d", opts.TargetSizeBytes, 200*1024)
	}
	if opts.Quality != 80 {
		t.Errorf("Quality = %d, want 80", opts.Quality)
	}
	if opts.Format != format.WEBP {
		t.Errorf("Format = %v, want WEBP", opts.Format)
	}
}

func TestParseImageOptions_Preset(t *testing.T) {
	q := url.Values{}
	q.Set("preset", "email")

	opts, err := parseImageOptions(q)
	if err != nil {
		t.Fatalf("parseImageOptions() error = %v", err)
	}
	if opts.TargetSizeBytes != 100*1024 {
		t.Errorf("TargetSizeBytes = %d, want %d for the email preset", opts.TargetSizeBytes, 100*1024)
	}
	if opts.Quality != 85 {
		t.Errorf("Quality = %d, want 85", opts.Quality)
	}
}

func TestParseImageOptions_ExplicitTargetOverridesPreset(t *testing.T) {
	q := url.Values{}
	q.Set("preset", "email")
	q.Set("target_kb", "50")

	opts, err := parseImageOptions(q)
	if err != nil {
		t.Fatalf("parseImageOptions() error = %v", err)
	}
	if opts.TargetSizeBytes != 50*1024 {
		t.Errorf("TargetSizeBytes = %d, want explicit 50KB to win", opts.TargetSizeBytes)
	}
}

func TestParseImageOptions_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad preset", "preset", "gigantic"},
		{"zero target", "target_kb", "0"},
		{"negative target", "target_kb", "-5"},
		{"percent too high", "target_percent", "100"},
		{"percent zero", "target_percent", "0"},
		{"tolerance too high", "tolerance", "0.6"},
		{"unknown format", "format", "tiff"},
		{"quality too high", "quality", "101"},
		{"quality zero", "quality", "0"},
		{"width too large", "width", "20000"},
		{"width zero", "width", "0"},
		{"bad fit", "fit", "stretch"},
		{"negative crop", "crop_x", "-1"},
		{"bad angle", "angle", "45"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			q.Set(tt.key, tt.value)
			if _, err := parseImageOptions(q); err == nil {
				t.Errorf("parseImageOptions(%s=%s) succeeded, want error", tt.key, tt.value)
			}
		})
	}
}

func TestParseImageOptions_Empty(t *testing.T) {
	opts, err := parseImageOptions(url.Values{})
	if err != nil {
		t.Fatalf("parseImageOptions(empty) error = %v", err)
	}
	if *opts != (processor.Options{}) {
		t.Errorf("empty query should produce zero options, got %+v", opts)
	}
}

func TestResultKey(t *testing.T) {
	data := []byte("payload")
	a := resultKey(data, "compress", &processor.Options{TargetSizeBytes: 1000})
	b := resultKey(data, "compress", &processor.Options{TargetSizeBytes: 1000})
	if a != b {
		t.Error("same input and options should produce the same key")
	}
	if len(a) != 32 {
		t.Errorf("key length = %d, want 32", len(a))
	}

	c := resultKey(data, "compress", &processor.Options{TargetSizeBytes: 2000})
	if a == c {
		t.Error("different options should produce different keys")
	}

	d := resultKey(data, "resize", &processor.Options{TargetSizeBytes: 1000})
	if a == d {
		t.Error("different operations should produce different keys")
	}

	e := resultKey([]byte("other"), "compress", &processor.Options{TargetSizeBytes: 1000})
	if a == e {
		t.Error("different payloads should produce different keys")
	}
}
