package processor

import (
	"context"
	"errors"
	"io"
	"testing"
)

type fakeProcessor struct {
	name  string
	types []string
}

func (f *fakeProcessor) Name() string             { return f.name }
func (f *fakeProcessor) SupportedTypes() []string { return f.types }
func (f *fakeProcessor) Process(ctx context.Context, opts *Options, input io.Reader) (*Result, error) {
	return &Result{}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProcessor{name: "compress", types: []string{"image/jpeg", "image/png"}})

	p, err := r.Get("compress")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Name() != "compress" {
		t.Errorf("Name() = %q, want compress", p.Name())
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Get(unknown) = %v, want ErrUnsupportedType", err)
	}
}

func TestRegistry_Accepts(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProcessor{name: "compress", types: []string{"image/jpeg"}})

	if !r.Accepts("image/jpeg") {
		t.Error("Accepts(image/jpeg) = false, want true")
	}
	if r.Accepts("video/mp4") {
		t.Error("Accepts(video/mp4) = true, want false")
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProcessor{name: "compress"})
	r.Register(&fakeProcessor{name: "resize"})

	names := r.List()
	if len(names) != 2 {
		t.Errorf("List() returned %d names, want 2", len(names))
	}
}
