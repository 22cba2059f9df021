package registry

import (
	"errors"
	"reflect"
	"testing"

	"github.com/modelarena/modelarena/internal/provider"
)

func TestRegisterAndGet(t *testing.T) {
	r := New()
	m := &provider.MockModel{ModelID: "model-a", Response: "ok"}

	if err := r.Register(m); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := r.Get("model-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != provider.Model(m) {
		t.Error("Get returned a different instance than was registered")
	}
}

func TestGetUnknownModel(t *testing.T) {
	r := New()
	_, err := r.Get("nope")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	if err := r.Register(&provider.MockModel{ModelID: "model-a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(&provider.MockModel{ModelID: "model-a"})
	if !errors.Is(err, ErrDuplicateModel) {
		t.Errorf("err = %v, want ErrDuplicateModel", err)
	}
	// First registration survives.
	got, err := r.Get("model-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID() != "model-a" {
		t.Errorf("ID = %s, want model-a", got.ID())
	}
}

func TestIDsSorted(t *testing.T) {
	r := New()
	for _, id := range []string{"zulu", "alpha", "mike"} {
		if err := r.Register(&provider.MockModel{ModelID: id}); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}
	want := []string{"alpha", "mike", "zulu"}
	if got := r.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestInfo(t *testing.T) {
	r := New()
	m := &provider.MockModel{
		ModelID:      "model-a",
		ProviderName: "google",
		Rates:        provider.Pricing{InputPer1K: 0.001, OutputPer1K: 0.002},
	}
	if err := r.Register(m); err != nil {
		t.Fatal(err)
	}

	info, err := r.Info("model-a")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Provider != "google" || info.Pricing.OutputPer1K != 0.002 {
		t.Errorf("Info = %+v", info)
	}

	if _, err := r.Info("missing"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Info(missing) err = %v, want ErrUnknownModel", err)
	}
}
