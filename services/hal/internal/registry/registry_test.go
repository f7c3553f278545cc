package registry

import (
	"errors"
	"testing"
)

type dummyBuilder struct{}

func (dummyBuilder) Build(in BuildInput) (BuildOutput, error) { return BuildOutput{}, nil }

func TestRegisterAndLookup(t *testing.T) {
	const typ = "test_dummy_builder"
	if _, ok := Lookup(typ); ok {
		t.Skip("builder already registered by earlier test run")
	}
	RegisterBuilder(typ, dummyBuilder{})
	if _, ok := Lookup(typ); !ok {
		t.Fatalf("lookup failed for %q", typ)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	const typ = "test_duplicate_builder"
	if _, ok := Lookup(typ); !ok {
		RegisterBuilder(typ, dummyBuilder{})
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterBuilder(typ, dummyBuilder{})
}

func TestBuilderFunc(t *testing.T) {
	const typ = "test_func_builder"
	boom := errors.New("no spi")
	if _, ok := Lookup(typ); !ok {
		RegisterBuilder(typ, BuilderFunc(func(in BuildInput) (BuildOutput, error) {
			if in.BusRefID != "spi0" {
				return BuildOutput{}, boom
			}
			return BuildOutput{BusID: in.BusRefID}, nil
		}))
	}
	b, _ := Lookup(typ)
	if out, err := b.Build(BuildInput{BusRefType: "spi", BusRefID: "spi0"}); err != nil || out.BusID != "spi0" {
		t.Fatalf("Build = %+v, %v", out, err)
	}
	if _, err := b.Build(BuildInput{BusRefID: "spi9"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
