package registry

import (
	"testing"

	"IndexDeviation/internal/errs"
	"IndexDeviation/internal/model"
)

var defaults = []model.IndexSpec{
	{DisplayName: "港股-恒生指数", Category: model.CategoryCrossBorder, SymbolCode: "HSI"},
	{DisplayName: "A股-上证指数", Category: model.CategoryDomestic, SymbolCode: "sh000001"},
	{DisplayName: "A股-创业板指", Category: model.CategoryDomestic, SymbolCode: "sz399006"},
}

func TestResolve(t *testing.T) {
	r, err := New(defaults)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := r.Resolve("A股-创业板指")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Category != model.CategoryDomestic || s.SymbolCode != "sz399006" {
		t.Errorf("unexpected spec: %+v", s)
	}

	if _, err := r.Resolve("A股-不存在"); !errs.IsConfiguration(err) {
		t.Errorf("expected configuration error for unknown index, got %v", err)
	}
}

func TestAllKeepsOrder(t *testing.T) {
	r, err := New(defaults)
	if err != nil {
		t.Fatal(err)
	}
	all := r.All()
	if len(all) != len(defaults) || r.Len() != len(defaults) {
		t.Fatalf("expected %d specs, got %d", len(defaults), len(all))
	}
	for i := range all {
		if all[i] != defaults[i] {
			t.Errorf("position %d: got %v, want %v", i, all[i], defaults[i])
		}
	}
	all[0].SymbolCode = "mutated"
	if r.All()[0].SymbolCode != "HSI" {
		t.Error("All must return a copy")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		specs []model.IndexSpec
	}{
		{"empty", nil},
		{"blank name", []model.IndexSpec{{DisplayName: " ", Category: model.CategoryDomestic, SymbolCode: "sh000001"}}},
		{"blank code", []model.IndexSpec{{DisplayName: "A股-上证指数", Category: model.CategoryDomestic}}},
		{"bad category", []model.IndexSpec{{DisplayName: "A股-上证指数", Category: "US", SymbolCode: "sh000001"}}},
		{"duplicate", []model.IndexSpec{defaults[1], defaults[1]}},
	}
	for _, tt := range tests {
		if _, err := New(tt.specs); !errs.IsConfiguration(err) {
			t.Errorf("%s: expected configuration error, got %v", tt.name, err)
		}
	}
}

func TestSelect(t *testing.T) {
	r, _ := New(defaults)
	got, err := r.Select([]string{"A股-创业板指", "港股-恒生指数"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].SymbolCode != "sz399006" || got[1].SymbolCode != "HSI" {
		t.Errorf("unexpected selection: %v", got)
	}
	if all, _ := r.Select(nil); len(all) != 3 {
		t.Errorf("empty selection should return all, got %d", len(all))
	}
	if _, err := r.Select([]string{"nope"}); !errs.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
