package db

import (
	"strings"
	"testing"
)

func venueIndex(t *testing.T) *IndexDefinition {
	t.Helper()
	idx, err := NewIndex("cospa:venues").
		Prefix("venue:").
		Text("name", "address").
		Tag("type", "city").
		Numeric("lat", "lng", "rating").
		Vector("embedding", 384, VectorHNSW, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return idx
}

func TestIndexBuilder_Fields(t *testing.T) {
	idx := venueIndex(t)

	if idx.Name != "cospa:venues" {
		t.Errorf("name = %q", idx.Name)
	}
	if len(idx.Fields) != 8 {
		t.Fatalf("fields count = %d, want 8", len(idx.Fields))
	}
	if idx.Fields[2].Name != "type" || idx.Fields[2].Type != IndexFieldTag {
		t.Errorf("field[2] = %+v, want type TAG", idx.Fields[2])
	}
	v := idx.Fields[7]
	if v.Type != IndexFieldVector || v.VectorDim != 384 || v.VectorM != 16 {
		t.Errorf("vector field = %+v", v)
	}
}

func TestIndexDefinition_Args(t *testing.T) {
	args, err := venueIndex(t).Args()
	if err != nil {
		t.Fatalf("Args() error: %v", err)
	}
	got := strings.Join(args, " ")
	for _, want := range []string{
		"cospa:venues ON HASH PREFIX 1 venue: SCHEMA",
		"name TEXT address TEXT",
		"type TAG city TAG",
		"lat NUMERIC",
		"embedding VECTOR HNSW 10 TYPE FLOAT32 DIM 384 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("args %q missing %q", got, want)
		}
	}
}

func TestIndexDefinition_ArgsFlatDefaults(t *testing.T) {
	idx := &IndexDefinition{
		Name:   "flat",
		Fields: []IndexField{{Name: "v", Type: IndexFieldVector, VectorAlgo: VectorFlat, VectorDim: 4, VectorM: 16}},
	}
	args, err := idx.Args()
	if err != nil {
		t.Fatalf("Args() error: %v", err)
	}
	got := strings.Join(args, " ")
	if !strings.HasSuffix(got, "v VECTOR FLAT 6 TYPE FLOAT32 DIM 4 DISTANCE_METRIC COSINE") {
		t.Errorf("flat args = %q", got)
	}
}

func TestIndexBuilder_Validation(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Tag("a")},
		{"bad name", NewIndex("has space").Tag("a")},
		{"no fields", NewIndex("idx")},
		{"duplicate", NewIndex("idx").Tag("a").Numeric("a")},
		{"zero dim", NewIndex("idx").Vector("v", 0, VectorHNSW, DistanceCosine, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	s := venueIndex(t).String()
	if !strings.HasPrefix(s, "FT.CREATE cospa:venues ON HASH") {
		t.Errorf("String() = %q", s)
	}
	bad := &IndexDefinition{}
	if !strings.Contains(bad.String(), "invalid") {
		t.Errorf("String() on invalid def = %q", bad.String())
	}
}

func TestParseVectorAlgorithm(t *testing.T) {
	for in, want := range map[string]VectorAlgorithm{"": VectorHNSW, "hnsw": VectorHNSW, "flat": VectorFlat} {
		got, err := ParseVectorAlgorithm(in)
		if err != nil || got != want {
			t.Errorf("ParseVectorAlgorithm(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseVectorAlgorithm("ivf"); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestIsValidIdentifier(t *testing.T) {
	if !IsValidIdentifier("cospa:venues-v2_1") {
		t.Error("expected valid")
	}
	if IsValidIdentifier("") || IsValidIdentifier("a b") || IsValidIdentifier("phở") {
		t.Error("expected invalid")
	}
}
