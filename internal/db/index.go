package db

import (
	"errors"
	"strconv"
)

// StorageHash is the only storage type the venue index uses.
const StorageHash = "HASH"

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type VectorAlgorithm string

// Supported vector algorithms.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// ParseVectorAlgorithm maps a config value onto an algorithm, defaulting to HNSW.
func ParseVectorAlgorithm(s string) (VectorAlgorithm, error) {
	switch s {
	case "", "hnsw", "HNSW":
		return VectorHNSW, nil
	case "flat", "FLAT":
		return VectorFlat, nil
	}
	return "", errors.New("unknown vector algorithm: " + s)
}

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

// Field types.
const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
	IndexFieldVector
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name string
	Type IndexFieldType

	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int // HNSW max edges per node
	VectorEFConstruct int // HNSW build-time candidate list size
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name is required and must match [a-zA-Z0-9_:-]+")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return errors.New("vector field requires positive DIM")
		}
	}
	return nil
}

// Args renders the FT.CREATE arguments (without the command name).
func (idx *IndexDefinition) Args() ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", StorageHash}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		f := &idx.Fields[i]
		args = append(args, f.Name)
		switch f.Type {
		case IndexFieldNumeric:
			args = append(args, "NUMERIC")
		case IndexFieldText:
			args = append(args, "TEXT")
		case IndexFieldTag:
			args = append(args, "TAG")
		case IndexFieldVector:
			args = append(args, vectorArgs(f)...)
		default:
			return nil, errors.New("unknown field type for " + f.Name)
		}
	}
	return args, nil
}

func vectorArgs(f *IndexField) []string {
	algo := f.VectorAlgo
	if algo == "" {
		algo = VectorHNSW
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == VectorHNSW {
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}

	out := make([]string, 0, 3+len(attrs))
	out = append(out, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	return append(out, attrs...)
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != ':' && r != '-' {
			return false
		}
	}
	return true
}
