package db

import "strings"

// IndexBuilder is a fluent builder for FT index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition over hashes.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Numeric adds NUMERIC fields.
func (b *IndexBuilder) Numeric(names ...string) *IndexBuilder {
	return b.add(IndexFieldNumeric, names)
}

// Tag adds TAG fields.
func (b *IndexBuilder) Tag(names ...string) *IndexBuilder {
	return b.add(IndexFieldTag, names)
}

// Text adds TEXT fields.
func (b *IndexBuilder) Text(names ...string) *IndexBuilder {
	return b.add(IndexFieldText, names)
}

// Vector adds a VECTOR field; m and efConstruct only apply to HNSW and may be zero.
func (b *IndexBuilder) Vector(
	name string, dim int, algo VectorAlgorithm, distance DistanceMetric, m, efConstruct int,
) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:              name,
		Type:              IndexFieldVector,
		VectorAlgo:        algo,
		VectorDim:         dim,
		VectorDistance:    distance,
		VectorM:           m,
		VectorEFConstruct: efConstruct,
	})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}

// String returns the FT.CREATE command for logs.
func (idx *IndexDefinition) String() string {
	args, err := idx.Args()
	if err != nil {
		return "FT.CREATE <invalid: " + err.Error() + ">"
	}
	return "FT.CREATE " + strings.Join(args, " ")
}

func (b *IndexBuilder) add(t IndexFieldType, names []string) *IndexBuilder {
	for _, n := range names {
		b.def.Fields = append(b.def.Fields, IndexField{Name: n, Type: t})
	}
	return b
}
