package datavalues

import (
	"fmt"
	"strings"

	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
)

type DataField struct {
	Name     string
	Type     DataType
	Nullable bool
}

func NewDataField(name string, dt DataType, nullable bool) DataField {
	return DataField{Name: name, Type: dt, Nullable: nullable}
}

func (f DataField) String() string {
	return fmt.Sprintf("%s:%s", f.Name, f.Type)
}

// DataSchema is an immutable ordered list of fields.
type DataSchema struct {
	fields []DataField
	index  map[string]int
}

func NewDataSchema(fields ...DataField) *DataSchema {
	fs := make([]DataField, len(fields))
	copy(fs, fields)
	index := make(map[string]int, len(fs))
	for i, f := range fs {
		// first occurrence wins, same as arrow.Schema.FieldIndices()[0]
		if _, ok := index[f.Name]; !ok {
			index[f.Name] = i
		}
	}
	return &DataSchema{fields: fs, index: index}
}

func NewDataSchemaFromArrow(s *arrow.Schema) (*DataSchema, error) {
	fields := make([]DataField, 0, s.NumFields())
	for _, f := range s.Fields() {
		dt, err := DataTypeFromArrow(f.Type)
		if err != nil {
			return nil, errors.Wrap(errors.Type, err, "field %q", f.Name)
		}
		fields = append(fields, DataField{Name: f.Name, Type: dt, Nullable: f.Nullable})
	}
	return NewDataSchema(fields...), nil
}

func (s *DataSchema) Len() int {
	return len(s.fields)
}

func (s *DataSchema) Fields() []DataField {
	out := make([]DataField, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *DataSchema) Field(i int) DataField {
	return s.fields[i]
}

// IndexOf returns -1 when name is not part of the schema.
func (s *DataSchema) IndexOf(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

func (s *DataSchema) FieldByName(name string) (DataField, error) {
	i := s.IndexOf(name)
	if i < 0 {
		return DataField{}, errors.ErrUnknownColumn(name)
	}
	return s.fields[i], nil
}

func (s *DataSchema) ToArrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.fields))
	for i, f := range s.fields {
		fields[i] = arrow.Field{Name: f.Name, Type: f.Type.ToArrow(), Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil)
}

func (s *DataSchema) Equal(other *DataSchema) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil || len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

// Project keeps the named fields in the order given.
func (s *DataSchema) Project(names ...string) (*DataSchema, error) {
	fields := make([]DataField, 0, len(names))
	for _, n := range names {
		f, err := s.FieldByName(n)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return NewDataSchema(fields...), nil
}

func (s *DataSchema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}
