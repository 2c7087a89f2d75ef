// Copyright 2016 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bigquery

import (
	bq "google.golang.org/api/bigquery/v2"
)

// Schema describes the fields in a table or query result.
type Schema []*FieldSchema

// FieldType is the type of a field in a Schema.
type FieldType string

const (
	// StringFieldType is a string field type.
	StringFieldType FieldType = "STRING"
	// BytesFieldType is a bytes field type.
	BytesFieldType FieldType = "BYTES"
	// IntegerFieldType is an integer field type.
	IntegerFieldType FieldType = "INTEGER"
	// FloatFieldType is a float field type.
	FloatFieldType FieldType = "FLOAT"
	// BooleanFieldType is a boolean field type.
	BooleanFieldType FieldType = "BOOLEAN"
	// TimestampFieldType is a timestamp field type.
	TimestampFieldType FieldType = "TIMESTAMP"
	// RecordFieldType is a record field type. A record's fields are
	// described by its nested Schema.
	RecordFieldType FieldType = "RECORD"
)

// FieldSchema describes a single field.
type FieldSchema struct {
	// The field name. Must contain only letters, numbers, and underscores,
	// start with a letter or underscore, and be at most 128 characters long.
	Name string

	// A description of the field.
	Description string

	// Whether the field may contain multiple values.
	Repeated bool

	// Whether the field is required. Ignored if Repeated is true.
	Required bool

	// The field data type.
	Type FieldType

	// Describes the nested schema if Type is set to RecordFieldType.
	Schema Schema
}

func (fs *FieldSchema) toBQ() *bq.TableFieldSchema {
	tfs := &bq.TableFieldSchema{
		Description: fs.Description,
		Name:        fs.Name,
		Type:        string(fs.Type),
		Fields:      fs.Schema.toBQ(),
	}
	// Repeated dominates Required.
	if fs.Repeated {
		tfs.Mode = "REPEATED"
	} else if fs.Required {
		tfs.Mode = "REQUIRED"
	} // else leave as default, which is interpreted as NULLABLE.
	return tfs
}

func (s Schema) toBQ() []*bq.TableFieldSchema {
	var fields []*bq.TableFieldSchema
	for _, f := range s {
		fields = append(fields, f.toBQ())
	}
	return fields
}

func bqToFieldSchema(tfs *bq.TableFieldSchema) *FieldSchema {
	return &FieldSchema{
		Description: tfs.Description,
		Name:        tfs.Name,
		Repeated:    tfs.Mode == "REPEATED",
		Required:    tfs.Mode == "REQUIRED",
		Type:        FieldType(tfs.Type),
		Schema:      bqToSchema(&bq.TableSchema{Fields: tfs.Fields}),
	}
}

func bqToSchema(ts *bq.TableSchema) Schema {
	if ts == nil {
		return nil
	}
	var s Schema
	for _, f := range ts.Fields {
		s = append(s, bqToFieldSchema(f))
	}
	return s
}

func (s Schema) toBQTableSchema() *bq.TableSchema {
	if len(s) == 0 {
		return nil
	}
	return &bq.TableSchema{Fields: s.toBQ()}
}
