package index

import (
	"fmt"
	"strings"

	"github.com/balzaczyy/segstore/util"
)

// DocField is a named field of a document holding one or more values.
type DocField struct {
	Name   string
	Data   [][]byte
	Boost  float32
	Binary bool
}

func NewDocField(name string, values ...string) *DocField {
	df := &DocField{Name: name, Boost: 1}
	for _, v := range values {
		df.Data = append(df.Data, []byte(v))
	}
	return df
}

// Binary fields are stored but never analyzed.
func NewBinaryField(name string, values ...[]byte) *DocField {
	return &DocField{Name: name, Data: values, Boost: 1, Binary: true}
}

func (df *DocField) AddValue(value []byte) {
	df.Data = append(df.Data, value)
}

func (df *DocField) String() string {
	if df.Binary {
		return fmt.Sprintf("%v: <binary x%v>", df.Name, len(df.Data))
	}
	values := make([]string, len(df.Data))
	for i, v := range df.Data {
		values[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("%v: %v", df.Name, strings.Join(values, ", "))
}

// Document is an ordered list of uniquely named fields.
type Document struct {
	Fields []*DocField
	Boost  float32
}

func NewDocument() *Document {
	return &Document{Boost: 1}
}

func (doc *Document) Add(df *DocField) error {
	if doc.Get(df.Name) != nil {
		return util.Errorf(util.ErrArgument, "document already has field %v", df.Name)
	}
	doc.Fields = append(doc.Fields, df)
	return nil
}

func (doc *Document) Get(name string) *DocField {
	for _, df := range doc.Fields {
		if df.Name == name {
			return df
		}
	}
	return nil
}

func (doc *Document) String() string {
	var b strings.Builder
	b.WriteString("Document{")
	for i, df := range doc.Fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(df.String())
	}
	b.WriteString("}")
	return b.String()
}
