// Package document contains the tagged-variant tree used to represent request bodies.
//
// Documents arrive as arbitrary JSON whose shape is only known through the schema. A
// Value is one node of that tree: an object (with its key order preserved), an array or
// one of the scalar kinds. Numbers keep their JSON literal so that identity values hash
// the same way regardless of how they were written by the client.
package document

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the variant tag of a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

var ErrInvalidJSON = errors.New("invalid json document")

// Value is a node in a JSON document. The zero value is a JSON null.
type Value struct {
	kind Kind

	// boolean payload
	b bool

	// string payload, or the literal of a number
	s string

	items []*Value

	keys   []string
	fields map[string]*Value
}

// Parse builds a document tree from raw JSON.
func Parse(data []byte) (*Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseString is Parse for string input.
func ParseString(data string) (*Value, error) {
	if !gjson.Valid(data) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.Parse(data)), nil
}

// MustParse is like ParseString but panics on invalid input. Intended for tests and fixtures.
func MustParse(data string) *Value {
	v, err := ParseString(data)
	if err != nil {
		panic(err)
	}
	return v
}

func fromResult(r gjson.Result) *Value {
	switch r.Type {
	case gjson.False:
		return NewBool(false)
	case gjson.True:
		return NewBool(true)
	case gjson.Number:
		return &Value{kind: Number, s: r.Raw}
	case gjson.String:
		return NewString(r.String())
	case gjson.JSON:
		if r.IsArray() {
			arr := NewArray()
			r.ForEach(func(_, item gjson.Result) bool {
				arr.items = append(arr.items, fromResult(item))
				return true
			})
			return arr
		}
		obj := NewObject()
		r.ForEach(func(key, item gjson.Result) bool {
			obj.Set(key.String(), fromResult(item))
			return true
		})
		return obj
	default:
		return NewNull()
	}
}

func NewNull() *Value {
	return &Value{kind: Null}
}

func NewBool(b bool) *Value {
	return &Value{kind: Bool, b: b}
}

func NewString(s string) *Value {
	return &Value{kind: String, s: s}
}

func NewInt(i int64) *Value {
	return &Value{kind: Number, s: strconv.FormatInt(i, 10)}
}

func NewFloat(f float64) *Value {
	return &Value{kind: Number, s: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NewNumber creates a number from its JSON literal. The literal must be a valid JSON number.
func NewNumber(literal string) (*Value, error) {
	r := gjson.Parse(literal)
	if r.Type != gjson.Number || r.Raw != literal {
		return nil, fmt.Errorf("%q is not a json number", literal)
	}
	return &Value{kind: Number, s: literal}, nil
}

func NewArray(items ...*Value) *Value {
	return &Value{kind: Array, items: items}
}

func NewObject() *Value {
	return &Value{kind: Object, fields: map[string]*Value{}}
}

func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

func (v *Value) IsScalar() bool {
	k := v.Kind()
	return k == Bool || k == Number || k == String
}

// Bool returns the boolean payload; false for other kinds.
func (v *Value) Bool() bool {
	return v.Kind() == Bool && v.b
}

// Str returns the string payload of a String value, or the literal of a Number.
func (v *Value) Str() string {
	if v.Kind() == String || v.Kind() == Number {
		return v.s
	}
	return ""
}

// Text returns the normalized string form of a scalar value. Strings are returned
// verbatim, booleans as 'true' or 'false' and numbers in canonical decimal form.
// ok is false for null, arrays and objects.
func (v *Value) Text() (text string, ok bool) {
	switch v.Kind() {
	case String:
		return v.s, true
	case Bool:
		return strconv.FormatBool(v.b), true
	case Number:
		return canonicalNumber(v.s), true
	default:
		return "", false
	}
}

func canonicalNumber(literal string) string {
	if isIntegerLiteral(literal) {
		if literal == "-0" {
			return "0"
		}
		return literal
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return literal
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isIntegerLiteral(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Len returns the number of array items or object fields.
func (v *Value) Len() int {
	switch v.Kind() {
	case Array:
		return len(v.items)
	case Object:
		return len(v.keys)
	default:
		return 0
	}
}

// Items returns the items of an array. The slice must not be modified.
func (v *Value) Items() []*Value {
	if v.Kind() != Array {
		return nil
	}
	return v.items
}

// Index returns the i-th item of an array.
func (v *Value) Index(i int) (*Value, bool) {
	if v.Kind() != Array || i < 0 || i >= len(v.items) {
		return nil, false
	}
	return v.items[i], true
}

// SetIndex replaces the i-th item of an array.
func (v *Value) SetIndex(i int, item *Value) error {
	if v.Kind() != Array {
		return fmt.Errorf("cannot index into %s", v.Kind())
	}
	if i < 0 || i >= len(v.items) {
		return fmt.Errorf("index %d out of range [0:%d]", i, len(v.items))
	}
	v.items[i] = item
	return nil
}

// Append adds an item to an array.
func (v *Value) Append(item *Value) {
	if v.Kind() == Array {
		v.items = append(v.items, item)
	}
}

// Keys returns the object keys in document order. The slice must not be modified.
func (v *Value) Keys() []string {
	if v.Kind() != Object {
		return nil
	}
	return v.keys
}

// Field returns the named field of an object.
func (v *Value) Field(name string) (*Value, bool) {
	if v.Kind() != Object {
		return nil, false
	}
	f, ok := v.fields[name]
	return f, ok
}

// Set adds or replaces a field on an object. New keys are appended to the key order.
// It is a no-op on other kinds.
func (v *Value) Set(name string, field *Value) *Value {
	if v.Kind() != Object {
		return v
	}
	if _, ok := v.fields[name]; !ok {
		v.keys = append(v.keys, name)
	}
	v.fields[name] = field
	return v
}

// Delete removes a field from an object.
func (v *Value) Delete(name string) {
	if v.Kind() != Object {
		return
	}
	if _, ok := v.fields[name]; !ok {
		return
	}
	delete(v.fields, name)
	for i, k := range v.keys {
		if k == name {
			v.keys = append(v.keys[:i:i], v.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{kind: v.kind, b: v.b, s: v.s}
	switch v.kind {
	case Array:
		c.items = make([]*Value, len(v.items))
		for i, item := range v.items {
			c.items[i] = item.Clone()
		}
	case Object:
		c.keys = make([]string, len(v.keys))
		copy(c.keys, v.keys)
		c.fields = make(map[string]*Value, len(v.fields))
		for k, f := range v.fields {
			c.fields[k] = f.Clone()
		}
	}
	return c
}

// Equal reports whether two documents are structurally equal. Object key order is
// ignored and numbers compare by canonical value.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case String:
		return v.s == o.s
	case Number:
		return canonicalNumber(v.s) == canonicalNumber(o.s)
	case Array:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, f := range v.fields {
			of, ok := o.fields[k]
			if !ok || !f.Equal(of) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts the tree to plain Go values: map[string]any, []any, string, bool
// and nil. Numbers become int64 when they fit, float64 otherwise.
func (v *Value) Interface() any {
	switch v.Kind() {
	case Bool:
		return v.b
	case String:
		return v.s
	case Number:
		if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	case Array:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders the value as compact JSON.
func (v *Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}
