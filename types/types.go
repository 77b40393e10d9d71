// Package types defines the static types carried by compiled template
// expressions.
//
// Types are small immutable value objects. The compiler trusts the upstream
// analysis stage for full type checking; this package only provides the
// compatibility queries needed for runtime-checked narrowing casts.
package types

import "strings"

// Kind identifies the basic category of a type.
type Kind uint8

const (
	Invalid Kind = iota
	Null
	Bool
	Int
	Float
	String
	List
	Map
	Content
	Any
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case List:
		return "list"
	case Map:
		return "map"
	case Content:
		return "content"
	case Any:
		return "any"
	default:
		return "invalid"
	}
}

// ContentKind identifies the sanitized content kind of a Content type. The
// escaping policy that produces these kinds is decided by the upstream
// analysis stage; the compiler only carries them through.
type ContentKind uint8

const (
	ContentNone ContentKind = iota
	ContentText
	ContentHTML
	ContentURI
	ContentJS
	ContentCSS
	ContentAttributes
)

// String returns the name of the content kind.
func (k ContentKind) String() string {
	switch k {
	case ContentText:
		return "text"
	case ContentHTML:
		return "html"
	case ContentURI:
		return "uri"
	case ContentJS:
		return "js"
	case ContentCSS:
		return "css"
	case ContentAttributes:
		return "attributes"
	default:
		return "none"
	}
}

// Type is an immutable static type. The zero value is the invalid type.
type Type struct {
	kind     Kind
	elem     *Type
	content  ContentKind
	nullable bool
}

// Basic types.
var (
	NullType   = Type{kind: Null}
	BoolType   = Type{kind: Bool}
	IntType    = Type{kind: Int}
	FloatType  = Type{kind: Float}
	StringType = Type{kind: String}
	AnyType    = Type{kind: Any}
)

// NewList returns a list type with the given element type.
func NewList(elem Type) Type {
	return Type{kind: List, elem: &elem}
}

// NewMap returns a map type with the given value type. Template map keys are
// always strings.
func NewMap(value Type) Type {
	return Type{kind: Map, elem: &value}
}

// NewContent returns a sanitized content type of the given kind.
func NewContent(kind ContentKind) Type {
	return Type{kind: Content, content: kind}
}

// Kind returns the basic kind of the type.
func (t Type) Kind() Kind {
	return t.kind
}

// Elem returns the element type for list and map types. For all other types
// it returns the invalid type.
func (t Type) Elem() Type {
	if t.elem == nil {
		return Type{}
	}
	return *t.elem
}

// ContentKind returns the content kind for content types.
func (t Type) ContentKind() ContentKind {
	return t.content
}

// IsNullable returns true if the type admits a null value.
func (t Type) IsNullable() bool {
	return t.nullable
}

// AsNullable returns an equivalent type that admits null.
func (t Type) AsNullable() Type {
	t.nullable = true
	return t
}

// AsNonNullable returns an equivalent type that does not admit null.
func (t Type) AsNonNullable() Type {
	t.nullable = false
	return t
}

// IsPrimitive returns true for bool, int, float and string types. Primitive
// values never require null guards.
func (t Type) IsPrimitive() bool {
	switch t.kind {
	case Bool, Int, Float, String:
		return !t.nullable
	default:
		return false
	}
}

// IsValid returns true if the type is not the zero (invalid) type.
func (t Type) IsValid() bool {
	return t.kind != Invalid
}

// Equal returns true if the two types are structurally identical, including
// nullability and content kind.
func (t Type) Equal(other Type) bool {
	if t.kind != other.kind || t.nullable != other.nullable || t.content != other.content {
		return false
	}
	if t.elem == nil && other.elem == nil {
		return true
	}
	if t.elem == nil || other.elem == nil {
		return false
	}
	return t.elem.Equal(*other.elem)
}

// PossiblyCompatible reports whether a value of this static type could ever
// satisfy a runtime-checked cast to the target type. A cast between types
// that can never be compatible is a compiler bug, not a runtime condition.
func (t Type) PossiblyCompatible(target Type) bool {
	if t.kind == Any || target.kind == Any {
		return true
	}
	if t.kind == Null {
		return target.nullable || target.kind == Null
	}
	if t.kind != target.kind {
		// Numeric narrowing between int and float is permitted.
		if (t.kind == Int || t.kind == Float) && (target.kind == Int || target.kind == Float) {
			return true
		}
		return false
	}
	// Same kind. Element types must themselves be possibly compatible.
	if t.elem != nil && target.elem != nil {
		return t.elem.PossiblyCompatible(*target.elem)
	}
	return true
}

// String returns a readable representation of the type, such as
// "list<string>" or "html?".
func (t Type) String() string {
	var b strings.Builder
	switch t.kind {
	case List:
		b.WriteString("list<")
		b.WriteString(t.Elem().String())
		b.WriteString(">")
	case Map:
		b.WriteString("map<string,")
		b.WriteString(t.Elem().String())
		b.WriteString(">")
	case Content:
		b.WriteString(t.content.String())
	default:
		b.WriteString(t.kind.String())
	}
	if t.nullable {
		b.WriteString("?")
	}
	return b.String()
}
