package unit

// Kind discriminates the variants of compiled unit. Dispatch over kinds uses
// this tag; the name-suffix convention exists only as the serialization
// contract.
type Kind uint8

const (
	// KindMain is the primary unit compiled from a template body.
	KindMain Kind = iota
	// KindContent is an auxiliary unit compiled from a content block (a
	// let-block or similar) extracted during compilation.
	KindContent
	// KindFactory is the auxiliary construction descriptor derived from a
	// template's main unit. It carries parameter metadata and no code.
	KindFactory
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindContent:
		return "content"
	case KindFactory:
		return "factory"
	default:
		return "invalid"
	}
}

// Param describes one parameter accepted by a unit.
type Param struct {
	Name     string
	Required bool

	// Lazy marks a parameter whose value may resolve after rendering
	// starts. Reads of lazy parameters sit behind suspension points.
	Lazy bool
}

// Unit is one compiled, independently loadable artifact produced from a
// template. It is immutable after creation; instantiating it many times
// yields independent renders in progress.
type Unit struct {
	name         string
	kind         Kind
	templateName string
	delegate     bool
	params       []Param
	code         *Code
}

// Params contains parameters for creating a new Unit.
type Params struct {
	Name         string
	Kind         Kind
	TemplateName string
	Delegate     bool
	Params       []Param
	Code         *Code // nil for KindFactory
}

// New creates a new immutable Unit from the given parameters. Input slices
// are copied to ensure immutability.
func New(params Params) *Unit {
	return &Unit{
		name:         params.Name,
		kind:         params.Kind,
		templateName: params.TemplateName,
		delegate:     params.Delegate,
		params:       copyParams(params.Params),
		code:         params.Code,
	}
}

// Name returns the globally unique unit name.
func (u *Unit) Name() string {
	return u.name
}

// Kind returns the unit kind.
func (u *Unit) Kind() Kind {
	return u.kind
}

// TemplateName returns the fully-qualified name of the owning template.
func (u *Unit) TemplateName() string {
	return u.templateName
}

// Delegate returns true if the owning template is a delegate implementation.
func (u *Unit) Delegate() bool {
	return u.delegate
}

// ParamCount returns the number of declared parameters.
func (u *Unit) ParamCount() int {
	return len(u.params)
}

// ParamAt returns the parameter at the given index.
func (u *Unit) ParamAt(index int) Param {
	return u.params[index]
}

// Code returns the compiled instruction stream. It is nil for factory units,
// which carry construction metadata only.
func (u *Unit) Code() *Code {
	return u.code
}

// Stats returns advisory statistics about this unit.
func (u *Unit) Stats() Stats {
	s := Stats{FieldCount: len(u.params)}
	if u.code != nil {
		s.InstructionCount = u.code.InstructionCount()
		s.ConstantCount = u.code.ConstantCount()
		s.SuspensionPointCount = u.code.SuspensionPointCount()
		s.FieldCount += u.code.LocalCount()
	}
	if data, err := Marshal(u); err == nil {
		s.ByteSize = len(data)
	}
	return s
}
