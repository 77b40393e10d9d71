package unit

import (
	"encoding/json"
	"fmt"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/types"
)

// Marshal converts a Unit into a deterministic JSON representation. Two
// compilations of the same template against the same registry produce
// byte-identical output.
func Marshal(u *Unit) ([]byte, error) {
	def, err := defFromUnit(u)
	if err != nil {
		return nil, err
	}
	return json.Marshal(def)
}

// Unmarshal converts a JSON representation back into a Unit.
func Unmarshal(data []byte) (*Unit, error) {
	var def unitDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return unitFromDef(&def)
}

// Serialization types

type unitDef struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Template string     `json:"template"`
	Delegate bool       `json:"delegate,omitempty"`
	Params   []paramDef `json:"params,omitempty"`
	Code     *codeDef   `json:"code,omitempty"`
}

type paramDef struct {
	Name     string `json:"name"`
	Required bool   `json:"required,omitempty"`
	Lazy     bool   `json:"lazy,omitempty"`
}

type codeDef struct {
	Name         string          `json:"name"`
	Instructions []op.Code       `json:"instructions"`
	Constants    []constantDef   `json:"constants"`
	Locations    []locationDef   `json:"locations,omitempty"`
	Suspensions  []suspensionDef `json:"suspensions,omitempty"`
	LocalCount   int             `json:"local_count"`
	LocalNames   []string        `json:"local_names,omitempty"`
	Source       string          `json:"source,omitempty"`
	Filename     string          `json:"filename,omitempty"`
}

type constantDef struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

type locationDef struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type suspensionDef struct {
	ResumeIP int    `json:"resume_ip"`
	Kind     string `json:"kind"`
}

type typeDef struct {
	Kind     uint8    `json:"kind"`
	Elem     *typeDef `json:"elem,omitempty"`
	Content  uint8    `json:"content,omitempty"`
	Nullable bool     `json:"nullable,omitempty"`
}

func defFromUnit(u *Unit) (*unitDef, error) {
	def := &unitDef{
		Name:     u.name,
		Kind:     u.kind.String(),
		Template: u.templateName,
		Delegate: u.delegate,
	}
	for _, p := range u.params {
		def.Params = append(def.Params, paramDef{
			Name:     p.Name,
			Required: p.Required,
			Lazy:     p.Lazy,
		})
	}
	if u.code != nil {
		codeDef, err := defFromCode(u.code)
		if err != nil {
			return nil, err
		}
		def.Code = codeDef
	}
	return def, nil
}

func defFromCode(c *Code) (*codeDef, error) {
	def := &codeDef{
		Name:         c.name,
		Instructions: c.instructions,
		Constants:    make([]constantDef, 0, len(c.constants)),
		LocalCount:   c.localCount,
		LocalNames:   c.localNames,
		Source:       c.source,
		Filename:     c.filename,
	}
	if def.Instructions == nil {
		def.Instructions = []op.Code{}
	}
	for _, constant := range c.constants {
		cd, err := marshalConstant(constant)
		if err != nil {
			return nil, err
		}
		def.Constants = append(def.Constants, cd)
	}
	for _, loc := range c.locations {
		def.Locations = append(def.Locations, locationDef{Line: loc.Line, Column: loc.Column})
	}
	for _, sp := range c.suspensions {
		def.Suspensions = append(def.Suspensions, suspensionDef{
			ResumeIP: sp.ResumeIP,
			Kind:     sp.Kind.String(),
		})
	}
	return def, nil
}

func marshalConstant(constant any) (constantDef, error) {
	switch v := constant.(type) {
	case nil:
		return constantDef{Type: "null"}, nil
	case bool:
		raw, _ := json.Marshal(v)
		return constantDef{Type: "bool", Value: raw}, nil
	case int64:
		raw, _ := json.Marshal(v)
		return constantDef{Type: "int", Value: raw}, nil
	case float64:
		raw, _ := json.Marshal(v)
		return constantDef{Type: "float", Value: raw}, nil
	case string:
		raw, _ := json.Marshal(v)
		return constantDef{Type: "string", Value: raw}, nil
	case Ref:
		raw, _ := json.Marshal(v.Name)
		return constantDef{Type: "unit_ref", Value: raw}, nil
	case TypeRef:
		raw, err := json.Marshal(defFromType(v.Type))
		if err != nil {
			return constantDef{}, err
		}
		return constantDef{Type: "type", Value: raw}, nil
	default:
		return constantDef{}, fmt.Errorf("unit: cannot marshal constant of type %T", constant)
	}
}

func unmarshalConstant(def constantDef) (any, error) {
	switch def.Type {
	case "null":
		return nil, nil
	case "bool":
		var v bool
		if err := json.Unmarshal(def.Value, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "int":
		var v int64
		if err := json.Unmarshal(def.Value, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "float":
		var v float64
		if err := json.Unmarshal(def.Value, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "string":
		var v string
		if err := json.Unmarshal(def.Value, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "unit_ref":
		var name string
		if err := json.Unmarshal(def.Value, &name); err != nil {
			return nil, err
		}
		return Ref{Name: name}, nil
	case "type":
		var td typeDef
		if err := json.Unmarshal(def.Value, &td); err != nil {
			return nil, err
		}
		typ, err := typeFromDef(&td)
		if err != nil {
			return nil, err
		}
		return TypeRef{Type: typ}, nil
	default:
		return nil, fmt.Errorf("unit: unknown constant type %q", def.Type)
	}
}

func defFromType(t types.Type) *typeDef {
	def := &typeDef{
		Kind:     uint8(t.Kind()),
		Content:  uint8(t.ContentKind()),
		Nullable: t.IsNullable(),
	}
	switch t.Kind() {
	case types.List, types.Map:
		def.Elem = defFromType(t.Elem())
	}
	return def
}

func typeFromDef(def *typeDef) (types.Type, error) {
	var t types.Type
	switch types.Kind(def.Kind) {
	case types.Null:
		t = types.NullType
	case types.Bool:
		t = types.BoolType
	case types.Int:
		t = types.IntType
	case types.Float:
		t = types.FloatType
	case types.String:
		t = types.StringType
	case types.Any:
		t = types.AnyType
	case types.Content:
		t = types.NewContent(types.ContentKind(def.Content))
	case types.List:
		elem, err := typeFromDef(def.Elem)
		if err != nil {
			return types.Type{}, err
		}
		t = types.NewList(elem)
	case types.Map:
		elem, err := typeFromDef(def.Elem)
		if err != nil {
			return types.Type{}, err
		}
		t = types.NewMap(elem)
	default:
		return types.Type{}, fmt.Errorf("unit: unknown type kind %d", def.Kind)
	}
	if def.Nullable {
		t = t.AsNullable()
	}
	return t, nil
}

func unitFromDef(def *unitDef) (*Unit, error) {
	var kind Kind
	switch def.Kind {
	case "main":
		kind = KindMain
	case "content":
		kind = KindContent
	case "factory":
		kind = KindFactory
	default:
		return nil, fmt.Errorf("unit: unknown unit kind %q", def.Kind)
	}
	params := make([]Param, 0, len(def.Params))
	for _, p := range def.Params {
		params = append(params, Param{Name: p.Name, Required: p.Required, Lazy: p.Lazy})
	}
	var code *Code
	if def.Code != nil {
		constants := make([]any, 0, len(def.Code.Constants))
		for _, cd := range def.Code.Constants {
			constant, err := unmarshalConstant(cd)
			if err != nil {
				return nil, err
			}
			constants = append(constants, constant)
		}
		locations := make([]SourceLocation, 0, len(def.Code.Locations))
		for _, ld := range def.Code.Locations {
			locations = append(locations, SourceLocation{Line: ld.Line, Column: ld.Column})
		}
		suspensions := make([]SuspensionPoint, 0, len(def.Code.Suspensions))
		for _, sd := range def.Code.Suspensions {
			var sk SuspendKind
			switch sd.Kind {
			case "data":
				sk = SuspendData
			case "output":
				sk = SuspendOutput
			case "call":
				sk = SuspendCall
			default:
				return nil, fmt.Errorf("unit: unknown suspend kind %q", sd.Kind)
			}
			suspensions = append(suspensions, SuspensionPoint{ResumeIP: sd.ResumeIP, Kind: sk})
		}
		code = NewCode(CodeParams{
			Name:         def.Code.Name,
			Instructions: def.Code.Instructions,
			Constants:    constants,
			Locations:    locations,
			Suspensions:  suspensions,
			LocalCount:   def.Code.LocalCount,
			LocalNames:   def.Code.LocalNames,
			Source:       def.Code.Source,
			Filename:     def.Code.Filename,
		})
	}
	return New(Params{
		Name:         def.Name,
		Kind:         kind,
		TemplateName: def.Template,
		Delegate:     def.Delegate,
		Params:       params,
		Code:         code,
	}), nil
}
