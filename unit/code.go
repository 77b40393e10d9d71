package unit

import (
	"strings"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/types"
)

// Ref is a constant-pool entry referencing another unit by name. Call sites
// resolve the reference through the host's unit lookup at render time.
type Ref struct {
	Name string
}

// TypeRef is a constant-pool entry carrying a static type, used by
// runtime-checked narrowing casts.
type TypeRef struct {
	Type types.Type
}

// Code represents a compiled instruction stream (a main unit body or a
// content-block body). It is immutable after creation and safe for
// concurrent use.
type Code struct {
	name         string
	instructions []op.Code
	constants    []any
	locations    []SourceLocation
	suspensions  []SuspensionPoint
	localCount   int
	localNames   []string
	source       string
	filename     string
}

// CodeParams contains parameters for creating a new Code.
type CodeParams struct {
	Name         string
	Instructions []op.Code
	Constants    []any
	Locations    []SourceLocation
	Suspensions  []SuspensionPoint
	LocalCount   int
	LocalNames   []string
	Source       string
	Filename     string
}

// NewCode creates a new immutable Code from the given parameters. Input
// slices are copied to ensure immutability. There are no mutation methods.
func NewCode(params CodeParams) *Code {
	return &Code{
		name:         params.Name,
		instructions: copyInstructions(params.Instructions),
		constants:    copyAny(params.Constants),
		locations:    copyLocations(params.Locations),
		suspensions:  copySuspensions(params.Suspensions),
		localCount:   params.LocalCount,
		localNames:   copyStrings(params.LocalNames),
		source:       params.Source,
		filename:     params.Filename,
	}
}

// Name returns the name of this code block.
func (c *Code) Name() string {
	return c.name
}

// InstructionCount returns the number of instruction words.
func (c *Code) InstructionCount() int {
	return len(c.instructions)
}

// InstructionAt returns the instruction word at the given index.
func (c *Code) InstructionAt(index int) op.Code {
	return c.instructions[index]
}

// ConstantCount returns the number of constants.
func (c *Code) ConstantCount() int {
	return len(c.constants)
}

// ConstantAt returns the constant at the given index.
func (c *Code) ConstantAt(index int) any {
	return c.constants[index]
}

// LocalCount returns the number of local variable slots. These are the
// fields an instance persists across suspension points.
func (c *Code) LocalCount() int {
	return c.localCount
}

// LocalNameCount returns the number of local variable names.
func (c *Code) LocalNameCount() int {
	return len(c.localNames)
}

// LocalNameAt returns the local variable name at the given index. Returns an
// empty string if the index is out of range.
func (c *Code) LocalNameAt(index int) string {
	if index < 0 || index >= len(c.localNames) {
		return ""
	}
	return c.localNames[index]
}

// SuspensionPointCount returns the number of suspension points.
func (c *Code) SuspensionPointCount() int {
	return len(c.suspensions)
}

// SuspensionPointAt returns the suspension point at the given index.
func (c *Code) SuspensionPointAt(index int) SuspensionPoint {
	return c.suspensions[index]
}

// LocationAt returns the source location for the instruction word at the
// given index.
func (c *Code) LocationAt(ip int) SourceLocation {
	if ip < 0 || ip >= len(c.locations) {
		return SourceLocation{}
	}
	return c.locations[ip]
}

// Source returns the template source for this code block, if recorded.
func (c *Code) Source() string {
	return c.source
}

// Filename returns the source filename.
func (c *Code) Filename() string {
	return c.filename
}

// GetSourceLine returns the source code line at the given 1-based line
// number, or an empty string if unavailable.
func (c *Code) GetSourceLine(lineNum int) string {
	if lineNum < 1 || c.source == "" {
		return ""
	}
	lines := strings.Split(c.source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}
