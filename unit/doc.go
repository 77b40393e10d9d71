// Package unit provides immutable representations of compiled template
// units.
//
// This package defines the output of compilation: pure data structures that
// represent a compiled unit's instruction stream, constant pool, suspension
// table and associated metadata. These types are created once during
// compilation and shared safely across goroutines and render instances.
//
// # Key Types
//
//   - [Unit]: one independently loadable artifact produced from a template
//   - [Code]: the immutable instruction stream behind a main or content unit
//   - [SuspensionPoint]: one location where rendering may pause and resume
//   - [Stats]: advisory per-unit statistics for logging and monitoring
//
// # Immutability Guarantees
//
// All types in this package are immutable after construction:
//
//   - No mutation methods exist on any type
//   - All fields are unexported
//   - Constructors copy input slices to prevent caller mutation
//   - Accessors return values, never mutable slices
//
// Index-based access is used for all collections:
//
//	code.InstructionAt(0)
//	code.ConstantAt(i)
//	unit.ParamAt(j)
//
// # Unit Identity
//
// A unit's name is derived from the owning template's fully-qualified name.
// The main unit uses the template name itself; auxiliary units append a
// "$"-prefixed suffix ("ns.hello$factory", "ns.hello$let_greeting_1"). The
// suffix convention is part of the serialization contract consumed by hosts;
// in-process dispatch uses the explicit [Kind] discriminant instead.
package unit
