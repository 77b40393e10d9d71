package unit

// Stats contains statistics about a compiled unit. Advisory only: intended
// for logging and monitoring by the host, with no behavioral contract.
type Stats struct {
	// ByteSize is the size of the marshaled artifact in bytes.
	ByteSize int

	// InstructionCount is the number of instruction words.
	InstructionCount int

	// ConstantCount is the number of constants in the constant pool.
	ConstantCount int

	// FieldCount is the number of per-instance fields: declared parameters
	// plus the local slots persisted across suspension points.
	FieldCount int

	// SuspensionPointCount is the number of places the unit may suspend.
	SuspensionPointCount int
}
