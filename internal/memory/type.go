// Package memory classifies the address space into code and data based on a CPU trace.
package memory

// Type defines the classification of a memory address.
type Type uint8

// memory types.
const (
	Unknown Type = 0
	Code    Type = 1 << iota
	Data
	LabelTarget // address needs a label, for example a jump target
	Accessed    // address was read or written
)

// Is returns whether the type contains any of the given types.
func (t Type) Is(typ Type) bool {
	return t&typ != 0
}

// HasCode returns whether the address contains executed code.
func (t Type) HasCode() bool {
	return t.Is(Code)
}

// HasData returns whether the address contains data.
func (t Type) HasData() bool {
	return t.Is(Data)
}

// HasAccessed returns whether the address was read or written.
func (t Type) HasAccessed() bool {
	return t.Is(Accessed)
}

// HasLabelTarget returns whether the address needs a label.
func (t Type) HasLabelTarget() bool {
	return t.Is(LabelTarget)
}

// Set adds the given types.
func (t *Type) Set(typ Type) {
	*t |= typ
}

// Clear removes the given types.
func (t *Type) Clear(typ Type) {
	*t &= ^typ
}
