package layout

import (
	"golang.org/x/exp/slices"
)

// Kind describes the category of a TypeDescriptor.
type Kind string

const (
	// KindElementary is a built-in value or byte type such as uint256, address or string.
	KindElementary Kind = "elementary"
	// KindArray is a fixed-size or dynamic array.
	KindArray Kind = "array"
	// KindMapping is a mapping. Only the value type is relevant to storage.
	KindMapping Kind = "mapping"
	// KindStruct is a struct type.
	KindStruct Kind = "struct"
	// KindEnum is an enum type.
	KindEnum Kind = "enum"
	// KindContractRef is a variable holding a contract reference, stored as an address.
	KindContractRef Kind = "contractRef"
	// KindFunctionRef is a variable holding a function pointer.
	KindFunctionRef Kind = "functionRef"
	// KindUserDefinedValueType is a user-defined value type wrapping an elementary type.
	KindUserDefinedValueType Kind = "userDefinedValueType"
)

// TypeDescriptor is the canonical, content-addressed description of a declared variable type. Two descriptors with
// equal ID are interchangeable.
type TypeDescriptor struct {
	// ID is the content-derived identifier of the type, e.g. "t_mapping<t_uint256>".
	ID string `json:"id"`
	// Kind is the category of the type.
	Kind Kind `json:"kind"`
	// Label is the human-readable name of the type.
	Label string `json:"label"`
	// ValueType is the type id of the array element, the innermost mapping value, or the underlying type of a
	// user-defined value type.
	ValueType string `json:"valueType,omitempty"`
	// Length is the decimal length of a fixed-size array, or "dyn" for a dynamic array.
	Length string `json:"length,omitempty"`
	// Members are the struct members in declaration order.
	Members []StorageSlot `json:"members,omitempty"`
	// EnumMembers are the enum value names in declaration order.
	EnumMembers []string `json:"enumMembers,omitempty"`

	// underConstruction is set while the members of a struct are being resolved.
	underConstruction bool
}

// StorageSlot describes one storage-consuming variable, either a state variable or a struct member.
type StorageSlot struct {
	// Label is the variable name.
	Label string `json:"label"`
	// Type is the id of the variable's TypeDescriptor.
	Type string `json:"type"`
	// AstID is the id of the declaring AST node.
	AstID int64 `json:"astId"`
	// SourcePath is the path of the source file declaring the variable.
	SourcePath string `json:"sourcePath"`
	// Src is the compiler source range of the declaration.
	Src string `json:"src"`
	// Contract is the name of the contract declaring the variable. It is empty for members of file-level structs.
	Contract string `json:"contract"`
}

// StorageLayout is the ordered list of storage-consuming variables of a contract, ancestors first, together with the
// descriptors of every type they reference.
type StorageLayout struct {
	// Storage lists the variables in slot-assignment order.
	Storage []StorageSlot `json:"storage"`
	// Types maps a type id to its descriptor.
	Types map[string]*TypeDescriptor `json:"types"`
}

// TypeOf returns the descriptor of the given slot's type, or nil if it is not part of the layout.
func (l *StorageLayout) TypeOf(slot StorageSlot) *TypeDescriptor {
	return l.Types[slot.Type]
}

// TypeRegistry collects the descriptors built while modeling a single layout. A struct descriptor is registered as
// a placeholder before its members are resolved, so that a struct referencing itself resolves to the placeholder
// instead of recursing.
type TypeRegistry struct {
	types map[string]*TypeDescriptor
}

// NewTypeRegistry returns an empty TypeRegistry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]*TypeDescriptor)}
}

// Get returns the descriptor registered under id, which may still be under construction.
func (r *TypeRegistry) Get(id string) (*TypeDescriptor, bool) {
	descriptor, ok := r.types[id]
	return descriptor, ok
}

// register adds a completed descriptor and returns the canonical one. If a descriptor with the same id already
// exists, it is kept, except that an elementary address supersedes a contract reference so that the kind recorded
// for t_address does not depend on declaration order.
func (r *TypeRegistry) register(descriptor *TypeDescriptor) *TypeDescriptor {
	if existing, ok := r.types[descriptor.ID]; ok {
		if existing.Kind != KindContractRef || descriptor.Kind != KindElementary {
			return existing
		}
	}
	r.types[descriptor.ID] = descriptor
	return descriptor
}

// beginConstruction registers a placeholder for a descriptor whose members are about to be resolved.
func (r *TypeRegistry) beginConstruction(id string, kind Kind, label string) *TypeDescriptor {
	placeholder := &TypeDescriptor{ID: id, Kind: kind, Label: label, underConstruction: true}
	r.types[id] = placeholder
	return placeholder
}

// completeConstruction replaces a placeholder with the completed descriptor.
func (r *TypeRegistry) completeConstruction(descriptor *TypeDescriptor) {
	descriptor.underConstruction = false
	r.types[descriptor.ID] = descriptor
}

// abandonConstruction removes a placeholder whose members could not be resolved.
func (r *TypeRegistry) abandonConstruction(id string) {
	if descriptor, ok := r.types[id]; ok && descriptor.underConstruction {
		delete(r.types, id)
	}
}

// Pending returns the ids of descriptors still under construction, sorted.
func (r *TypeRegistry) Pending() []string {
	pending := make([]string, 0)
	for id, descriptor := range r.types {
		if descriptor.underConstruction {
			pending = append(pending, id)
		}
	}
	slices.Sort(pending)
	return pending
}

// Len returns the number of registered descriptors.
func (r *TypeRegistry) Len() int {
	return len(r.types)
}

// Types returns a copy of the id to descriptor map.
func (r *TypeRegistry) Types() map[string]*TypeDescriptor {
	types := make(map[string]*TypeDescriptor, len(r.types))
	for id, descriptor := range r.types {
		types[id] = descriptor
	}
	return types
}
