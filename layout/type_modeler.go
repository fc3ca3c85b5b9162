package layout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/inheritance"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// pointerSuffixes are the data location suffixes the compiler appends to reference type identifiers. They describe
// where a value lives, not its shape, so they are stripped from type ids.
var pointerSuffixes = []string{"_storage_ptr", "_memory_ptr", "_calldata_ptr", "_storage", "_memory", "_calldata"}

// arrayLengthRegex captures the length of the outermost array dimension of a type string, e.g. "5" in "uint256[5]".
var arrayLengthRegex = regexp.MustCompile(`\[([0-9]*)\]$`)

// TypeModeler computes TypeDescriptor values for declared variable types. Referenced struct, enum and value type
// declarations are resolved through an inheritance.Resolver, so they may be declared in imported files.
type TypeModeler struct {
	// resolver resolves referenced declarations by node id.
	resolver *inheritance.Resolver

	// registry collects every descriptor produced by this modeler.
	registry *TypeRegistry
}

// NewTypeModeler returns a TypeModeler registering descriptors into the provided registry.
func NewTypeModeler(resolver *inheritance.Resolver, registry *TypeRegistry) *TypeModeler {
	return &TypeModeler{
		resolver: resolver,
		registry: registry,
	}
}

// Registry returns the registry this modeler registers descriptors into.
func (m *TypeModeler) Registry() *TypeRegistry {
	return m.registry
}

// TypeInfo returns the descriptor of the given type name. Calling it twice for the same type yields the same
// descriptor. Unmodeled type-name kinds return an UnknownTypeNodeError and unresolvable references return an
// inheritance.StructuralArtifactError.
func (m *TypeModeler) TypeInfo(node types.TypeName) (*TypeDescriptor, error) {
	switch typeName := node.(type) {
	case *types.ElementaryTypeName:
		return m.elementaryTypeInfo(typeName), nil
	case *types.ArrayTypeName:
		return m.arrayTypeInfo(typeName)
	case *types.Mapping:
		return m.mappingTypeInfo(typeName)
	case *types.UserDefinedTypeName:
		return m.userDefinedTypeInfo(typeName)
	case *types.FunctionTypeName:
		return m.registry.register(&TypeDescriptor{ID: "t_function", Kind: KindFunctionRef, Label: "function"}), nil
	case nil:
		return nil, &UnknownTypeNodeError{NodeType: "<none>"}
	default:
		return nil, &UnknownTypeNodeError{NodeType: node.GetNodeType()}
	}
}

// elementaryTypeInfo models a built-in type.
func (m *TypeModeler) elementaryTypeInfo(node *types.ElementaryTypeName) *TypeDescriptor {
	id := stripPointerSuffix(node.TypeDescriptions.TypeIdentifier)
	if id == "" {
		id = "t_" + node.Name
	}
	label := node.TypeDescriptions.TypeString
	if label == "" {
		label = node.Name
	}
	return m.registry.register(&TypeDescriptor{ID: id, Kind: KindElementary, Label: label})
}

// arrayTypeInfo models an array after modeling its element type.
func (m *TypeModeler) arrayTypeInfo(node *types.ArrayTypeName) (*TypeDescriptor, error) {
	baseType, err := m.TypeInfo(node.BaseType)
	if err != nil {
		return nil, err
	}

	length := "dyn"
	labelLength := ""
	if node.Length != nil {
		length, err = arrayLength(node)
		if err != nil {
			return nil, err
		}
		labelLength = length
	}

	return m.registry.register(&TypeDescriptor{
		ID:        fmt.Sprintf("t_array:%s<%s>", length, baseType.ID),
		Kind:      KindArray,
		Label:     fmt.Sprintf("%s[%s]", baseType.Label, labelLength),
		ValueType: baseType.ID,
		Length:    length,
	}), nil
}

// arrayLength returns the decimal length of a fixed-size array. Literal lengths are normalized so that "0x10" and
// "16" collapse to the same id. Lengths given as constant expressions are read from the type string, which carries
// the value the compiler evaluated.
func arrayLength(node *types.ArrayTypeName) (string, error) {
	if literal, ok := node.Length.(*types.Literal); ok && literal.Kind == "number" {
		value := strings.ReplaceAll(literal.Value, "_", "")
		var length *uint256.Int
		var err error
		if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
			length, err = uint256.FromHex(value)
		} else {
			length, err = uint256.FromDecimal(value)
		}
		if err == nil {
			return length.Dec(), nil
		}
	}

	matches := arrayLengthRegex.FindStringSubmatch(node.TypeDescriptions.TypeString)
	if len(matches) != 2 || matches[1] == "" {
		return "", fmt.Errorf("could not determine the length of array type '%s' (node %d)", node.TypeDescriptions.TypeString, node.ID)
	}
	return matches[1], nil
}

// mappingTypeInfo models a mapping. The key type does not affect storage, and nested mappings collapse onto the
// innermost value type.
func (m *TypeModeler) mappingTypeInfo(node *types.Mapping) (*TypeDescriptor, error) {
	valueNode := node.ValueType
	for {
		nested, ok := valueNode.(*types.Mapping)
		if !ok {
			break
		}
		valueNode = nested.ValueType
	}

	valueType, err := m.TypeInfo(valueNode)
	if err != nil {
		return nil, err
	}
	return m.registry.register(&TypeDescriptor{
		ID:        fmt.Sprintf("t_mapping<%s>", valueType.ID),
		Kind:      KindMapping,
		Label:     fmt.Sprintf("mapping(key => %s)", valueType.Label),
		ValueType: valueType.ID,
	}), nil
}

// userDefinedTypeInfo models a reference to a contract, struct, enum or user-defined value type. The referenced kind
// is read from the compiler's type identifier, e.g. "t_struct$_Node_$12_storage_ptr".
func (m *TypeModeler) userDefinedTypeInfo(node *types.UserDefinedTypeName) (*TypeDescriptor, error) {
	identifier := node.TypeDescriptions.TypeIdentifier
	category, _, _ := strings.Cut(identifier, "$")

	switch category {
	case "t_contract", "t_super":
		return m.registry.register(&TypeDescriptor{ID: "t_address", Kind: KindContractRef, Label: "address"}), nil
	case "t_struct":
		return m.structTypeInfo(node.ReferencedDeclaration)
	case "t_enum":
		return m.enumTypeInfo(node.ReferencedDeclaration)
	case "t_userDefinedValueType":
		return m.valueTypeInfo(node.ReferencedDeclaration)
	default:
		return nil, &UnknownTypeNodeError{NodeType: fmt.Sprintf("%s(%s)", node.GetNodeType(), identifier)}
	}
}

// structTypeInfo models a struct. A placeholder is registered before the members are modeled and replaced once they
// are complete.
func (m *TypeModeler) structTypeInfo(id int64) (*TypeDescriptor, error) {
	definition, ref, err := m.resolver.StructByID(id)
	if err != nil {
		return nil, err
	}

	typeID := fmt.Sprintf("t_struct<%s>", definition.CanonicalName)
	if existing, ok := m.registry.Get(typeID); ok {
		return existing, nil
	}
	placeholder := m.registry.beginConstruction(typeID, KindStruct, "struct "+definition.CanonicalName)

	contractName := ""
	if i := strings.LastIndex(definition.CanonicalName, "."); i >= 0 {
		contractName = definition.CanonicalName[:i]
	}

	members := make([]StorageSlot, 0, len(definition.Members))
	for _, member := range definition.Members {
		memberType, err := m.TypeInfo(member.TypeName)
		if err != nil {
			var unknownErr *UnknownTypeNodeError
			if errors.As(err, &unknownErr) && unknownErr.Declaration == "" {
				unknownErr.Declaration = definition.CanonicalName + "." + member.Name
			}
			m.registry.abandonConstruction(typeID)
			return nil, err
		}
		members = append(members, StorageSlot{
			Label:      member.Name,
			Type:       memberType.ID,
			AstID:      member.ID,
			SourcePath: ref.SourcePath,
			Src:        member.Src,
			Contract:   contractName,
		})
	}

	placeholder.Members = members
	m.registry.completeConstruction(placeholder)
	return placeholder, nil
}

// enumTypeInfo models an enum.
func (m *TypeModeler) enumTypeInfo(id int64) (*TypeDescriptor, error) {
	definition, _, err := m.resolver.EnumByID(id)
	if err != nil {
		return nil, err
	}

	typeID := fmt.Sprintf("t_enum<%s>", definition.CanonicalName)
	if existing, ok := m.registry.Get(typeID); ok {
		return existing, nil
	}

	names := make([]string, len(definition.Members))
	for i, member := range definition.Members {
		names[i] = member.Name
	}
	return m.registry.register(&TypeDescriptor{
		ID:          typeID,
		Kind:        KindEnum,
		Label:       "enum " + definition.CanonicalName,
		EnumMembers: names,
	}), nil
}

// valueTypeInfo models a user-defined value type after modeling its underlying type.
func (m *TypeModeler) valueTypeInfo(id int64) (*TypeDescriptor, error) {
	definition, _, err := m.resolver.ValueTypeByID(id)
	if err != nil {
		return nil, err
	}

	underlying, err := m.TypeInfo(definition.UnderlyingType)
	if err != nil {
		return nil, err
	}
	return m.registry.register(&TypeDescriptor{
		ID:        fmt.Sprintf("t_userDefinedValueType<%s>", definition.CanonicalName),
		Kind:      KindUserDefinedValueType,
		Label:     definition.CanonicalName,
		ValueType: underlying.ID,
	}), nil
}

// stripPointerSuffix removes a trailing data location suffix from a compiler type identifier.
func stripPointerSuffix(identifier string) string {
	for _, suffix := range pointerSuffixes {
		if strings.HasSuffix(identifier, suffix) {
			return strings.TrimSuffix(identifier, suffix)
		}
	}
	return identifier
}
