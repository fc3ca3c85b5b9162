package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/exp/slices"
)

// ContractKind represents the kind of contract definition represented by an AST node
type ContractKind string

const (
	// ContractKindContract represents a contract node
	ContractKindContract ContractKind = "contract"
	// ContractKindLibrary represents a library node
	ContractKindLibrary ContractKind = "library"
	// ContractKindInterface represents an interface node
	ContractKindInterface ContractKind = "interface"
)

// Node interface represents a generic AST node. Every concrete node kind decoded by this package implements it, and
// consumers are expected to switch exhaustively over the concrete types rather than over node type strings.
type Node interface {
	// GetNodeType returns the compiler's node kind string (e.g. "ContractDefinition").
	GetNodeType() string
	// GetID returns the compiler-assigned node id. Nodes without an id (e.g. Yul nodes) return zero.
	GetID() int64
	// GetSrc returns the "start:length:sourceIndex" source range of the node.
	GetSrc() string
	// Children returns the direct child nodes, in the order they appear in the AST.
	Children() []Node
}

// TypeName is implemented by every node that can appear in a type position (variable declarations, array base
// types, mapping keys and values).
type TypeName interface {
	Node
	GetTypeDescriptions() TypeDescriptions
	isTypeName()
}

// TypeDescriptions is the compiler-provided description of an expression or type name's resolved type.
type TypeDescriptions struct {
	// TypeIdentifier is the compiler's unique type identifier, e.g. "t_mapping$_t_address_$_t_uint256_$".
	TypeIdentifier string `json:"typeIdentifier"`
	// TypeString is the human-readable type, e.g. "mapping(address => uint256)".
	TypeString string `json:"typeString"`
}

// nodeBase contains the fields shared by every AST node.
type nodeBase struct {
	ID       int64  `json:"id"`
	NodeType string `json:"nodeType"`
	Src      string `json:"src"`
}

// GetNodeType implements the Node interface
func (n *nodeBase) GetNodeType() string { return n.NodeType }

// GetID implements the Node interface
func (n *nodeBase) GetID() int64 { return n.ID }

// GetSrc implements the Node interface
func (n *nodeBase) GetSrc() string { return n.Src }

// SourceUnit is the root node of a source file's AST.
type SourceUnit struct {
	nodeBase
	// AbsolutePath is the path of the source file as seen by the compiler.
	AbsolutePath string `json:"absolutePath"`
	// Nodes is a list of top-level nodes within the source unit.
	Nodes []Node `json:"-"`
}

// Children implements the Node interface
func (s *SourceUnit) Children() []Node { return s.Nodes }

// UnmarshalJSON unmarshals from JSON
func (s *SourceUnit) UnmarshalJSON(data []byte) error {
	// Unmarshal the top-level AST into our own representation. Defer the unmarshaling of all the individual nodes until later
	type Alias SourceUnit
	aux := &struct {
		Nodes []json.RawMessage `json:"nodes"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.NodeType != "SourceUnit" {
		return fmt.Errorf("expected a SourceUnit AST root, got node type '%s'", s.NodeType)
	}

	var err error
	s.Nodes, err = decodeNodes(aux.Nodes)
	return err
}

// GetSourceUnitID returns the source unit ID based on the source of the AST
func (s *SourceUnit) GetSourceUnitID() int {
	sourceRange, err := ParseSourceRange(s.Src)
	if err != nil {
		return -1
	}
	return sourceRange.SourceIndex
}

// ImportDirective describes an import statement within a source unit.
type ImportDirective struct {
	nodeBase
	// AbsolutePath is the resolved path of the imported file.
	AbsolutePath string `json:"absolutePath"`
	// File is the import path as written in the source.
	File string `json:"file"`
	// SourceUnit is the node id of the imported source unit.
	SourceUnit int64 `json:"sourceUnit"`
}

// Children implements the Node interface
func (i *ImportDirective) Children() []Node { return nil }

// PragmaDirective describes a pragma statement.
type PragmaDirective struct {
	nodeBase
	Literals []string `json:"literals"`
}

// Children implements the Node interface
func (p *PragmaDirective) Children() []Node { return nil }

// ContractDefinition is the contract definition node
type ContractDefinition struct {
	nodeBase
	// Name is the name of the contract definition
	Name string `json:"name"`
	// CanonicalName is the name of the contract definition
	CanonicalName string `json:"canonicalName,omitempty"`
	// Kind is a ContractKind that represents what type of contract definition this is (contract, interface, or library)
	Kind ContractKind `json:"contractKind,omitempty"`
	// Abstract indicates whether the contract was declared abstract.
	Abstract bool `json:"abstract"`
	// LinearizedBaseContracts is the compiler's C3 linearization of the inheritance graph, most derived first. The
	// contract itself is the first element.
	LinearizedBaseContracts []int64 `json:"linearizedBaseContracts"`
	// Nodes is a list of Nodes within the contract
	Nodes []Node `json:"-"`
}

// Children implements the Node interface
func (c *ContractDefinition) Children() []Node { return c.Nodes }

// UnmarshalJSON unmarshals from JSON
func (c *ContractDefinition) UnmarshalJSON(data []byte) error {
	type Alias ContractDefinition
	aux := &struct {
		Nodes []json.RawMessage `json:"nodes"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.Name == "" {
		return fmt.Errorf("contract definition %d has no name", c.ID)
	}

	var err error
	c.Nodes, err = decodeNodes(aux.Nodes)
	return err
}

// StateVariables returns the state variable declarations of the contract in declaration order.
func (c *ContractDefinition) StateVariables() []*VariableDeclaration {
	variables := make([]*VariableDeclaration, 0)
	for _, node := range c.Nodes {
		if v, ok := node.(*VariableDeclaration); ok && v.StateVariable {
			variables = append(variables, v)
		}
	}
	return variables
}

// Functions returns the function definitions of the contract in declaration order.
func (c *ContractDefinition) Functions() []*FunctionDefinition {
	functions := make([]*FunctionDefinition, 0)
	for _, node := range c.Nodes {
		if f, ok := node.(*FunctionDefinition); ok {
			functions = append(functions, f)
		}
	}
	return functions
}

// VariableDeclaration describes a state variable, struct member, parameter or local variable.
type VariableDeclaration struct {
	nodeBase
	Name             string           `json:"name"`
	StateVariable    bool             `json:"stateVariable"`
	Constant         bool             `json:"constant"`
	Mutability       string           `json:"mutability,omitempty"`
	Visibility       string           `json:"visibility,omitempty"`
	StorageLocation  string           `json:"storageLocation,omitempty"`
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
	// TypeName is the declared type. It is nil for legacy `var` declarations.
	TypeName TypeName `json:"-"`
	// Value is the inline initializer expression, or nil if there is none.
	Value Node `json:"-"`
}

// Children implements the Node interface
func (v *VariableDeclaration) Children() []Node {
	children := make([]Node, 0, 2)
	if v.TypeName != nil {
		children = append(children, v.TypeName)
	}
	if v.Value != nil {
		children = append(children, v.Value)
	}
	return children
}

// GetTypeDescriptions returns the resolved type of the declaration.
func (v *VariableDeclaration) GetTypeDescriptions() TypeDescriptions { return v.TypeDescriptions }

// IsStorageResident returns true if the declaration is a state variable that is assigned a storage slot. Constants
// and immutables are embedded in bytecode instead.
func (v *VariableDeclaration) IsStorageResident() bool {
	return v.StateVariable && !v.Constant && v.Mutability != "constant" && v.Mutability != "immutable"
}

// UnmarshalJSON unmarshals from JSON
func (v *VariableDeclaration) UnmarshalJSON(data []byte) error {
	type Alias VariableDeclaration
	aux := &struct {
		TypeName json.RawMessage `json:"typeName"`
		Value    json.RawMessage `json:"value"`
		*Alias
	}{
		Alias: (*Alias)(v),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if v.TypeName, err = decodeTypeName(aux.TypeName); err != nil {
		return err
	}
	v.Value, err = decodeNode(aux.Value)
	return err
}

// StructDefinition describes a struct type declaration.
type StructDefinition struct {
	nodeBase
	Name          string                 `json:"name"`
	CanonicalName string                 `json:"canonicalName"`
	Members       []*VariableDeclaration `json:"members"`
}

// Children implements the Node interface
func (s *StructDefinition) Children() []Node {
	children := make([]Node, len(s.Members))
	for i, member := range s.Members {
		children[i] = member
	}
	return children
}

// EnumDefinition describes an enum type declaration.
type EnumDefinition struct {
	nodeBase
	Name          string       `json:"name"`
	CanonicalName string       `json:"canonicalName"`
	Members       []*EnumValue `json:"members"`
}

// Children implements the Node interface
func (e *EnumDefinition) Children() []Node {
	children := make([]Node, len(e.Members))
	for i, member := range e.Members {
		children[i] = member
	}
	return children
}

// EnumValue is a single member of an EnumDefinition.
type EnumValue struct {
	nodeBase
	Name string `json:"name"`
}

// Children implements the Node interface
func (e *EnumValue) Children() []Node { return nil }

// UserDefinedValueTypeDefinition describes a `type X is <elementary>;` declaration.
type UserDefinedValueTypeDefinition struct {
	nodeBase
	Name           string   `json:"name"`
	CanonicalName  string   `json:"canonicalName"`
	UnderlyingType TypeName `json:"-"`
}

// Children implements the Node interface
func (u *UserDefinedValueTypeDefinition) Children() []Node {
	if u.UnderlyingType == nil {
		return nil
	}
	return []Node{u.UnderlyingType}
}

// UnmarshalJSON unmarshals from JSON
func (u *UserDefinedValueTypeDefinition) UnmarshalJSON(data []byte) error {
	type Alias UserDefinedValueTypeDefinition
	aux := &struct {
		UnderlyingType json.RawMessage `json:"underlyingType"`
		*Alias
	}{
		Alias: (*Alias)(u),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	u.UnderlyingType, err = decodeTypeName(aux.UnderlyingType)
	return err
}

// FunctionDefinition is the function definition node
type FunctionDefinition struct {
	nodeBase
	Name string `json:"name,omitempty"`
	// Kind is one of "function", "constructor", "fallback", "receive" or "freeFunction". Compilers prior to 0.5
	// leave it empty and set IsConstructor instead.
	Kind          string                `json:"kind,omitempty"`
	IsConstructor bool                  `json:"isConstructor,omitempty"`
	Visibility    string                `json:"visibility,omitempty"`
	Modifiers     []*ModifierInvocation `json:"-"`
	// Body is nil for unimplemented functions.
	Body *Block `json:"-"`
}

// Children implements the Node interface
func (f *FunctionDefinition) Children() []Node {
	children := make([]Node, 0, len(f.Modifiers)+1)
	for _, modifier := range f.Modifiers {
		children = append(children, modifier)
	}
	if f.Body != nil {
		children = append(children, f.Body)
	}
	return children
}

// HasModifier returns true if the function is decorated with a modifier of the given name.
func (f *FunctionDefinition) HasModifier(name string) bool {
	for _, modifier := range f.Modifiers {
		if modifier.Name() == name {
			return true
		}
	}
	return false
}

// UnmarshalJSON unmarshals from JSON
func (f *FunctionDefinition) UnmarshalJSON(data []byte) error {
	type Alias FunctionDefinition
	aux := &struct {
		Modifiers []*ModifierInvocation `json:"modifiers"`
		Body      *Block                `json:"body"`
		*Alias
	}{
		Alias: (*Alias)(f),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.Modifiers = aux.Modifiers
	f.Body = aux.Body
	return nil
}

// GetStart returns the byte offset at which the function starts in its source file, or -1 if unknown.
func (f *FunctionDefinition) GetStart() int {
	sourceRange, err := ParseSourceRange(f.Src)
	if err != nil {
		return -1
	}
	return sourceRange.Start
}

// GetLength returns the byte length of the function in its source file, or -1 if unknown.
func (f *FunctionDefinition) GetLength() int {
	sourceRange, err := ParseSourceRange(f.Src)
	if err != nil {
		return -1
	}
	return sourceRange.Length
}

// ModifierInvocation describes a modifier applied to a function.
type ModifierInvocation struct {
	nodeBase
	// ModifierName is an Identifier (solc < 0.8) or IdentifierPath (solc >= 0.8) naming the modifier.
	ModifierName Node   `json:"-"`
	Arguments    []Node `json:"-"`
}

// Children implements the Node interface
func (m *ModifierInvocation) Children() []Node {
	children := make([]Node, 0, len(m.Arguments)+1)
	if m.ModifierName != nil {
		children = append(children, m.ModifierName)
	}
	return append(children, m.Arguments...)
}

// Name returns the name of the invoked modifier.
func (m *ModifierInvocation) Name() string {
	switch name := m.ModifierName.(type) {
	case *Identifier:
		return name.Name
	case *IdentifierPath:
		return name.Name
	default:
		return ""
	}
}

// UnmarshalJSON unmarshals from JSON
func (m *ModifierInvocation) UnmarshalJSON(data []byte) error {
	type Alias ModifierInvocation
	aux := &struct {
		ModifierName json.RawMessage   `json:"modifierName"`
		Arguments    []json.RawMessage `json:"arguments"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if m.ModifierName, err = decodeNode(aux.ModifierName); err != nil {
		return err
	}
	m.Arguments, err = decodeNodes(aux.Arguments)
	return err
}

// Block is a braced list of statements.
type Block struct {
	nodeBase
	Statements []Node `json:"-"`
}

// Children implements the Node interface
func (b *Block) Children() []Node { return b.Statements }

// UnmarshalJSON unmarshals from JSON
func (b *Block) UnmarshalJSON(data []byte) error {
	type Alias Block
	aux := &struct {
		Statements []json.RawMessage `json:"statements"`
		*Alias
	}{
		Alias: (*Alias)(b),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	b.Statements, err = decodeNodes(aux.Statements)
	return err
}

// ExpressionStatement is a statement consisting of a single expression.
type ExpressionStatement struct {
	nodeBase
	Expression Node `json:"-"`
}

// Children implements the Node interface
func (e *ExpressionStatement) Children() []Node {
	if e.Expression == nil {
		return nil
	}
	return []Node{e.Expression}
}

// UnmarshalJSON unmarshals from JSON
func (e *ExpressionStatement) UnmarshalJSON(data []byte) error {
	type Alias ExpressionStatement
	aux := &struct {
		Expression json.RawMessage `json:"expression"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	e.Expression, err = decodeNode(aux.Expression)
	return err
}

// FunctionCall is a call expression (also used for type conversions and struct constructors).
type FunctionCall struct {
	nodeBase
	Kind             string           `json:"kind,omitempty"`
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
	Expression       Node             `json:"-"`
	Arguments        []Node           `json:"-"`
}

// Children implements the Node interface
func (f *FunctionCall) Children() []Node {
	children := make([]Node, 0, len(f.Arguments)+1)
	if f.Expression != nil {
		children = append(children, f.Expression)
	}
	return append(children, f.Arguments...)
}

// GetTypeDescriptions returns the resolved type of the call expression.
func (f *FunctionCall) GetTypeDescriptions() TypeDescriptions { return f.TypeDescriptions }

// UnmarshalJSON unmarshals from JSON
func (f *FunctionCall) UnmarshalJSON(data []byte) error {
	type Alias FunctionCall
	aux := &struct {
		Expression json.RawMessage   `json:"expression"`
		Arguments  []json.RawMessage `json:"arguments"`
		*Alias
	}{
		Alias: (*Alias)(f),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if f.Expression, err = decodeNode(aux.Expression); err != nil {
		return err
	}
	f.Arguments, err = decodeNodes(aux.Arguments)
	return err
}

// MemberAccess is an `expression.member` expression.
type MemberAccess struct {
	nodeBase
	MemberName            string           `json:"memberName"`
	ReferencedDeclaration *int64           `json:"referencedDeclaration,omitempty"`
	TypeDescriptions      TypeDescriptions `json:"typeDescriptions"`
	Expression            Node             `json:"-"`
}

// Children implements the Node interface
func (m *MemberAccess) Children() []Node {
	if m.Expression == nil {
		return nil
	}
	return []Node{m.Expression}
}

// GetTypeDescriptions returns the resolved type of the member.
func (m *MemberAccess) GetTypeDescriptions() TypeDescriptions { return m.TypeDescriptions }

// UnmarshalJSON unmarshals from JSON
func (m *MemberAccess) UnmarshalJSON(data []byte) error {
	type Alias MemberAccess
	aux := &struct {
		Expression json.RawMessage `json:"expression"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	m.Expression, err = decodeNode(aux.Expression)
	return err
}

// Identifier is a reference to a declaration by name.
type Identifier struct {
	nodeBase
	Name                  string           `json:"name"`
	ReferencedDeclaration int64            `json:"referencedDeclaration"`
	TypeDescriptions      TypeDescriptions `json:"typeDescriptions"`
}

// Children implements the Node interface
func (i *Identifier) Children() []Node { return nil }

// GetTypeDescriptions returns the resolved type of the identifier.
func (i *Identifier) GetTypeDescriptions() TypeDescriptions { return i.TypeDescriptions }

// IdentifierPath is a possibly dotted reference to a declaration, used by newer compilers in type and modifier
// positions.
type IdentifierPath struct {
	nodeBase
	Name                  string `json:"name"`
	ReferencedDeclaration int64  `json:"referencedDeclaration"`
}

// Children implements the Node interface
func (i *IdentifierPath) Children() []Node { return nil }

// Literal is a constant literal expression.
type Literal struct {
	nodeBase
	Kind             string           `json:"kind"`
	Value            string           `json:"value"`
	HexValue         string           `json:"hexValue,omitempty"`
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
}

// Children implements the Node interface
func (l *Literal) Children() []Node { return nil }

// GetTypeDescriptions returns the resolved type of the literal.
func (l *Literal) GetTypeDescriptions() TypeDescriptions { return l.TypeDescriptions }

// ElementaryTypeName is a built-in value type such as uint256, address, bool, string or bytes.
type ElementaryTypeName struct {
	nodeBase
	Name             string           `json:"name"`
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
}

func (e *ElementaryTypeName) Children() []Node                      { return nil }
func (e *ElementaryTypeName) GetTypeDescriptions() TypeDescriptions { return e.TypeDescriptions }
func (e *ElementaryTypeName) isTypeName()                           {}

// ArrayTypeName is a fixed-size or dynamic array type.
type ArrayTypeName struct {
	nodeBase
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
	BaseType         TypeName         `json:"-"`
	// Length is the length expression, or nil for dynamic arrays.
	Length Node `json:"-"`
}

func (a *ArrayTypeName) GetTypeDescriptions() TypeDescriptions { return a.TypeDescriptions }
func (a *ArrayTypeName) isTypeName()                           {}

// Children implements the Node interface
func (a *ArrayTypeName) Children() []Node {
	children := []Node{a.BaseType}
	if a.Length != nil {
		children = append(children, a.Length)
	}
	return children
}

// UnmarshalJSON unmarshals from JSON
func (a *ArrayTypeName) UnmarshalJSON(data []byte) error {
	type Alias ArrayTypeName
	aux := &struct {
		BaseType json.RawMessage `json:"baseType"`
		Length   json.RawMessage `json:"length"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if a.BaseType, err = decodeTypeName(aux.BaseType); err != nil {
		return err
	}
	if a.BaseType == nil {
		return fmt.Errorf("array type name %d has no base type", a.ID)
	}
	a.Length, err = decodeNode(aux.Length)
	return err
}

// Mapping is a `mapping(K => V)` type.
type Mapping struct {
	nodeBase
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
	KeyType          TypeName         `json:"-"`
	ValueType        TypeName         `json:"-"`
}

func (m *Mapping) Children() []Node                      { return []Node{m.KeyType, m.ValueType} }
func (m *Mapping) GetTypeDescriptions() TypeDescriptions { return m.TypeDescriptions }
func (m *Mapping) isTypeName()                           {}

// UnmarshalJSON unmarshals from JSON
func (m *Mapping) UnmarshalJSON(data []byte) error {
	type Alias Mapping
	aux := &struct {
		KeyType   json.RawMessage `json:"keyType"`
		ValueType json.RawMessage `json:"valueType"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if m.KeyType, err = decodeTypeName(aux.KeyType); err != nil {
		return err
	}
	if m.ValueType, err = decodeTypeName(aux.ValueType); err != nil {
		return err
	}
	if m.KeyType == nil || m.ValueType == nil {
		return fmt.Errorf("mapping type name %d is missing its key or value type", m.ID)
	}
	return nil
}

// UserDefinedTypeName references a contract, struct, enum or user-defined value type declaration.
type UserDefinedTypeName struct {
	nodeBase
	Name                  string           `json:"name,omitempty"`
	ReferencedDeclaration int64            `json:"referencedDeclaration"`
	TypeDescriptions      TypeDescriptions `json:"typeDescriptions"`
}

func (u *UserDefinedTypeName) Children() []Node                      { return nil }
func (u *UserDefinedTypeName) GetTypeDescriptions() TypeDescriptions { return u.TypeDescriptions }
func (u *UserDefinedTypeName) isTypeName()                           {}

// FunctionTypeName is a function pointer type.
type FunctionTypeName struct {
	nodeBase
	Visibility       string           `json:"visibility,omitempty"`
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
}

func (f *FunctionTypeName) Children() []Node                      { return nil }
func (f *FunctionTypeName) GetTypeDescriptions() TypeDescriptions { return f.TypeDescriptions }
func (f *FunctionTypeName) isTypeName()                           {}

// UnknownTypeName holds a type-position node whose kind is not modeled by this package. It is kept rather than
// rejected at decode time so that consumers can report which declaration uses the unsupported construct.
type UnknownTypeName struct {
	nodeBase
	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
}

func (u *UnknownTypeName) Children() []Node                      { return nil }
func (u *UnknownTypeName) GetTypeDescriptions() TypeDescriptions { return u.TypeDescriptions }
func (u *UnknownTypeName) isTypeName()                           {}

// GenericNode holds any node kind without a dedicated representation. Its nested nodes are still decoded so that
// whole-tree traversals see every node.
type GenericNode struct {
	nodeBase
	TypeDescriptions *TypeDescriptions `json:"typeDescriptions,omitempty"`
	children         []Node
}

// Children implements the Node interface
func (g *GenericNode) Children() []Node { return g.children }

// UnmarshalJSON unmarshals from JSON
func (g *GenericNode) UnmarshalJSON(data []byte) error {
	type Alias GenericNode
	if err := json.Unmarshal(data, (*Alias)(g)); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	// Decode nested nodes in key order so traversal is deterministic.
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value := bytes.TrimSpace(fields[key])
		if len(value) == 0 {
			continue
		}
		switch value[0] {
		case '{':
			if !hasNodeType(value) {
				continue
			}
			child, err := decodeNode(value)
			if err != nil {
				return err
			}
			g.children = append(g.children, child)
		case '[':
			var elements []json.RawMessage
			if err := json.Unmarshal(value, &elements); err != nil {
				return err
			}
			for _, element := range elements {
				element = bytes.TrimSpace(element)
				if len(element) == 0 || element[0] != '{' || !hasNodeType(element) {
					continue
				}
				child, err := decodeNode(element)
				if err != nil {
					return err
				}
				g.children = append(g.children, child)
			}
		}
	}
	return nil
}

// hasNodeType returns true if the provided JSON object carries a non-empty nodeType field.
func hasNodeType(data []byte) bool {
	var header struct {
		NodeType string `json:"nodeType"`
	}
	return json.Unmarshal(data, &header) == nil && header.NodeType != ""
}

// isNull returns true if the raw message is absent or the JSON null literal.
func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeNode unmarshals a single node into its concrete representation based on its node type. A null or absent
// node yields a nil Node.
func decodeNode(data json.RawMessage) (Node, error) {
	if isNull(data) {
		return nil, nil
	}

	// Unmarshal the node data to retrieve the node type
	var header struct {
		NodeType string `json:"nodeType"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	// Unmarshal the contents of the node based on the node type
	var node Node
	switch header.NodeType {
	case "":
		return nil, fmt.Errorf("AST node is missing its nodeType: %.80s", string(data))
	case "SourceUnit":
		node = &SourceUnit{}
	case "ImportDirective":
		node = &ImportDirective{}
	case "PragmaDirective":
		node = &PragmaDirective{}
	case "ContractDefinition":
		node = &ContractDefinition{}
	case "VariableDeclaration":
		node = &VariableDeclaration{}
	case "StructDefinition":
		node = &StructDefinition{}
	case "EnumDefinition":
		node = &EnumDefinition{}
	case "EnumValue":
		node = &EnumValue{}
	case "UserDefinedValueTypeDefinition":
		node = &UserDefinedValueTypeDefinition{}
	case "FunctionDefinition":
		node = &FunctionDefinition{}
	case "ModifierInvocation":
		node = &ModifierInvocation{}
	case "Block":
		node = &Block{}
	case "ExpressionStatement":
		node = &ExpressionStatement{}
	case "FunctionCall":
		node = &FunctionCall{}
	case "MemberAccess":
		node = &MemberAccess{}
	case "Identifier":
		node = &Identifier{}
	case "IdentifierPath":
		node = &IdentifierPath{}
	case "Literal":
		node = &Literal{}
	case "ElementaryTypeName", "ArrayTypeName", "Mapping", "UserDefinedTypeName", "FunctionTypeName":
		return decodeTypeName(data)
	default:
		node = &GenericNode{}
	}

	if err := json.Unmarshal(data, node); err != nil {
		return nil, fmt.Errorf("could not decode %s node: %w", header.NodeType, err)
	}
	return node, nil
}

// decodeNodes decodes a list of nodes, skipping null entries.
func decodeNodes(data []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, 0, len(data))
	for _, nodeData := range data {
		node, err := decodeNode(nodeData)
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// decodeTypeName decodes a node in a type position. Unmodeled kinds become UnknownTypeName.
func decodeTypeName(data json.RawMessage) (TypeName, error) {
	if isNull(data) {
		return nil, nil
	}

	var header struct {
		NodeType string `json:"nodeType"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	var typeName TypeName
	switch header.NodeType {
	case "":
		return nil, fmt.Errorf("AST type name is missing its nodeType: %.80s", string(data))
	case "ElementaryTypeName":
		typeName = &ElementaryTypeName{}
	case "ArrayTypeName":
		typeName = &ArrayTypeName{}
	case "Mapping":
		typeName = &Mapping{}
	case "UserDefinedTypeName":
		typeName = &UserDefinedTypeName{}
	case "FunctionTypeName":
		typeName = &FunctionTypeName{}
	default:
		typeName = &UnknownTypeName{}
	}

	if err := json.Unmarshal(data, typeName); err != nil {
		return nil, fmt.Errorf("could not decode %s type name: %w", header.NodeType, err)
	}
	return typeName, nil
}

// Walk traverses the AST rooted at node in depth-first pre-order. If visit returns false, the children of the
// visited node are skipped.
func Walk(node Node, visit func(Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	for _, child := range node.Children() {
		Walk(child, visit)
	}
}

// SourceRange is a parsed "start:length:sourceIndex" source location.
type SourceRange struct {
	Start       int
	Length      int
	SourceIndex int
}

// sourceRangeRegex matches a compiler source location string.
var sourceRangeRegex = regexp.MustCompile(`^(-?[0-9]+):(-?[0-9]+):(-?[0-9]+)$`)

// ParseSourceRange parses a compiler source location string such as "95:42:0".
func ParseSourceRange(src string) (SourceRange, error) {
	matches := sourceRangeRegex.FindStringSubmatch(src)
	if len(matches) != 4 {
		return SourceRange{}, fmt.Errorf("malformed source range '%s'", src)
	}

	// The regex guarantees each group is an integer
	start, _ := strconv.Atoi(matches[1])
	length, _ := strconv.Atoi(matches[2])
	sourceIndex, _ := strconv.Atoi(matches[3])
	return SourceRange{Start: start, Length: length, SourceIndex: sourceIndex}, nil
}

// LineNumber returns the 1-based line number of the given byte offset within the source text, or -1 if the offset
// is out of range.
func LineNumber(source string, offset int) int {
	if offset < 0 || offset > len(source) {
		return -1
	}
	return bytes.Count([]byte(source[:offset]), []byte("\n")) + 1
}
