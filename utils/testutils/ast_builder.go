package testutils

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/stretchr/testify/require"
)

// JSONNode is a compact-AST node in its JSON object form.
type JSONNode = map[string]any

// ASTBuilder programmatically assembles solc compact-AST source units and the truffle artifacts that carry them.
// Node ids are allocated from a single counter, so every source unit built by one ASTBuilder behaves like the output
// of a single compilation.
type ASTBuilder struct {
	nextID  int64
	sources []*SourceBuilder
}

// SourceBuilder assembles a single source unit.
type SourceBuilder struct {
	builder   *ASTBuilder
	id        int64
	pragmaID  int64
	path      string
	imports   []*SourceBuilder
	importIDs []int64
	contracts []*ContractBuilder
}

// ContractBuilder assembles a single contract definition.
type ContractBuilder struct {
	builder      *ASTBuilder
	source       *SourceBuilder
	ID           int64
	Name         string
	kind         string
	linearized   []int64
	members      []memberBuilder
	abiEntries   []JSONNode
	functionsByN map[string]*FunctionBuilder
}

// StructBuilder assembles a struct definition. Members may be added after the struct has been referenced, which
// allows self-referential structs to be built.
type StructBuilder struct {
	builder       *ASTBuilder
	ID            int64
	Name          string
	CanonicalName string
	members       []*VariableBuilder
}

// EnumBuilder assembles an enum definition.
type EnumBuilder struct {
	ID            int64
	Name          string
	CanonicalName string
	values        []JSONNode
}

// ValueTypeBuilder assembles a user-defined value type definition.
type ValueTypeBuilder struct {
	ID             int64
	Name           string
	CanonicalName  string
	underlyingType JSONNode
}

// VariableBuilder assembles a variable declaration.
type VariableBuilder struct {
	ID         int64
	Name       string
	typeName   JSONNode
	state      bool
	constant   bool
	mutability string
	value      JSONNode
}

// FunctionBuilder assembles a function definition.
type FunctionBuilder struct {
	ID         int64
	Name       string
	kind       string
	modifiers  []JSONNode
	parameters JSONNode
	bodyID     int64
	statements []JSONNode
}

// memberBuilder is any declaration that can be placed inside a contract.
type memberBuilder interface {
	node() JSONNode
}

// NewASTBuilder returns an empty ASTBuilder whose first allocated node id is 1.
func NewASTBuilder() *ASTBuilder {
	return &ASTBuilder{nextID: 1}
}

// allocID returns a fresh node id.
func (b *ASTBuilder) allocID() int64 {
	id := b.nextID
	b.nextID++
	return id
}

// SetNextID forces the id of the next allocated node. It is used to reproduce stale artifacts in which two
// compilations reused the same node id.
func (b *ASTBuilder) SetNextID(id int64) {
	b.nextID = id
}

// Source starts a new source unit at the given path.
func (b *ASTBuilder) Source(path string) *SourceBuilder {
	source := &SourceBuilder{builder: b, id: b.allocID(), pragmaID: b.allocID(), path: path}
	b.sources = append(b.sources, source)
	return source
}

// Import records an import of another source unit.
func (s *SourceBuilder) Import(other *SourceBuilder) *SourceBuilder {
	s.imports = append(s.imports, other)
	s.importIDs = append(s.importIDs, s.builder.allocID())
	return s
}

// Path returns the source unit's path.
func (s *SourceBuilder) Path() string {
	return s.path
}

// Contract declares a contract inheriting from the provided bases, listed in declaration order as in
// `contract C is A, B`. The linearization is computed the way the compiler does for acyclic hierarchies.
func (s *SourceBuilder) Contract(name string, bases ...*ContractBuilder) *ContractBuilder {
	return s.declare(name, "contract", bases)
}

// Library declares a library.
func (s *SourceBuilder) Library(name string) *ContractBuilder {
	return s.declare(name, "library", nil)
}

// Interface declares an interface.
func (s *SourceBuilder) Interface(name string) *ContractBuilder {
	return s.declare(name, "interface", nil)
}

func (s *SourceBuilder) declare(name string, kind string, bases []*ContractBuilder) *ContractBuilder {
	contract := &ContractBuilder{
		builder:      s.builder,
		source:       s,
		ID:           s.builder.allocID(),
		Name:         name,
		kind:         kind,
		functionsByN: make(map[string]*FunctionBuilder),
	}

	// C3 linearization with the most derived contract first and bases taken from right to left
	sequences := make([][]int64, 0, len(bases)+1)
	direct := make([]int64, 0, len(bases))
	for i := len(bases) - 1; i >= 0; i-- {
		sequences = append(sequences, append([]int64{}, bases[i].linearized...))
		direct = append(direct, bases[i].ID)
	}
	sequences = append(sequences, direct)
	contract.linearized = append([]int64{contract.ID}, mergeLinearizations(sequences)...)

	s.contracts = append(s.contracts, contract)
	return contract
}

// mergeLinearizations performs the C3 merge of the provided sequences. It panics on inconsistent hierarchies.
func mergeLinearizations(sequences [][]int64) []int64 {
	merged := make([]int64, 0)
	for {
		remaining := sequences[:0]
		for _, sequence := range sequences {
			if len(sequence) > 0 {
				remaining = append(remaining, sequence)
			}
		}
		sequences = remaining
		if len(sequences) == 0 {
			return merged
		}

		var head int64
		found := false
		for _, sequence := range sequences {
			candidate := sequence[0]
			inTail := false
			for _, other := range sequences {
				for _, id := range other[1:] {
					if id == candidate {
						inTail = true
					}
				}
			}
			if !inTail {
				head, found = candidate, true
				break
			}
		}
		if !found {
			panic("inconsistent inheritance hierarchy")
		}

		merged = append(merged, head)
		for i, sequence := range sequences {
			if sequence[0] == head {
				sequences[i] = sequence[1:]
			}
		}
	}
}

// StateVar declares a state variable of the given type name.
func (c *ContractBuilder) StateVar(name string, typeName JSONNode) *VariableBuilder {
	variable := &VariableBuilder{ID: c.builder.allocID(), Name: name, typeName: typeName, state: true, mutability: "mutable"}
	c.members = append(c.members, variable)
	return variable
}

// Struct declares a struct inside the contract.
func (c *ContractBuilder) Struct(name string) *StructBuilder {
	structDef := &StructBuilder{builder: c.builder, ID: c.builder.allocID(), Name: name, CanonicalName: c.Name + "." + name}
	c.members = append(c.members, structDef)
	return structDef
}

// Enum declares an enum inside the contract.
func (c *ContractBuilder) Enum(name string, values ...string) *EnumBuilder {
	enumDef := &EnumBuilder{ID: c.builder.allocID(), Name: name, CanonicalName: c.Name + "." + name}
	for _, value := range values {
		enumDef.values = append(enumDef.values, JSONNode{"id": c.builder.allocID(), "nodeType": "EnumValue", "src": "0:0:0", "name": value})
	}
	c.members = append(c.members, enumDef)
	return enumDef
}

// ValueType declares a user-defined value type inside the contract.
func (c *ContractBuilder) ValueType(name string, underlying string) *ValueTypeBuilder {
	valueType := &ValueTypeBuilder{
		ID:             c.builder.allocID(),
		Name:           name,
		CanonicalName:  c.Name + "." + name,
		underlyingType: c.builder.Elementary(underlying),
	}
	c.members = append(c.members, valueType)
	return valueType
}

// Function declares a public function with the given modifiers. Statements are added with Statement.
func (c *ContractBuilder) Function(name string, modifiers ...string) *FunctionBuilder {
	function := c.builder.function(name, "function", modifiers)
	c.members = append(c.members, function)
	c.functionsByN[name] = function
	c.abiEntries = append(c.abiEntries, JSONNode{"type": "function", "name": name, "inputs": []any{}, "outputs": []any{}, "stateMutability": "nonpayable"})
	return function
}

// Constructor declares an explicit constructor.
func (c *ContractBuilder) Constructor() *FunctionBuilder {
	function := c.builder.function("", "constructor", nil)
	c.members = append(c.members, function)
	c.abiEntries = append(c.abiEntries, JSONNode{"type": "constructor", "inputs": []any{}, "stateMutability": "nonpayable"})
	return function
}

// function allocates a function definition along with its modifier invocations, parameter list and body.
func (b *ASTBuilder) function(name string, kind string, modifiers []string) *FunctionBuilder {
	function := &FunctionBuilder{ID: b.allocID(), Name: name, kind: kind}
	for _, modifier := range modifiers {
		function.modifiers = append(function.modifiers, JSONNode{
			"id":           b.allocID(),
			"nodeType":     "ModifierInvocation",
			"src":          "0:0:0",
			"modifierName": JSONNode{"id": b.allocID(), "nodeType": "IdentifierPath", "src": "0:0:0", "name": modifier, "referencedDeclaration": 0},
		})
	}
	function.parameters = JSONNode{"id": b.allocID(), "nodeType": "ParameterList", "src": "0:0:0", "parameters": []any{}}
	function.bodyID = b.allocID()
	return function
}

// Member adds a member to the struct.
func (s *StructBuilder) Member(name string, typeName JSONNode) *StructBuilder {
	s.members = append(s.members, &VariableBuilder{ID: s.builder.allocID(), Name: name, typeName: typeName, mutability: "mutable"})
	return s
}

// Constant marks the variable as constant.
func (v *VariableBuilder) Constant() *VariableBuilder {
	v.constant = true
	v.mutability = "constant"
	return v
}

// Immutable marks the variable as immutable.
func (v *VariableBuilder) Immutable() *VariableBuilder {
	v.mutability = "immutable"
	return v
}

// InitialValue gives the variable an inline number literal initializer.
func (v *VariableBuilder) InitialValue(value string) *VariableBuilder {
	v.value = JSONNode{
		"id":               int64(0),
		"nodeType":         "Literal",
		"src":              "0:0:0",
		"kind":             "number",
		"value":            value,
		"typeDescriptions": JSONNode{"typeIdentifier": "t_rational_" + value + "_by_1", "typeString": "int_const " + value},
	}
	return v
}

// Statement appends a statement to the function body.
func (f *FunctionBuilder) Statement(statement JSONNode) *FunctionBuilder {
	f.statements = append(f.statements, statement)
	return f
}

// Elementary returns an ElementaryTypeName node for a built-in type such as "uint256" or "string".
func (b *ASTBuilder) Elementary(name string) JSONNode {
	identifier := "t_" + name
	switch name {
	case "string", "bytes":
		identifier = "t_" + name + "_storage_ptr"
	case "address payable":
		identifier = "t_address_payable"
	}
	return JSONNode{
		"id":               b.allocID(),
		"nodeType":         "ElementaryTypeName",
		"src":              "0:0:0",
		"name":             name,
		"typeDescriptions": JSONNode{"typeIdentifier": identifier, "typeString": name},
	}
}

// Array returns an ArrayTypeName node. An empty length declares a dynamic array.
func (b *ASTBuilder) Array(base JSONNode, length string) JSONNode {
	baseString := typeString(base)
	node := JSONNode{
		"id":               b.allocID(),
		"nodeType":         "ArrayTypeName",
		"src":              "0:0:0",
		"baseType":         base,
		"typeDescriptions": JSONNode{"typeIdentifier": "t_array$_" + typeIdentifier(base) + "_$dyn_storage_ptr", "typeString": baseString + "[]"},
	}
	if length != "" {
		node["length"] = JSONNode{
			"id":               b.allocID(),
			"nodeType":         "Literal",
			"src":              "0:0:0",
			"kind":             "number",
			"value":            length,
			"typeDescriptions": JSONNode{"typeIdentifier": "t_rational_" + length + "_by_1", "typeString": "int_const " + length},
		}
		node["typeDescriptions"] = JSONNode{"typeIdentifier": "t_array$_" + typeIdentifier(base) + "_$" + length + "_storage_ptr", "typeString": baseString + "[" + length + "]"}
	}
	return node
}

// Mapping returns a Mapping node.
func (b *ASTBuilder) Mapping(key JSONNode, value JSONNode) JSONNode {
	return JSONNode{
		"id":        b.allocID(),
		"nodeType":  "Mapping",
		"src":       "0:0:0",
		"keyType":   key,
		"valueType": value,
		"typeDescriptions": JSONNode{
			"typeIdentifier": "t_mapping$_" + typeIdentifier(key) + "_$_" + typeIdentifier(value) + "_$",
			"typeString":     "mapping(" + typeString(key) + " => " + typeString(value) + ")",
		},
	}
}

// StructRef returns a UserDefinedTypeName node referencing a struct.
func (b *ASTBuilder) StructRef(s *StructBuilder) JSONNode {
	return b.userDefined(s.Name, s.ID, fmt.Sprintf("t_struct$_%s_$%d_storage_ptr", s.Name, s.ID), "struct "+s.CanonicalName)
}

// EnumRef returns a UserDefinedTypeName node referencing an enum.
func (b *ASTBuilder) EnumRef(e *EnumBuilder) JSONNode {
	return b.userDefined(e.Name, e.ID, fmt.Sprintf("t_enum$_%s_$%d", e.Name, e.ID), "enum "+e.CanonicalName)
}

// ValueTypeRef returns a UserDefinedTypeName node referencing a user-defined value type.
func (b *ASTBuilder) ValueTypeRef(v *ValueTypeBuilder) JSONNode {
	return b.userDefined(v.Name, v.ID, fmt.Sprintf("t_userDefinedValueType$_%s_$%d", v.Name, v.ID), v.CanonicalName)
}

// ContractRef returns a UserDefinedTypeName node referencing a contract.
func (b *ASTBuilder) ContractRef(c *ContractBuilder) JSONNode {
	return b.userDefined(c.Name, c.ID, fmt.Sprintf("t_contract$_%s_$%d", c.Name, c.ID), "contract "+c.Name)
}

func (b *ASTBuilder) userDefined(name string, referencedID int64, identifier string, typeStr string) JSONNode {
	return JSONNode{
		"id":                    b.allocID(),
		"nodeType":              "UserDefinedTypeName",
		"src":                   "0:0:0",
		"pathNode":              JSONNode{"id": b.allocID(), "nodeType": "IdentifierPath", "src": "0:0:0", "name": name, "referencedDeclaration": referencedID},
		"referencedDeclaration": referencedID,
		"typeDescriptions":      JSONNode{"typeIdentifier": identifier, "typeString": typeStr},
	}
}

// FunctionType returns a FunctionTypeName node for an internal function pointer.
func (b *ASTBuilder) FunctionType() JSONNode {
	return JSONNode{
		"id":               b.allocID(),
		"nodeType":         "FunctionTypeName",
		"src":              "0:0:0",
		"visibility":       "internal",
		"typeDescriptions": JSONNode{"typeIdentifier": "t_function_internal_nonpayable$__$returns$__$", "typeString": "function ()"},
	}
}

// RawTypeName returns a type-position node of an arbitrary kind.
func (b *ASTBuilder) RawTypeName(nodeType string) JSONNode {
	return JSONNode{
		"id":               b.allocID(),
		"nodeType":         nodeType,
		"src":              "0:0:0",
		"typeDescriptions": JSONNode{"typeIdentifier": "t_unknown", "typeString": "unknown"},
	}
}

// CallMember returns a `Base.member()` expression statement.
func (b *ASTBuilder) CallMember(base *ContractBuilder, member string) JSONNode {
	target := JSONNode{
		"id":               b.allocID(),
		"nodeType":         "MemberAccess",
		"src":              "0:0:0",
		"memberName":       member,
		"expression":       b.identifier(base.Name, base.ID, fmt.Sprintf("t_type$_t_contract$_%s_$%d_$", base.Name, base.ID)),
		"typeDescriptions": JSONNode{"typeIdentifier": "t_function_internal_nonpayable$__$returns$__$", "typeString": "function ()"},
	}
	if function, ok := base.functionsByN[member]; ok {
		target["referencedDeclaration"] = function.ID
	}
	return b.expressionStatement(b.call(target))
}

// CallFunction returns a direct `name()` call statement referencing the given function.
func (b *ASTBuilder) CallFunction(function *FunctionBuilder) JSONNode {
	return b.expressionStatement(b.call(b.identifier(function.Name, function.ID, "t_function_internal_nonpayable$__$returns$__$")))
}

// SelfDestruct returns a `selfdestruct(payable(msg.sender))` statement.
func (b *ASTBuilder) SelfDestruct() JSONNode {
	return b.expressionStatement(b.call(b.identifier("selfdestruct", -6, "t_function_selfdestruct_nonpayable$_t_address_payable_$returns$__$")))
}

// DelegateCall returns an `implementation.delegatecall(data)` statement.
func (b *ASTBuilder) DelegateCall() JSONNode {
	target := JSONNode{
		"id":               b.allocID(),
		"nodeType":         "MemberAccess",
		"src":              "0:0:0",
		"memberName":       "delegatecall",
		"expression":       b.identifier("implementation", 0, "t_address"),
		"typeDescriptions": JSONNode{"typeIdentifier": "t_function_baredelegatecall_nonpayable$_t_bytes_memory_ptr_$returns$_t_bool_$_t_bytes_memory_ptr_$", "typeString": "function (bytes memory) returns (bool,bytes memory)"},
	}
	return b.expressionStatement(b.call(target))
}

func (b *ASTBuilder) identifier(name string, referencedID int64, identifier string) JSONNode {
	return JSONNode{
		"id":                    b.allocID(),
		"nodeType":              "Identifier",
		"src":                   "0:0:0",
		"name":                  name,
		"referencedDeclaration": referencedID,
		"typeDescriptions":      JSONNode{"typeIdentifier": identifier, "typeString": name},
	}
}

func (b *ASTBuilder) call(expression JSONNode) JSONNode {
	return JSONNode{
		"id":               b.allocID(),
		"nodeType":         "FunctionCall",
		"src":              "0:0:0",
		"kind":             "functionCall",
		"expression":       expression,
		"arguments":        []any{},
		"typeDescriptions": JSONNode{"typeIdentifier": "t_tuple$__$", "typeString": "tuple()"},
	}
}

func (b *ASTBuilder) expressionStatement(expression JSONNode) JSONNode {
	return JSONNode{"id": b.allocID(), "nodeType": "ExpressionStatement", "src": "0:0:0", "expression": expression}
}

func typeIdentifier(node JSONNode) string {
	return strings.TrimSuffix(node["typeDescriptions"].(JSONNode)["typeIdentifier"].(string), "_storage_ptr")
}

func typeString(node JSONNode) string {
	return node["typeDescriptions"].(JSONNode)["typeString"].(string)
}

func (v *VariableBuilder) node() JSONNode {
	identifier := v.typeName["typeDescriptions"].(JSONNode)["typeIdentifier"].(string)
	if v.state {
		identifier = strings.Replace(identifier, "_storage_ptr", "_storage", 1)
	}
	node := JSONNode{
		"id":               v.ID,
		"nodeType":         "VariableDeclaration",
		"src":              "0:0:0",
		"name":             v.Name,
		"stateVariable":    v.state,
		"constant":         v.constant,
		"mutability":       v.mutability,
		"visibility":       "internal",
		"storageLocation":  "default",
		"typeName":         v.typeName,
		"typeDescriptions": JSONNode{"typeIdentifier": identifier, "typeString": typeString(v.typeName)},
	}
	if v.value != nil {
		node["value"] = v.value
	}
	return node
}

func (s *StructBuilder) node() JSONNode {
	members := make([]any, len(s.members))
	for i, member := range s.members {
		members[i] = member.node()
	}
	return JSONNode{
		"id":            s.ID,
		"nodeType":      "StructDefinition",
		"src":           "0:0:0",
		"name":          s.Name,
		"canonicalName": s.CanonicalName,
		"members":       members,
		"visibility":    "public",
	}
}

func (e *EnumBuilder) node() JSONNode {
	values := make([]any, len(e.values))
	for i, value := range e.values {
		values[i] = value
	}
	return JSONNode{
		"id":            e.ID,
		"nodeType":      "EnumDefinition",
		"src":           "0:0:0",
		"name":          e.Name,
		"canonicalName": e.CanonicalName,
		"members":       values,
	}
}

func (v *ValueTypeBuilder) node() JSONNode {
	return JSONNode{
		"id":             v.ID,
		"nodeType":       "UserDefinedValueTypeDefinition",
		"src":            "0:0:0",
		"name":           v.Name,
		"canonicalName":  v.CanonicalName,
		"underlyingType": v.underlyingType,
	}
}

func (f *FunctionBuilder) node() JSONNode {
	modifiers := make([]any, len(f.modifiers))
	for i, modifier := range f.modifiers {
		modifiers[i] = modifier
	}
	statements := make([]any, len(f.statements))
	for i, statement := range f.statements {
		statements[i] = statement
	}
	return JSONNode{
		"id":         f.ID,
		"nodeType":   "FunctionDefinition",
		"src":        "0:0:0",
		"name":       f.Name,
		"kind":       f.kind,
		"visibility": "public",
		"modifiers":  modifiers,
		"parameters": f.parameters,
		"body":       JSONNode{"id": f.bodyID, "nodeType": "Block", "src": "0:0:0", "statements": statements},
	}
}

func (c *ContractBuilder) node() JSONNode {
	nodes := make([]any, len(c.members))
	for i, member := range c.members {
		nodes[i] = member.node()
	}
	return JSONNode{
		"id":                      c.ID,
		"nodeType":                "ContractDefinition",
		"src":                     "0:0:0",
		"name":                    c.Name,
		"canonicalName":           c.Name,
		"contractKind":            c.kind,
		"abstract":                false,
		"linearizedBaseContracts": c.linearized,
		"nodes":                   nodes,
	}
}

func (s *SourceBuilder) node() JSONNode {
	nodes := []any{JSONNode{"id": s.pragmaID, "nodeType": "PragmaDirective", "src": "0:0:0", "literals": []string{"solidity", "^", "0.8", ".20"}}}
	for i, imported := range s.imports {
		nodes = append(nodes, JSONNode{
			"id":           s.importIDs[i],
			"nodeType":     "ImportDirective",
			"src":          "0:0:0",
			"absolutePath": imported.path,
			"file":         "./" + filepath.Base(imported.path),
			"sourceUnit":   imported.id,
		})
	}
	for _, contract := range s.contracts {
		nodes = append(nodes, contract.node())
	}
	return JSONNode{"id": s.id, "nodeType": "SourceUnit", "src": "0:0:0", "absolutePath": s.path, "nodes": nodes}
}

// ArtifactFiles renders every contract as a truffle-format artifact, keyed by "<ContractName>.json". Like truffle, a
// contract name declared in several sources keeps only its last artifact.
func (b *ASTBuilder) ArtifactFiles(t *testing.T) map[string][]byte {
	files := make(map[string][]byte)
	for _, source := range b.sources {
		ast := source.node()
		for _, contract := range source.contracts {
			files[contract.Name+".json"] = contract.artifact(t, ast)
		}
	}
	return files
}

// Artifacts parses the artifact of every contract, including contracts sharing a name.
func (b *ASTBuilder) Artifacts(t *testing.T) []*types.Artifact {
	artifacts := make([]*types.Artifact, 0)
	for _, source := range b.sources {
		ast := source.node()
		for _, contract := range source.contracts {
			artifact, err := types.ParseArtifact(contract.artifact(t, ast))
			require.NoError(t, err)
			artifacts = append(artifacts, artifact)
		}
	}
	return artifacts
}

// artifact renders the truffle-format artifact of the contract, carrying the AST of its source unit.
func (c *ContractBuilder) artifact(t *testing.T, ast JSONNode) []byte {
	abiEntries := c.abiEntries
	if abiEntries == nil {
		abiEntries = []JSONNode{}
	}
	artifact := JSONNode{
		"contractName":     c.Name,
		"fileName":         filepath.Base(c.source.path),
		"sourcePath":       c.source.path,
		"abi":              abiEntries,
		"ast":              ast,
		"bytecode":         "0x6080604052",
		"deployedBytecode": "0x6080604052",
		"compiler":         JSONNode{"name": "solc", "version": "0.8.20+commit.a1b79de6.Emscripten.clang"},
	}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	return data
}

// Index parses every rendered artifact and indexes them.
func (b *ASTBuilder) Index(t *testing.T) *types.ArtifactIndex {
	return types.NewArtifactIndex(b.Artifacts(t))
}
