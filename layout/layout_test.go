package layout

import (
	"testing"

	"github.com/crytic/slotguard/inheritance"
	"github.com/crytic/slotguard/utils/testutils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labelsAndTypes reduces a layout to "<contract>.<label>:<type>" strings.
func labelsAndTypes(layout *StorageLayout) []string {
	summary := make([]string, len(layout.Storage))
	for i, slot := range layout.Storage {
		summary[i] = slot.Contract + "." + slot.Label + ":" + slot.Type
	}
	return summary
}

// TestBuildLayoutInheritanceOrder verifies that ancestors come first and that constants and immutables are skipped.
func TestBuildLayoutInheritanceOrder(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	source := b.Source("contracts/Token.sol")
	ownable := source.Contract("Ownable")
	ownable.StateVar("owner", b.Elementary("address"))
	pausable := source.Contract("Pausable")
	pausable.StateVar("paused", b.Elementary("bool"))
	token := source.Contract("Token", ownable, pausable)
	token.StateVar("MAX_SUPPLY", b.Elementary("uint256")).Constant()
	token.StateVar("deployer", b.Elementary("address")).Immutable()
	token.StateVar("name", b.Elementary("string"))
	token.StateVar("balances", b.Mapping(b.Elementary("address"), b.Elementary("uint256")))

	layout, err := BuildLayout(b.Index(t), "Token")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Ownable.owner:t_address",
		"Pausable.paused:t_bool",
		"Token.name:t_string",
		"Token.balances:t_mapping<t_uint256>",
	}, labelsAndTypes(layout))
	assert.Equal(t, "contracts/Token.sol", layout.Storage[0].SourcePath)
	assert.Equal(t, "mapping(key => uint256)", layout.TypeOf(layout.Storage[3]).Label)
}

// TestBuildLayoutQualifiedName verifies that a contract name may be qualified by its source path.
func TestBuildLayoutQualifiedName(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	first := b.Source("contracts/v1/Token.sol").Contract("Token")
	first.StateVar("a", b.Elementary("uint256"))
	second := b.Source("contracts/v2/Token.sol").Contract("Token")
	second.StateVar("b", b.Elementary("uint256"))
	index := b.Index(t)

	_, err := BuildLayout(index, "Token")
	assert.Error(t, err)

	layout, err := BuildLayout(index, "contracts/v2/Token.sol:Token")
	require.NoError(t, err)
	assert.Equal(t, []string{"Token.b:t_uint256"}, labelsAndTypes(layout))
}

// TestTypeIDs verifies the identifiers and descriptors of every modeled kind of type.
func TestTypeIDs(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	source := b.Source("contracts/Vault.sol")
	vault := source.Contract("Vault")
	status := vault.Enum("Status", "Open", "Closed")
	price := vault.ValueType("Price", "uint128")
	vault.StateVar("ids", b.Array(b.Elementary("uint256"), ""))
	vault.StateVar("admins", b.Array(b.Elementary("address"), "3"))
	vault.StateVar("admins2", b.Array(b.Elementary("address"), "0x3"))
	vault.StateVar("grid", b.Array(b.Array(b.Elementary("uint8"), "2"), ""))
	vault.StateVar("allowances", b.Mapping(b.Elementary("address"), b.Mapping(b.Elementary("address"), b.Elementary("bool"))))
	vault.StateVar("status", b.EnumRef(status))
	vault.StateVar("price", b.ValueTypeRef(price))
	vault.StateVar("self", b.ContractRef(vault))
	vault.StateVar("hook", b.FunctionType())
	vault.StateVar("data", b.Elementary("bytes"))

	layout, err := BuildLayout(b.Index(t), "Vault")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Vault.ids:t_array:dyn<t_uint256>",
		"Vault.admins:t_array:3<t_address>",
		"Vault.admins2:t_array:3<t_address>",
		"Vault.grid:t_array:dyn<t_array:2<t_uint8>>",
		"Vault.allowances:t_mapping<t_bool>",
		"Vault.status:t_enum<Vault.Status>",
		"Vault.price:t_userDefinedValueType<Vault.Price>",
		"Vault.self:t_address",
		"Vault.hook:t_function",
		"Vault.data:t_bytes",
	}, labelsAndTypes(layout))

	assert.Equal(t, "uint256[]", layout.Types["t_array:dyn<t_uint256>"].Label)
	assert.Equal(t, "address[3]", layout.Types["t_array:3<t_address>"].Label)
	assert.Equal(t, "3", layout.Types["t_array:3<t_address>"].Length)
	assert.Equal(t, "uint8[2][]", layout.Types["t_array:dyn<t_array:2<t_uint8>>"].Label)
	assert.Equal(t, []string{"Open", "Closed"}, layout.Types["t_enum<Vault.Status>"].EnumMembers)
	assert.Equal(t, "t_uint128", layout.Types["t_userDefinedValueType<Vault.Price>"].ValueType)
	assert.Equal(t, KindFunctionRef, layout.Types["t_function"].Kind)
}

// TestContractReference verifies that a contract-typed variable is stored as an address.
func TestContractReference(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	source := b.Source("contracts/Proxy.sol")
	implementation := source.Interface("IImplementation")
	proxy := source.Contract("Proxy")
	proxy.StateVar("implementation", b.ContractRef(implementation))

	layout, err := BuildLayout(b.Index(t), "Proxy")
	require.NoError(t, err)
	require.Len(t, layout.Storage, 1)
	assert.Equal(t, "t_address", layout.Storage[0].Type)
	assert.Equal(t, KindContractRef, layout.Types["t_address"].Kind)
	assert.Equal(t, "address", layout.Types["t_address"].Label)
}

// TestContractReferenceAndAddress verifies that a plain address makes t_address elementary whichever variable is
// declared first.
func TestContractReferenceAndAddress(t *testing.T) {
	t.Parallel()

	for _, referenceFirst := range []bool{true, false} {
		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Proxy.sol")
		implementation := source.Interface("IImplementation")
		proxy := source.Contract("Proxy")
		if referenceFirst {
			proxy.StateVar("implementation", b.ContractRef(implementation))
			proxy.StateVar("owner", b.Elementary("address"))
		} else {
			proxy.StateVar("owner", b.Elementary("address"))
			proxy.StateVar("implementation", b.ContractRef(implementation))
		}

		layout, err := BuildLayout(b.Index(t), "Proxy")
		require.NoError(t, err)
		require.Len(t, layout.Storage, 2)
		assert.Equal(t, "t_address", layout.Storage[0].Type)
		assert.Equal(t, "t_address", layout.Storage[1].Type)
		assert.Equal(t, KindElementary, layout.Types["t_address"].Kind, "reference first: %v", referenceFirst)
		assert.Equal(t, "address", layout.Types["t_address"].Label)
	}
}

// TestStructAcrossImports verifies that struct types declared in imported files resolve and that identical shapes
// share one descriptor.
func TestStructAcrossImports(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	library := b.Source("contracts/Types.sol")
	types := library.Contract("Types")
	info := types.Struct("Info")
	info.Member("amount", b.Elementary("uint256")).Member("holder", b.Elementary("address"))

	source := b.Source("contracts/Registry.sol").Import(library)
	registry := source.Contract("Registry")
	registry.StateVar("current", b.StructRef(info))
	registry.StateVar("history", b.Mapping(b.Elementary("uint256"), b.StructRef(info)))
	registry.StateVar("total", b.Elementary("uint256"))
	registry.StateVar("count", b.Elementary("uint256"))

	layout, err := BuildLayout(b.Index(t), "Registry")
	require.NoError(t, err)

	require.Contains(t, layout.Types, "t_struct<Types.Info>")
	descriptor := layout.Types["t_struct<Types.Info>"]
	assert.Equal(t, KindStruct, descriptor.Kind)
	assert.Equal(t, "struct Types.Info", descriptor.Label)
	require.Len(t, descriptor.Members, 2)
	assert.Equal(t, StorageSlot{Label: "amount", Type: "t_uint256", AstID: descriptor.Members[0].AstID, SourcePath: "contracts/Types.sol", Src: "0:0:0", Contract: "Types"}, descriptor.Members[0])
	assert.Equal(t, "t_address", descriptor.Members[1].Type)

	// Both uint256 variables and the struct member share one descriptor
	assert.Equal(t, layout.Storage[2].Type, layout.Storage[3].Type)
	assert.Len(t, layout.Types, 4)
}

// TestRecursiveStruct verifies that a struct referencing itself resolves once and leaves nothing under construction.
func TestRecursiveStruct(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	tree := b.Source("contracts/Tree.sol").Contract("Tree")
	node := tree.Struct("Node")
	edge := tree.Struct("Edge")
	node.Member("value", b.Elementary("uint256"))
	node.Member("children", b.Mapping(b.Elementary("uint256"), b.StructRef(node)))
	node.Member("edges", b.Array(b.StructRef(edge), ""))
	edge.Member("target", b.Mapping(b.Elementary("bool"), b.StructRef(node)))
	tree.StateVar("root", b.StructRef(node))
	tree.StateVar("nodes", b.Array(b.StructRef(node), ""))

	index := b.Index(t)
	artifact, err := index.ByContractName("Tree")
	require.NoError(t, err)
	resolver, err := inheritance.NewResolver(index, artifact)
	require.NoError(t, err)

	registry := NewTypeRegistry()
	modeler := NewTypeModeler(resolver, registry)
	root := resolver.Contract().StateVariables()[0]

	first, err := modeler.TypeInfo(root.TypeName)
	require.NoError(t, err)
	second, err := modeler.TypeInfo(root.TypeName)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Empty(t, registry.Pending())

	assert.Equal(t, "t_struct<Tree.Node>", first.ID)
	require.Len(t, first.Members, 3)
	assert.Equal(t, "t_mapping<t_struct<Tree.Node>>", first.Members[1].Type)
	assert.Equal(t, "t_array:dyn<t_struct<Tree.Edge>>", first.Members[2].Type)

	edgeType, ok := registry.Get("t_struct<Tree.Edge>")
	require.True(t, ok)
	require.Len(t, edgeType.Members, 1)
	assert.Equal(t, "t_mapping<t_struct<Tree.Node>>", edgeType.Members[0].Type)

	layout, err := NewBuilder().BuildWithResolver(resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tree.root:t_struct<Tree.Node>", "Tree.nodes:t_array:dyn<t_struct<Tree.Node>>"}, labelsAndTypes(layout))
}

// TestUnknownTypeNode verifies that an unmodeled type-name kind aborts the build.
func TestUnknownTypeNode(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	token := b.Source("contracts/Token.sol").Contract("Token")
	token.StateVar("supply", b.Elementary("uint256"))
	token.StateVar("future", b.RawTypeName("QuantumTypeName"))

	_, err := BuildLayout(b.Index(t), "Token")
	var unknownErr *UnknownTypeNodeError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, "QuantumTypeName", unknownErr.NodeType)
	assert.Equal(t, "Token.future", unknownErr.Declaration)
}

// TestUnknownStructMember verifies that a struct whose member cannot be modeled is not left in the registry.
func TestUnknownStructMember(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	token := b.Source("contracts/Token.sol").Contract("Token")
	position := token.Struct("Position")
	position.Member("amount", b.Elementary("uint256"))
	position.Member("future", b.RawTypeName("FancyTypeName"))
	token.StateVar("position", b.StructRef(position))

	index := b.Index(t)
	artifact, err := index.ByContractName("Token")
	require.NoError(t, err)
	resolver, err := inheritance.NewResolver(index, artifact)
	require.NoError(t, err)

	registry := NewTypeRegistry()
	modeler := NewTypeModeler(resolver, registry)
	typeName := resolver.Contract().StateVariables()[0].TypeName

	_, err = modeler.TypeInfo(typeName)
	var unknownErr *UnknownTypeNodeError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, "Token.Position.future", unknownErr.Declaration)
	assert.Empty(t, registry.Pending())
	_, ok := registry.Get("t_struct<Token.Position>")
	assert.False(t, ok)

	// Modeling the type again fails again rather than returning a stale descriptor
	_, err = modeler.TypeInfo(typeName)
	assert.Error(t, err)
}

// TestStaleArtifacts verifies that a base contract id shared by two different declarations aborts the build.
func TestStaleArtifacts(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	baseSource := b.Source("contracts/Base.sol")
	base := baseSource.Contract("Base")
	base.StateVar("owner", b.Elementary("address"))

	tokenSource := b.Source("contracts/Token.sol").Import(baseSource)
	b.SetNextID(base.ID)
	tokenSource.Contract("Impostor")
	tokenSource.Contract("Token", base)

	_, err := BuildLayout(b.Index(t), "Token")
	var structuralErr *inheritance.StructuralArtifactError
	require.True(t, errors.As(err, &structuralErr))
	assert.Equal(t, base.ID, structuralErr.ID)
	assert.Equal(t, 2, structuralErr.Candidates)
}

// TestFingerprint verifies that fingerprints ignore node ids but not storage shape.
func TestFingerprint(t *testing.T) {
	t.Parallel()

	build := func(firstID int64, balanceType string) *StorageLayout {
		b := testutils.NewASTBuilder()
		b.SetNextID(firstID)
		token := b.Source("contracts/Token.sol").Contract("Token")
		token.StateVar("owner", b.Elementary("address"))
		token.StateVar("balances", b.Mapping(b.Elementary("address"), b.Elementary(balanceType)))
		layout, err := BuildLayout(b.Index(t), "Token")
		require.NoError(t, err)
		return layout
	}

	original, err := build(1, "uint256").Fingerprint()
	require.NoError(t, err)
	recompiled, err := build(500, "uint256").Fingerprint()
	require.NoError(t, err)
	changed, err := build(1, "uint128").Fingerprint()
	require.NoError(t, err)

	assert.Len(t, original, 64)
	assert.Equal(t, original, recompiled)
	assert.NotEqual(t, original, changed)
}

// TestCompareBuiltLayouts verifies the alignment of two versions of a contract built from ASTs.
func TestCompareBuiltLayouts(t *testing.T) {
	t.Parallel()

	build := func(extra bool) *StorageLayout {
		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		base := source.Contract("Base")
		base.StateVar("owner", b.Elementary("address"))
		token := source.Contract("Token", base)
		if extra {
			token.StateVar("paused", b.Elementary("bool"))
		}
		token.StateVar("balances", b.Mapping(b.Elementary("address"), b.Elementary("uint256")))
		layout, err := BuildLayout(b.Index(t), "Token")
		require.NoError(t, err)
		return layout
	}

	operations := Compare(build(false), build(true)).Actionable()
	require.Len(t, operations, 1)
	assert.Equal(t, ActionInsert, operations[0].Action)
	assert.Equal(t, "paused", operations[0].Updated.Label)
	assert.Equal(t, "Token", operations[0].Updated.Contract)
}
