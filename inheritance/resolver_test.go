package inheritance

import (
	"testing"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/utils/testutils"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestResolver returns a resolver for the named contract of the builder's artifacts.
func newTestResolver(t *testing.T, b *testutils.ASTBuilder, contractName string) *Resolver {
	index := b.Index(t)
	artifact, err := index.ByContractName(contractName)
	require.NoError(t, err)
	resolver, err := NewResolver(index, artifact)
	require.NoError(t, err)
	return resolver
}

// contractNames returns the names of the contracts referenced by the provided nodes.
func contractNames(refs []NodeRef) []string {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Node.(*types.ContractDefinition).Name
	}
	return names
}

// TestLinearizedBaseContracts verifies both orderings of a diamond-shaped inheritance graph spread over several
// files.
func TestLinearizedBaseContracts(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	baseSource := b.Source("contracts/Base.sol")
	base := baseSource.Contract("Base")
	mixinSource := b.Source("contracts/Mixins.sol").Import(baseSource)
	left := mixinSource.Contract("Left", base)
	right := mixinSource.Contract("Right", base)
	b.Source("contracts/Token.sol").Import(mixinSource).Contract("Token", left, right)

	resolver := newTestResolver(t, b, "Token")

	mostDerivedFirst, err := resolver.LinearizedBaseContracts(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Token", "Right", "Left", "Base"}, contractNames(mostDerivedFirst))

	baseFirst, err := resolver.LinearizedBaseContracts(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Base", "Left", "Right", "Token"}, contractNames(baseFirst))
	assert.Equal(t, "contracts/Base.sol", baseFirst[0].SourcePath)
	assert.Equal(t, "contracts/Token.sol", baseFirst[3].SourcePath)

	contracts, err := resolver.BaseContracts()
	require.NoError(t, err)
	require.Len(t, contracts, 4)
	assert.Equal(t, "Base", contracts[0].Name)
	assert.Equal(t, "Token", resolver.Contract().Name)
}

// TestReimportedSourceRegistersOnce verifies that a file reached through several import paths is registered once.
func TestReimportedSourceRegistersOnce(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	shared := b.Source("contracts/Shared.sol")
	shared.Contract("Shared").Struct("Info").Member("value", b.Elementary("uint256"))
	left := b.Source("contracts/Left.sol").Import(shared)
	left.Contract("Left")
	right := b.Source("contracts/Right.sol").Import(shared)
	right.Contract("Right")
	b.Source("contracts/Token.sol").Import(left).Import(right).Contract("Token")

	resolver := newTestResolver(t, b, "Token")

	// Token, Left, Right, Shared and the Info struct
	assert.Equal(t, 5, resolver.Registry().Len())
}

// TestTypedLookups verifies that lookups check the kind of the resolved node.
func TestTypedLookups(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	token := b.Source("contracts/Token.sol").Contract("Token")
	info := token.Struct("Info")
	status := token.Enum("Status", "Active")
	price := token.ValueType("Price", "uint64")
	initialize := token.Function("initialize", "initializer")

	resolver := newTestResolver(t, b, "Token")

	structDef, ref, err := resolver.StructByID(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "Token.Info", structDef.CanonicalName)
	assert.Equal(t, "contracts/Token.sol", ref.SourcePath)

	enumDef, _, err := resolver.EnumByID(status.ID)
	require.NoError(t, err)
	assert.Len(t, enumDef.Members, 1)

	valueType, _, err := resolver.ValueTypeByID(price.ID)
	require.NoError(t, err)
	assert.Equal(t, "Price", valueType.Name)

	function, _, err := resolver.FunctionByID(initialize.ID)
	require.NoError(t, err)
	assert.True(t, function.HasModifier("initializer"))

	// The right id with the wrong expectation
	_, _, err = resolver.EnumByID(info.ID)
	var structuralErr *StructuralArtifactError
	require.True(t, errors.As(err, &structuralErr))
	assert.Equal(t, 0, structuralErr.Candidates)
	assert.Equal(t, "EnumDefinition", structuralErr.Expected)

	// An id which does not exist at all
	_, _, err = resolver.ContractByID(99999)
	require.True(t, errors.As(err, &structuralErr))
	assert.Contains(t, err.Error(), "please clean and recompile")
}

// TestConflictingIDs verifies that two different declarations sharing one id make the id unresolvable.
func TestConflictingIDs(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	baseSource := b.Source("contracts/Base.sol")
	base := baseSource.Contract("Base")
	tokenSource := b.Source("contracts/Token.sol").Import(baseSource)
	b.SetNextID(base.ID)
	tokenSource.Contract("Impostor")
	tokenSource.Contract("Token", base)

	resolver := newTestResolver(t, b, "Token")
	_, err := resolver.LinearizedBaseContracts(false)

	var structuralErr *StructuralArtifactError
	require.True(t, errors.As(err, &structuralErr))
	assert.Equal(t, base.ID, structuralErr.ID)
	assert.Equal(t, 2, structuralErr.Candidates)
	assert.Contains(t, err.Error(), "found 2 candidates for ContractDefinition")
}

// TestRegistryDeduplicatesEqualNodes verifies that registering a structurally equal node twice is a no-op.
func TestRegistryDeduplicatesEqualNodes(t *testing.T) {
	t.Parallel()

	first, err := types.ParseArtifact([]byte(`{"contractName":"A","sourcePath":"A.sol","abi":[],"ast":{"id":1,"nodeType":"SourceUnit","src":"0:0:0","absolutePath":"A.sol","nodes":[{"id":2,"nodeType":"ContractDefinition","src":"0:0:0","name":"A","contractKind":"contract","linearizedBaseContracts":[2],"nodes":[]}]}}`))
	require.NoError(t, err)
	second, err := types.ParseArtifact([]byte(`{"contractName":"A","sourcePath":"A.sol","abi":[],"ast":{"id":1,"nodeType":"SourceUnit","src":"0:0:0","absolutePath":"A.sol","nodes":[{"id":2,"nodeType":"ContractDefinition","src":"0:0:0","name":"A","contractKind":"contract","linearizedBaseContracts":[2],"nodes":[]}]}}`))
	require.NoError(t, err)

	registry := NewNodeRegistry()
	registry.RegisterSourceUnit(first.Ast, "A.sol")
	assert.True(t, registry.Register(second.Ast.Nodes[0], "other/A.sol"))

	ref, candidates := registry.Lookup(2)
	assert.Equal(t, 1, candidates)
	assert.Equal(t, "A.sol", ref.SourcePath)
	assert.Same(t, first.Ast.Nodes[0], ref.Node)
}
