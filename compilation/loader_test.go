package compilation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/inheritance"
	"github.com/crytic/slotguard/layout"
	"github.com/crytic/slotguard/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// truffleBuildDirectory is the fixture build directory, relative to this package.
var truffleBuildDirectory = filepath.Join("testdata", "truffle", "build", "contracts")

// TestLoadArtifactsFromDirectory ensures that truffle artifacts are decoded and that artifacts without an AST are
// skipped.
func TestLoadArtifactsFromDirectory(t *testing.T) {
	t.Parallel()

	buildDirectory := testutils.CopyToTestDirectory(t, truffleBuildDirectory)

	artifacts, err := LoadArtifactsFromDirectory(buildDirectory)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	// Artifacts are sorted by source path
	assert.Equal(t, "Counter", artifacts[0].ContractName)
	assert.Equal(t, "Ownable", artifacts[1].ContractName)

	counter := artifacts[0]
	assert.Equal(t, "contracts/Counter.sol", counter.SourcePath)
	assert.Equal(t, "Counter.sol", counter.FileName)
	assert.Equal(t, "contracts/Counter.sol", counter.Ast.AbsolutePath)
	assert.Contains(t, counter.Abi.Methods, "increment")
	assert.Equal(t, "increment()", counter.MethodSignature("increment"))
	assert.False(t, counter.HasABIEntryOfType("constructor"))

	version, err := counter.CompilerVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(8), version.Minor())
	assert.Equal(t, int64(20), version.Patch())
}

// TestDecodeCompactAST ensures that the node kinds a compiler emits are decoded into their typed representation,
// with unmodeled kinds kept as generic nodes whose children remain reachable.
func TestDecodeCompactAST(t *testing.T) {
	t.Parallel()

	artifacts, err := LoadArtifactsFromDirectory(truffleBuildDirectory)
	require.NoError(t, err)
	counter := artifacts[0]

	contract, err := counter.ContractDefinition()
	require.NoError(t, err)
	assert.Equal(t, []int64{29, 5}, contract.LinearizedBaseContracts)
	assert.Equal(t, types.ContractKind("contract"), contract.Kind)

	variables := contract.StateVariables()
	require.Len(t, variables, 3)
	assert.Equal(t, "count", variables[0].Name)
	assert.IsType(t, &types.ElementaryTypeName{}, variables[0].TypeName)
	assert.Nil(t, variables[0].Value)

	mapping, ok := variables[1].TypeName.(*types.Mapping)
	require.True(t, ok)
	assert.Equal(t, "t_address", mapping.KeyType.GetTypeDescriptions().TypeIdentifier)
	assert.Equal(t, "t_uint256", mapping.ValueType.GetTypeDescriptions().TypeIdentifier)

	literal, ok := variables[2].Value.(*types.Literal)
	require.True(t, ok)
	assert.Equal(t, "false", literal.Value)

	functions := contract.Functions()
	require.Len(t, functions, 1)
	assert.Equal(t, "increment", functions[0].Name)
	assert.Equal(t, 229, functions[0].GetStart())
	assert.Equal(t, 55, functions[0].GetLength())
	assert.Equal(t, 1, counter.Ast.GetSourceUnitID())

	// The assignment has no dedicated representation but its operands are still walked
	identifiers := make([]string, 0)
	types.Walk(functions[0], func(node types.Node) bool {
		if identifier, ok := node.(*types.Identifier); ok {
			identifiers = append(identifiers, identifier.Name)
		}
		return true
	})
	assert.Equal(t, []string{"count"}, identifiers)
}

// TestLoadArtifactIndex ensures that loaded artifacts are indexed by source path and contract name, and that a
// layout can be built from them across an import.
func TestLoadArtifactIndex(t *testing.T) {
	t.Parallel()

	index, err := LoadArtifactIndex(truffleBuildDirectory)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.8.20"}, index.CompilerVersions())
	assert.NotNil(t, index.SourceUnit("contracts/Ownable.sol"))

	counter, err := index.ByQualifiedName("contracts/Counter.sol:Counter")
	require.NoError(t, err)

	resolver, err := inheritance.NewResolver(index, counter)
	require.NoError(t, err)
	bases, err := resolver.BaseContracts()
	require.NoError(t, err)
	require.Len(t, bases, 2)
	assert.Equal(t, "Ownable", bases[0].Name)

	storageLayout, err := layout.BuildLayout(index, "Counter")
	require.NoError(t, err)
	labels := make([]string, len(storageLayout.Storage))
	for i, slot := range storageLayout.Storage {
		labels[i] = slot.Label
	}
	assert.Equal(t, []string{"owner", "count", "balances", "paused"}, labels)
	assert.Equal(t, "t_mapping<t_uint256>", storageLayout.Storage[2].Type)
	assert.Equal(t, "contracts/Ownable.sol", storageLayout.Storage[0].SourcePath)
}

// TestLoadArtifactsFromDirectoryErrors ensures that missing or empty build directories are reported.
func TestLoadArtifactsFromDirectoryErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadArtifactsFromDirectory(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	emptyDirectory := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(emptyDirectory, "notes.json"), []byte(`{"hello": "world"}`), 0644))
	_, err = LoadArtifactsFromDirectory(emptyDirectory)
	assert.ErrorContains(t, err, "no artifacts with an AST")

	file := filepath.Join(t.TempDir(), "Counter.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0644))
	_, err = LoadArtifactsFromDirectory(file)
	assert.ErrorContains(t, err, "is not a directory")
}
