package validation

import (
	"testing"

	"github.com/crytic/slotguard/inheritance"
	"github.com/crytic/slotguard/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestResolver returns a resolver for the named contract of the builder's artifacts.
func newTestResolver(t *testing.T, b *testutils.ASTBuilder, contractName string) *inheritance.Resolver {
	index := b.Index(t)
	artifact, err := index.ByContractName(contractName)
	require.NoError(t, err)
	resolver, err := inheritance.NewResolver(index, artifact)
	require.NoError(t, err)
	return resolver
}

// TestHasConstructor verifies constructor detection from the ABI.
func TestHasConstructor(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	source := b.Source("contracts/Token.sol")
	source.Contract("WithConstructor").Constructor()
	source.Contract("WithoutConstructor").Function("initialize")
	index := b.Index(t)

	with, err := index.ByContractName("WithConstructor")
	require.NoError(t, err)
	without, err := index.ByContractName("WithoutConstructor")
	require.NoError(t, err)

	assert.True(t, HasConstructor(with))
	assert.False(t, HasConstructor(without))
}

// TestUnsafeOpcodes verifies selfdestruct and delegatecall detection across the inheritance chain.
func TestUnsafeOpcodes(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	baseSource := b.Source("contracts/Destructible.sol")
	destructible := baseSource.Contract("Destructible")
	destructible.Function("destroy").Statement(b.SelfDestruct())
	forwarder := baseSource.Contract("Forwarder")
	forwarder.Function("forward").Statement(b.DelegateCall())

	source := b.Source("contracts/Token.sol").Import(baseSource)
	source.Contract("Safe").Function("transfer")
	source.Contract("Killable", destructible)
	source.Contract("Proxied", forwarder)

	tests := []struct {
		contract     string
		selfDestruct bool
		delegateCall bool
	}{
		{"Safe", false, false},
		{"Destructible", true, false},
		{"Killable", true, false},
		{"Proxied", false, true},
	}
	for _, test := range tests {
		resolver := newTestResolver(t, b, test.contract)

		selfDestruct, err := HasSelfDestruct(resolver)
		require.NoError(t, err)
		assert.Equal(t, test.selfDestruct, selfDestruct, test.contract)

		delegateCall, err := HasDelegateCall(resolver)
		require.NoError(t, err)
		assert.Equal(t, test.delegateCall, delegateCall, test.contract)
	}
}

// TestHasInitialValuesInDeclarations verifies that only inline initializers of storage variables are reported.
func TestHasInitialValuesInDeclarations(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	source := b.Source("contracts/Token.sol")
	base := source.Contract("Base")
	base.StateVar("supply", b.Elementary("uint256")).InitialValue("100")
	constants := source.Contract("Constants")
	constants.StateVar("DECIMALS", b.Elementary("uint8")).Constant().InitialValue("18")
	constants.StateVar("START", b.Elementary("uint256")).Immutable().InitialValue("5")
	constants.StateVar("balance", b.Elementary("uint256"))
	source.Contract("Derived", base)

	tests := map[string]bool{
		"Base":      true,
		"Constants": false,
		"Derived":   true,
	}
	for contract, expected := range tests {
		found, err := HasInitialValuesInDeclarations(newTestResolver(t, b, contract))
		require.NoError(t, err)
		assert.Equal(t, expected, found, contract)
	}
}

// TestGetUninitializedBaseContracts verifies the detection of base initializers that are never called.
func TestGetUninitializedBaseContracts(t *testing.T) {
	t.Parallel()

	t.Run("single initializer", func(t *testing.T) {
		t.Parallel()

		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		base := source.Contract("Base")
		base.Function("initialize", "initializer")
		source.Contract("Token", base)

		uninitialized, err := GetUninitializedBaseContracts(newTestResolver(t, b, "Token"))
		require.NoError(t, err)
		assert.Empty(t, uninitialized)
	})

	t.Run("no initializer", func(t *testing.T) {
		t.Parallel()

		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		base := source.Contract("Base")
		source.Contract("Token", base).Function("transfer")

		uninitialized, err := GetUninitializedBaseContracts(newTestResolver(t, b, "Token"))
		require.NoError(t, err)
		assert.Empty(t, uninitialized)
	})

	t.Run("base initializers omitted", func(t *testing.T) {
		t.Parallel()

		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		ownable := source.Contract("Ownable")
		ownable.Function("initialize", "initializer")
		pausable := source.Contract("Pausable")
		pausable.Function("initialize", "initializer")
		token := source.Contract("Token", ownable, pausable)
		token.Function("initialize", "initializer").Statement(b.CallMember(pausable, "initialize"))

		uninitialized, err := GetUninitializedBaseContracts(newTestResolver(t, b, "Token"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Ownable"}, uninitialized)
	})

	t.Run("all base initializers called", func(t *testing.T) {
		t.Parallel()

		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		ownable := source.Contract("Ownable")
		ownable.Function("initialize", "initializer")
		pausable := source.Contract("Pausable")
		pausable.Function("initialize", "initializer")
		token := source.Contract("Token", ownable, pausable)
		token.Function("initialize", "initializer").
			Statement(b.CallMember(ownable, "initialize")).
			Statement(b.CallMember(pausable, "initialize"))

		uninitialized, err := GetUninitializedBaseContracts(newTestResolver(t, b, "Token"))
		require.NoError(t, err)
		assert.Empty(t, uninitialized)
	})

	t.Run("chained initializers", func(t *testing.T) {
		t.Parallel()

		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		ownable := source.Contract("Ownable")
		ownableInit := ownable.Function("__Ownable_init", "onlyInitializing")
		pausable := source.Contract("Pausable")
		pausable.Function("__Pausable_init", "onlyInitializing")
		erc20 := source.Contract("ERC20")
		erc20.Function("__ERC20_init", "onlyInitializing")
		token := source.Contract("Token", ownable, pausable, erc20)
		token.Function("initialize", "initializer").Statement(b.CallFunction(ownableInit))

		uninitialized, err := GetUninitializedBaseContracts(newTestResolver(t, b, "Token"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Pausable", "ERC20"}, uninitialized)
	})

	t.Run("initializers chained through an intermediate base", func(t *testing.T) {
		t.Parallel()

		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		ownable := source.Contract("Ownable")
		ownable.Function("initialize", "initializer")
		pausable := source.Contract("Pausable", ownable)
		pausable.Function("initialize", "initializer").Statement(b.CallMember(ownable, "initialize"))
		token := source.Contract("Token", pausable)
		token.Function("initialize", "initializer").Statement(b.CallMember(pausable, "initialize"))

		uninitialized, err := GetUninitializedBaseContracts(newTestResolver(t, b, "Token"))
		require.NoError(t, err)
		assert.Empty(t, uninitialized)
	})

	t.Run("internal initializers chained through an intermediate base", func(t *testing.T) {
		t.Parallel()

		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		ownable := source.Contract("Ownable")
		ownableInit := ownable.Function("__Ownable_init", "onlyInitializing")
		pausable := source.Contract("Pausable", ownable)
		pausableInit := pausable.Function("__Pausable_init", "onlyInitializing").Statement(b.CallFunction(ownableInit))
		erc20 := source.Contract("ERC20")
		erc20.Function("__ERC20_init", "onlyInitializing")
		token := source.Contract("Token", pausable, erc20)
		token.Function("initialize", "initializer").Statement(b.CallFunction(pausableInit))

		// Only ERC20 is left out of the chain
		uninitialized, err := GetUninitializedBaseContracts(newTestResolver(t, b, "Token"))
		require.NoError(t, err)
		assert.Equal(t, []string{"ERC20"}, uninitialized)
	})

	t.Run("only the subject and one base", func(t *testing.T) {
		t.Parallel()

		b := testutils.NewASTBuilder()
		source := b.Source("contracts/Token.sol")
		base := source.Contract("Base")
		base.Function("initialize", "initializer")
		token := source.Contract("Token", base)
		token.Function("initialize", "initializer")

		uninitialized, err := GetUninitializedBaseContracts(newTestResolver(t, b, "Token"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Base"}, uninitialized)
	})
}
