package validation

import (
	"context"
	"testing"

	"github.com/crytic/slotguard/layout"
	"github.com/crytic/slotguard/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTokenVersion builds an upgradeable token. The second version inserts a variable before the balances.
func buildTokenVersion(t *testing.T, version int) *testutils.ASTBuilder {
	b := testutils.NewASTBuilder()
	source := b.Source("contracts/Token.sol")
	ownable := source.Contract("Ownable")
	ownable.StateVar("owner", b.Elementary("address"))
	ownable.Function("initialize", "initializer")

	token := source.Contract("Token", ownable)
	if version > 1 {
		token.StateVar("paused", b.Elementary("bool"))
	}
	token.StateVar("balances", b.Mapping(b.Elementary("address"), b.Elementary("uint256")))
	token.Function("initialize", "initializer").Statement(b.CallMember(ownable, "initialize"))
	if version > 1 {
		token.Function("kill").Statement(b.SelfDestruct())
	}
	return b
}

// TestValidate verifies that a validation run gathers every check and the storage comparison.
func TestValidate(t *testing.T) {
	t.Parallel()

	original, err := Validate(buildTokenVersion(t, 1).Index(t), "Token", nil)
	require.NoError(t, err)
	assert.Equal(t, "Token", original.ContractName)
	assert.Equal(t, "contracts/Token.sol", original.SourcePath)
	assert.False(t, original.HasSafetyFindings())
	assert.Nil(t, original.StorageDiff)
	require.Len(t, original.Layout.Storage, 2)

	upgraded, err := Validate(buildTokenVersion(t, 2).Index(t), "Token", original.Layout)
	require.NoError(t, err)
	assert.True(t, upgraded.HasSelfDestruct)
	assert.False(t, upgraded.HasDelegateCall)
	assert.True(t, upgraded.HasSafetyFindings())
	assert.Empty(t, upgraded.UninitializedBaseContracts)

	actionable := upgraded.StorageDiff.Actionable()
	require.Len(t, actionable, 1)
	assert.Equal(t, layout.ActionInsert, actionable[0].Action)
	assert.Equal(t, "paused", actionable[0].Updated.Label)
}

// TestValidateUnknownContract verifies that an unknown contract name is an error.
func TestValidateUnknownContract(t *testing.T) {
	t.Parallel()

	_, err := Validate(buildTokenVersion(t, 1).Index(t), "Missing", nil)
	assert.Error(t, err)
}

// TestNewValidatorRejectsInvalidCosts verifies that a validator cannot be created with an invalid cost model.
func TestNewValidatorRejectsInvalidCosts(t *testing.T) {
	t.Parallel()

	_, err := NewValidator(layout.CostModel{Substitution: 1, Insertion: 1, Deletion: 1, Append: 1})
	assert.Error(t, err)
}

// TestValidateAll verifies that concurrent validation keeps request order and reports the first failure.
func TestValidateAll(t *testing.T) {
	t.Parallel()

	b := testutils.NewASTBuilder()
	source := b.Source("contracts/Many.sol")
	names := []string{"A", "B", "C", "D", "E", "F"}
	for _, name := range names {
		contract := source.Contract(name)
		contract.StateVar("value", b.Elementary("uint256"))
	}
	index := b.Index(t)

	validator, err := NewValidator(layout.DefaultCostModel)
	require.NoError(t, err)

	requests := make([]Request, len(names))
	for i, name := range names {
		requests[i] = Request{ContractName: name}
	}
	results, err := validator.ValidateAll(context.Background(), index, requests, 2)
	require.NoError(t, err)
	require.Len(t, results, len(names))
	for i, result := range results {
		assert.Equal(t, names[i], result.ContractName)
		assert.Len(t, result.Layout.Storage, 1)
	}

	_, err = validator.ValidateAll(context.Background(), index, append(requests, Request{ContractName: "Missing"}), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not validate 'Missing'")
}
