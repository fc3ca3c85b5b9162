package validation

import (
	"context"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/inheritance"
	"github.com/crytic/slotguard/layout"
	"github.com/crytic/slotguard/logging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of every check run against a single contract. Findings are data: a Result is returned
// whatever the findings are, and errors are reserved for artifacts that cannot be analyzed.
type Result struct {
	// ContractName is the name of the validated contract.
	ContractName string `json:"contractName"`
	// SourcePath is the source file declaring the contract.
	SourcePath string `json:"sourcePath"`
	// HasConstructor is set if the contract declares an explicit constructor.
	HasConstructor bool `json:"hasConstructor"`
	// HasSelfDestruct is set if the contract or an ancestor calls selfdestruct.
	HasSelfDestruct bool `json:"hasSelfDestruct"`
	// HasDelegateCall is set if the contract or an ancestor performs a raw delegatecall.
	HasDelegateCall bool `json:"hasDelegateCall"`
	// HasInitialValuesInDeclarations is set if a storage variable is initialized inline.
	HasInitialValuesInDeclarations bool `json:"hasInitialValuesInDeclarations"`
	// UninitializedBaseContracts lists the ancestors whose initializer is never called, base-first.
	UninitializedBaseContracts []string `json:"uninitializedBaseContracts"`
	// Layout is the storage layout of the contract.
	Layout *layout.StorageLayout `json:"layout"`
	// StorageDiff is the alignment of the previous layout against Layout. It is nil if no previous layout was given.
	StorageDiff layout.Operations `json:"storageDiff,omitempty"`
}

// HasSafetyFindings returns true if any check other than the storage comparison reported a problem.
func (r *Result) HasSafetyFindings() bool {
	return r.HasConstructor || r.HasSelfDestruct || r.HasDelegateCall || r.HasInitialValuesInDeclarations ||
		len(r.UninitializedBaseContracts) > 0
}

// Request names a contract to validate and, optionally, the layout of the version it upgrades.
type Request struct {
	// ContractName is the name of the contract, optionally qualified as "<sourcePath>:<name>".
	ContractName string
	// Previous is the layout of the deployed version, or nil to skip the storage comparison.
	Previous *layout.StorageLayout
}

// Validator runs the upgrade-safety checks against the contracts of an ArtifactIndex.
type Validator struct {
	// costs is the cost model used to align storage layouts.
	costs layout.CostModel

	// logger describes the Validator's log object that can be used to log important events
	logger *logging.Logger
}

// NewValidator returns a Validator aligning storage layouts with the provided cost model.
func NewValidator(costs layout.CostModel) (*Validator, error) {
	if err := costs.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid storage comparison cost model")
	}
	return &Validator{
		costs:  costs,
		logger: logging.GlobalLogger.NewSubLogger("module", logging.VALIDATION_SERVICE),
	}, nil
}

// Validate runs every check against the named contract with the default cost model. If previous is not nil, the
// contract's layout is compared against it.
func Validate(index *types.ArtifactIndex, contractName string, previous *layout.StorageLayout) (*Result, error) {
	validator, err := NewValidator(layout.DefaultCostModel)
	if err != nil {
		return nil, err
	}
	return validator.Validate(index, contractName, previous)
}

// Validate runs every check against the named contract. If previous is not nil, the contract's layout is compared
// against it.
func (v *Validator) Validate(index *types.ArtifactIndex, contractName string, previous *layout.StorageLayout) (*Result, error) {
	artifact, err := index.ByQualifiedName(contractName)
	if err != nil {
		return nil, err
	}
	resolver, err := inheritance.NewResolver(index, artifact)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ContractName:   artifact.ContractName,
		SourcePath:     artifact.SourcePath,
		HasConstructor: HasConstructor(artifact),
	}
	if result.HasSelfDestruct, err = HasSelfDestruct(resolver); err != nil {
		return nil, err
	}
	if result.HasDelegateCall, err = HasDelegateCall(resolver); err != nil {
		return nil, err
	}
	if result.HasInitialValuesInDeclarations, err = HasInitialValuesInDeclarations(resolver); err != nil {
		return nil, err
	}
	if result.UninitializedBaseContracts, err = GetUninitializedBaseContracts(resolver); err != nil {
		return nil, err
	}
	if result.Layout, err = layout.NewBuilder().BuildWithResolver(resolver); err != nil {
		return nil, err
	}

	if previous != nil {
		if result.StorageDiff, err = layout.CompareWithCosts(previous, result.Layout, v.costs); err != nil {
			return nil, err
		}
	}

	v.logger.Debug("Validated ", artifact.ContractName, logging.StructuredLogInfo{
		"storageVariables": len(result.Layout.Storage),
		"storageChanges":   len(result.StorageDiff.Actionable()),
		"safetyFindings":   result.HasSafetyFindings(),
	})
	return result, nil
}

// ValidateAll validates several contracts concurrently, running at most workers validations at once. Results are
// returned in request order. The first error cancels the remaining validations.
func (v *Validator) ValidateAll(ctx context.Context, index *types.ArtifactIndex, requests []Request, workers int) ([]*Result, error) {
	results := make([]*Result, len(requests))

	group, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		group.SetLimit(workers)
	}
	for i, request := range requests {
		i, request := i, request
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := v.Validate(index, request.ContractName, request.Previous)
			if err != nil {
				return errors.WithMessagef(err, "could not validate '%s'", request.ContractName)
			}
			results[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
