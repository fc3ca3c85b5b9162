package inheritance

import (
	"fmt"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/logging"
	"golang.org/x/exp/slices"
)

// Resolver resolves the inheritance chain of a single contract and the declarations it references. Constructing a
// Resolver registers the contract's source unit and, transitively, every source unit it imports.
type Resolver struct {
	// index is the artifact index used to locate imported source units.
	index *types.ArtifactIndex

	// artifact is the artifact of the contract being resolved.
	artifact *types.Artifact

	// contract is the definition of the contract being resolved.
	contract *types.ContractDefinition

	// registry is the arena of declarations reachable from the contract's source unit.
	registry *NodeRegistry

	// visitedSources tracks which source paths were already registered.
	visitedSources map[string]bool

	// logger describes the Resolver's log object that can be used to log important events
	logger *logging.Logger
}

// NewResolver returns a Resolver for the contract described by the provided artifact.
func NewResolver(index *types.ArtifactIndex, artifact *types.Artifact) (*Resolver, error) {
	contract, err := artifact.ContractDefinition()
	if err != nil {
		return nil, err
	}

	r := &Resolver{
		index:          index,
		artifact:       artifact,
		contract:       contract,
		registry:       NewNodeRegistry(),
		visitedSources: make(map[string]bool),
		logger:         logging.GlobalLogger.NewSubLogger("module", logging.ANALYSIS_SERVICE),
	}
	r.registerSource(artifact.Ast, artifact.SourcePath)
	return r, nil
}

// registerSource registers the declarations of a source unit and recursively those of its imports.
func (r *Resolver) registerSource(sourceUnit *types.SourceUnit, sourcePath string) {
	if r.visitedSources[sourcePath] || (sourceUnit.AbsolutePath != "" && r.visitedSources[sourceUnit.AbsolutePath]) {
		return
	}
	r.visitedSources[sourcePath] = true
	if sourceUnit.AbsolutePath != "" {
		r.visitedSources[sourceUnit.AbsolutePath] = true
	}
	r.registry.RegisterSourceUnit(sourceUnit, sourcePath)

	for _, node := range sourceUnit.Nodes {
		importDirective, ok := node.(*types.ImportDirective)
		if !ok {
			continue
		}

		imported := r.index.SourceUnit(importDirective.AbsolutePath)
		if imported == nil {
			// Sources that only declare free functions or constants produce no artifact of their own
			r.logger.Debug("No artifact found for imported source ", importDirective.AbsolutePath, " (imported by ", sourcePath, ")")
			continue
		}
		r.registerSource(imported, importDirective.AbsolutePath)
	}
}

// Artifact returns the artifact of the contract being resolved.
func (r *Resolver) Artifact() *types.Artifact {
	return r.artifact
}

// Contract returns the definition of the contract being resolved.
func (r *Resolver) Contract() *types.ContractDefinition {
	return r.contract
}

// Registry returns the declaration arena backing this resolver.
func (r *Resolver) Registry() *NodeRegistry {
	return r.registry
}

// LinearizedBaseContracts returns the contract's inheritance chain, including the contract itself, as linearized by
// the compiler. The chain is ordered base-first unless mostDerivedFirst is set.
func (r *Resolver) LinearizedBaseContracts(mostDerivedFirst bool) ([]NodeRef, error) {
	if len(r.contract.LinearizedBaseContracts) == 0 {
		return nil, fmt.Errorf("contract '%s' has no linearized base contracts, the AST may have been produced by an unsupported compiler", r.contract.Name)
	}

	chain := make([]NodeRef, 0, len(r.contract.LinearizedBaseContracts))
	for _, id := range r.contract.LinearizedBaseContracts {
		_, ref, err := lookupNode[*types.ContractDefinition](r.registry, id, "ContractDefinition")
		if err != nil {
			return nil, err
		}
		chain = append(chain, ref)
	}

	// The compiler lists the most derived contract first
	if !mostDerivedFirst {
		slices.Reverse(chain)
	}
	return chain, nil
}

// BaseContracts returns the contract definitions of the inheritance chain, base-first, including the contract itself.
func (r *Resolver) BaseContracts() ([]*types.ContractDefinition, error) {
	chain, err := r.LinearizedBaseContracts(false)
	if err != nil {
		return nil, err
	}
	contracts := make([]*types.ContractDefinition, len(chain))
	for i, ref := range chain {
		contracts[i] = ref.Node.(*types.ContractDefinition)
	}
	return contracts, nil
}

// ContractByID resolves a contract definition by node id.
func (r *Resolver) ContractByID(id int64) (*types.ContractDefinition, NodeRef, error) {
	return lookupNode[*types.ContractDefinition](r.registry, id, "ContractDefinition")
}

// StructByID resolves a struct definition by node id.
func (r *Resolver) StructByID(id int64) (*types.StructDefinition, NodeRef, error) {
	return lookupNode[*types.StructDefinition](r.registry, id, "StructDefinition")
}

// EnumByID resolves an enum definition by node id.
func (r *Resolver) EnumByID(id int64) (*types.EnumDefinition, NodeRef, error) {
	return lookupNode[*types.EnumDefinition](r.registry, id, "EnumDefinition")
}

// ValueTypeByID resolves a user-defined value type definition by node id.
func (r *Resolver) ValueTypeByID(id int64) (*types.UserDefinedValueTypeDefinition, NodeRef, error) {
	return lookupNode[*types.UserDefinedValueTypeDefinition](r.registry, id, "UserDefinedValueTypeDefinition")
}

// FunctionByID resolves a function definition by node id.
func (r *Resolver) FunctionByID(id int64) (*types.FunctionDefinition, NodeRef, error) {
	return lookupNode[*types.FunctionDefinition](r.registry, id, "FunctionDefinition")
}
