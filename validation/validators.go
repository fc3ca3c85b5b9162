package validation

import (
	"strings"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/inheritance"
)

const (
	// selfDestructTypePrefix is the type identifier prefix the compiler assigns to the selfdestruct built-in.
	selfDestructTypePrefix = "t_function_selfdestruct"
	// delegateCallTypePrefix is the type identifier prefix the compiler assigns to a raw address.delegatecall.
	delegateCallTypePrefix = "t_function_baredelegatecall"
)

// initializerModifiers are the modifiers which mark a function as an initializer.
var initializerModifiers = []string{"initializer", "onlyInitializing"}

// HasConstructor returns true if the artifact's ABI declares a constructor. Contracts deployed behind a proxy never
// run their constructor, so any logic in it has to move to an initializer.
func HasConstructor(artifact *types.Artifact) bool {
	return artifact.HasABIEntryOfType("constructor")
}

// HasSelfDestruct returns true if the contract or any of its ancestors calls selfdestruct.
func HasSelfDestruct(resolver *inheritance.Resolver) (bool, error) {
	return anyAncestorNode(resolver, func(node types.Node) bool {
		return strings.HasPrefix(typeIdentifier(node), selfDestructTypePrefix)
	})
}

// HasDelegateCall returns true if the contract or any of its ancestors performs a raw delegatecall.
func HasDelegateCall(resolver *inheritance.Resolver) (bool, error) {
	return anyAncestorNode(resolver, func(node types.Node) bool {
		return strings.HasPrefix(typeIdentifier(node), delegateCallTypePrefix)
	})
}

// HasInitialValuesInDeclarations returns true if a storage variable of the contract or of any of its ancestors is
// initialized inline. Such initializers run as part of the constructor and never take effect behind a proxy.
func HasInitialValuesInDeclarations(resolver *inheritance.Resolver) (bool, error) {
	contracts, err := resolver.BaseContracts()
	if err != nil {
		return false, err
	}
	for _, contract := range contracts {
		for _, variable := range contract.StateVariables() {
			if variable.IsStorageResident() && variable.Value != nil {
				return true, nil
			}
		}
	}
	return false, nil
}

// GetUninitializedBaseContracts returns the names of the ancestors which define an initializer that the contract's
// own initializers never call, base-first. Nothing is reported unless at least two contracts of the inheritance
// chain, the contract itself included, define initializers.
func GetUninitializedBaseContracts(resolver *inheritance.Resolver) ([]string, error) {
	contracts, err := resolver.BaseContracts()
	if err != nil {
		return nil, err
	}

	withInitializers := 0
	for _, contract := range contracts {
		if len(initializers(contract)) > 0 {
			withInitializers++
		}
	}
	uninitialized := make([]string, 0)
	if withInitializers < 2 {
		return uninitialized, nil
	}

	// A base initializer may itself initialize further bases, so the calls are followed until no new initializer
	// is reached.
	calls := newInitializerCalls()
	visited := make(map[int64]bool)
	for _, function := range initializers(resolver.Contract()) {
		visited[function.ID] = true
	}
	calls.collect(initializers(resolver.Contract()))
	for expanded := true; expanded; {
		expanded = false
		for _, contract := range contracts {
			for _, function := range initializers(contract) {
				if visited[function.ID] || !calls.includes(contract, function) {
					continue
				}
				visited[function.ID] = true
				calls.collect([]*types.FunctionDefinition{function})
				expanded = true
			}
		}
	}

	for _, contract := range contracts {
		if contract.ID == resolver.Contract().ID {
			continue
		}
		baseInitializers := initializers(contract)
		if len(baseInitializers) == 0 {
			continue
		}

		called := false
		for _, function := range baseInitializers {
			if calls.includes(contract, function) {
				called = true
				break
			}
		}
		if !called {
			uninitialized = append(uninitialized, contract.Name)
		}
	}
	return uninitialized, nil
}

// initializers returns the initializer functions declared directly by a contract.
func initializers(contract *types.ContractDefinition) []*types.FunctionDefinition {
	found := make([]*types.FunctionDefinition, 0)
	for _, function := range contract.Functions() {
		if isInitializer(function) {
			found = append(found, function)
		}
	}
	return found
}

// isInitializer returns true if the function is named initialize or carries an initializer modifier.
func isInitializer(function *types.FunctionDefinition) bool {
	if function.Name == "initialize" {
		return true
	}
	for _, modifier := range initializerModifiers {
		if function.HasModifier(modifier) {
			return true
		}
	}
	return false
}

// initializerCalls records the calls made by the top-level statements of initializer bodies.
type initializerCalls struct {
	// qualified holds "<Contract>.<function>" for calls of the form Base.initialize(...).
	qualified map[string]bool
	// contractMembers holds "<contract id>.<function>" for the same calls, resolved by declaration.
	contractMembers map[int64]map[string]bool
	// functions holds the declaration ids of functions called directly, as in __Base_init(...).
	functions map[int64]bool
}

func newInitializerCalls() *initializerCalls {
	return &initializerCalls{
		qualified:       make(map[string]bool),
		contractMembers: make(map[int64]map[string]bool),
		functions:       make(map[int64]bool),
	}
}

// collect records the ExpressionStatement -> FunctionCall statements of the given functions' bodies.
func (c *initializerCalls) collect(functions []*types.FunctionDefinition) {
	for _, function := range functions {
		if function.Body == nil {
			continue
		}
		for _, statement := range function.Body.Statements {
			expressionStatement, ok := statement.(*types.ExpressionStatement)
			if !ok {
				continue
			}
			call, ok := expressionStatement.Expression.(*types.FunctionCall)
			if !ok {
				continue
			}

			switch target := call.Expression.(type) {
			case *types.MemberAccess:
				base, ok := target.Expression.(*types.Identifier)
				if !ok {
					continue
				}
				c.qualified[base.Name+"."+target.MemberName] = true
				if c.contractMembers[base.ReferencedDeclaration] == nil {
					c.contractMembers[base.ReferencedDeclaration] = make(map[string]bool)
				}
				c.contractMembers[base.ReferencedDeclaration][target.MemberName] = true
				if target.ReferencedDeclaration != nil {
					c.functions[*target.ReferencedDeclaration] = true
				}
			case *types.Identifier:
				c.functions[target.ReferencedDeclaration] = true
			}
		}
	}
}

// includes returns true if the recorded calls include the given initializer of the given base contract.
func (c *initializerCalls) includes(contract *types.ContractDefinition, function *types.FunctionDefinition) bool {
	return c.qualified[contract.Name+"."+function.Name] ||
		c.contractMembers[contract.ID][function.Name] ||
		c.functions[function.ID]
}

// anyAncestorNode returns true if any node of the contract or of its ancestors satisfies the predicate.
func anyAncestorNode(resolver *inheritance.Resolver, predicate func(types.Node) bool) (bool, error) {
	contracts, err := resolver.BaseContracts()
	if err != nil {
		return false, err
	}

	found := false
	for _, contract := range contracts {
		types.Walk(contract, func(node types.Node) bool {
			if found {
				return false
			}
			found = predicate(node)
			return !found
		})
		if found {
			return true, nil
		}
	}
	return false, nil
}

// typeIdentifier returns the compiler type identifier of an expression node, or the empty string if it has none.
func typeIdentifier(node types.Node) string {
	switch n := node.(type) {
	case interface{ GetTypeDescriptions() types.TypeDescriptions }:
		return n.GetTypeDescriptions().TypeIdentifier
	case *types.GenericNode:
		if n.TypeDescriptions != nil {
			return n.TypeDescriptions.TypeIdentifier
		}
	}
	return ""
}
