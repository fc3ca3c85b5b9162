package inheritance

import (
	"reflect"

	"github.com/crytic/slotguard/compilation/types"
)

// NodeRef is a canonical reference to a declaration node together with the source file it was registered from.
type NodeRef struct {
	// Node is the declaration node.
	Node types.Node
	// SourcePath is the path of the source unit that declares Node.
	SourcePath string
}

// NodeRegistry is an arena of declaration nodes keyed by AST node id. Each id maps to exactly one canonical node:
// registering a structurally identical node under the same id is a no-op, while registering a different node marks
// the id as ambiguous so that any later lookup of it fails.
type NodeRegistry struct {
	// nodes maps a node id to its canonical node.
	nodes map[int64]NodeRef

	// conflicts counts, for ambiguous ids, how many distinct nodes were registered under the id.
	conflicts map[int64]int
}

// NewNodeRegistry returns an empty NodeRegistry.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{
		nodes:     make(map[int64]NodeRef),
		conflicts: make(map[int64]int),
	}
}

// Register adds a node to the arena. It returns false if the id was already bound to a structurally different node.
func (r *NodeRegistry) Register(node types.Node, sourcePath string) bool {
	id := node.GetID()
	existing, exists := r.nodes[id]
	if !exists {
		r.nodes[id] = NodeRef{Node: node, SourcePath: sourcePath}
		return true
	}

	// The same declaration reached through another import path is the common case
	if existing.Node == node || reflect.DeepEqual(existing.Node, node) {
		return true
	}

	if r.conflicts[id] == 0 {
		r.conflicts[id] = 1
	}
	r.conflicts[id]++
	return false
}

// RegisterSourceUnit registers every declaration node within a source unit.
func (r *NodeRegistry) RegisterSourceUnit(sourceUnit *types.SourceUnit, sourcePath string) {
	types.Walk(sourceUnit, func(node types.Node) bool {
		switch node.(type) {
		case *types.ContractDefinition,
			*types.StructDefinition,
			*types.EnumDefinition,
			*types.UserDefinedValueTypeDefinition,
			*types.FunctionDefinition:
			r.Register(node, sourcePath)
			return true
		case *types.SourceUnit:
			return true
		default:
			// Declarations never nest inside other node kinds
			return false
		}
	})
}

// Lookup returns the canonical node for an id, with the number of candidates found. A count other than one means the
// lookup failed.
func (r *NodeRegistry) Lookup(id int64) (NodeRef, int) {
	if conflicts, ambiguous := r.conflicts[id]; ambiguous {
		return NodeRef{}, conflicts
	}
	ref, ok := r.nodes[id]
	if !ok {
		return NodeRef{}, 0
	}
	return ref, 1
}

// Len returns the number of distinct ids registered.
func (r *NodeRegistry) Len() int {
	return len(r.nodes)
}

// lookupNode resolves an id to a node of concrete type T, returning a StructuralArtifactError if the id has zero or
// several candidates of that kind.
func lookupNode[T types.Node](r *NodeRegistry, id int64, expected string) (T, NodeRef, error) {
	var zero T
	ref, candidates := r.Lookup(id)
	if candidates != 1 {
		return zero, NodeRef{}, &StructuralArtifactError{ID: id, Expected: expected, Candidates: candidates}
	}
	node, ok := ref.Node.(T)
	if !ok {
		return zero, NodeRef{}, &StructuralArtifactError{ID: id, Expected: expected, Candidates: 0}
	}
	return node, ref, nil
}
