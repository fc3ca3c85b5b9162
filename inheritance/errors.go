package inheritance

import "fmt"

// StructuralArtifactError indicates that an AST node id resolved to zero, or to more than one, candidate of the
// expected node kind. It signals stale or corrupted build artifacts: it is never retried, and the build artifacts
// must be cleaned and recompiled.
type StructuralArtifactError struct {
	// ID is the node id which failed to resolve.
	ID int64
	// Expected is the node kind the caller was looking for, e.g. "ContractDefinition".
	Expected string
	// Candidates is the number of candidates found: zero, or more than one.
	Candidates int
}

// Error returns the error message string, implementing the `error` interface.
func (e *StructuralArtifactError) Error() string {
	if e.Candidates == 0 {
		return fmt.Sprintf("could not find %s with id %d in the AST, the build artifacts may be stale: please clean and recompile", e.Expected, e.ID)
	}
	return fmt.Sprintf("found %d candidates for %s with id %d in the AST, the build artifacts may be stale: please clean and recompile", e.Candidates, e.Expected, e.ID)
}
