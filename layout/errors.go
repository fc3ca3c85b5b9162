package layout

import "fmt"

// UnknownTypeNodeError indicates that a declared type uses an AST type-name kind with no modeled case. It signals an
// unsupported language construct and aborts layout construction.
type UnknownTypeNodeError struct {
	// NodeType is the AST node kind which could not be modeled.
	NodeType string
	// Declaration is the name of the variable or member whose type could not be modeled, if known.
	Declaration string
}

// Error returns the error message string, implementing the `error` interface.
func (e *UnknownTypeNodeError) Error() string {
	if e.Declaration != "" {
		return fmt.Sprintf("cannot model the storage type of '%s': unsupported type node '%s'", e.Declaration, e.NodeType)
	}
	return fmt.Sprintf("cannot model storage type: unsupported type node '%s'", e.NodeType)
}
