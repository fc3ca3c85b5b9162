package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/crytic/medusa-geth/accounts/abi"
)

// Artifact represents a single compiled contract together with the AST of the source unit which declares it. A set
// of artifacts is produced once by an external build and treated as immutable afterwards.
type Artifact struct {
	// ContractName is the name of the contract described by this artifact.
	ContractName string `json:"contractName"`

	// FileName is the base name of the source file declaring the contract.
	FileName string `json:"fileName,omitempty"`

	// SourcePath is the path of the source file, as recorded by the build tool.
	SourcePath string `json:"sourcePath"`

	// Source is the source text of the file, if the build tool recorded it.
	Source string `json:"source,omitempty"`

	// Ast is the source unit AST of SourcePath. Every artifact declared by the same source file carries the same AST.
	Ast *SourceUnit `json:"ast"`

	// RawAbi is the ABI exactly as it appeared in the artifact.
	RawAbi json.RawMessage `json:"abi"`

	// Abi describes a contract's application binary interface, a structure used to describe information needed
	// to interact with the contract such as constructor and function definitions.
	Abi abi.ABI `json:"-"`

	// Bytecode is the hex-encoded init bytecode. It may contain unlinked library placeholders.
	Bytecode string `json:"bytecode"`

	// DeployedBytecode is the hex-encoded runtime bytecode. It may contain unlinked library placeholders.
	DeployedBytecode string `json:"deployedBytecode"`

	// Compiler describes the compiler which produced the artifact.
	Compiler CompilerInfo `json:"compiler"`
}

// CompilerInfo describes the compiler recorded in an artifact.
type CompilerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// abiEntry is the minimal shape of an ABI entry needed to inspect its kind.
type abiEntry struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// libraryPlaceholderRegex matches unlinked library placeholders, which always span the 40 hex characters an address
// would occupy.
var libraryPlaceholderRegex = regexp.MustCompile(`__[$0-9a-zA-Z_/.:]{36}__`)

// ParseArtifact decodes a single JSON artifact and parses its ABI. Artifacts without an AST are rejected, since
// nothing in this module can analyze them.
func ParseArtifact(data []byte) (*Artifact, error) {
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, err
	}
	if artifact.ContractName == "" {
		return nil, fmt.Errorf("artifact has no contract name")
	}
	if artifact.Ast == nil {
		return nil, fmt.Errorf("artifact for contract '%s' has no AST", artifact.ContractName)
	}

	// Convert the abi structure to our parsed abi type
	if !isNull(artifact.RawAbi) {
		contractAbi, err := ParseABIFromInterface(string(artifact.RawAbi))
		if err != nil {
			return nil, fmt.Errorf("could not parse ABI for contract '%s': %v", artifact.ContractName, err)
		}
		artifact.Abi = *contractAbi
	}
	return &artifact, nil
}

// ParseABIFromInterface parses a generic object into an abi.ABI and returns it, or an error if one occurs.
func ParseABIFromInterface(i any) (*abi.ABI, error) {
	var (
		result abi.ABI
		err    error
	)

	// If it's a string, just parse it. Otherwise, we assume it's an interface and serialize it into a string.
	if s, ok := i.(string); ok {
		result, err = abi.JSON(strings.NewReader(s))
		if err != nil {
			return nil, err
		}
	} else {
		var b []byte
		b, err = json.Marshal(i)
		if err != nil {
			return nil, err
		}
		result, err = abi.JSON(strings.NewReader(string(b)))
		if err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// HasABIEntryOfType returns true if any entry of the raw ABI has the given type (e.g. "constructor").
func (a *Artifact) HasABIEntryOfType(entryType string) bool {
	if isNull(a.RawAbi) {
		return false
	}
	var entries []abiEntry
	if err := json.Unmarshal(a.RawAbi, &entries); err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Type == entryType {
			return true
		}
	}
	return false
}

// MethodSignature returns the canonical signature (e.g. "initialize(address)") of the named ABI method, or the bare
// name if the method is not part of the ABI.
func (a *Artifact) MethodSignature(name string) string {
	if method, ok := a.Abi.Methods[name]; ok {
		return method.Sig
	}
	return name
}

// ContractDefinition returns the AST node declaring this artifact's contract. An AST that declares the contract zero
// or several times is reported as an error, as it indicates stale build artifacts.
func (a *Artifact) ContractDefinition() (*ContractDefinition, error) {
	var found *ContractDefinition
	for _, node := range a.Ast.Nodes {
		contract, ok := node.(*ContractDefinition)
		if !ok || contract.Name != a.ContractName {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("source unit '%s' declares contract '%s' more than once", a.SourcePath, a.ContractName)
		}
		found = contract
	}
	if found == nil {
		return nil, fmt.Errorf("source unit '%s' does not declare contract '%s'", a.SourcePath, a.ContractName)
	}
	return found, nil
}

// CompilerVersion parses the semantic version of the compiler which produced the artifact. Artifacts which do not
// record it fall back to the version in the bytecode metadata trailer.
func (a *Artifact) CompilerVersion() (*semver.Version, error) {
	version := a.Compiler.Version
	if version == "" {
		if metadata := a.metadata(); metadata != nil {
			version = metadata.CompilerVersion()
		}
	}
	if version == "" {
		return nil, fmt.Errorf("artifact for contract '%s' does not record a compiler version", a.ContractName)
	}
	return semver.NewVersion(strings.TrimPrefix(version, "v"))
}

// DeployedBytecodeBytes decodes the runtime bytecode. Unlinked library placeholders are replaced with the zero
// address so that the remaining bytecode, including its metadata trailer, can still be inspected.
func (a *Artifact) DeployedBytecodeBytes() ([]byte, error) {
	return decodeUnlinkedBytecode(a.DeployedBytecode)
}

// BytecodeBytes decodes the init bytecode, replacing unlinked library placeholders with the zero address.
func (a *Artifact) BytecodeBytes() ([]byte, error) {
	return decodeUnlinkedBytecode(a.Bytecode)
}

// decodeUnlinkedBytecode decodes a hex-encoded bytecode string which may still contain library placeholders.
func decodeUnlinkedBytecode(bytecode string) ([]byte, error) {
	bytecode = strings.TrimPrefix(bytecode, "0x")
	bytecode = libraryPlaceholderRegex.ReplaceAllString(bytecode, strings.Repeat("0", 40))
	return hex.DecodeString(bytecode)
}
