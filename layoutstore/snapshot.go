package layoutstore

import (
	"fmt"
	"time"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/layout"
	"github.com/google/uuid"
)

// Snapshot records the storage layout of a contract version that was accepted, so that later builds can be
// validated against it without keeping the old build artifacts around.
type Snapshot struct {
	// ID uniquely identifies the snapshot.
	ID uuid.UUID `json:"id"`
	// ContractName is the name of the contract.
	ContractName string `json:"contractName"`
	// SourcePath is the source file declaring the contract.
	SourcePath string `json:"sourcePath"`
	// Fingerprint is the Keccak-256 hash of the layout's storage-relevant content.
	Fingerprint string `json:"fingerprint"`
	// BytecodeHash is the source hash embedded in the runtime bytecode metadata, if any.
	BytecodeHash string `json:"bytecodeHash,omitempty"`
	// CompilerVersion is the version of the compiler which produced the artifact.
	CompilerVersion string `json:"compilerVersion,omitempty"`
	// BuildHash identifies the whole build the artifact was part of.
	BuildHash string `json:"buildHash,omitempty"`
	// CreatedAt is the time the snapshot was taken.
	CreatedAt time.Time `json:"createdAt"`
	// Layout is the recorded storage layout.
	Layout *layout.StorageLayout `json:"layout"`
}

// NewSnapshot returns a snapshot of the provided layout, taken from the given artifact.
func NewSnapshot(artifact *types.Artifact, storageLayout *layout.StorageLayout, buildHash string) (*Snapshot, error) {
	fingerprint, err := storageLayout.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("could not fingerprint the layout of '%s': %v", artifact.ContractName, err)
	}

	compilerVersion := ""
	if version, err := artifact.CompilerVersion(); err == nil {
		compilerVersion = version.String()
	}

	return &Snapshot{
		ID:              uuid.New(),
		ContractName:    artifact.ContractName,
		SourcePath:      artifact.SourcePath,
		Fingerprint:     fingerprint,
		BytecodeHash:    artifact.BytecodeHash(),
		CompilerVersion: compilerVersion,
		BuildHash:       buildHash,
		CreatedAt:       time.Now().UTC(),
		Layout:          storageLayout,
	}, nil
}
