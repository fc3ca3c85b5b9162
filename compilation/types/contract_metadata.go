package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor"
)

// ContractMetadata is the CBOR-encoded trailer the Solidity compiler appends to runtime bytecode, unless directed not
// to. The trailer is followed by its own length as a two-byte big-endian integer.
// Reference: https://docs.soliditylang.org/en/v0.8.20/metadata.html#encoding-of-the-metadata-hash-in-the-bytecode
type ContractMetadata struct {
	// IPFS is the IPFS hash of the metadata file (solc >= 0.6.0).
	IPFS []byte `cbor:"ipfs"`
	// Bzzr0 is the Swarm hash of the metadata file (solc < 0.5.11).
	Bzzr0 []byte `cbor:"bzzr0"`
	// Bzzr1 is the Swarm hash of the metadata file (solc >= 0.5.11).
	Bzzr1 []byte `cbor:"bzzr1"`
	// Solc is the compiler version as major, minor and patch bytes (solc >= 0.5.9). Prereleases encode a string.
	Solc any `cbor:"solc"`
	// Experimental is set if experimental compiler features were enabled.
	Experimental bool `cbor:"experimental"`
}

// ExtractContractMetadata decodes the metadata trailer of the provided bytecode, or returns nil if the bytecode does
// not end with one.
func ExtractContractMetadata(bytecode []byte) *ContractMetadata {
	if len(bytecode) < 2 {
		return nil
	}
	length := int(binary.BigEndian.Uint16(bytecode[len(bytecode)-2:]))
	if length == 0 || length > len(bytecode)-2 {
		return nil
	}

	var metadata ContractMetadata
	trailer := bytecode[len(bytecode)-2-length : len(bytecode)-2]
	if err := cbor.Unmarshal(trailer, &metadata); err != nil {
		return nil
	}
	if metadata.SourceHash() == nil && metadata.CompilerVersion() == "" {
		return nil
	}
	return &metadata
}

// SourceHash returns the hash of the metadata file, which covers the sources the bytecode was compiled from, or nil
// if the trailer does not carry one.
func (m *ContractMetadata) SourceHash() []byte {
	for _, hash := range [][]byte{m.IPFS, m.Bzzr1, m.Bzzr0} {
		if len(hash) > 0 {
			return hash
		}
	}
	return nil
}

// CompilerVersion returns the compiler version recorded in the trailer, or an empty string if there is none.
func (m *ContractMetadata) CompilerVersion() string {
	switch version := m.Solc.(type) {
	case []byte:
		if len(version) == 3 {
			return fmt.Sprintf("%d.%d.%d", version[0], version[1], version[2])
		}
	case string:
		return version
	}
	return ""
}

// metadata decodes the metadata trailer of the artifact's runtime bytecode, or returns nil if it has none.
func (a *Artifact) metadata() *ContractMetadata {
	bytecode, err := a.DeployedBytecodeBytes()
	if err != nil {
		return nil
	}
	return ExtractContractMetadata(bytecode)
}

// BytecodeHash returns the hex-encoded source hash embedded in the artifact's runtime bytecode, or an empty string if
// the bytecode carries no metadata trailer.
func (a *Artifact) BytecodeHash() string {
	metadata := a.metadata()
	if metadata == nil {
		return ""
	}
	return hex.EncodeToString(metadata.SourceHash())
}
