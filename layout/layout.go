package layout

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/inheritance"
	"github.com/crytic/slotguard/logging"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Builder assembles the storage layout of a contract from its inheritance chain.
type Builder struct {
	// logger describes the Builder's log object that can be used to log important events
	logger *logging.Logger
}

// NewBuilder returns a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		logger: logging.GlobalLogger.NewSubLogger("module", logging.ANALYSIS_SERVICE),
	}
}

// BuildLayout builds the storage layout of the named contract. The name may be qualified as "<sourcePath>:<name>".
func BuildLayout(index *types.ArtifactIndex, contractName string) (*StorageLayout, error) {
	artifact, err := index.ByQualifiedName(contractName)
	if err != nil {
		return nil, err
	}
	return NewBuilder().Build(index, artifact)
}

// Build returns the storage layout of the contract described by the artifact: the storage-resident state variables
// of every ancestor, base-first, each in declaration order.
func (b *Builder) Build(index *types.ArtifactIndex, artifact *types.Artifact) (*StorageLayout, error) {
	resolver, err := inheritance.NewResolver(index, artifact)
	if err != nil {
		return nil, err
	}
	return b.BuildWithResolver(resolver)
}

// BuildWithResolver returns the storage layout of the resolver's contract, reusing its declaration arena.
func (b *Builder) BuildWithResolver(resolver *inheritance.Resolver) (*StorageLayout, error) {
	chain, err := resolver.LinearizedBaseContracts(false)
	if err != nil {
		return nil, err
	}

	registry := NewTypeRegistry()
	modeler := NewTypeModeler(resolver, registry)
	storage := make([]StorageSlot, 0)

	for _, ref := range chain {
		contract := ref.Node.(*types.ContractDefinition)
		for _, variable := range contract.StateVariables() {
			if !variable.IsStorageResident() {
				continue
			}

			descriptor, err := modeler.TypeInfo(variable.TypeName)
			if err != nil {
				var unknownErr *UnknownTypeNodeError
				if errors.As(err, &unknownErr) && unknownErr.Declaration == "" {
					unknownErr.Declaration = contract.Name + "." + variable.Name
				}
				return nil, err
			}

			storage = append(storage, StorageSlot{
				Label:      variable.Name,
				Type:       descriptor.ID,
				AstID:      variable.ID,
				SourcePath: ref.SourcePath,
				Src:        variable.Src,
				Contract:   contract.Name,
			})
		}
	}

	if pending := registry.Pending(); len(pending) > 0 {
		return nil, fmt.Errorf("storage types %v were left incomplete while building the layout of '%s'", pending, resolver.Contract().Name)
	}

	b.logger.Debug("Built storage layout of ", resolver.Contract().Name, " with ", len(storage), " variables and ", registry.Len(), " types")
	return &StorageLayout{
		Storage: storage,
		Types:   registry.Types(),
	}, nil
}

// fingerprintSlot is the part of a StorageSlot which determines storage compatibility. Node ids and source ranges
// change on every recompilation and are left out.
type fingerprintSlot struct {
	Label    string `json:"label"`
	Type     string `json:"type"`
	Contract string `json:"contract"`
}

// fingerprintType is the part of a TypeDescriptor which determines storage compatibility.
type fingerprintType struct {
	Kind        Kind              `json:"kind"`
	Label       string            `json:"label"`
	ValueType   string            `json:"valueType,omitempty"`
	Length      string            `json:"length,omitempty"`
	Members     []fingerprintSlot `json:"members,omitempty"`
	EnumMembers []string          `json:"enumMembers,omitempty"`
}

// Fingerprint returns the hex-encoded Keccak-256 hash of the layout's storage-relevant content. Two layouts with the
// same fingerprint compare as equal in every slot, regardless of node ids or source positions.
func (l *StorageLayout) Fingerprint() (string, error) {
	projection := struct {
		Storage []fingerprintSlot          `json:"storage"`
		Types   map[string]fingerprintType `json:"types"`
	}{
		Storage: projectSlots(l.Storage),
		Types:   make(map[string]fingerprintType, len(l.Types)),
	}
	for id, descriptor := range l.Types {
		projection.Types[id] = fingerprintType{
			Kind:        descriptor.Kind,
			Label:       descriptor.Label,
			ValueType:   descriptor.ValueType,
			Length:      descriptor.Length,
			Members:     projectSlots(descriptor.Members),
			EnumMembers: descriptor.EnumMembers,
		}
	}

	// Map keys are marshaled in sorted order, so the encoding is canonical
	data, err := json.Marshal(projection)
	if err != nil {
		return "", err
	}
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func projectSlots(slots []StorageSlot) []fingerprintSlot {
	if len(slots) == 0 {
		return nil
	}
	projected := make([]fingerprintSlot, len(slots))
	for i, slot := range slots {
		projected[i] = fingerprintSlot{Label: slot.Label, Type: slot.Type, Contract: slot.Contract}
	}
	return projected
}
