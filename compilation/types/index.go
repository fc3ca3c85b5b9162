package types

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ArtifactIndex indexes a set of compiled artifacts by the source file they originate from, as well as by contract
// name. It is read-only once constructed and may be shared by concurrent analyses.
type ArtifactIndex struct {
	// artifacts is the list of indexed artifacts, in the order they were provided.
	artifacts []*Artifact

	// sourcePathToArtifacts maps both the build tool's source path and the AST's absolute path to the artifacts
	// declared in that file.
	sourcePathToArtifacts map[string][]*Artifact

	// contractNameToArtifacts maps a contract name to every artifact which declares a contract of that name.
	contractNameToArtifacts map[string][]*Artifact
}

// NewArtifactIndex returns an ArtifactIndex over the provided artifacts.
func NewArtifactIndex(artifacts []*Artifact) *ArtifactIndex {
	index := &ArtifactIndex{
		artifacts:               slices.Clone(artifacts),
		sourcePathToArtifacts:   make(map[string][]*Artifact),
		contractNameToArtifacts: make(map[string][]*Artifact),
	}

	for _, artifact := range artifacts {
		paths := []string{artifact.SourcePath}
		if artifact.Ast != nil && artifact.Ast.AbsolutePath != "" && artifact.Ast.AbsolutePath != artifact.SourcePath {
			paths = append(paths, artifact.Ast.AbsolutePath)
		}
		for _, path := range paths {
			if path == "" {
				continue
			}
			index.sourcePathToArtifacts[path] = append(index.sourcePathToArtifacts[path], artifact)
		}
		index.contractNameToArtifacts[artifact.ContractName] = append(index.contractNameToArtifacts[artifact.ContractName], artifact)
	}
	return index
}

// Artifacts returns every indexed artifact.
func (i *ArtifactIndex) Artifacts() []*Artifact {
	return slices.Clone(i.artifacts)
}

// BySourcePath returns the artifacts declared in the given source file. The path may be either the build tool's
// source path or the AST absolute path.
func (i *ArtifactIndex) BySourcePath(path string) []*Artifact {
	return i.sourcePathToArtifacts[path]
}

// SourceUnit returns the AST of the given source file, or nil if no artifact originates from it.
func (i *ArtifactIndex) SourceUnit(path string) *SourceUnit {
	for _, artifact := range i.sourcePathToArtifacts[path] {
		if artifact.Ast != nil {
			return artifact.Ast
		}
	}
	return nil
}

// ByContractName returns the unique artifact for the given contract name. Ambiguous names must be disambiguated
// with ByQualifiedName.
func (i *ArtifactIndex) ByContractName(name string) (*Artifact, error) {
	candidates := i.contractNameToArtifacts[name]
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("no artifact found for contract '%s'", name)
	case 1:
		return candidates[0], nil
	default:
		paths := make([]string, len(candidates))
		for j, candidate := range candidates {
			paths[j] = candidate.SourcePath
		}
		return nil, fmt.Errorf("contract name '%s' is declared in multiple sources %v, use <path>:<name>", name, paths)
	}
}

// ByQualifiedName resolves "<sourcePath>:<contractName>" or a bare contract name to an artifact.
func (i *ArtifactIndex) ByQualifiedName(name string) (*Artifact, error) {
	for j := len(name) - 1; j >= 0; j-- {
		if name[j] != ':' {
			continue
		}
		path, contractName := name[:j], name[j+1:]
		for _, artifact := range i.sourcePathToArtifacts[path] {
			if artifact.ContractName == contractName {
				return artifact, nil
			}
		}
		return nil, fmt.Errorf("no artifact found for contract '%s' in '%s'", contractName, path)
	}
	return i.ByContractName(name)
}

// CompilerVersions returns the distinct compiler versions recorded by the indexed artifacts, sorted. Node ids are
// only unique within a single compilation, so more than one version usually signals mixed, stale artifacts.
func (i *ArtifactIndex) CompilerVersions() []string {
	versions := make([]string, 0)
	for _, artifact := range i.artifacts {
		version, err := artifact.CompilerVersion()
		if err != nil {
			continue
		}
		versionStr := fmt.Sprintf("%d.%d.%d", version.Major(), version.Minor(), version.Patch())
		if !slices.Contains(versions, versionStr) {
			versions = append(versions, versionStr)
		}
	}
	slices.Sort(versions)
	return versions
}
