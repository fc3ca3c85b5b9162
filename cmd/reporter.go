package cmd

import (
	"fmt"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/layout"
	"github.com/crytic/slotguard/logging"
	"github.com/crytic/slotguard/logging/colors"
	"github.com/crytic/slotguard/validation"
)

// finding is a single line of a validation report.
type finding struct {
	// blocking is set if the finding fails validation.
	blocking bool
	// message is the description of the finding.
	message string
}

// reportSummary counts the findings of one or several reports.
type reportSummary struct {
	// Blocking is the number of findings which fail validation.
	Blocking int
	// Warnings is the number of findings which are reported but do not fail validation.
	Warnings int
}

// add accumulates another summary into this one.
func (s *reportSummary) add(other reportSummary) {
	s.Blocking += other.Blocking
	s.Warnings += other.Warnings
}

// reporter renders validation results. Storage insertions, deletions and replacements, as well as every safety
// finding, are blocking. Appends, renames, type changes and pops are warnings unless failOnWarnings is set.
type reporter struct {
	// index is the artifact index of the validated build, used to locate sources and initializer signatures.
	index *types.ArtifactIndex

	// failOnWarnings promotes every warning to a blocking finding.
	failOnWarnings bool
}

// newReporter returns a reporter for results validated against the provided index.
func newReporter(index *types.ArtifactIndex, failOnWarnings bool) *reporter {
	return &reporter{
		index:          index,
		failOnWarnings: failOnWarnings,
	}
}

// isBlocking returns true if a storage change of the given kind fails validation.
func (r *reporter) isBlocking(action layout.Action) bool {
	switch action {
	case layout.ActionInsert, layout.ActionDelete, layout.ActionReplace:
		return true
	case layout.ActionAppend, layout.ActionRename, layout.ActionTypeChange, layout.ActionPop:
		return r.failOnWarnings
	default:
		return false
	}
}

// findings returns the findings of a result, safety findings first and then storage changes in storage order.
// previous is the layout the result was compared against, or nil.
func (r *reporter) findings(result *validation.Result, previous *layout.StorageLayout) []finding {
	findings := make([]finding, 0)

	if result.HasConstructor {
		findings = append(findings, finding{true, "declares a constructor, which never runs for a proxy: move its logic to an initializer"})
	}
	if result.HasSelfDestruct {
		findings = append(findings, finding{true, "calls selfdestruct, directly or through a base contract, which can destroy the implementation"})
	}
	if result.HasDelegateCall {
		findings = append(findings, finding{true, "performs a delegatecall, directly or through a base contract, which can destroy the implementation"})
	}
	if result.HasInitialValuesInDeclarations {
		findings = append(findings, finding{true, "initializes a state variable in its declaration, which only takes effect in the constructor"})
	}
	for _, base := range result.UninitializedBaseContracts {
		findings = append(findings, finding{true, fmt.Sprintf("never calls the initializer of base contract '%s'%s", base, r.initializerSignature(base))})
	}

	for _, operation := range result.StorageDiff.Actionable() {
		findings = append(findings, finding{r.isBlocking(operation.Action), r.describeOperation(operation, previous, result.Layout)})
	}
	return findings
}

// describeOperation renders a storage change.
func (r *reporter) describeOperation(operation layout.Operation, previous *layout.StorageLayout, current *layout.StorageLayout) string {
	switch operation.Action {
	case layout.ActionInsert:
		return fmt.Sprintf("variable %s was inserted before existing variables, shifting their storage slots", r.describeSlot(operation.Updated, current))
	case layout.ActionAppend:
		return fmt.Sprintf("variable %s was appended", r.describeSlot(operation.Updated, current))
	case layout.ActionDelete:
		return fmt.Sprintf("variable %s was deleted, shifting the storage slots of the variables after it", r.describeSlot(operation.Original, previous))
	case layout.ActionPop:
		return fmt.Sprintf("variable %s was removed from the end of the layout", r.describeSlot(operation.Original, previous))
	case layout.ActionRename:
		return fmt.Sprintf("variable '%s' was renamed to %s", operation.Original.Label, r.describeSlot(operation.Updated, current))
	case layout.ActionTypeChange:
		return fmt.Sprintf("variable %s changed type from %s", r.describeSlot(operation.Updated, current), typeLabel(previous, operation.Original.Type))
	case layout.ActionReplace:
		return fmt.Sprintf("variable '%s' (%s) was replaced by %s", operation.Original.Label, typeLabel(previous, operation.Original.Type), r.describeSlot(operation.Updated, current))
	default:
		return fmt.Sprintf("variable %s is unchanged", r.describeSlot(operation.Updated, current))
	}
}

// describeSlot renders a variable as "'name' (type) in Contract at path:line".
func (r *reporter) describeSlot(slot *layout.StorageSlot, storageLayout *layout.StorageLayout) string {
	return fmt.Sprintf("'%s' (%s) in %s at %s", slot.Label, typeLabel(storageLayout, slot.Type), slot.Contract, r.location(slot))
}

// location returns the source location of a variable, with its line number when the source text is available.
func (r *reporter) location(slot *layout.StorageSlot) string {
	if r.index == nil {
		return slot.SourcePath
	}
	sourceRange, err := types.ParseSourceRange(slot.Src)
	if err != nil {
		return slot.SourcePath
	}
	for _, artifact := range r.index.BySourcePath(slot.SourcePath) {
		if artifact.Source == "" {
			continue
		}
		if line := types.LineNumber(artifact.Source, sourceRange.Start); line > 0 {
			return fmt.Sprintf("%s:%d", slot.SourcePath, line)
		}
	}
	return slot.SourcePath
}

// initializerSignature returns " (<signature>)" for the initializer of a base contract, or an empty string if its
// artifact does not expose one.
func (r *reporter) initializerSignature(base string) string {
	if r.index == nil {
		return ""
	}
	artifact, err := r.index.ByContractName(base)
	if err != nil {
		return ""
	}
	if _, ok := artifact.Abi.Methods["initialize"]; !ok {
		return ""
	}
	return fmt.Sprintf(" (%s)", artifact.MethodSignature("initialize"))
}

// typeLabel returns the human-readable label of a type id, or the id itself if the layout does not describe it.
func typeLabel(storageLayout *layout.StorageLayout, typeID string) string {
	if storageLayout != nil {
		if descriptor, ok := storageLayout.Types[typeID]; ok && descriptor != nil {
			return descriptor.Label
		}
	}
	return typeID
}

// report renders the findings of a result into the provided buffer and returns their counts.
func (r *reporter) report(buffer *logging.LogBuffer, result *validation.Result, previous *layout.StorageLayout) reportSummary {
	var summary reportSummary
	findings := r.findings(result, previous)

	buffer.Append(colors.Bold, result.ContractName, colors.Reset, " (", result.SourcePath, ")")
	if previous == nil {
		buffer.Append(colors.DarkGray, " no previous layout, storage not compared", colors.Reset)
	}
	if len(findings) == 0 {
		buffer.Append("\n", colors.GreenBold, "  ", colors.CHECK, " ", colors.Reset, "no issues found")
		return summary
	}

	for _, f := range findings {
		if f.blocking {
			summary.Blocking++
			buffer.Append("\n", colors.RedBold, "  ", colors.CROSS, " ", colors.Reset, f.message)
		} else {
			summary.Warnings++
			buffer.Append("\n", colors.YellowBold, "  ", colors.BANG, " ", colors.Reset, f.message)
		}
	}
	return summary
}
