package cmd

import (
	"strings"
	"testing"

	"github.com/crytic/slotguard/layout"
	"github.com/crytic/slotguard/logging"
	"github.com/crytic/slotguard/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reportLayout returns a layout with one uint256 variable per label, declared by Box.
func reportLayout(labels ...string) *layout.StorageLayout {
	storageLayout := &layout.StorageLayout{
		Storage: make([]layout.StorageSlot, 0, len(labels)),
		Types: map[string]*layout.TypeDescriptor{
			"t_uint256": {ID: "t_uint256", Kind: layout.KindElementary, Label: "uint256"},
			"t_address": {ID: "t_address", Kind: layout.KindElementary, Label: "address"},
		},
	}
	for i, label := range labels {
		storageLayout.Storage = append(storageLayout.Storage, layout.StorageSlot{
			Label:      label,
			Type:       "t_uint256",
			AstID:      int64(i + 1),
			SourcePath: "contracts/Box.sol",
			Src:        "0:0:0",
			Contract:   "Box",
		})
	}
	return storageLayout
}

// TestReporterIsBlocking ensures that only changes which move existing variables are blocking by default.
func TestReporterIsBlocking(t *testing.T) {
	t.Parallel()

	lenient := newReporter(nil, false)
	strict := newReporter(nil, true)

	tests := []struct {
		action  layout.Action
		lenient bool
		strict  bool
	}{
		{layout.ActionEqual, false, false},
		{layout.ActionInsert, true, true},
		{layout.ActionDelete, true, true},
		{layout.ActionReplace, true, true},
		{layout.ActionAppend, false, true},
		{layout.ActionPop, false, true},
		{layout.ActionRename, false, true},
		{layout.ActionTypeChange, false, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.lenient, lenient.isBlocking(tt.action), "action %s", tt.action)
		assert.Equal(t, tt.strict, strict.isBlocking(tt.action), "action %s", tt.action)
	}
}

// TestReporterFindings ensures that safety findings come first and that storage changes are described with the
// layout they belong to.
func TestReporterFindings(t *testing.T) {
	t.Parallel()

	previous := reportLayout("a", "b")
	current := reportLayout("a", "b", "c")
	current.Storage[1].Type = "t_address"

	result := &validation.Result{
		ContractName:               "Box",
		SourcePath:                 "contracts/Box.sol",
		HasSelfDestruct:            true,
		UninitializedBaseContracts: []string{"Base"},
		Layout:                     current,
		StorageDiff:                layout.Compare(previous, current),
	}

	findings := newReporter(nil, false).findings(result, previous)
	require.Len(t, findings, 4)

	assert.True(t, findings[0].blocking)
	assert.Contains(t, findings[0].message, "selfdestruct")
	assert.True(t, findings[1].blocking)
	assert.Contains(t, findings[1].message, "'Base'")

	assert.False(t, findings[2].blocking)
	assert.Equal(t, "variable 'b' (address) in Box at contracts/Box.sol changed type from uint256", findings[2].message)
	assert.False(t, findings[3].blocking)
	assert.Equal(t, "variable 'c' (uint256) in Box at contracts/Box.sol was appended", findings[3].message)
}

// TestReporterReport ensures that the rendered report counts blocking findings and warnings separately.
func TestReporterReport(t *testing.T) {
	t.Parallel()

	previous := reportLayout("a", "b")
	current := reportLayout("a", "x", "b", "c")
	result := &validation.Result{
		ContractName: "Box",
		SourcePath:   "contracts/Box.sol",
		Layout:       current,
		StorageDiff:  layout.Compare(previous, current),
	}

	buffer := logging.NewLogBuffer()
	summary := newReporter(nil, false).report(buffer, result, previous)
	assert.Equal(t, reportSummary{Blocking: 1, Warnings: 1}, summary)
	assert.Contains(t, buffer.String(), "'x' (uint256) in Box at contracts/Box.sol was inserted")

	buffer = logging.NewLogBuffer()
	summary = newReporter(nil, true).report(buffer, result, previous)
	assert.Equal(t, reportSummary{Blocking: 2}, summary)

	// A clean result without a previous layout is reported as such
	clean := &validation.Result{ContractName: "Box", SourcePath: "contracts/Box.sol", Layout: current}
	buffer = logging.NewLogBuffer()
	summary = newReporter(nil, false).report(buffer, clean, nil)
	assert.Equal(t, reportSummary{}, summary)
	assert.True(t, strings.Contains(buffer.String(), "no previous layout"))
	assert.True(t, strings.Contains(buffer.String(), "no issues found"))
}

// TestTypeLabel ensures that unknown type ids are rendered as is.
func TestTypeLabel(t *testing.T) {
	t.Parallel()

	storageLayout := reportLayout("a")
	assert.Equal(t, "uint256", typeLabel(storageLayout, "t_uint256"))
	assert.Equal(t, "t_bool", typeLabel(storageLayout, "t_bool"))
	assert.Equal(t, "t_uint256", typeLabel(nil, "t_uint256"))
}
