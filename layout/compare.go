package layout

// Action classifies a single step of the alignment of two storage layouts.
type Action string

const (
	// ActionEqual is a variable present in both layouts with the same name and type.
	ActionEqual Action = "equal"
	// ActionInsert is a new variable placed before the end of the original layout, shifting the slots after it.
	ActionInsert Action = "insert"
	// ActionAppend is a new variable placed after the end of the original layout.
	ActionAppend Action = "append"
	// ActionDelete is a removed variable which was followed by other variables, shifting their slots.
	ActionDelete Action = "delete"
	// ActionPop is a removed variable at the end of the layout.
	ActionPop Action = "pop"
	// ActionRename is a variable whose type is unchanged but whose name changed.
	ActionRename Action = "rename"
	// ActionTypeChange is a variable whose name is unchanged but whose type changed.
	ActionTypeChange Action = "typechange"
	// ActionReplace is a variable whose name and type both changed.
	ActionReplace Action = "replace"
)

// Operation is one step of the alignment of an original layout against an updated one. Original is nil for
// insertions and Updated is nil for deletions.
type Operation struct {
	Action   Action       `json:"action"`
	Original *StorageSlot `json:"original,omitempty"`
	Updated  *StorageSlot `json:"updated,omitempty"`
}

// Operations is the full alignment of two layouts, in storage order.
type Operations []Operation

// Actionable returns the operations which describe a change, dropping ActionEqual entries.
func (o Operations) Actionable() Operations {
	actionable := make(Operations, 0, len(o))
	for _, operation := range o {
		if operation.Action != ActionEqual {
			actionable = append(actionable, operation)
		}
	}
	return actionable
}

// Count returns the number of operations with the given action.
func (o Operations) Count(action Action) int {
	count := 0
	for _, operation := range o {
		if operation.Action == action {
			count++
		}
	}
	return count
}

// StorageEntryMatches classifies a pair of variables occupying the same position in two layouts.
func StorageEntryMatches(original StorageSlot, updated StorageSlot) Action {
	sameType := original.Type == updated.Type
	sameLabel := original.Label == updated.Label
	switch {
	case sameType && sameLabel:
		return ActionEqual
	case sameType:
		return ActionRename
	case sameLabel:
		return ActionTypeChange
	default:
		return ActionReplace
	}
}

// Compare aligns the original layout against the updated one with DefaultCostModel. It never reorders variables:
// the result lists every variable of both layouts in storage order.
func Compare(original *StorageLayout, updated *StorageLayout) Operations {
	return compare(original, updated, DefaultCostModel)
}

// CompareWithCosts aligns the original layout against the updated one with a custom cost model, which must pass
// CostModel.Validate.
func CompareWithCosts(original *StorageLayout, updated *StorageLayout, costs CostModel) (Operations, error) {
	if err := costs.Validate(); err != nil {
		return nil, err
	}
	return compare(original, updated, costs), nil
}

func compare(original *StorageLayout, updated *StorageLayout, costs CostModel) Operations {
	edits := levenshtein(original.Storage, updated.Storage, StorageEntryMatches, costs)

	operations := make(Operations, len(edits))
	for i, e := range edits {
		operations[i] = Operation{Action: e.action}
		if e.original != nil {
			slot := *e.original
			operations[i].Original = &slot
		}
		if e.updated != nil {
			slot := *e.updated
			operations[i].Updated = &slot
		}
	}
	return operations
}
