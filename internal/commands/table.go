// Package commands holds the command table: the ordered, load-once mapping from
// symbolic command names to (zone, opcode) pairs.
package commands

import "zonectl/internal/models"

// Table is read-only after construction and safe to share between goroutines.
type Table struct {
	defs []models.CommandDef
}

// NewTable builds a table from defs in order. The slice is copied.
func NewTable(defs []models.CommandDef) *Table {
	cp := make([]models.CommandDef, len(defs))
	copy(cp, defs)
	return &Table{defs: cp}
}

// Find returns the first definition whose name matches exactly.
// Later duplicates are unreachable.
func (t *Table) Find(name string) (models.CommandDef, bool) {
	if t == nil {
		return models.CommandDef{}, false
	}
	for _, d := range t.defs {
		if d.Name == name {
			return d, true
		}
	}
	return models.CommandDef{}, false
}

// All returns a copy of the definitions in load order.
func (t *Table) All() []models.CommandDef {
	if t == nil {
		return nil
	}
	out := make([]models.CommandDef, len(t.defs))
	copy(out, t.defs)
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.defs)
}
