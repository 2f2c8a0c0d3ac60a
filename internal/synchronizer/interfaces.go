package synchronizer

import (
	"context"

	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/notes"
	"github.com/Veraticus/caselight/internal/view"
)

// Source loads the live view and writes annotated views back.
type Source interface {
	Load(ctx context.Context) (*view.Document, error)
	Save(ctx context.Context, doc *view.Document) error
}

// SettingsSource provides the settings snapshot read at the start of a pass.
type SettingsSource interface {
	Snapshot() model.Settings
}

// NoteSource provides the notes snapshot read at the start of a pass.
type NoteSource interface {
	Snapshot() notes.Snapshot
}

// SignalKind classifies a change signal.
type SignalKind int

// Signal kinds.
const (
	// SignalStructural is an external mutation touching recognized rows or tables.
	SignalStructural SignalKind = iota
	// SignalUnrecognized is an external mutation that touched nothing recognized.
	SignalUnrecognized
	// SignalSettings is a settings or notes update.
	SignalSettings
	// SignalApply is an explicit apply request.
	SignalApply
	// SignalCosmetic is a mutation the synchronizer produced itself.
	SignalCosmetic
)

// String returns the signal name used in logs.
func (k SignalKind) String() string {
	switch k {
	case SignalStructural:
		return "structural"
	case SignalUnrecognized:
		return "unrecognized"
	case SignalSettings:
		return "settings"
	case SignalApply:
		return "apply"
	case SignalCosmetic:
		return "cosmetic"
	default:
		return "unknown"
	}
}

// recognized reports whether the signal resets the retry budget.
func (k SignalKind) recognized() bool {
	return k == SignalStructural || k == SignalSettings || k == SignalApply
}
