package habits

const (
	LabelDelete        = "Delete habit"
	LabelConfirmDelete = "Confirm delete"
)

// DeleteGuard requires two consecutive presses before a delete runs.
type DeleteGuard struct {
	armed bool
}

// Press arms the guard, or reports true when it was already armed. The
// guard disarms once it fires.
func (g *DeleteGuard) Press() bool {
	if g.armed {
		g.armed = false
		return true
	}
	g.armed = true
	return false
}

// Cancel disarms without deleting.
func (g *DeleteGuard) Cancel() { g.armed = false }

// Armed reports whether the next press deletes.
func (g *DeleteGuard) Armed() bool { return g.armed }

// Label is the delete button text.
func (g *DeleteGuard) Label() string {
	if g.armed {
		return LabelConfirmDelete
	}
	return LabelDelete
}
