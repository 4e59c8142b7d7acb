package postgres

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
)

// effectiveLess orders two entries by the serving order used whenever a lane
// is listed: priority DESC, position ASC, updated_at ASC.
func effectiveLess(a, b *model.QueueEntry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.UpdatedAt.Before(b.UpdatedAt)
}

// spliceIDs removes moving from ids and reinserts it immediately before or
// after target. Returns false when either id is absent from the sequence.
// The result is the lane's new total order, to be renumbered 1..N.
func spliceIDs(ids []uuid.UUID, moving, target uuid.UUID, place model.ReorderPlace) ([]uuid.UUID, bool) {
	foundMoving := false
	rest := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == moving {
			foundMoving = true
			continue
		}
		rest = append(rest, id)
	}
	if !foundMoving {
		return nil, false
	}

	out := make([]uuid.UUID, 0, len(ids))
	foundTarget := false
	for _, id := range rest {
		if id == target {
			foundTarget = true
			if place == model.ReorderBefore {
				out = append(out, moving, id)
			} else {
				out = append(out, id, moving)
			}
			continue
		}
		out = append(out, id)
	}
	if !foundTarget {
		return nil, false
	}
	return out, true
}
