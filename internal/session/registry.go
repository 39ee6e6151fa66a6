package session

import (
	"time"

	"github.com/classpoll/backend/internal/models"
)

// Registry tracks the connected participants of the session in join
// order. It is not safe for concurrent use on its own; the Coordinator
// serializes access under the session lock.
type Registry struct {
	participants map[string]*models.Participant
	order        []string
}

// NewRegistry creates an empty participant registry.
func NewRegistry() *Registry {
	return &Registry{participants: make(map[string]*models.Participant)}
}

// Register adds a participant under the given connection identity.
// Re-registering an identity replaces its display name and role but
// keeps its position in join order.
func (r *Registry) Register(identity, displayName string, role models.Role, joinedAt time.Time) *models.Participant {
	if existing, ok := r.participants[identity]; ok {
		existing.DisplayName = displayName
		existing.Role = role
		return existing
	}
	p := &models.Participant{
		ID:          identity,
		DisplayName: displayName,
		Role:        role,
		JoinedAt:    joinedAt,
	}
	r.participants[identity] = p
	r.order = append(r.order, identity)
	return p
}

// Remove deletes the participant with the given identity and returns
// it. Removing an unknown identity is a no-op and returns nil.
func (r *Registry) Remove(identity string) *models.Participant {
	p, ok := r.participants[identity]
	if !ok {
		return nil
	}
	delete(r.participants, identity)
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p
}

// Get returns the participant for an identity, or nil.
func (r *Registry) Get(identity string) *models.Participant {
	return r.participants[identity]
}

// ListByRole returns participants with the given role in join order.
func (r *Registry) ListByRole(role models.Role) []*models.Participant {
	out := make([]*models.Participant, 0, len(r.order))
	for _, id := range r.order {
		if p := r.participants[id]; p != nil && p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the number of participants with the given role.
func (r *Registry) Count(role models.Role) int {
	n := 0
	for _, p := range r.participants {
		if p.Role == role {
			n++
		}
	}
	return n
}
