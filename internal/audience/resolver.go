package audience

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/SoSerious194/ptflow-messaging/internal/model"
	"github.com/SoSerious194/ptflow-messaging/internal/repo"
)

type Resolver struct {
	clients repo.ClientRepository
}

func NewResolver(clients repo.ClientRepository) *Resolver {
	return &Resolver{clients: clients}
}

// Resolve expands a message's target into concrete recipient ids.
//
// TargetAll queries the coach's roster; TargetSpecific returns the message's
// explicit recipient set verbatim, with no existence check (unknown ids
// surface as delivery failures downstream). An empty result is "nothing to
// send", not an error.
func (r *Resolver) Resolve(ctx context.Context, m model.ScheduledMessage) ([]uuid.UUID, error) {
	switch m.Target.Kind {
	case model.TargetAll:
		return r.clients.ListIDsByCoach(ctx, m.CoachID)
	case model.TargetSpecific:
		return m.Target.UserIDs, nil
	}
	return nil, fmt.Errorf("unknown target kind %q", m.Target.Kind)
}
