package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliveryCache records the latest successful delivery per
// (message, recipient) so the coach dashboard can show "last sent" without
// scanning the delivery log.
type DeliveryCache interface {
	StoreDelivered(ctx context.Context, messageID, userID uuid.UUID, chatMessageID string, sentAt time.Time) error
}
