package messaging

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"

	"github.com/duynhne/user-service/internal/core/domain"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "shop.user.created", subject("shop", domain.EventUserCreated))
	assert.Equal(t, "user.wishlist.updated", subject("", domain.EventWishlistUpdated))
}

func TestPublishWithoutConnection(t *testing.T) {
	p := &NATSPublisher{prefix: "shop"}
	err := p.Publish(context.Background(), domain.Event{Type: domain.EventUserDeleted})
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	p.Close()
}

func TestNopPublisher(t *testing.T) {
	var p domain.EventPublisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), domain.Event{Type: domain.EventUserCreated}))
}
