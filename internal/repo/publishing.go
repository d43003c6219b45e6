package repo

import (
	"context"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// AlertPublisher receives alerts after they are stored.
type AlertPublisher interface {
	PublishAlert(alert models.Alert)
}

// PublishingGateway forwards every successfully inserted alert to a publisher, the way
// the hosted database pushes new rows to subscribed dashboards.
type PublishingGateway struct {
	Gateway
	publisher AlertPublisher
}

// NewPublishingGateway wraps next. A nil publisher returns next unchanged.
func NewPublishingGateway(next Gateway, publisher AlertPublisher) Gateway {
	if publisher == nil {
		return next
	}
	return &PublishingGateway{Gateway: next, publisher: publisher}
}

// InsertAlert stores the alert then publishes it.
func (g *PublishingGateway) InsertAlert(ctx context.Context, insert models.AlertInsert) (models.Alert, error) {
	alert, err := g.Gateway.InsertAlert(ctx, insert)
	if err != nil {
		return models.Alert{}, err
	}
	g.publisher.PublishAlert(alert)
	return alert, nil
}
