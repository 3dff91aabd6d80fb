package kafka

import (
	"context"

	"github.com/NordCoder/Shortly/internal/domain/security"
)

type SecurityEvents interface {
	PublishSecurityEvent(ctx context.Context, ev security.Event) error
}
