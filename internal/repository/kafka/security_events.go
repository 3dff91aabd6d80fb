package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/kafka"
	"github.com/NordCoder/Shortly/internal/domain/security"
	"google.golang.org/protobuf/types/known/structpb"
)

type SecurityEventsKafka struct {
	p *Producer
}

func NewSecurityEventsKafka(p *Producer) *SecurityEventsKafka { return &SecurityEventsKafka{p: p} }

var _ kafka.SecurityEvents = (*SecurityEventsKafka)(nil)

// PublishSecurityEvent keys by user id so events of one account stay ordered
// within a partition.
func (e *SecurityEventsKafka) PublishSecurityEvent(ctx context.Context, ev security.Event) error {
	st, err := EventToStruct(ev)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, KeyFromInt64(ev.UserID), ev.Kind, st)
}

func EventToStruct(ev security.Event) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(map[string]any{
		"kind":        ev.Kind,
		"user_id":     ev.UserID,
		"revoked":     ev.Revoked,
		"occurred_at": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("security event to struct: %w", err)
	}
	return st, nil
}

func EventFromStruct(st *structpb.Struct) (security.Event, error) {
	f := st.GetFields()
	kind := f["kind"].GetStringValue()
	if kind == "" {
		return security.Event{}, errors.New("security event: missing kind")
	}
	at, err := time.Parse(time.RFC3339Nano, f["occurred_at"].GetStringValue())
	if err != nil {
		return security.Event{}, fmt.Errorf("security event: occurred_at: %w", err)
	}
	return security.Event{
		Kind:       kind,
		UserID:     int64(f["user_id"].GetNumberValue()),
		Revoked:    int64(f["revoked"].GetNumberValue()),
		OccurredAt: at,
	}, nil
}
