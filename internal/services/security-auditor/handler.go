package auditor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/security"
	"github.com/NordCoder/Shortly/internal/domain/user"
	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/NordCoder/Shortly/internal/obs/retry"
	"go.uber.org/zap"
)

var ErrUnknownKind = errors.New("unknown security event kind")

type Handler struct {
	Audit security.AuditRepo
	Users user.Repo
	Out   security.EmailSender
	Clock security.Clock
	Log   *zap.Logger
	// Desk receives reuse alerts; empty disables mail.
	Desk string
	// Retry applies to the audit insert and the mail separately, so a mail
	// retry never writes a second audit row. Zero value means one attempt.
	Retry retry.Policy
}

// HandleEvent stores the event and alerts the security desk on token reuse.
// It returns mailed=true when an alert went out.
func (h *Handler) HandleEvent(ctx context.Context, ev security.Event) (mailed bool, err error) {
	switch ev.Kind {
	case security.EventReuseDetected, security.EventRevokedAll:
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}
	rec := &security.AuditRecord{
		UserID:     ev.UserID,
		Kind:       ev.Kind,
		Revoked:    ev.Revoked,
		OccurredAt: ev.OccurredAt,
		Payload:    string(payload),
	}
	err = retry.Do(ctx, func() error { return h.Audit.Insert(ctx, rec) }, h.Retry.Named("audit.store"))
	if err != nil {
		return false, fmt.Errorf("store audit: %w", err)
	}

	if ev.Kind != security.EventReuseDetected || h.Desk == "" || h.Out == nil {
		return false, nil
	}

	username := "unknown"
	if u, err := h.Users.GetByID(ctx, ev.UserID); err == nil {
		username = u.Username
	} else {
		obs.WithTrace(ctx, h.logger()).Warn("lookup user for alert", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}

	subject := fmt.Sprintf("Refresh token reuse for %s", username)
	body := fmt.Sprintf(
		"A refresh token of user %s (id %d) was presented after it had been redeemed.\n"+
			"All %d live sessions were revoked at %s.\n\nReported at %s.\n",
		username, ev.UserID, ev.Revoked,
		ev.OccurredAt.UTC().Format(time.RFC3339),
		h.now().UTC().Format(time.RFC3339),
	)

	err = retry.Do(ctx, func() error { return h.Out.Send(ctx, h.Desk, subject, body) }, h.Retry.Named("alert.mail"))
	if err != nil {
		return false, fmt.Errorf("send alert: %w", err)
	}
	return true, nil
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
