package premium

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outpost-server/internal/notify"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests provide in-memory fakes.
type Store interface {
	InsertGrant(ctx context.Context, kind Kind, subjectID string, expiresAt *time.Time, grantedBy, reason string) (*Grant, error)
	DeleteBySubject(ctx context.Context, kind Kind, subjectID string) (int64, error)
	DeleteByID(ctx context.Context, id int) error
	ListWithExpiry(ctx context.Context) ([]Grant, error)
	ListBySubject(ctx context.Context, subjectID string) ([]Grant, error)
	MarkNotified7d(ctx context.Context, id int) (bool, error)
	MarkNotified48h(ctx context.Context, id int) (bool, error)
}

type Service struct {
	store  Store
	sink   notify.Sink
	now    func() time.Time
	logger *slog.Logger
}

func NewService(store Store, sink notify.Sink, logger *slog.Logger) *Service {
	logger.Debug("Initializing premium service")

	return &Service{
		store:  store,
		sink:   sink,
		now:    time.Now,
		logger: logger,
	}
}

// Grant creates a new entitlement. Overlapping grants for the same subject
// are permitted and tracked independently.
func (s *Service) Grant(ctx context.Context, kind Kind, subjectID string, expiresAt *time.Time, grantedBy, reason string) (*Grant, error) {
	logger := s.logger.With(
		"component", "premium_service",
		"operation", "grant",
		"kind", kind,
		"subject_id", subjectID,
	)

	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if subjectID == "" {
		return nil, ErrInvalidSubject
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, ErrInvalidExpiry
	}

	grant, err := s.store.InsertGrant(ctx, kind, subjectID, expiresAt, grantedBy, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to create grant: %w", err)
	}

	if err := s.sink.NotifyActor(ctx, subjectID, fmt.Sprintf("You have been granted premium (%s). Reason: %s", kind, reason)); err != nil {
		logger.Warn("Failed to deliver grant notification", "error", err)
	}

	logger.Info("Premium granted", "grant_id", grant.ID)
	return grant, nil
}

// Revoke deletes all matching grants for the subject and sends the immediate
// revoked notification. This is distinct from the scheduled expiry path.
func (s *Service) Revoke(ctx context.Context, kind Kind, subjectID string) (int64, error) {
	logger := s.logger.With(
		"component", "premium_service",
		"operation", "revoke",
		"kind", kind,
		"subject_id", subjectID,
	)

	if !kind.IsValid() {
		return 0, ErrInvalidKind
	}
	if subjectID == "" {
		return 0, ErrInvalidSubject
	}

	deleted, err := s.store.DeleteBySubject(ctx, kind, subjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke grants: %w", err)
	}

	if deleted > 0 {
		if err := s.sink.NotifyActor(ctx, subjectID, fmt.Sprintf("Your premium (%s) has been revoked.", kind)); err != nil {
			logger.Warn("Failed to deliver revoke notification", "error", err)
		}
	}

	logger.Info("Premium revoked", "deleted", deleted)
	return deleted, nil
}

func (s *Service) ListBySubject(ctx context.Context, subjectID string) ([]Grant, error) {
	return s.store.ListBySubject(ctx, subjectID)
}

// Tick walks every expiring grant and fires the 7-day reminder, the 48-hour
// reminder, and the terminal expiry notification. A grant already past the
// earlier thresholds receives all applicable reminders in this same tick
// before deletion. Each flag flip is a conditional update, so running Tick
// twice without time advancing emits nothing new. Delivery failures never
// block the flag update or the deletion.
func (s *Service) Tick(ctx context.Context) error {
	logger := s.logger.With("component", "premium_service", "operation", "tick")

	grants, err := s.store.ListWithExpiry(ctx)
	if err != nil {
		return fmt.Errorf("failed to list expiring grants: %w", err)
	}

	now := s.now()
	for i := range grants {
		if err := s.processGrant(ctx, &grants[i], now); err != nil {
			logger.Error("Failed to process grant expiry", "grant_id", grants[i].ID, "error", err)
		}
	}

	return nil
}

func (s *Service) processGrant(ctx context.Context, grant *Grant, now time.Time) error {
	logger := s.logger.With("component", "premium_service", "operation", "process_grant", "grant_id", grant.ID)

	remaining := grant.ExpiresAt.Sub(now)

	if remaining <= ReminderWindow7d && !grant.Notified7d {
		flipped, err := s.store.MarkNotified7d(ctx, grant.ID)
		if err != nil {
			return err
		}
		if flipped {
			s.remind(ctx, grant, 7)
		}
	}

	if remaining <= ReminderWindow48h && !grant.Notified48h {
		flipped, err := s.store.MarkNotified48h(ctx, grant.ID)
		if err != nil {
			return err
		}
		if flipped {
			s.remind(ctx, grant, 2)
		}
	}

	if remaining <= 0 {
		if err := s.sink.NotifyActor(ctx, grant.SubjectID, fmt.Sprintf("Your premium (%s) has expired. Perks have been revoked.", grant.Kind)); err != nil {
			logger.Warn("Failed to deliver expiry notification", "error", err)
		}
		if err := s.store.DeleteByID(ctx, grant.ID); err != nil {
			return err
		}
		logger.Info("Expired grant removed")
	}

	return nil
}

func (s *Service) remind(ctx context.Context, grant *Grant, days int) {
	logger := s.logger.With("component", "premium_service", "operation", "remind", "grant_id", grant.ID, "days", days)

	message := fmt.Sprintf("Your premium (%s) expires in %d days! Renew soon to keep your perks.", grant.Kind, days)
	if err := s.sink.NotifyActor(ctx, grant.SubjectID, message); err != nil {
		// The flag is already set; best-effort delivery must not cause
		// re-notification storms.
		logger.Warn("Failed to deliver expiry reminder", "error", err)
	}
}
