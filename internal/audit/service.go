package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink accepts audit records. It has no way to change or remove them.
type Sink interface {
	Append(ctx context.Context, rec *Record) error
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=audit
type Repository interface {
	CreateRecord(ctx context.Context, rec *Record) error
	// ListRecords returns matches newest first. A nil page returns all of them.
	ListRecords(ctx context.Context, filter Filter, page *Page) ([]*Record, error)
	CountRecords(ctx context.Context, filter Filter) (int64, error)
	CountByEventType(ctx context.Context, start, end time.Time) (map[EventType]int64, error)
	FailureCounts(ctx context.Context, start, end time.Time, minFailures int) ([]SuspiciousTransaction, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Append stores rec, stamping request details from ctx and the creation time
// when the caller left them empty.
func (s *Service) Append(ctx context.Context, rec *Record) error {
	if info, ok := RequestInfoFrom(ctx); ok {
		if rec.IPAddress == "" {
			rec.IPAddress = info.IPAddress
		}

		if rec.UserAgent == "" {
			rec.UserAgent = info.UserAgent
		}

		if rec.SessionID == "" {
			rec.SessionID = info.SessionID
		}
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	rec.clamp()

	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		return fmt.Errorf("appending %s audit record: %w", rec.EventType, err)
	}

	slog.Debug("audit record appended",
		"id", rec.ID,
		"event", rec.EventType,
		"transaction", rec.TransactionNumber,
	)

	return nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Record, error) {
	return s.repo.ListRecords(ctx, filter, nil)
}

func (s *Service) ListPaged(ctx context.Context, filter Filter, page Page) (*PageResult, error) {
	page = page.Normalize()

	records, err := s.repo.ListRecords(ctx, filter, &page)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &PageResult{Records: records, Total: total, Offset: page.Offset, Limit: page.Limit}, nil
}

func (s *Service) ByTransaction(ctx context.Context, id uuid.UUID) ([]*Record, error) {
	return s.List(ctx, Filter{TransactionID: &id})
}

func (s *Service) ByTransactionNumber(ctx context.Context, number string) ([]*Record, error) {
	return s.List(ctx, Filter{TransactionNumber: &number})
}

func (s *Service) ByTransactionAndEventType(ctx context.Context, id uuid.UUID, event EventType) ([]*Record, error) {
	return s.List(ctx, Filter{TransactionID: &id, EventType: &event})
}

func (s *Service) ByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error) {
	return s.List(ctx, Filter{UserID: &userID})
}

func (s *Service) ByUserPaged(ctx context.Context, userID uuid.UUID, page Page) (*PageResult, error) {
	return s.ListPaged(ctx, Filter{UserID: &userID}, page)
}

func (s *Service) ByUserAndEventType(ctx context.Context, userID uuid.UUID, event EventType) ([]*Record, error) {
	return s.List(ctx, Filter{UserID: &userID, EventType: &event})
}

func (s *Service) ByAccount(ctx context.Context, accountID uuid.UUID) ([]*Record, error) {
	return s.List(ctx, Filter{AccountID: &accountID})
}

func (s *Service) ByAccountNumber(ctx context.Context, number string) ([]*Record, error) {
	return s.List(ctx, Filter{AccountNumber: &number})
}

func (s *Service) ByEventType(ctx context.Context, event EventType) ([]*Record, error) {
	return s.List(ctx, Filter{EventType: &event})
}

func (s *Service) ByEventTypePaged(ctx context.Context, event EventType, page Page) (*PageResult, error) {
	return s.ListPaged(ctx, Filter{EventType: &event}, page)
}

// SearchDescription matches records whose description contains text, ignoring case.
func (s *Service) SearchDescription(ctx context.Context, text string) ([]*Record, error) {
	return s.List(ctx, Filter{Description: &text})
}

func (s *Service) ByDateRange(ctx context.Context, start, end time.Time) ([]*Record, error) {
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	return s.List(ctx, Filter{StartDate: &start, EndDate: &end})
}

func (s *Service) ByDateRangePaged(ctx context.Context, start, end time.Time, page Page) (*PageResult, error) {
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	return s.ListPaged(ctx, Filter{StartDate: &start, EndDate: &end}, page)
}

func (s *Service) All(ctx context.Context, page Page) (*PageResult, error) {
	return s.ListPaged(ctx, Filter{}, page)
}

func (s *Service) ByIPAddress(ctx context.Context, ip string) ([]*Record, error) {
	return s.List(ctx, Filter{IPAddress: &ip})
}

func (s *Service) BySession(ctx context.Context, sessionID string) ([]*Record, error) {
	return s.List(ctx, Filter{SessionID: &sessionID})
}

func (s *Service) ByStatusChange(ctx context.Context, previous, next string) ([]*Record, error) {
	return s.List(ctx, Filter{PreviousStatus: &previous, NewStatus: &next})
}

// EventStatistics counts records per event type within [start, end].
func (s *Service) EventStatistics(ctx context.Context, start, end time.Time) (map[EventType]int64, error) {
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	return s.repo.CountByEventType(ctx, start, end)
}

// SuspiciousTransactions lists transactions with at least minFailures
// TRANSACTION_FAILED records within [start, end].
func (s *Service) SuspiciousTransactions(ctx context.Context, start, end time.Time, minFailures int) ([]SuspiciousTransaction, error) {
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	if minFailures < 1 {
		return nil, ErrInvalidThreshold
	}

	return s.repo.FailureCounts(ctx, start, end, minFailures)
}
