package api

import (
	"context"

	"bank-ledger-go/internal/models"
)

func (s *LedgerService) ListNotifications(ctx context.Context, userId string, page models.PageRequest) (*models.Paginated[models.Notification], error) {
	page = page.Normalize()
	list, total, err := s.store.ListNotifications(ctx, userId, page)
	if err != nil {
		return nil, err
	}
	return &models.Paginated[models.Notification]{Data: nonNil(list), Pagination: models.NewPagination(total, page)}, nil
}

// MarkNotificationsRead marks the listed notifications, or all unread ones
// when ids is empty, and returns how many changed.
func (s *LedgerService) MarkNotificationsRead(ctx context.Context, userId string, ids []string) (int64, error) {
	return s.store.MarkNotificationsRead(ctx, userId, ids)
}

func (s *LedgerService) ListActivities(ctx context.Context, adminId string, page models.PageRequest) (*models.Paginated[models.Activity], error) {
	if _, err := s.requireAdmin(ctx, adminId); err != nil {
		return nil, err
	}
	page = page.Normalize()
	list, total, err := s.store.ListActivities(ctx, page)
	if err != nil {
		return nil, err
	}
	return &models.Paginated[models.Activity]{Data: nonNil(list), Pagination: models.NewPagination(total, page)}, nil
}
