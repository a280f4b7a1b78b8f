package notifications

import (
	"context"
	"fmt"

	"perfcycle/internal/domain/apperr"
)

type Service struct {
	store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) error {
	return s.store.CreateNotifications(ctx, []Message{{UserID: userID, Type: ntype, Title: title, Body: body}})
}

// NotifyReviewers tells each reviewer they have feedback to give in a cycle.
func (s *Service) NotifyReviewers(ctx context.Context, cycleName string, reviewerIDs []string) error {
	messages := make([]Message, 0, len(reviewerIDs))
	for _, id := range reviewerIDs {
		messages = append(messages, Message{
			UserID: id,
			Type:   TypeReviewAssigned,
			Title:  "New feedback request",
			Body:   fmt.Sprintf("You have been asked to give feedback in %q.", cycleName),
		})
	}
	return s.store.CreateNotifications(ctx, messages)
}

// NotifyManagerChange tells an employee their manager was set or cleared.
func (s *Service) NotifyManagerChange(ctx context.Context, userID, managerID string) error {
	if managerID == "" {
		return s.Create(ctx, userID, TypeManagerRemoved, "Manager removed", "You no longer have a manager assigned.")
	}
	return s.Create(ctx, userID, TypeManagerChanged, "Manager changed", "Your reporting line has been updated.")
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountNotifications(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	found, err := s.store.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("notification not found")
	}
	return nil
}
