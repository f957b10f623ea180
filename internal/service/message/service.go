package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"socialmedia/internal/models"
)

// MaxTextLength is the longest message text accepted, in characters.
const MaxTextLength = 254

var (
	ErrInvalidMessage  = errors.New("invalid message")
	ErrUnknownAuthor   = errors.New("posting account does not exist")
	ErrMessageNotFound = errors.New("message not found")
)

// Store is the message persistence the service needs.
type Store interface {
	Create(ctx context.Context, msg models.Message) (*models.Message, error)
	FindAll(ctx context.Context) ([]models.Message, error)
	FindByID(ctx context.Context, id int64) (*models.Message, error)
	FindByPostedBy(ctx context.Context, accountID int64) ([]models.Message, error)
	UpdateText(ctx context.Context, id int64, text string) error
	Delete(ctx context.Context, id int64) (int64, error)
}

// AccountFinder resolves the postedBy foreign key.
type AccountFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Account, error)
}

// Notifier receives committed message changes.
type Notifier interface {
	Notify(ctx context.Context, evt models.MessageEvent) error
}

type Option func(*Service)

// WithNotifier publishes an event after every successful add, update and delete.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// Service validates and persists messages.
type Service struct {
	messages Store
	accounts AccountFinder
	notifier Notifier
	log      logrus.FieldLogger
}

// NewService builds a message service over the given stores.
func NewService(messages Store, accounts AccountFinder, opts ...Option) *Service {
	s := &Service{
		messages: messages,
		accounts: accounts,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: message text cannot be empty", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("%w: message text exceeds %d characters", ErrInvalidMessage, MaxTextLength)
	}
	return nil
}

// Add validates the candidate and stores it. Text is checked before the author.
func (s *Service) Add(ctx context.Context, candidate models.Message) (*models.Message, error) {
	if err := validateText(candidate.MessageText); err != nil {
		return nil, err
	}
	if _, err := s.accounts.FindByID(ctx, candidate.PostedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownAuthor, candidate.PostedBy)
		}
		return nil, fmt.Errorf("verify author: %w", err)
	}

	candidate.ID = 0
	msg, err := s.messages.Create(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	s.notify(ctx, models.MessageEvent{Type: models.EventMessageCreated, MessageID: msg.ID, Message: msg})
	return msg, nil
}

// GetAll returns every stored message in storage order.
func (s *Service) GetAll(ctx context.Context) ([]models.Message, error) {
	messages, err := s.messages.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	msg, err := s.messages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// DeleteByID returns 1 when a message was removed and 0 when none existed.
func (s *Service) DeleteByID(ctx context.Context, id int64) (int64, error) {
	n, err := s.messages.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete message: %w", err)
	}
	if n > 0 {
		s.notify(ctx, models.MessageEvent{Type: models.EventMessageDeleted, MessageID: id})
	}
	return n, nil
}

// UpdateTextByID replaces only the text of an existing message and returns 1.
// Invalid text or a missing id return 0 with ErrInvalidMessage or ErrMessageNotFound.
func (s *Service) UpdateTextByID(ctx context.Context, id int64, text string) (int64, error) {
	if err := validateText(text); err != nil {
		return 0, err
	}
	msg, err := s.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.messages.UpdateText(ctx, id, text); err != nil {
		return 0, fmt.Errorf("update message: %w", err)
	}
	msg.MessageText = text
	s.notify(ctx, models.MessageEvent{Type: models.EventMessageUpdated, MessageID: id, Message: msg})
	return 1, nil
}

// GetAllByAccount lists the messages posted by accountID. Unknown ids yield an empty list.
func (s *Service) GetAllByAccount(ctx context.Context, accountID int64) ([]models.Message, error) {
	messages, err := s.messages.FindByPostedBy(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list account messages: %w", err)
	}
	return messages, nil
}

func (s *Service) notify(ctx context.Context, evt models.MessageEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, evt); err != nil {
		s.log.WithFields(logrus.Fields{
			"event":      evt.Type,
			"message_id": evt.MessageID,
		}).WithError(err).Warn("publish message event failed")
	}
}
