package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/techfranca/francaverso/server/common/log"
	"github.com/techfranca/francaverso/server/portal/domain"
)

// ChatStore is the slice of the chat repository the messaging flows need.
type ChatStore interface {
	ListConversationSummaries(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	FindIndividualConversation(ctx context.Context, userA, userB string) (domain.Conversation, error)
	CreateConversation(ctx context.Context, convType string, name *string, createdBy string, participantIDs []string) (domain.Conversation, error)
	ListParticipants(ctx context.Context, conversationID string) ([]domain.UserSummary, error)
	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	TouchLastRead(ctx context.Context, conversationID, userID string) error
	CreateMessage(ctx context.Context, conversationID, senderID, content string) (domain.Message, error)
}

// NotificationStore persists the notification fan-out of new messages.
type NotificationStore interface {
	List(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	InsertMany(ctx context.Context, items []domain.Notification) error
}

type nameLookup interface {
	GetName(ctx context.Context, id string) (string, error)
}

// EventNotifier pushes realtime events to connected users; the Hub satisfies
// it and tests substitute a recorder.
type EventNotifier interface {
	NotifyUser(userID, eventType string, payload any)
}

const notificationPreviewLimit = 100

// ChatService handles conversations, messages and the notification fan-out.
type ChatService struct {
	store         ChatStore
	notifications NotificationStore
	names         nameLookup
	notifier      EventNotifier
}

func NewChatService(store ChatStore, notifications NotificationStore, names nameLookup, notifier EventNotifier) *ChatService {
	return &ChatService{store: store, notifications: notifications, names: names, notifier: notifier}
}

func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	return s.store.ListConversationSummaries(ctx, userID)
}

// StartConversation creates a conversation, or for a 1:1 pair returns the
// existing one so starting the same chat twice never duplicates it.
func (s *ChatService) StartConversation(ctx context.Context, userID, convType string, name string, participantIDs []string) (domain.Conversation, error) {
	others := make([]string, 0, len(participantIDs))
	seen := map[string]bool{userID: true}
	for _, id := range participantIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		others = append(others, id)
	}

	switch convType {
	case domain.ConversationIndividual:
		if len(others) != 1 {
			return domain.Conversation{}, fmt.Errorf("%w: individual conversation needs exactly one other participant", domain.ErrInvalidInput)
		}
		existing, err := s.store.FindIndividualConversation(ctx, userID, others[0])
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Conversation{}, err
		}
		return s.store.CreateConversation(ctx, convType, nil, userID, []string{userID, others[0]})
	case domain.ConversationGroup:
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return domain.Conversation{}, fmt.Errorf("%w: group conversation needs a name", domain.ErrInvalidInput)
		}
		if len(others) == 0 {
			return domain.Conversation{}, fmt.Errorf("%w: group conversation needs at least one other participant", domain.ErrInvalidInput)
		}
		return s.store.CreateConversation(ctx, convType, &trimmed, userID, append([]string{userID}, others...))
	default:
		return domain.Conversation{}, fmt.Errorf("%w: unknown conversation type %q", domain.ErrInvalidInput, convType)
	}
}

// ListMessages returns the conversation history and moves the caller's read
// marker, so fetching a conversation clears its unread badge.
func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	member, err := s.store.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, domain.ErrForbidden
	}

	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLastRead(ctx, conversationID, userID); err != nil {
		log.Warnf("touch last read for %s in %s: %v", userID, conversationID, err)
	}
	return messages, nil
}

// SendMessage stores the message, then fans a notification out to every other
// participant and pushes the message over the realtime hub. Fan-out failures
// never fail the send.
func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, fmt.Errorf("%w: message content is required", domain.ErrInvalidInput)
	}

	member, err := s.store.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return domain.Message{}, err
	}
	if !member {
		return domain.Message{}, domain.ErrForbidden
	}

	message, err := s.store.CreateMessage(ctx, conversationID, userID, content)
	if err != nil {
		return domain.Message{}, err
	}

	s.fanOut(ctx, message)
	return message, nil
}

func (s *ChatService) fanOut(ctx context.Context, message domain.Message) {
	participantIDs, err := s.store.ListParticipantIDs(ctx, message.ConversationID)
	if err != nil {
		log.Warnf("fan-out for %s: list participants: %v", message.ConversationID, err)
		return
	}

	senderName, err := s.names.GetName(ctx, message.SenderID)
	if err != nil || senderName == "" {
		senderName = "um colega"
	}

	preview := message.Content
	if len(preview) > notificationPreviewLimit {
		preview = preview[:notificationPreviewLimit]
	}
	link := "/dashboard/chat?conversation=" + message.ConversationID

	items := make([]domain.Notification, 0, len(participantIDs))
	for _, participantID := range participantIDs {
		if participantID == message.SenderID {
			continue
		}
		items = append(items, domain.Notification{
			UserID:  participantID,
			Type:    "message",
			Title:   "Nova mensagem de " + senderName,
			Content: &preview,
			Link:    &link,
		})
	}
	if err := s.notifications.InsertMany(ctx, items); err != nil {
		log.Warnf("fan-out for %s: insert notifications: %v", message.ConversationID, err)
	}

	if s.notifier != nil {
		for _, item := range items {
			s.notifier.NotifyUser(item.UserID, "message", message)
		}
	}
}

func (s *ChatService) Notifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.notifications.List(ctx, userID, 50)
}

func (s *ChatService) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	return s.notifications.MarkRead(ctx, notificationID, userID)
}
