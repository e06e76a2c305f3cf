package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/smartpay/pkg/catalog"
	"github.com/google/uuid"
)

// Role labels the author of a transcript message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one line of the transcript.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Timestamp time.Time
}

// Turn is the role/text pair forwarded to the completion service.
type Turn struct {
	Role Role
	Text string
}

// Completer produces the agent's reply for one user turn given the listing's
// system instruction and the prior transcript.
type Completer interface {
	Complete(ctx context.Context, systemInstruction string, history []Turn, message string) (string, error)
}

const welcomeTemplate = "Hello! I'm %s, your %s. You've activated me through SmartPay using AI-native intelligent payments. How can I assist you today?"

// Session holds the append-only transcript for one activated listing and
// serializes sends: at most one completion call is in flight at a time.
type Session struct {
	mutex     sync.Mutex
	listing   catalog.Listing
	completer Completer
	nowFn     func() time.Time
	idFn      func() string

	messages []Message
	pending  bool
}

// SessionOption configures a Session instance.
type SessionOption func(*Session)

// WithClock overrides the timestamp source.
func WithClock(nowFn func() time.Time) SessionOption {
	return func(session *Session) {
		if nowFn != nil {
			session.nowFn = nowFn
		}
	}
}

// WithMessageIDs overrides the message id source.
func WithMessageIDs(idFn func() string) SessionOption {
	return func(session *Session) {
		if idFn != nil {
			session.idFn = idFn
		}
	}
}

// NewSession wires a Session seeded with the agent's welcome message.
func NewSession(listing catalog.Listing, completer Completer, options ...SessionOption) (*Session, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: completer dependency is nil", ErrInvalidSessionConfig)
	}
	session := &Session{
		listing:   listing,
		completer: completer,
		nowFn:     time.Now,
		idFn:      uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(session)
		}
	}
	session.messages = []Message{{
		ID:        session.idFn(),
		Role:      RoleModel,
		Text:      fmt.Sprintf(welcomeTemplate, listing.Name, listing.Role),
		Timestamp: session.nowFn(),
	}}
	return session, nil
}

// Listing returns the listing this session chats with.
func (session *Session) Listing() catalog.Listing {
	return session.listing
}

// Messages returns a copy of the transcript in order.
func (session *Session) Messages() []Message {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	result := make([]Message, len(session.messages))
	copy(result, session.messages)
	return result
}

// Pending reports whether a completion call is in flight.
func (session *Session) Pending() bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.pending
}

// Send appends the user's message, forwards it with the prior transcript to
// the completion service, and appends the agent's reply. Whitespace-only
// input is rejected without side effects, as is a send while another is in
// flight. On completion failure the user's message stays in the transcript,
// the pending flag clears, and ErrCompletionUnavailable is returned so the
// caller can surface a retryable error.
func (session *Session) Send(ctx context.Context, userText string) (Message, error) {
	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		return Message{}, ErrEmptyMessage
	}

	history, err := session.beginSend(userText)
	if err != nil {
		return Message{}, err
	}

	replyText, err := session.completer.Complete(ctx, session.listing.SystemInstruction, history, userText)
	if err != nil {
		session.finishSend(nil)
		return Message{}, fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}

	reply := Message{
		ID:        session.idFn(),
		Role:      RoleModel,
		Text:      replyText,
		Timestamp: session.nowFn(),
	}
	session.finishSend(&reply)
	return reply, nil
}

// beginSend appends the optimistic user echo and returns the history that
// excludes it, mirroring what the agent already "knows".
func (session *Session) beginSend(userText string) ([]Turn, error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.pending {
		return nil, ErrSendInFlight
	}
	history := make([]Turn, 0, len(session.messages))
	for _, message := range session.messages {
		history = append(history, Turn{Role: message.Role, Text: message.Text})
	}
	session.messages = append(session.messages, Message{
		ID:        session.idFn(),
		Role:      RoleUser,
		Text:      userText,
		Timestamp: session.nowFn(),
	})
	session.pending = true
	return history, nil
}

func (session *Session) finishSend(reply *Message) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if reply != nil {
		session.messages = append(session.messages, *reply)
	}
	session.pending = false
}
