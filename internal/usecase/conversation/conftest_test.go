package conversation

import (
	"context"
	"errors"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
	"github.com/kailas-cloud/cospa/internal/domain/venue"
)

// --- Mocks ---

type mockTx struct {
	conv        domconv.Conversation
	lockUserErr error
	lockConvErr error
	active      int
	activeErr   error
	messages    int
	messagesErr error
	insertErr   error

	inserted    []domconv.Message
	attributed  []venue.RankedResult
	title       string
	deactivated bool
	touched     bool
}

func (m *mockTx) LockUser(_ context.Context, _ string) error { return m.lockUserErr }

func (m *mockTx) LockConversation(_ context.Context, _ string) (domconv.Conversation, error) {
	return m.conv, m.lockConvErr
}

func (m *mockTx) CountActive(_ context.Context, _ string) (int, error) { return m.active, m.activeErr }

func (m *mockTx) CountMessages(_ context.Context, _ string) (int, error) {
	return m.messages, m.messagesErr
}

func (m *mockTx) InsertConversation(_ context.Context, userID, title string) (domconv.Conversation, error) {
	if m.insertErr != nil {
		return domconv.Conversation{}, m.insertErr
	}
	m.active++
	return domconv.Conversation{ID: "c-new", UserID: userID, Title: title, State: domconv.StateActive}, nil
}

func (m *mockTx) InsertMessage(_ context.Context, convID string, role domconv.Role, content string) (domconv.Message, error) {
	if m.insertErr != nil {
		return domconv.Message{}, m.insertErr
	}
	msg := domconv.Message{ID: string(role) + "-msg", ConversationID: convID, Role: role, Content: content}
	m.inserted = append(m.inserted, msg)
	m.messages++
	return msg, nil
}

func (m *mockTx) InsertAttribution(_ context.Context, _ string, rs []venue.RankedResult) error {
	m.attributed = append(m.attributed, rs...)
	return nil
}

func (m *mockTx) UpdateTitle(_ context.Context, _, title string) error {
	m.title = title
	return nil
}

func (m *mockTx) Deactivate(_ context.Context, _ string) error {
	m.deactivated = true
	return nil
}

func (m *mockTx) Touch(_ context.Context, _ string) error {
	m.touched = true
	return nil
}

type mockStore struct {
	tx        *mockTx
	txErr     error
	txCalls   int
	committed bool

	getResult  domconv.Conversation
	getErr     error
	listResult []domconv.Conversation
	listErr    error
	msgsResult []domconv.Message
	msgsErr    error
}

func (m *mockStore) RunInTx(ctx context.Context, fn func(context.Context, domconv.Tx) error) error {
	m.txCalls++
	if m.txErr != nil {
		return m.txErr
	}
	if err := fn(ctx, m.tx); err != nil {
		return err
	}
	m.committed = true
	return nil
}

func (m *mockStore) Get(_ context.Context, _ string) (domconv.Conversation, error) {
	return m.getResult, m.getErr
}

func (m *mockStore) ListActive(_ context.Context, _ string) ([]domconv.Conversation, error) {
	return m.listResult, m.listErr
}

func (m *mockStore) Messages(_ context.Context, _ string) ([]domconv.Message, error) {
	return m.msgsResult, m.msgsErr
}

func (m *mockStore) CountMessages(_ context.Context, _ string) (int, error) {
	return m.tx.messages, m.tx.messagesErr
}

var errBoom = errors.New("boom")

func activeConv() domconv.Conversation {
	return domconv.Conversation{ID: "c1", UserID: "u1", Title: "t", State: domconv.StateActive}
}

func notFound() error { return domain.ErrNotFound }
