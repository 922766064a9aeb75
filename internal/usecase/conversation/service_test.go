package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/cospa/internal/domain"
	domconv "github.com/kailas-cloud/cospa/internal/domain/conversation"
)

func newService(store *mockStore) *Service {
	return New(store, NewQuotaManager(domconv.DefaultLimits(), nil, nil))
}

func TestCreate_Success(t *testing.T) {
	store := &mockStore{tx: &mockTx{active: 2}}
	svc := newService(store)

	c, err := svc.Create(context.Background(), "u1", "  Cà phê Hà Nội  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Title != "Cà phê Hà Nội" || c.UserID != "u1" || !c.IsActive() {
		t.Errorf("unexpected conversation %+v", c)
	}
	if !store.committed {
		t.Error("expected commit")
	}
}

func TestCreate_DefaultTitle(t *testing.T) {
	svc := newService(&mockStore{tx: &mockTx{}})
	c, err := svc.Create(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Title != domconv.DefaultTitle {
		t.Errorf("title = %q", c.Title)
	}
}

func TestCreate_QuotaExceeded(t *testing.T) {
	store := &mockStore{tx: &mockTx{active: 3}}
	svc := newService(store)

	_, err := svc.Create(context.Background(), "u1", "x")
	if kind, ok := domain.QuotaKindOf(err); !ok || kind != domain.ConversationLimit {
		t.Fatalf("expected conversation_limit, got %v", err)
	}
	if store.committed {
		t.Error("rejected create must not commit")
	}
}

func TestCreate_Validation(t *testing.T) {
	store := &mockStore{tx: &mockTx{}}
	svc := newService(store)

	if _, err := svc.Create(context.Background(), " ", "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("blank user: expected ErrInvalidInput, got %v", err)
	}
	long := strings.Repeat("ă", domconv.MaxTitleLength+1)
	if _, err := svc.Create(context.Background(), "u1", long); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("long title: expected ErrInvalidInput, got %v", err)
	}
	if store.txCalls != 0 {
		t.Error("validation failures must not open a transaction")
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	svc := newService(&mockStore{tx: &mockTx{lockUserErr: notFound()}})
	if _, err := svc.Create(context.Background(), "ghost", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_PersistenceError(t *testing.T) {
	svc := newService(&mockStore{txErr: domain.ErrPersistence})
	if _, err := svc.Create(context.Background(), "u1", ""); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

func TestList(t *testing.T) {
	want := []domconv.Conversation{activeConv()}
	svc := newService(&mockStore{listResult: want})

	got, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("got %+v", got)
	}

	svc = newService(&mockStore{listErr: errBoom})
	if _, err := svc.List(context.Background(), "u1"); !errors.Is(err, errBoom) {
		t.Errorf("expected errBoom, got %v", err)
	}
}

func TestRename(t *testing.T) {
	tx := &mockTx{conv: activeConv()}
	renamed := activeConv()
	renamed.Title = "Mới"
	svc := newService(&mockStore{tx: tx, getResult: renamed})

	got, err := svc.Rename(context.Background(), "c1", "Mới")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.title != "Mới" || got.Title != "Mới" {
		t.Errorf("title not updated: tx=%q got=%q", tx.title, got.Title)
	}
}

func TestRename_Inactive(t *testing.T) {
	c := activeConv()
	c.State = domconv.StateInactive
	tx := &mockTx{conv: c}
	svc := newService(&mockStore{tx: tx})

	if _, err := svc.Rename(context.Background(), "c1", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if tx.title != "" {
		t.Error("inactive conversation must not be renamed")
	}
}

func TestMessages(t *testing.T) {
	msgs := []domconv.Message{{ID: "m1", Role: domconv.RoleUser}, {ID: "m2", Role: domconv.RoleAssistant}}
	svc := newService(&mockStore{getResult: activeConv(), msgsResult: msgs})

	got, err := svc.Messages(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 messages, got %d", len(got))
	}

	svc = newService(&mockStore{getErr: notFound()})
	if _, err := svc.Messages(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	tx := &mockTx{conv: activeConv()}
	svc := newService(&mockStore{tx: tx})

	if err := svc.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.deactivated {
		t.Error("expected deactivate")
	}
}

func TestDelete_Idempotent(t *testing.T) {
	c := activeConv()
	c.State = domconv.StateInactive
	tx := &mockTx{conv: c}
	svc := newService(&mockStore{tx: tx})

	if err := svc.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.deactivated {
		t.Error("inactive conversation should not be deactivated again")
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := newService(&mockStore{tx: &mockTx{lockConvErr: notFound()}})
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
