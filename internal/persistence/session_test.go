package persistence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"causeway/internal/identity/generator"
	"causeway/internal/identity/store/memory"
	"causeway/internal/inject"
	"causeway/internal/metamodel"
	"causeway/internal/objectcache/factory"
	"causeway/internal/objectcache/models"
	"causeway/internal/persistence/store"
	dErrors "causeway/pkg/domain-errors"
)

type Clock interface {
	Now() time.Time
}

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

type Line struct {
	Amount int
}

type Invoice struct {
	Number string
	Lines  *[]*Line `causeway:"collection,aggregated"`
	Clock  Clock    `inject:""`
}

func newInvoice(number string) *Invoice {
	return &Invoice{Number: number, Lines: &[]*Line{{Amount: 10}, {Amount: 5}}}
}

// =============================================================================
// Session Test Suite
// =============================================================================
// Justification for unit tests: sessions are where the cache meets the
// store. These tests drive every cache operation through realistic
// sequences and check the store and the cache agree afterwards.

type SessionSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *store.InMemory
	manager *Manager
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.store = store.NewInMemory()

	gen, err := generator.NewSequential(memory.New(), generator.WithBatchSize(4))
	s.Require().NoError(err)
	manager, err := NewManager(
		s.store,
		metamodel.NewRegistry(),
		factory.Default{},
		gen,
		inject.New(fixedClock{at: s.now}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.manager = manager
}

func (s *SessionSuite) open(user string) *Session {
	session, err := s.manager.Open(s.ctx, user)
	s.Require().NoError(err)
	return session
}

func (s *SessionSuite) persisted(session *Session, number string) (*Invoice, *models.Oid) {
	inv := newInvoice(number)
	_, err := session.NewTransient(s.ctx, inv)
	s.Require().NoError(err)
	oid, err := session.MakePersistent(s.ctx, inv)
	s.Require().NoError(err)
	return inv, oid
}

func (s *SessionSuite) linesAdapter(session *Session, inv *Invoice) *models.Adapter {
	a, ok := session.Lookup(inv.Lines)
	s.Require().True(ok, "lines not materialized")
	return a
}

func (s *SessionSuite) TestNewTransient() {
	session := s.open("alice")
	inv := newInvoice("INV-1")

	a, err := session.NewTransient(s.ctx, inv)
	s.Require().NoError(err)

	s.Equal(models.StateTransient, a.State())
	s.Equal(fixedClock{at: s.now}, inv.Clock, "services are injected on registration")
	lines := s.linesAdapter(session, inv)
	s.Same(a.Oid(), lines.Oid().Parent())

	_, err = session.NewTransient(s.ctx, models.Version{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *SessionSuite) TestMakePersistent() {
	session := s.open("alice")
	inv, oid := s.persisted(session, "INV-1")

	s.False(oid.IsTransient())
	a, _ := session.Lookup(inv)
	s.Same(oid, a.Oid())
	s.Equal(models.StateResolved, a.State())
	s.Equal(int64(1), a.Version().Sequence)
	s.Equal("alice", a.Version().User)

	lines := s.linesAdapter(session, inv)
	s.False(lines.IsTransient())
	s.Equal(int64(1), lines.Version().Sequence)

	rec, err := s.store.Load(s.ctx, oid)
	s.Require().NoError(err)
	s.Same(inv, rec.Object)

	_, err = session.MakePersistent(s.ctx, inv)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = session.MakePersistent(s.ctx, newInvoice("unknown"))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// failingInsert rejects inserts until healed.
type failingInsert struct {
	ObjectStore
	failing bool
}

func (f *failingInsert) Insert(ctx context.Context, oid *models.Oid, obj any, v *models.Version) error {
	if f.failing {
		return errors.New("disk full")
	}
	return f.ObjectStore.Insert(ctx, oid, obj, v)
}

func (s *SessionSuite) TestMakePersistentInsertFailure() {
	flaky := &failingInsert{ObjectStore: s.store, failing: true}
	gen, err := generator.NewSequential(memory.New())
	s.Require().NoError(err)
	manager, err := NewManager(flaky, metamodel.NewRegistry(), factory.Default{}, gen, inject.New(fixedClock{at: s.now}))
	s.Require().NoError(err)
	session, err := manager.Open(s.ctx, "alice")
	s.Require().NoError(err)

	inv := newInvoice("INV-1")
	_, err = session.NewTransient(s.ctx, inv)
	s.Require().NoError(err)

	_, err = session.MakePersistent(s.ctx, inv)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	_, ok := session.Lookup(inv)
	s.False(ok, "failed object leaves the session")
	_, ok = session.Lookup(inv.Lines)
	s.False(ok)
	s.Empty(session.Snapshot())
	s.Zero(s.store.Len())

	flaky.failing = false
	_, err = session.NewTransient(s.ctx, inv)
	s.Require().NoError(err)
	oid, err := session.MakePersistent(s.ctx, inv)
	s.Require().NoError(err)
	rec, err := s.store.Load(s.ctx, oid)
	s.Require().NoError(err)
	s.Same(inv, rec.Object)

	inv.Number = "INV-1b"
	v, err := session.Update(s.ctx, inv)
	s.Require().NoError(err)
	s.Equal(int64(2), v.Sequence)
}

func (s *SessionSuite) TestLoad() {
	writer := s.open("alice")
	inv, oid := s.persisted(writer, "INV-1")

	reader := s.open("bob")
	got, err := reader.Load(s.ctx, models.NewPersistentOid(oid.TypeName(), oid.ID()))
	s.Require().NoError(err)
	s.Same(inv, got)

	a, ok := reader.Lookup(got)
	s.Require().True(ok)
	s.Equal(models.StateResolved, a.State())
	s.Equal(int64(1), a.Version().Sequence)
	s.NotSame(oid, a.Oid(), "sessions never share oid handles")
	lines := s.linesAdapter(reader, inv)
	s.Equal(models.StateResolved, lines.State())
	s.Equal(int64(1), lines.Version().Sequence)

	again, err := reader.Load(s.ctx, oid)
	s.Require().NoError(err)
	s.Same(got, again)

	_, err = reader.Load(s.ctx, models.NewPersistentOid("Invoice", "999"))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *SessionSuite) TestUpdate() {
	s.Run("version advances for the whole group", func() {
		session := s.open("alice")
		inv, _ := s.persisted(session, "INV-1")
		inv.Number = "INV-1b"

		v, err := session.Update(s.ctx, inv)
		s.Require().NoError(err)
		s.Equal(int64(2), v.Sequence)
		s.Equal(int64(2), s.linesAdapter(session, inv).Version().Sequence)
	})

	s.Run("stale session loses the race", func() {
		writer := s.open("alice")
		inv, oid := s.persisted(writer, "INV-2")

		other := s.open("bob")
		_, err := other.Load(s.ctx, oid)
		s.Require().NoError(err)
		_, err = other.Update(s.ctx, inv)
		s.Require().NoError(err)

		_, err = writer.Update(s.ctx, inv)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.True(errors.Is(err, models.ErrConcurrency))
	})

	s.Run("transient objects cannot be updated", func() {
		session := s.open("alice")
		inv := newInvoice("INV-3")
		_, err := session.NewTransient(s.ctx, inv)
		s.Require().NoError(err)

		_, err = session.Update(s.ctx, inv)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *SessionSuite) TestReissue() {
	session := s.open("alice")
	inv, oid := s.persisted(session, "INV-1")
	previous := oid.Clone()
	lines := s.linesAdapter(session, inv)

	next, err := session.Reissue(s.ctx, inv)
	s.Require().NoError(err)

	s.Same(oid, next, "the handle is kept")
	s.NotEqual(previous.ID(), oid.ID())
	s.True(oid.Previous().Equal(previous))
	s.Same(oid, lines.Oid().Parent())

	_, err = s.store.Load(s.ctx, previous)
	s.Error(err)
	rec, err := s.store.Load(s.ctx, oid)
	s.Require().NoError(err)
	s.Same(inv, rec.Object)

	a, ok := session.Lookup(inv)
	s.Require().True(ok)
	s.Same(oid, a.Oid())
}

func (s *SessionSuite) TestDestroy() {
	s.Run("persistent object leaves store and session", func() {
		session := s.open("alice")
		inv, oid := s.persisted(session, "INV-1")
		lines := inv.Lines

		s.Require().NoError(session.Destroy(s.ctx, inv))
		_, err := s.store.Load(s.ctx, oid)
		s.Error(err)
		_, ok := session.Lookup(inv)
		s.False(ok)
		_, ok = session.Lookup(lines)
		s.False(ok)
		s.Empty(session.Snapshot())
	})

	s.Run("transient object never reaches the store", func() {
		session := s.open("alice")
		inv := newInvoice("INV-2")
		_, err := session.NewTransient(s.ctx, inv)
		s.Require().NoError(err)

		s.Require().NoError(session.Destroy(s.ctx, inv))
		_, ok := session.Lookup(inv)
		s.False(ok)
	})
}

// =============================================================================
// Manager
// =============================================================================

func (s *SessionSuite) TestManager() {
	s.Run("store is required", func() {
		_, err := NewManager(nil, metamodel.NewRegistry(), factory.Default{}, generator.NewRandom(), inject.Noop{})
		s.ErrorContains(err, "object store is required")
	})

	s.Run("missing cache collaborator fails at construction", func() {
		_, err := NewManager(s.store, nil, factory.Default{}, generator.NewRandom(), inject.Noop{})
		s.ErrorContains(err, "type descriptors are required")
	})

	s.Run("open sessions are tracked until closed", func() {
		a := s.open("alice")
		b := s.open("bob")
		s.persisted(a, "INV-9")

		s.Contains(s.manager.SessionIDs(), a.ID())
		s.Contains(s.manager.SessionIDs(), b.ID())

		views, ok := s.manager.SessionSnapshot(a.ID())
		s.Require().True(ok)
		s.Len(views, 2)

		a.Close(s.ctx)
		_, ok = s.manager.Get(a.ID())
		s.False(ok)
		_, ok = s.manager.SessionSnapshot(a.ID())
		s.False(ok)

		s.manager.CloseAll(s.ctx)
		s.Empty(s.manager.SessionIDs())
	})
}
