package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"causeway/internal/objectcache/handler/mocks"
	"causeway/internal/objectcache/service"
	"causeway/pkg/testutil"
)

type DiagnosticsHandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	sessions *mocks.MockSessionSource
	router   chi.Router
}

func TestDiagnosticsHandlerSuite(t *testing.T) {
	suite.Run(t, new(DiagnosticsHandlerSuite))
}

func (s *DiagnosticsHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sessions = mocks.NewMockSessionSource(s.ctrl)
	s.router = chi.NewRouter()
	New(s.sessions, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *DiagnosticsHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DiagnosticsHandlerSuite) get(path string) *httptest.ResponseRecorder {
	return testutil.Get(s.router, path)
}

func (s *DiagnosticsHandlerSuite) TestListSessions() {
	s.sessions.EXPECT().SessionIDs().Return([]string{"a", "gone"})
	s.sessions.EXPECT().SessionSnapshot("a").Return([]service.AdapterView{{Oid: "P:Customer:1"}}, true)
	s.sessions.EXPECT().SessionSnapshot("gone").Return(nil, false)

	rec := s.get("/debug/sessions")

	testutil.AssertJSON(s.T(), rec, http.StatusOK)
	s.Equal([]sessionSummary{{ID: "a", Adapters: 1}}, testutil.DecodeJSON[[]sessionSummary](s.T(), rec))
}

func (s *DiagnosticsHandlerSuite) TestSessionAdapters() {
	s.Run("known session", func() {
		views := []service.AdapterView{
			{Oid: "P:Customer:1", Type: "Customer", State: "resolved"},
			{Oid: "P:Customer:1~orders", Type: "Orders", State: "resolved", Aggregated: true, Parent: "P:Customer:1", Member: "orders"},
		}
		s.sessions.EXPECT().SessionSnapshot("s-1").Return(views, true)

		rec := s.get("/debug/sessions/s-1/adapters")

		testutil.AssertJSON(s.T(), rec, http.StatusOK)
		body := testutil.DecodeJSON[adaptersResponse](s.T(), rec)
		s.Equal("s-1", body.SessionID)
		s.Equal(2, body.Count)
		s.Equal(views, body.Adapters)
	})

	s.Run("unknown session", func() {
		s.sessions.EXPECT().SessionSnapshot("nope").Return(nil, false)

		rec := s.get("/debug/sessions/nope/adapters")

		testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
	})
}
