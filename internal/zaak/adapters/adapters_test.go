package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	catalogclient "zac/internal/catalog/client"
	"zac/internal/zaak/models"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
	"zac/pkg/requestcontext"
)

func TestGroupPermissions(t *testing.T) {
	p := NewGroupPermissions("beheer")
	assigned := &models.Case{AssignedGroup: "team-bezwaar", AssignedUser: "medewerker-9"}

	tests := []struct {
		name   string
		actor  string
		groups []string
		c      *models.Case
		want   bool
	}{
		{"no actor", "", []string{"beheer"}, assigned, false},
		{"administrator", "medewerker-1", []string{"beheer"}, assigned, true},
		{"unassigned case", "medewerker-1", nil, &models.Case{}, true},
		{"assigned user", "medewerker-9", nil, assigned, true},
		{"member of assigned group", "medewerker-1", []string{"team-bezwaar"}, assigned, true},
		{"outsider", "medewerker-1", []string{"team-vergunningen"}, assigned, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := requestcontext.WithGroups(requestcontext.WithActor(context.Background(), tt.actor), tt.groups)
			got, err := p.MayMutate(ctx, tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type ZGWSuite struct {
	suite.Suite
	server    *httptest.Server
	tasks     *TaskClient
	decisions *DecisionClient
	caseID    id.CaseID
	failing   atomic.Bool
	shifted   atomic.Int32
}

func TestZGWSuite(t *testing.T) {
	suite.Run(t, new(ZGWSuite))
}

func (s *ZGWSuite) SetupTest() {
	s.caseID = id.NewCaseID()
	s.failing.Store(false)
	s.shifted.Store(0)
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		if s.failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		s.True(strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		s.Equal(s.caseID.String(), r.URL.Query().Get("zaak"))
		s.Equal("open", r.URL.Query().Get("status"))
		writeJSON(w, []any{
			map[string]any{"id": "t-1", "dueDate": due},
			map[string]any{"id": "t-2"},
		})
	})
	mux.HandleFunc("POST /api/tasks/{taskID}/due-date-shift", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Zaak string `json:"zaak"`
			Days int    `json:"days"`
		}
		s.NoError(json.NewDecoder(r.Body).Decode(&body))
		if r.PathValue("taskID") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.Equal(5, body.Days)
		s.shifted.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/besluiten", func(w http.ResponseWriter, r *http.Request) {
		count := 0
		if r.URL.Query().Get("zaak") == s.caseID.String() {
			count = 1
		}
		writeJSON(w, map[string]any{"count": count, "results": []any{}})
	})
	s.server = httptest.NewServer(mux)
	s.T().Cleanup(s.server.Close)

	session := catalogclient.NewTokenSession("zac", "secret", time.Minute)
	var err error
	s.tasks, err = NewTaskClient(s.server.URL+"/api", session)
	s.Require().NoError(err)
	s.decisions, err = NewDecisionClient(s.server.URL+"/api/", session)
	s.Require().NoError(err)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *ZGWSuite) TestNewRejectsBadConfiguration() {
	_, err := NewTaskClient("not a url", catalogclient.NewTokenSession("zac", "secret", 0))
	s.Error(err)
	_, err = NewDecisionClient(s.server.URL, nil)
	s.Error(err)
}

func (s *ZGWSuite) TestListOpenTasks() {
	tasks, err := s.tasks.ListOpenTasks(context.Background(), s.caseID)
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal("t-1", tasks[0].ID)
	s.NotNil(tasks[0].DueDate)
	s.Nil(tasks[1].DueDate)
}

func (s *ZGWSuite) TestShiftDueDate() {
	s.Require().NoError(s.tasks.ShiftDueDate(context.Background(), s.caseID, "t-1", 5))
	s.Equal(int32(1), s.shifted.Load())

	err := s.tasks.ShiftDueDate(context.Background(), s.caseID, "missing", 5)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ZGWSuite) TestHasAttachedDecision() {
	has, err := s.decisions.HasAttachedDecision(context.Background(), &models.Case{ID: s.caseID})
	s.Require().NoError(err)
	s.True(has)

	has, err = s.decisions.HasAttachedDecision(context.Background(), &models.Case{ID: id.NewCaseID()})
	s.Require().NoError(err)
	s.False(has)
}

func (s *ZGWSuite) TestCircuitOpensAfterRepeatedFailures() {
	s.failing.Store(true)
	for range 5 {
		_, err := s.tasks.ListOpenTasks(context.Background(), s.caseID)
		s.ErrorIs(err, sentinel.ErrUnavailable)
	}
	s.True(s.tasks.api.breaker.IsOpen())

	// Inside the probe interval calls are short-circuited.
	s.tasks.api.lastProbe = time.Now()
	_, err := s.tasks.ListOpenTasks(context.Background(), s.caseID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Contains(err.Error(), "circuit open")
}

func TestFallbacks(t *testing.T) {
	tasks, err := NoTasks{}.ListOpenTasks(context.Background(), id.NewCaseID())
	require.NoError(t, err)
	assert.Empty(t, tasks)

	has, err := NoDecisions{}.HasAttachedDecision(context.Background(), &models.Case{})
	require.NoError(t, err)
	assert.False(t, has)
}
