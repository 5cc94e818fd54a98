package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/circuit"
	"zac/pkg/platform/sentinel"
)

type ClientSuite struct {
	suite.Suite
	server    *httptest.Server
	client    *Client
	versionID uuid.UUID
	rejected  uuid.UUID
	granted   uuid.UUID
	failing   atomic.Bool
	calls     atomic.Int32
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.versionID = uuid.New()
	s.rejected = uuid.New()
	s.granted = uuid.New()
	s.failing.Store(false)
	s.calls.Store(0)

	mux := http.NewServeMux()
	mux.HandleFunc("/catalogi/api/v1/zaaktypen/", func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if s.failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if strings.TrimPrefix(r.URL.Path, "/catalogi/api/v1/zaaktypen/") != s.versionID.String() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.writeJSON(w, s.zaaktype())
	})
	mux.HandleFunc("/catalogi/api/v1/zaaktypen", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("definitief", r.URL.Query().Get("status"))
		s.writeJSON(w, map[string]any{"next": nil, "results": []any{s.zaaktype()}})
	})
	mux.HandleFunc("/catalogi/api/v1/resultaattypen", func(w http.ResponseWriter, r *http.Request) {
		s.Contains(r.URL.Query().Get("zaaktype"), s.versionID.String())
		if r.URL.Query().Get("page") == "2" {
			s.writeJSON(w, map[string]any{"results": []any{
				map[string]any{"url": s.server.URL + "/catalogi/api/v1/resultaattypen/" + s.granted.String(), "omschrijving": "Toegekend"},
			}})
			return
		}
		s.writeJSON(w, map[string]any{
			"next": s.server.URL + "/catalogi/api/v1/resultaattypen?page=2&zaaktype=" + r.URL.Query().Get("zaaktype"),
			"results": []any{
				map[string]any{"url": s.server.URL + "/catalogi/api/v1/resultaattypen/" + s.rejected.String(), "omschrijving": "Afgewezen"},
			},
		})
	})
	s.server = httptest.NewServer(mux)

	var err error
	s.client, err = New(s.server.URL+"/catalogi/api/v1", NewTokenSession("zac", "secret", time.Minute),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithBreaker(circuit.New("catalog", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))),
	)
	s.Require().NoError(err)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) zaaktype() map[string]any {
	return map[string]any{
		"url":                s.server.URL + "/catalogi/api/v1/zaaktypen/" + s.versionID.String(),
		"omschrijving":       "Subsidie",
		"concept":            false,
		"verlengingMogelijk": true,
		"verlengingstermijn": "P6W",
	}
}

func (s *ClientSuite) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	s.Require().NoError(json.NewEncoder(w).Encode(v))
}

func (s *ClientSuite) TestNew() {
	s.Run("rejects relative base url", func() {
		_, err := New("catalogi/api", NewTokenSession("zac", "x", 0))
		s.Error(err)
	})
	s.Run("requires a session", func() {
		_, err := New("https://catalog.example", nil)
		s.ErrorContains(err, "token session is required")
	})
}

func (s *ClientSuite) TestReadCaseType() {
	ct, err := s.client.ReadCaseType(context.Background(), id.CaseTypeVersionID(s.versionID))
	s.Require().NoError(err)

	s.Equal("Subsidie", ct.Description)
	s.False(ct.IsConcept)
	s.True(ct.ExtensionAllowed)
	s.Equal(42, ct.ExtensionTermDays)
	s.Require().Len(ct.ResultTypes, 2, "follows pagination")
	s.Equal(id.ResultTypeRef(s.rejected), ct.ResultTypes[0].Ref)
	s.Equal("Toegekend", ct.ResultTypes[1].Description)
}

func (s *ClientSuite) TestReadCaseTypeNotFound() {
	_, err := s.client.ReadCaseType(context.Background(), id.CaseTypeVersionID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ClientSuite) TestListPublished() {
	list, err := s.client.ListPublished(context.Background())
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(id.CaseTypeVersionID(s.versionID), list[0].VersionID)
	s.Len(list[0].ResultTypes, 2)
}

func (s *ClientSuite) TestCircuitOpensAndFailsFast() {
	s.failing.Store(true)
	ctx := context.Background()
	versionID := id.CaseTypeVersionID(s.versionID)

	for i := 0; i < 2; i++ {
		_, err := s.client.ReadCaseType(ctx, versionID)
		s.ErrorIs(err, sentinel.ErrUnavailable)
	}
	s.False(s.client.Healthy())

	callsBefore := s.calls.Load()
	s.client.lastProbe = time.Now()
	_, err := s.client.ReadCaseType(ctx, versionID)
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.Equal(callsBefore, s.calls.Load(), "open circuit does not reach the catalog")

	s.Run("a successful probe closes the circuit", func() {
		s.failing.Store(false)
		s.client.lastProbe = time.Time{}
		_, err := s.client.ReadCaseType(ctx, versionID)
		s.Require().NoError(err)
		s.True(s.client.Healthy())
	})
}

func TestParseTermDays(t *testing.T) {
	cases := map[string]int{"P30D": 30, "p2w": 14, "": 0, "P1M": 0, "PXD": 0}
	for in, want := range cases {
		if got := parseTermDays(in); got != want {
			t.Errorf("parseTermDays(%q) = %d, want %d", in, got, want)
		}
	}
}
