package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"zac/internal/zaak/handler/mocks"
	"zac/internal/zaak/models"
	"zac/internal/zaak/service"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	caseID  id.CaseID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.caseID = id.NewCaseID()
}

func (s *HandlerSuite) path(suffix string) string {
	return "/zaken/" + s.caseID.String() + suffix
}

func (s *HandlerSuite) outcome(status models.Status, kinds ...models.InstructionKind) *models.Outcome {
	out := &models.Outcome{Case: &models.Case{ID: s.caseID, Status: status, Version: 2}}
	for _, k := range kinds {
		out.Instructions = append(out.Instructions, models.Instruction{Kind: k, CaseID: s.caseID})
		out.Events = append(out.Events, models.Event{Type: models.EventCaseUpdated, CaseID: s.caseID})
	}
	return out
}

func (s *HandlerSuite) TestSuspend() {
	s.service.EXPECT().Suspend(gomock.Any(), s.caseID, "waiting", 10).
		Return(s.outcome(models.StatusSuspended, models.InstructionPersistCase), nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/suspend"), map[string]any{
		"reason":        "waiting",
		"expected_days": 10,
	})
	rr := testutil.DoRequest(s.router, req)

	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[outcomeResponse](s.T(), rr)
	s.Equal(models.StatusSuspended, resp.Case.Status)
	s.Len(resp.Instructions, 1)
	s.Equal(1, resp.Events)
}

func (s *HandlerSuite) TestExtend() {
	s.Run("passes the cascade flag", func() {
		s.service.EXPECT().Extend(gomock.Any(), s.caseID, 5, true, "").
			Return(s.outcome(models.StatusOpen, models.InstructionPersistCase, models.InstructionShiftTaskDueDate), nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/extend"), map[string]any{
			"extra_days":       5,
			"cascade_to_tasks": true,
		})
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	})

	s.Run("zero days is rejected before the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/extend"), map[string]any{"extra_days": 0})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
	})

	s.Run("invalid transition maps to conflict", func() {
		s.service.EXPECT().Extend(gomock.Any(), s.caseID, 5, false, "").
			Return(nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot extend a SUSPENDED case"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/extend"), map[string]any{"extra_days": 5})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeInvalidTransition))
	})
}

func (s *HandlerSuite) TestCloseParsesResultType() {
	ref := id.ResultTypeRef(uuid.New())
	s.service.EXPECT().Close(gomock.Any(), s.caseID, ref, "granted").
		Return(s.outcome(models.StatusClosed, models.InstructionPersistCase), nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/close"), map[string]any{
		"result_type_ref": ref.String(),
		"reason":          "granted",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	bad := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/close"), map[string]any{"result_type_ref": "nope"})
	rr = testutil.DoRequest(s.router, bad)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
}

func (s *HandlerSuite) TestTerminate() {
	s.service.EXPECT().Terminate(gomock.Any(), s.caseID, "abc", "").
		Return(nil, dErrors.New(dErrors.CodeBadRequest, `ending reason id "abc" is not a valid identifier`))

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/terminate"), map[string]any{"ending_reason_id": "abc"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}

func (s *HandlerSuite) TestSetInitiator() {
	s.service.EXPECT().SetInitiator(gomock.Any(), s.caseID, models.BSN{Number: "111222333"}).
		Return(&models.Outcome{Instructions: []models.Instruction{{Kind: models.InstructionSetInitiator, CaseID: s.caseID}}}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, s.path("/initiator"), map[string]any{
		"type":   "BSN",
		"number": "111222333",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusAccepted, rr.Code, rr.Body.String())

	missing := testutil.NewJSONRequest(s.T(), http.MethodPut, s.path("/initiator"), map[string]any{
		"type":   "vestiging",
		"number": "12345678",
	})
	rr = testutil.DoRequest(s.router, missing)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
}

func (s *HandlerSuite) TestOpen() {
	versionID := uuid.New()
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	s.service.EXPECT().Open(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req service.OpenRequest) (*models.Outcome, error) {
			s.Equal("ZAAK-2026-0000000001", req.Identification)
			s.Equal(id.CaseTypeVersionID(versionID), req.CaseTypeVersionID)
			return s.outcome(models.StatusOpen, models.InstructionReindexCase), nil
		})

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/zaken", map[string]any{
		"identification":           " ZAAK-2026-0000000001 ",
		"case_type_version_id":     versionID.String(),
		"start_date":               start,
		"ultimate_completion_date": start.AddDate(0, 0, 56),
	})
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *HandlerSuite) TestGet() {
	s.service.EXPECT().Get(gomock.Any(), s.caseID).Return(nil, dErrors.New(dErrors.CodeNotFound, "case not found"))

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, s.path(""), nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/zaken/not-a-uuid", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func (s *HandlerSuite) TestRelations() {
	target := id.NewCaseID()

	s.Run("link", func() {
		s.service.EXPECT().Link(gomock.Any(), service.LinkRequest{
			Source:      s.caseID,
			Target:      target,
			Kind:        models.RelationFollowup,
			ReverseKind: models.RelationSubject,
		}).Return(&models.Outcome{}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/relations"), map[string]any{
			"target_id":    target.String(),
			"kind":         "FOLLOWUP",
			"reverse_kind": "SUBJECT",
		})
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	})

	s.Run("unknown kind", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/relations"), map[string]any{
			"target_id": target.String(),
			"kind":      "SIBLING",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeValidation))
	})

	s.Run("unlink", func() {
		s.service.EXPECT().Unlink(gomock.Any(), service.UnlinkRequest{
			Source: s.caseID,
			Target: target,
			Kind:   models.RelationFollowup,
			Reason: "mistake",
		}).Return(&models.Outcome{}, nil)

		path := s.path("/relations/FOLLOWUP/" + target.String() + "?reason=mistake")
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, path, nil))
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	})

	s.Run("list", func() {
		s.service.EXPECT().ListRelations(gomock.Any(), s.caseID).Return([]models.CaseRelation{
			{SourceID: s.caseID, TargetID: target, Kind: models.RelationFollowup},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, s.path("/relations"), nil))
		s.Require().Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[relationsResponse](s.T(), rr)
		s.Len(resp.Relations, 1)
	})

	s.Run("children", func() {
		s.service.EXPECT().Children(gomock.Any(), s.caseID).Return([]id.CaseID{target}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, s.path("/children"), nil))
		s.Require().Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[childrenResponse](s.T(), rr)
		s.Equal([]string{target.String()}, resp.Children)
	})
}

func (s *HandlerSuite) TestUnknownFieldsAreRejected() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/resume"), map[string]any{"reasn": "typo"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}
