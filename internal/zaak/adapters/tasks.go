package adapters

import (
	"context"
	"net/http"
	"net/url"
	"time"

	catalogclient "zac/internal/catalog/client"
	"zac/internal/zaak/models"
	id "zac/pkg/domain"
)

// TaskClient talks to the task service. It lists the open human tasks of a
// case and shifts their due dates.
type TaskClient struct {
	api *apiClient
}

func NewTaskClient(baseURL string, session *catalogclient.TokenSession, opts ...Option) (*TaskClient, error) {
	api, err := newAPIClient("tasks", baseURL, session, opts...)
	if err != nil {
		return nil, err
	}
	return &TaskClient{api: api}, nil
}

type taskView struct {
	ID      string     `json:"id"`
	DueDate *time.Time `json:"dueDate"`
}

// ListOpenTasks returns the case's tasks that are not completed.
func (c *TaskClient) ListOpenTasks(ctx context.Context, caseID id.CaseID) ([]models.Task, error) {
	var views []taskView
	target := c.api.endpoint(url.Values{"zaak": {caseID.String()}, "status": {"open"}}, "tasks")
	if err := c.api.do(ctx, http.MethodGet, target, nil, &views); err != nil {
		return nil, err
	}
	out := make([]models.Task, 0, len(views))
	for _, v := range views {
		out = append(out, models.Task{ID: v.ID, DueDate: v.DueDate})
	}
	return out, nil
}

// ShiftDueDate moves the task's due date by days.
func (c *TaskClient) ShiftDueDate(ctx context.Context, caseID id.CaseID, taskID string, days int) error {
	target := c.api.endpoint(nil, "tasks", taskID, "due-date-shift")
	return c.api.do(ctx, http.MethodPost, target, map[string]any{
		"zaak": caseID.String(),
		"days": days,
	}, nil)
}

// NoTasks is used when no task service is configured.
type NoTasks struct{}

func (NoTasks) ListOpenTasks(context.Context, id.CaseID) ([]models.Task, error) { return nil, nil }
