package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/feedback"
)

type feedbackFixture struct {
	handler  *FeedbackHandler
	events   *stubEventsRepo
	feedback *stubFeedbackRepo
}

func newFeedbackFixture(t *testing.T) *feedbackFixture {
	t.Helper()
	eventsRepo := newStubEventsRepo()
	eventsRepo.add(&events.Event{ID: 1, OrganizerID: 9, Title: "Tech Summit", Status: events.StatusUpcoming})
	eventsSvc := events.NewService(eventsRepo, zerolog.Nop())

	feedbackRepo := newStubFeedbackRepo()
	feedbackSvc := feedback.NewService(feedbackRepo, zerolog.Nop())

	return &feedbackFixture{
		handler:  NewFeedbackHandler(feedbackSvc, eventsSvc, zerolog.Nop(), testEnv),
		events:   eventsRepo,
		feedback: feedbackRepo,
	}
}

func feedbackFormRequest(eventID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/"+eventID+"/feedback-form", strings.NewReader(body))
	req.SetPathValue("id", eventID)
	return req
}

func TestSaveFormActivates(t *testing.T) {
	fix := newFeedbackFixture(t)

	body := `{"questions":{"global":["How was the venue?"],"speakers":{"7":["Rate the talk"]}}}`
	res := httptest.NewRecorder()
	fix.handler.SaveForm(res, asUser(feedbackFormRequest("1", body), 9, "organizer"))

	require.Equal(t, http.StatusOK, res.Code)

	var form feedback.Form
	require.NoError(t, json.NewDecoder(res.Body).Decode(&form))
	require.True(t, form.IsActive)
	require.Equal(t, []string{"How was the venue?"}, form.Questions.Global)
}

func TestSaveFormRequiresQuestions(t *testing.T) {
	fix := newFeedbackFixture(t)

	res := httptest.NewRecorder()
	fix.handler.SaveForm(res, asUser(feedbackFormRequest("1", `{"questions":{"global":[]}}`), 9, "organizer"))

	require.Equal(t, http.StatusBadRequest, res.Code)

	var details problem.ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&details))
	require.Equal(t, "At least one question is required", details.Title)
}

func TestSaveFormEnforcesOwnership(t *testing.T) {
	fix := newFeedbackFixture(t)

	body := `{"questions":{"global":["How was the venue?"]}}`
	res := httptest.NewRecorder()
	fix.handler.SaveForm(res, asUser(feedbackFormRequest("1", body), 8, "organizer"))

	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestGetFormParticipantSeesOnlyActive(t *testing.T) {
	fix := newFeedbackFixture(t)
	fix.feedback.forms[1] = &feedback.Form{
		ID: 1, EventID: 1, IsActive: false,
		Questions: feedback.QuestionsConfig{Global: []string{"How was the venue?"}},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/1/feedback-form", nil)
	req.SetPathValue("id", "1")
	res := httptest.NewRecorder()
	fix.handler.GetForm(res, asUser(req, 42, "participant"))

	require.Equal(t, http.StatusNotFound, res.Code)

	var details problem.ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&details))
	require.Equal(t, "Form not ready", details.Title)

	// Staff still see the inactive form.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/events/1/feedback-form", nil)
	req.SetPathValue("id", "1")
	res = httptest.NewRecorder()
	fix.handler.GetForm(res, asUser(req, 9, "organizer"))
	require.Equal(t, http.StatusOK, res.Code)
}

func TestSubmitFeedback(t *testing.T) {
	fix := newFeedbackFixture(t)
	fix.feedback.forms[1] = &feedback.Form{
		ID: 1, EventID: 1, IsActive: true,
		Questions: feedback.QuestionsConfig{Global: []string{"How was the venue?"}},
	}

	body := `{"answers":{"global_0":"Great","final_comments":"See you next year"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/1/feedback", strings.NewReader(body))
	req.SetPathValue("id", "1")
	res := httptest.NewRecorder()
	fix.handler.Submit(res, asUser(req, 42, "participant"))

	require.Equal(t, http.StatusCreated, res.Code)

	var response feedback.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	require.Equal(t, int64(42), response.UserID)
	require.Equal(t, "Great", response.Answers["global_0"])
}

func TestSubmitFeedbackTwiceRejected(t *testing.T) {
	fix := newFeedbackFixture(t)
	fix.feedback.forms[1] = &feedback.Form{
		ID: 1, EventID: 1, IsActive: true,
		Questions: feedback.QuestionsConfig{Global: []string{"How was the venue?"}},
	}
	fix.feedback.responses[1] = []feedback.Response{{ID: 1, EventID: 1, UserID: 42}}

	body := `{"answers":{"global_0":"Great"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/1/feedback", strings.NewReader(body))
	req.SetPathValue("id", "1")
	res := httptest.NewRecorder()
	fix.handler.Submit(res, asUser(req, 42, "participant"))

	require.Equal(t, http.StatusBadRequest, res.Code)

	var details problem.ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&details))
	require.Equal(t, "Feedback already submitted.", details.Title)
}

func TestSubmitFeedbackNoActiveForm(t *testing.T) {
	fix := newFeedbackFixture(t)

	body := `{"answers":{"global_0":"Great"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/1/feedback", strings.NewReader(body))
	req.SetPathValue("id", "1")
	res := httptest.NewRecorder()
	fix.handler.Submit(res, asUser(req, 42, "participant"))

	require.Equal(t, http.StatusNotFound, res.Code)
}
