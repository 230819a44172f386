package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/qrbase/server/internal/api/problem"
	"github.com/qrbase/server/internal/domain/speakers"
)

type stubSpeakersRepo struct {
	nextID int64
	byID   map[int64]*speakers.Speaker
}

func newStubSpeakersRepo() *stubSpeakersRepo {
	return &stubSpeakersRepo{byID: map[int64]*speakers.Speaker{}}
}

func (r *stubSpeakersRepo) Create(_ context.Context, params speakers.CreateParams) (*speakers.Speaker, error) {
	r.nextID++
	speaker := &speakers.Speaker{
		ID:             r.nextID,
		OrganizerID:    params.OrganizerID,
		Name:           params.Name,
		Specialization: params.Specialization,
		Description:    params.Description,
		ContactEmail:   params.ContactEmail,
		PhotoPath:      params.PhotoPath,
	}
	r.byID[speaker.ID] = speaker
	return speaker, nil
}

func (r *stubSpeakersRepo) GetByID(_ context.Context, id int64) (*speakers.Speaker, error) {
	speaker, ok := r.byID[id]
	if !ok {
		return nil, speakers.ErrNotFound
	}
	copied := *speaker
	return &copied, nil
}

func (r *stubSpeakersRepo) ListByOrganizer(_ context.Context, organizerID int64) ([]speakers.Speaker, error) {
	var out []speakers.Speaker
	for _, speaker := range r.byID {
		if speaker.OrganizerID == organizerID {
			out = append(out, *speaker)
		}
	}
	return out, nil
}

func (r *stubSpeakersRepo) Update(_ context.Context, id int64, params speakers.UpdateParams) (*speakers.Speaker, error) {
	speaker, ok := r.byID[id]
	if !ok {
		return nil, speakers.ErrNotFound
	}
	speaker.Name = params.Name
	speaker.Specialization = params.Specialization
	speaker.Description = params.Description
	speaker.ContactEmail = params.ContactEmail
	speaker.PhotoPath = params.PhotoPath
	copied := *speaker
	return &copied, nil
}

func (r *stubSpeakersRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return speakers.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func newSpeakersHandler(t *testing.T) (*SpeakersHandler, *stubSpeakersRepo) {
	t.Helper()
	repo := newStubSpeakersRepo()
	svc := speakers.NewService(repo, zerolog.Nop())
	return NewSpeakersHandler(svc, zerolog.Nop(), testEnv), repo
}

func TestSpeakerCreate(t *testing.T) {
	handler, repo := newSpeakersHandler(t)

	body := `{"name":"Dr. Reyes","specialization":"Distributed Systems","contact_email":"REYES@Example.com"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/speakers", strings.NewReader(body)), 9, "organizer")
	res := httptest.NewRecorder()
	handler.Create(res, req)

	require.Equal(t, http.StatusCreated, res.Code)

	var speaker speakers.Speaker
	require.NoError(t, json.NewDecoder(res.Body).Decode(&speaker))
	require.Equal(t, "Dr. Reyes", speaker.Name)
	require.Equal(t, "reyes@example.com", speaker.ContactEmail)
	require.Equal(t, int64(9), repo.byID[speaker.ID].OrganizerID)
}

func TestSpeakerCreateValidation(t *testing.T) {
	handler, _ := newSpeakersHandler(t)

	body := `{"specialization":"Distributed Systems","contact_email":"not-an-email"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/speakers", strings.NewReader(body)), 9, "organizer")
	res := httptest.NewRecorder()
	handler.Create(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)

	var details problem.ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&details))
	require.Contains(t, details.Errors, "name")
	require.Contains(t, details.Errors, "contact_email")
}

func TestSpeakerGetHidesOtherOrganizers(t *testing.T) {
	handler, repo := newSpeakersHandler(t)
	repo.byID[1] = &speakers.Speaker{ID: 1, OrganizerID: 8, Name: "Dr. Reyes"}
	repo.nextID = 1

	req := httptest.NewRequest(http.MethodGet, "/api/v1/speakers/1", nil)
	req.SetPathValue("id", "1")
	res := httptest.NewRecorder()
	handler.Get(res, asUser(req, 9, "organizer"))

	require.Equal(t, http.StatusNotFound, res.Code)

	var details problem.ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&details))
	require.Equal(t, "Speaker not found", details.Title)
}

func TestSpeakerUpdateKeepsPhotoWhenOmitted(t *testing.T) {
	handler, repo := newSpeakersHandler(t)
	repo.byID[1] = &speakers.Speaker{ID: 1, OrganizerID: 9, Name: "Dr. Reyes", PhotoPath: "speakers/reyes.jpg"}
	repo.nextID = 1

	body := `{"name":"Dr. Maria Reyes"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/speakers/1", strings.NewReader(body))
	req.SetPathValue("id", "1")
	res := httptest.NewRecorder()
	handler.Update(res, asUser(req, 9, "organizer"))

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "Dr. Maria Reyes", repo.byID[1].Name)
	require.Equal(t, "speakers/reyes.jpg", repo.byID[1].PhotoPath)
}

func TestSpeakerDelete(t *testing.T) {
	handler, repo := newSpeakersHandler(t)
	repo.byID[1] = &speakers.Speaker{ID: 1, OrganizerID: 9, Name: "Dr. Reyes"}
	repo.nextID = 1

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/speakers/1", nil)
	req.SetPathValue("id", "1")
	res := httptest.NewRecorder()
	handler.Delete(res, asUser(req, 9, "organizer"))

	require.Equal(t, http.StatusNoContent, res.Code)
	require.Empty(t, repo.byID)
}

func TestSpeakerList(t *testing.T) {
	handler, repo := newSpeakersHandler(t)
	repo.byID[1] = &speakers.Speaker{ID: 1, OrganizerID: 9, Name: "Dr. Reyes"}
	repo.byID[2] = &speakers.Speaker{ID: 2, OrganizerID: 8, Name: "Someone Else"}

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/speakers", nil), 9, "organizer")
	res := httptest.NewRecorder()
	handler.List(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Speakers []speakers.Speaker `json:"speakers"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Len(t, payload.Speakers, 1)
	require.Equal(t, "Dr. Reyes", payload.Speakers[0].Name)
}
