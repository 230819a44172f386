package speakers

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	nextID int64
	byID   map[int64]*Speaker
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[int64]*Speaker{}}
}

func (r *fakeRepo) Create(_ context.Context, params CreateParams) (*Speaker, error) {
	r.nextID++
	speaker := &Speaker{
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

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*Speaker, error) {
	speaker, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *speaker
	return &copied, nil
}

func (r *fakeRepo) ListByOrganizer(_ context.Context, organizerID int64) ([]Speaker, error) {
	var out []Speaker
	for _, speaker := range r.byID {
		if speaker.OrganizerID == organizerID {
			out = append(out, *speaker)
		}
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, id int64, params UpdateParams) (*Speaker, error) {
	speaker, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	speaker.Name = params.Name
	speaker.Specialization = params.Specialization
	speaker.Description = params.Description
	speaker.ContactEmail = params.ContactEmail
	speaker.PhotoPath = params.PhotoPath
	copied := *speaker
	return &copied, nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func TestCreateSanitizesAndNormalizes(t *testing.T) {
	svc, _ := newTestService()

	speaker, err := svc.Create(context.Background(), 1, SpeakerParams{
		Name:         "  Dr. Lin  ",
		Description:  `Researcher <script>alert(1)</script> in distributed systems`,
		ContactEmail: " Lin@Example.COM ",
	})
	require.NoError(t, err)
	require.Equal(t, "Dr. Lin", speaker.Name)
	require.NotContains(t, speaker.Description, "<script>")
	require.Equal(t, "lin@example.com", speaker.ContactEmail)
}

func TestOwnershipChecks(t *testing.T) {
	svc, _ := newTestService()

	speaker, err := svc.Create(context.Background(), 1, SpeakerParams{Name: "Dr. Lin"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, speaker.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.Update(context.Background(), 2, speaker.ID, SpeakerParams{Name: "X"})
	require.ErrorIs(t, err, ErrNotOwner)

	require.ErrorIs(t, svc.Delete(context.Background(), 2, speaker.ID), ErrNotOwner)
	require.NoError(t, svc.Delete(context.Background(), 1, speaker.ID))
}

func TestUpdateKeepsPhotoWhenOmitted(t *testing.T) {
	svc, _ := newTestService()

	speaker, err := svc.Create(context.Background(), 1, SpeakerParams{
		Name: "Dr. Lin", PhotoPath: "speakers/01J0abc.png",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), 1, speaker.ID, SpeakerParams{Name: "Dr. Lin Chen"})
	require.NoError(t, err)
	require.Equal(t, "speakers/01J0abc.png", updated.PhotoPath)
	require.Equal(t, "Dr. Lin Chen", updated.Name)
}
