package profile

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	docs   map[string]Profile
	getErr error
}

func (m *mockRepo) Get(_ context.Context, userID string) (*Profile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.docs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *mockRepo) Create(_ context.Context, userID string, p Profile) error {
	m.docs[userID] = Profile{Email: p.Email, Name: p.Name}
	return nil
}

func (m *mockRepo) Update(_ context.Context, userID string, u Update) error {
	p, ok := m.docs[userID]
	if !ok {
		return ErrNotFound
	}
	p.Name, p.Phone, p.Address = u.Name, u.Phone, u.Address
	m.docs[userID] = p
	return nil
}

func TestProfile_Incomplete(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
		want bool
	}{
		{name: "fresh registration", p: Profile{Email: "a@b.co", Name: "Ana"}, want: true},
		{name: "missing address", p: Profile{Phone: "3001234567"}, want: true},
		{name: "blank phone", p: Profile{Phone: "  ", Address: "Cra 7"}, want: true},
		{name: "complete", p: Profile{Phone: "3001234567", Address: "Cra 7 # 45-10"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Incomplete())
		})
	}
}

func TestService_GetMissingIsNil(t *testing.T) {
	svc := NewService(&mockRepo{docs: map[string]Profile{}}, nil)

	assert.Nil(t, svc.Get(context.Background(), "u1"))
}

func TestService_GetFailureIsNil(t *testing.T) {
	svc := NewService(&mockRepo{docs: map[string]Profile{}, getErr: errors.New("denied")}, nil)

	assert.Nil(t, svc.Get(context.Background(), "u1"))
}

func TestService_CreateThenUpdate(t *testing.T) {
	repo := &mockRepo{docs: map[string]Profile{}}
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "u1", "ana@example.com", "Ana"))
	p := svc.Get(ctx, "u1")
	require.NotNil(t, p)
	assert.True(t, p.Incomplete())

	p, err := svc.Update(ctx, "u1", Update{Name: " Ana María ", Phone: "3001234567", Address: "Cra 7 # 45-10"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, "Ana María", p.Name)
	assert.False(t, p.Incomplete())
}

func TestService_UpdateMissingDocument(t *testing.T) {
	svc := NewService(&mockRepo{docs: map[string]Profile{}}, nil)

	_, err := svc.Update(context.Background(), "u1", Update{Name: "Ana"})
	require.ErrorIs(t, err, ErrNotFound)
}
