package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"future-self-api/internal/domain/entity"
	apperrors "future-self-api/pkg/errors"
)

type fakeVerifier struct {
	user *AuthUser
	err  error
}

func (f *fakeVerifier) ExchangeCode(_ context.Context, _ string) (*AuthUser, error) {
	return f.user, f.err
}

func (f *fakeVerifier) VerifyOTP(_ context.Context, _, _ string) (*AuthUser, error) {
	return f.user, f.err
}

type fakeResponseRepo struct {
	byUser map[string]*entity.ResponseRecord
	bySess map[string]*entity.ResponseRecord

	adopted      []string
	statusWrites []entity.ResponseStatus
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{
		byUser: make(map[string]*entity.ResponseRecord),
		bySess: make(map[string]*entity.ResponseRecord),
	}
}

func (f *fakeResponseRepo) UpsertAnonymous(_ context.Context, _ *entity.ResponseRecord) error {
	return nil
}

func (f *fakeResponseRepo) UpsertForUser(_ context.Context, _ *entity.ResponseRecord) error {
	return nil
}

func (f *fakeResponseRepo) GetByUserID(_ context.Context, userID string) (*entity.ResponseRecord, error) {
	return f.byUser[userID], nil
}

func (f *fakeResponseRepo) GetAnonymousBySessionID(_ context.Context, sessionID string) (*entity.ResponseRecord, error) {
	rec := f.bySess[sessionID]
	if rec == nil || rec.UserID != nil {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeResponseRepo) AdoptAnonymous(_ context.Context, recordID, userID string) (bool, error) {
	for _, rec := range f.bySess {
		if rec.ID == recordID && rec.UserID == nil {
			rec.UserID = &userID
			rec.Status = entity.ResponseStatusVerified
			f.byUser[userID] = rec
			f.adopted = append(f.adopted, recordID)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeResponseRepo) UpdateStatus(_ context.Context, userID string, status entity.ResponseStatus) error {
	f.statusWrites = append(f.statusWrites, status)
	if rec, ok := f.byUser[userID]; ok {
		rec.Status = status
	}
	return nil
}

type fakeProfileRepo struct {
	profiles map[string]*entity.Profile
	err      error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*entity.Profile)}
}

func (f *fakeProfileRepo) Upsert(_ context.Context, p *entity.Profile) error {
	if f.err != nil {
		return f.err
	}
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, userID string) (*entity.Profile, error) {
	return f.profiles[userID], nil
}

func anonRecord(id, sessionID string) *entity.ResponseRecord {
	return &entity.ResponseRecord{
		ID:        id,
		SessionID: &sessionID,
		Name:      "Alice",
		Responses: []string{"Alice", "run a bakery"},
		Status:    entity.ResponseStatusPending,
	}
}

func TestReconciler_Confirm_MissingCredential(t *testing.T) {
	r := NewReconciler(&fakeVerifier{}, newFakeResponseRepo(), newFakeProfileRepo())

	_, err := r.Confirm(context.Background(), &ConfirmInput{})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeConfirmationFailed, appErr.Code)
}

func TestReconciler_Confirm_VerifierError(t *testing.T) {
	r := NewReconciler(&fakeVerifier{err: assert.AnError}, newFakeResponseRepo(), newFakeProfileRepo())

	_, err := r.Confirm(context.Background(), &ConfirmInput{Code: "pkce-code"})
	require.Error(t, err)
}

func TestReconciler_Confirm_AdoptsAnonymousRecord(t *testing.T) {
	repo := newFakeResponseRepo()
	repo.bySess["sess-1"] = anonRecord("rec-1", "sess-1")
	profiles := newFakeProfileRepo()
	verifier := &fakeVerifier{user: &AuthUser{ID: "user-1", Email: "alice@example.com", Name: "Alice"}}

	r := NewReconciler(verifier, repo, profiles)
	user, err := r.Confirm(context.Background(), &ConfirmInput{Code: "pkce-code", SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	// 匿名记录被认领并推进到 verified
	require.Len(t, repo.adopted, 1)
	rec := repo.byUser["user-1"]
	require.NotNil(t, rec)
	assert.Equal(t, entity.ResponseStatusVerified, rec.Status)

	// 档案幂等写入
	assert.NotNil(t, profiles.profiles["user-1"])
}

func TestReconciler_Confirm_ExistingRecordAdvances(t *testing.T) {
	repo := newFakeResponseRepo()
	userID := "user-1"
	repo.byUser[userID] = &entity.ResponseRecord{
		ID:        "rec-1",
		UserID:    &userID,
		Status:    entity.ResponseStatusPending,
		Responses: []string{"Alice"},
	}
	verifier := &fakeVerifier{user: &AuthUser{ID: userID, Email: "alice@example.com"}}

	r := NewReconciler(verifier, repo, newFakeProfileRepo())
	_, err := r.Confirm(context.Background(), &ConfirmInput{TokenHash: "hash", OTPType: "signup"})
	require.NoError(t, err)
	assert.Equal(t, entity.ResponseStatusVerified, repo.byUser[userID].Status)
}

func TestReconciler_Confirm_AlreadyVerifiedIsIdempotent(t *testing.T) {
	repo := newFakeResponseRepo()
	userID := "user-1"
	repo.byUser[userID] = &entity.ResponseRecord{
		ID:     "rec-1",
		UserID: &userID,
		Status: entity.ResponseStatusStoryGenerated,
	}
	verifier := &fakeVerifier{user: &AuthUser{ID: userID}}

	r := NewReconciler(verifier, repo, newFakeProfileRepo())
	_, err := r.Confirm(context.Background(), &ConfirmInput{Code: "code"})
	require.NoError(t, err)

	// 重复确认不回退状态
	assert.Equal(t, entity.ResponseStatusStoryGenerated, repo.byUser[userID].Status)
	assert.Empty(t, repo.statusWrites)
}

func TestReconciler_Confirm_NoSessionNoRecord(t *testing.T) {
	verifier := &fakeVerifier{user: &AuthUser{ID: "user-1"}}
	r := NewReconciler(verifier, newFakeResponseRepo(), newFakeProfileRepo())

	// 既无已有记录也无会话 Cookie：确认仍成功
	user, err := r.Confirm(context.Background(), &ConfirmInput{Code: "code"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
}

func TestReconciler_Confirm_ProfileFailureDoesNotBlock(t *testing.T) {
	profiles := newFakeProfileRepo()
	profiles.err = assert.AnError
	verifier := &fakeVerifier{user: &AuthUser{ID: "user-1"}}

	r := NewReconciler(verifier, newFakeResponseRepo(), profiles)
	_, err := r.Confirm(context.Background(), &ConfirmInput{Code: "code"})
	assert.NoError(t, err, "对账失败不阻断确认")
}
