package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"future-self-api/internal/domain/entity"
	apperrors "future-self-api/pkg/errors"
)

type fakeTaskRepo struct {
	tasks map[string]*entity.Task
	next  int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*entity.Task)}
}

func (f *fakeTaskRepo) CreateBatch(ctx context.Context, tasks []*entity.Task) error {
	for _, t := range tasks {
		if err := f.Create(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTaskRepo) Create(_ context.Context, t *entity.Task) error {
	if t.ID == "" {
		f.next++
		t.ID = "task-" + string(rune('0'+f.next))
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*entity.Task, error) {
	return f.tasks[id], nil
}

func (f *fakeTaskRepo) ListByUser(_ context.Context, userID, fromDate, toDate string) ([]*entity.Task, error) {
	var out []*entity.Task
	for _, t := range f.tasks {
		if t.UserID == userID && t.Date >= fromDate && t.Date <= toDate {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, t *entity.Task) error {
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id string) error {
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskRepo) CountByUserAndDateRange(ctx context.Context, userID, fromDate, toDate string) (int64, error) {
	list, _ := f.ListByUser(ctx, userID, fromDate, toDate)
	return int64(len(list)), nil
}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeTaskRepo(), passthroughTx{})

	task, err := svc.Create(ctx, "user-1", "Morning run", "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, 0, task.Position)

	// 同一天的第二条排在末尾
	second, err := svc.Create(ctx, "user-1", "Journaling", "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)
}

func TestService_Create_Validation(t *testing.T) {
	svc := NewService(newFakeTaskRepo(), passthroughTx{})

	_, err := svc.Create(context.Background(), "user-1", "  ", "2026-09-01")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)

	_, err = svc.Create(context.Background(), "user-1", "Run", "09/01/2026")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestService_SetProgress(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTaskRepo()
	svc := NewService(repo, passthroughTx{})

	task, err := svc.Create(ctx, "user-1", "Morning run", "2026-09-01")
	require.NoError(t, err)

	updated, err := svc.SetProgress(ctx, "user-1", task.ID, 37)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Progress, "进度吸附到步长刻度")
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTaskRepo()
	svc := NewService(repo, passthroughTx{})

	task, err := svc.Create(ctx, "user-1", "Morning run", "2026-09-01")
	require.NoError(t, err)

	title := "Evening run"
	timeOfDay := "7:00 PM"
	progress := 63
	position := 3
	updated, err := svc.Update(ctx, "user-1", task.ID, Patch{
		Title:    &title,
		Time:     &timeOfDay,
		Progress: &progress,
		Position: &position,
	})
	require.NoError(t, err)
	assert.Equal(t, "Evening run", updated.Title)
	assert.Equal(t, "7:00 PM", updated.Time)
	assert.Equal(t, 75, updated.Progress, "进度吸附到步长刻度")
	assert.Equal(t, 3, updated.Position)
	// 未携带的字段保持原值
	assert.Equal(t, "Daily", updated.Amount)

	empty := "  "
	_, err = svc.Update(ctx, "user-1", task.ID, Patch{Title: &empty})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)

	negative := -1
	_, err = svc.Update(ctx, "user-1", task.ID, Patch{Position: &negative})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestService_SetProgress_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTaskRepo()
	svc := NewService(repo, passthroughTx{})

	task, err := svc.Create(ctx, "user-1", "Morning run", "2026-09-01")
	require.NoError(t, err)

	// 非属主访问表现为不存在
	_, err = svc.SetProgress(ctx, "user-2", task.ID, 50)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTaskRepo()
	svc := NewService(repo, passthroughTx{})

	task, err := svc.Create(ctx, "user-1", "Morning run", "2026-09-01")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "user-1", task.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "user-1", task.ID), apperrors.ErrTaskNotFound)
}

func TestService_List_DefaultsToToday(t *testing.T) {
	svc := NewService(newFakeTaskRepo(), passthroughTx{})

	list, err := svc.List(context.Background(), "user-1", "", "")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.List(context.Background(), "user-1", "bad-date", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}
