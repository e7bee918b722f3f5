package story

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"future-self-api/internal/config"
	"future-self-api/internal/domain/entity"
	apperrors "future-self-api/pkg/errors"
)

// fakeChatModel 按调用顺序返回预设输出；Stream 通过 schema.Pipe 回放分片
type fakeChatModel struct {
	mu          sync.Mutex
	generateOut []string
	generateErr error
	chunks      []string
	streamErr   error
}

func (f *fakeChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if len(f.generateOut) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	out := f.generateOut[0]
	f.generateOut = f.generateOut[1:]
	return schema.AssistantMessage(out, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](len(f.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range f.chunks {
			sw.Send(schema.AssistantMessage(c, nil), nil)
		}
		if f.streamErr != nil {
			sw.Send(nil, f.streamErr)
		}
	}()
	return sr, nil
}

type fakeFactory struct {
	m   model.BaseChatModel
	err error
}

func (f *fakeFactory) Get(_ context.Context, _ string) (model.BaseChatModel, error) {
	return f.m, f.err
}

type fakeResponseRepo struct {
	rec      *entity.ResponseRecord
	upserted *entity.ResponseRecord
	status   []entity.ResponseStatus
}

func (f *fakeResponseRepo) UpsertAnonymous(_ context.Context, _ *entity.ResponseRecord) error {
	return nil
}

func (f *fakeResponseRepo) UpsertForUser(_ context.Context, rec *entity.ResponseRecord) error {
	f.upserted = rec
	return nil
}

func (f *fakeResponseRepo) GetByUserID(_ context.Context, _ string) (*entity.ResponseRecord, error) {
	return f.rec, nil
}

func (f *fakeResponseRepo) GetAnonymousBySessionID(_ context.Context, _ string) (*entity.ResponseRecord, error) {
	return nil, nil
}

func (f *fakeResponseRepo) AdoptAnonymous(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (f *fakeResponseRepo) UpdateStatus(_ context.Context, _ string, status entity.ResponseStatus) error {
	f.status = append(f.status, status)
	if f.rec != nil {
		f.rec.Status = status
	}
	return nil
}

type fakeStoryRepo struct {
	stories  map[string]*entity.Story
	routines map[string]*entity.RoutineList
}

func newFakeStoryRepo() *fakeStoryRepo {
	return &fakeStoryRepo{
		stories:  make(map[string]*entity.Story),
		routines: make(map[string]*entity.RoutineList),
	}
}

func (f *fakeStoryRepo) Upsert(_ context.Context, s *entity.Story) error {
	cp := *s
	f.stories[s.UserID] = &cp
	return nil
}

func (f *fakeStoryRepo) GetByUserID(_ context.Context, userID string) (*entity.Story, error) {
	return f.stories[userID], nil
}

func (f *fakeStoryRepo) UpdateRoutines(_ context.Context, userID string, r *entity.RoutineList) error {
	f.routines[userID] = r
	if s, ok := f.stories[userID]; ok {
		s.Routines = r
	}
	return nil
}

type fakeProfileRepo struct{}

func (fakeProfileRepo) Upsert(_ context.Context, _ *entity.Profile) error { return nil }
func (fakeProfileRepo) GetByUserID(_ context.Context, _ string) (*entity.Profile, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {Model: "gpt-4o-mini"},
			},
		},
	}
}

func verifiedRecord(userID string) *entity.ResponseRecord {
	return &entity.ResponseRecord{
		ID:        "rec-1",
		UserID:    &userID,
		Name:      "Alice",
		Responses: []string{"Alice", "run a bakery"},
		Status:    entity.ResponseStatusVerified,
	}
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	chat := &fakeChatModel{generateOut: []string{
		"In 2031, Alice opens her bakery at dawn.",
		`{"dailyRoutines":["Bake bread","Morning walk"]}`,
	}}
	responses := &fakeResponseRepo{rec: verifiedRecord("user-1")}
	stories := newFakeStoryRepo()

	g := NewGenerator(&fakeFactory{m: chat}, testConfig(), responses, stories, fakeProfileRepo{})
	story, err := g.Generate(ctx, "user-1", nil)
	require.NoError(t, err)

	assert.Contains(t, story.Story, "bakery")
	assert.True(t, story.IsAuthoritative())
	assert.Equal(t, 2, story.RoutineCount())

	// 状态推进到 story-generated，例行活动落库
	require.NotEmpty(t, responses.status)
	assert.Equal(t, entity.ResponseStatusStoryGenerated, responses.status[len(responses.status)-1])
	assert.NotNil(t, stories.routines["user-1"])
}

func TestGenerator_Generate_Preconditions(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	factory := &fakeFactory{m: &fakeChatModel{}}

	t.Run("无问卷记录", func(t *testing.T) {
		g := NewGenerator(factory, cfg, &fakeResponseRepo{}, newFakeStoryRepo(), fakeProfileRepo{})
		_, err := g.Generate(ctx, "user-1", nil)
		assert.ErrorIs(t, err, apperrors.ErrResponsesNotFound)
	})

	t.Run("回答为空", func(t *testing.T) {
		userID := "user-1"
		rec := &entity.ResponseRecord{UserID: &userID, Status: entity.ResponseStatusVerified}
		g := NewGenerator(factory, cfg, &fakeResponseRepo{rec: rec}, newFakeStoryRepo(), fakeProfileRepo{})
		_, err := g.Generate(ctx, "user-1", nil)
		assert.ErrorIs(t, err, apperrors.ErrEmptyResponses)
	})

	t.Run("pending 不允许生成", func(t *testing.T) {
		rec := verifiedRecord("user-1")
		rec.Status = entity.ResponseStatusPending
		g := NewGenerator(factory, cfg, &fakeResponseRepo{rec: rec}, newFakeStoryRepo(), fakeProfileRepo{})
		_, err := g.Generate(ctx, "user-1", nil)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})
}

func TestGenerator_Generate_MigratedRecord(t *testing.T) {
	ctx := context.Background()
	chat := &fakeChatModel{generateOut: []string{
		"In 2031, Bob publishes his first novel.",
		`{"dailyRoutines":["Write 500 words"]}`,
	}}
	// 迁移服务落库后的记录形态：归属用户、verified
	rec := entity.NewUserResponseRecord("user-1", []string{"Bob", "write a novel"}, time.Now())
	rec.Status = entity.ResponseStatusVerified
	responses := &fakeResponseRepo{rec: rec}
	stories := newFakeStoryRepo()

	g := NewGenerator(&fakeFactory{m: chat}, testConfig(), responses, stories, fakeProfileRepo{})
	story, err := g.Generate(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Contains(t, story.Story, "novel")
	assert.Equal(t, entity.ResponseStatusStoryGenerated, responses.status[len(responses.status)-1])
}

func TestGenerator_Generate_LocalFallback(t *testing.T) {
	ctx := context.Background()
	chat := &fakeChatModel{generateOut: []string{
		"In 2031, Alice opens her bakery at dawn.",
		`{"dailyRoutines":["Bake bread"]}`,
	}}
	// 服务端无记录，客户端携带本地答案
	responses := &fakeResponseRepo{}
	stories := newFakeStoryRepo()

	g := NewGenerator(&fakeFactory{m: chat}, testConfig(), responses, stories, fakeProfileRepo{})
	story, err := g.Generate(ctx, "user-1", []string{"Alice", "run a bakery"})
	require.NoError(t, err)
	assert.Contains(t, story.Story, "bakery")

	// 本地答案落库到用户名下，状态依次推进 verified -> story-generated
	require.NotNil(t, responses.upserted)
	require.NotNil(t, responses.upserted.UserID)
	assert.Equal(t, "user-1", *responses.upserted.UserID)
	assert.Equal(t, []string{"Alice", "run a bakery"}, responses.upserted.Responses)
	require.Len(t, responses.status, 2)
	assert.Equal(t, entity.ResponseStatusVerified, responses.status[0])
	assert.Equal(t, entity.ResponseStatusStoryGenerated, responses.status[1])
}

func TestGenerator_Generate_ErrorStatusRetries(t *testing.T) {
	ctx := context.Background()
	rec := verifiedRecord("user-1")
	rec.Status = entity.ResponseStatusError
	responses := &fakeResponseRepo{rec: rec}
	chat := &fakeChatModel{generateOut: []string{
		"A fresh start in 2031.",
		`{"dailyRoutines":["Stretch"]}`,
	}}

	g := NewGenerator(&fakeFactory{m: chat}, testConfig(), responses, newFakeStoryRepo(), fakeProfileRepo{})
	_, err := g.Generate(ctx, "user-1", nil)
	require.NoError(t, err)

	// error 先恢复到 verified 再推进到 story-generated
	require.Len(t, responses.status, 2)
	assert.Equal(t, entity.ResponseStatusVerified, responses.status[0])
	assert.Equal(t, entity.ResponseStatusStoryGenerated, responses.status[1])
}

func TestGenerator_Generate_LLMFailureMarksError(t *testing.T) {
	ctx := context.Background()
	responses := &fakeResponseRepo{rec: verifiedRecord("user-1")}
	chat := &fakeChatModel{generateErr: assert.AnError}

	g := NewGenerator(&fakeFactory{m: chat}, testConfig(), responses, newFakeStoryRepo(), fakeProfileRepo{})
	_, err := g.Generate(ctx, "user-1", nil)
	require.Error(t, err)

	require.NotEmpty(t, responses.status)
	assert.Equal(t, entity.ResponseStatusError, responses.status[len(responses.status)-1])
}

func TestGenerator_StreamGenerate(t *testing.T) {
	ctx := context.Background()
	chat := &fakeChatModel{
		chunks:      []string{"In 2031, ", "Alice opens ", "her bakery."},
		generateOut: []string{`{"dailyRoutines":["Bake bread"]}`},
	}
	responses := &fakeResponseRepo{rec: verifiedRecord("user-1")}
	stories := newFakeStoryRepo()

	var got []string
	sink := func(index int, chunk string) error {
		assert.Equal(t, len(got), index, "分片序号连续")
		got = append(got, chunk)
		return nil
	}

	g := NewGenerator(&fakeFactory{m: chat}, testConfig(), responses, stories, fakeProfileRepo{})
	story, err := g.StreamGenerate(ctx, "user-1", nil, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"In 2031, ", "Alice opens ", "her bakery."}, got)
	assert.Equal(t, "In 2031, Alice opens her bakery.", story.Story)
	assert.Equal(t, entity.ResponseStatusStoryGenerated,
		responses.status[len(responses.status)-1])
}

func TestGenerator_StreamGenerate_UpstreamInterrupted(t *testing.T) {
	ctx := context.Background()
	chat := &fakeChatModel{
		chunks:    []string{"In 2031, ", "Alice"},
		streamErr: assert.AnError,
	}
	responses := &fakeResponseRepo{rec: verifiedRecord("user-1")}
	stories := newFakeStoryRepo()

	g := NewGenerator(&fakeFactory{m: chat}, testConfig(), responses, stories, fakeProfileRepo{})
	_, err := g.StreamGenerate(ctx, "user-1", nil, func(int, string) error { return nil })
	require.Error(t, err)

	// 部分文本保留，状态标记为 error
	partial := stories.stories["user-1"]
	require.NotNil(t, partial)
	assert.Equal(t, "In 2031, Alice", partial.Story)
	assert.Equal(t, entity.ResponseStatusError, responses.status[len(responses.status)-1])
}

func TestGenerator_StreamGenerate_ClientDisconnect(t *testing.T) {
	ctx := context.Background()
	chat := &fakeChatModel{
		chunks:      []string{"In 2031, ", "Alice opens ", "her bakery."},
		generateOut: []string{`{"dailyRoutines":["Bake bread"]}`},
	}
	responses := &fakeResponseRepo{rec: verifiedRecord("user-1")}
	stories := newFakeStoryRepo()

	// 第二个分片后客户端断开
	sent := 0
	sink := func(int, string) error {
		sent++
		if sent >= 2 {
			return context.Canceled
		}
		return nil
	}

	g := NewGenerator(&fakeFactory{m: chat}, testConfig(), responses, stories, fakeProfileRepo{})
	story, err := g.StreamGenerate(ctx, "user-1", nil, sink)
	require.Error(t, err, "断开仍返回错误供调用方记录")

	// 完整故事照常落库，状态照常推进
	require.NotNil(t, story)
	assert.Equal(t, "In 2031, Alice opens her bakery.", stories.stories["user-1"].Story)
	assert.Equal(t, entity.ResponseStatusStoryGenerated, responses.status[len(responses.status)-1])
}

func TestGenerator_GetStory(t *testing.T) {
	stories := newFakeStoryRepo()
	g := NewGenerator(&fakeFactory{m: &fakeChatModel{}}, testConfig(), &fakeResponseRepo{}, stories, fakeProfileRepo{})

	_, err := g.GetStory(context.Background(), "user-1")
	assert.ErrorIs(t, err, apperrors.ErrStoryNotFound)

	stories.stories["user-1"] = &entity.Story{UserID: "user-1", Story: "text"}
	story, err := g.GetStory(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "text", story.Story)
}
