package service

import (
	"context"
	"errors"
	"testing"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTopicService(f *progressFixture) *TopicService {
	return NewTopicService(f.topicRepo, f.problemRepo, f.exerciseRepo)
}

func TestCreateTopic(t *testing.T) {
	ctx := context.Background()
	f := newProgressFixture(t)
	svc := newTopicService(f)

	t.Run("name and subject required", func(t *testing.T) {
		_, err := svc.CreateTopic(ctx, f.subjectID, CreateTopicRequest{})
		assert.ErrorIs(t, err, common.ErrBadRequest)

		_, err = svc.CreateTopic(ctx, "", CreateTopicRequest{Name: "Binary Search"})
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})

	t.Run("slug derives from the name", func(t *testing.T) {
		topic, err := svc.CreateTopic(ctx, f.subjectID, CreateTopicRequest{Name: "Binary Search"})
		require.NoError(t, err)
		assert.Equal(t, "binary-search", topic.Slug)
		assert.Equal(t, model.TopicIncomplete, topic.Status)
	})
}

func TestUpdateTopic(t *testing.T) {
	ctx := context.Background()
	f := newProgressFixture(t)
	svc := newTopicService(f)

	t.Run("empty update is rejected", func(t *testing.T) {
		_, err := svc.UpdateTopic(ctx, f.topicID, UpdateTopicRequest{})
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})

	t.Run("partial update touches only the given fields", func(t *testing.T) {
		content := "prefix sums first"
		topic, err := svc.UpdateTopic(ctx, f.topicID, UpdateTopicRequest{Content: &content})
		require.NoError(t, err)
		assert.Equal(t, "Two Sum", topic.Name)
		assert.Equal(t, content, topic.Content)
	})

	t.Run("unknown topic is not found", func(t *testing.T) {
		name := "Renamed"
		_, err := svc.UpdateTopic(ctx, uuid.NewString(), UpdateTopicRequest{Name: &name})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestToggleTopicStatus(t *testing.T) {
	ctx := context.Background()
	f := newProgressFixture(t)
	svc := newTopicService(f)

	topic, err := svc.ToggleTopicStatus(ctx, f.topicID)
	require.NoError(t, err)
	assert.Equal(t, model.TopicCompleted, topic.Status)

	topic, err = svc.ToggleTopicStatus(ctx, f.topicID)
	require.NoError(t, err)
	assert.Equal(t, model.TopicIncomplete, topic.Status)
}

func TestReplaceTopicContent(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces content and problem set", func(t *testing.T) {
		f := newProgressFixture(t)
		svc := newTopicService(f)

		topic, err := svc.ReplaceTopicContent(ctx, ReplaceTopicContentRequest{
			TopicID: f.topicID,
			Content: "rewritten notes",
			Assignments: []model.CourseAssignment{
				{UserID: f.userID},
			},
			Problems: []model.Problem{
				{Title: "Three Sum"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "rewritten notes", topic.Content)

		problems := f.store.ProblemsByTopic(f.topicID)
		require.Len(t, problems, 1, "old problems must be gone")
		assert.Equal(t, "Three Sum", problems[0].Title)
		assert.Equal(t, f.topicID, problems[0].TopicID)
	})

	t.Run("failure rolls everything back", func(t *testing.T) {
		f := newProgressFixture(t)
		svc := newTopicService(f)
		f.store.FailReplaceProblems = errors.New("insert failed")

		_, err := svc.ReplaceTopicContent(ctx, ReplaceTopicContentRequest{
			TopicID:  f.topicID,
			Content:  "must not stick",
			Problems: []model.Problem{{Title: "Three Sum"}},
		})
		require.Error(t, err)

		content, ok := f.store.TopicContent(f.topicID)
		require.True(t, ok)
		assert.Empty(t, content, "content update must roll back with the problem insert")

		problems := f.store.ProblemsByTopic(f.topicID)
		assert.Len(t, problems, 2, "original problems must survive the failed replace")
	})

	t.Run("assignment failure also rolls back", func(t *testing.T) {
		f := newProgressFixture(t)
		svc := newTopicService(f)
		f.store.FailReplaceAssignments = errors.New("delete failed")

		_, err := svc.ReplaceTopicContent(ctx, ReplaceTopicContentRequest{
			TopicID: f.topicID,
			Content: "must not stick",
		})
		require.Error(t, err)

		content, ok := f.store.TopicContent(f.topicID)
		require.True(t, ok)
		assert.Empty(t, content)
	})

	t.Run("unknown topic is not found", func(t *testing.T) {
		f := newProgressFixture(t)
		svc := newTopicService(f)
		_, err := svc.ReplaceTopicContent(ctx, ReplaceTopicContentRequest{TopicID: uuid.NewString()})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestGetTopic(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous callers get the bare catalog view", func(t *testing.T) {
		f := newProgressFixture(t)
		svc := newTopicService(f)

		view, err := svc.GetTopic(ctx, f.topicID, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, view.ProblemCount)
		assert.False(t, view.UserCompleted)
		for _, p := range view.Problems {
			assert.Nil(t, p.UserProgress)
		}
	})

	t.Run("authenticated callers see their progress", func(t *testing.T) {
		f := newProgressFixture(t)
		svc := newTopicService(f)
		answer := "sorted two pointers"
		_, err := f.exerciseRepo.Upsert(ctx, f.userID, f.p1ID, &answer, model.ProgressCompleted)
		require.NoError(t, err)

		view, err := svc.GetTopic(ctx, f.topicID, &model.Principal{ID: f.userID, Role: model.RoleUser})
		require.NoError(t, err)
		assert.False(t, view.UserCompleted)

		seen := 0
		for _, p := range view.Problems {
			if p.ID == f.p1ID {
				require.NotNil(t, p.UserProgress)
				assert.Equal(t, model.ProgressCompleted, p.UserProgress.Status)
				seen++
			} else {
				assert.Nil(t, p.UserProgress)
			}
		}
		assert.Equal(t, 1, seen)

		require.NoError(t, f.exerciseRepo.MarkAllCompleted(ctx, f.userID, []string{f.p1ID, f.p2ID}))
		view, err = svc.GetTopic(ctx, f.topicID, &model.Principal{ID: f.userID, Role: model.RoleUser})
		require.NoError(t, err)
		assert.True(t, view.UserCompleted)
	})

	t.Run("unknown topic is not found", func(t *testing.T) {
		f := newProgressFixture(t)
		svc := newTopicService(f)
		_, err := svc.GetTopic(ctx, uuid.NewString(), nil)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}
