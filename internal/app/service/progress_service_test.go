package service

import (
	"context"
	"testing"
	"time"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository"
	"courses_sheet_api/internal/domain/repository/inmem"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressFixture struct {
	store        *inmem.Store
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
	subjectRepo  repository.SubjectRepository
	topicRepo    repository.TopicRepository
	problemRepo  repository.ProblemRepository
	progressRepo repository.ProgressRepository
	exerciseRepo repository.ExerciseProgressRepository
	svc          *ProgressService

	userID    string
	subjectID string
	topicID   string
	p1ID      string
	p2ID      string
}

// newProgressFixture seeds a DSA -> Arrays -> Two Sum catalog with two
// problems and one user assigned to Arrays.
func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()
	ctx := context.Background()

	store := inmem.NewStore()
	f := &progressFixture{
		store:        store,
		userRepo:     inmem.NewUserRepository(store),
		categoryRepo: inmem.NewCategoryRepository(store),
		subjectRepo:  inmem.NewSubjectRepository(store),
		topicRepo:    inmem.NewTopicRepository(store),
		problemRepo:  inmem.NewProblemRepository(store),
		progressRepo: inmem.NewProgressRepository(store),
		exerciseRepo: inmem.NewExerciseProgressRepository(store),
	}
	f.svc = NewProgressService(f.userRepo, f.subjectRepo, f.topicRepo, f.problemRepo, f.progressRepo, f.exerciseRepo)

	category := &model.Category{ID: uuid.NewString(), Name: "DSA"}
	require.NoError(t, f.categoryRepo.Create(ctx, category))

	subject := &model.Subject{ID: uuid.NewString(), Name: "Arrays", CategoryID: category.ID}
	require.NoError(t, f.subjectRepo.Create(ctx, subject))
	f.subjectID = subject.ID

	topic := &model.Topic{ID: uuid.NewString(), Name: "Two Sum", Slug: "two-sum", SubjectID: subject.ID, Status: model.TopicIncomplete}
	require.NoError(t, f.topicRepo.Create(ctx, topic))
	f.topicID = topic.ID

	p1 := &model.Problem{ID: uuid.NewString(), Title: "Two Sum I", TopicID: topic.ID, Difficulty: model.DifficultyEasy}
	p2 := &model.Problem{ID: uuid.NewString(), Title: "Two Sum II", TopicID: topic.ID, Difficulty: model.DifficultyMedium}
	require.NoError(t, f.problemRepo.Create(ctx, p1))
	require.NoError(t, f.problemRepo.Create(ctx, p2))
	f.p1ID, f.p2ID = p1.ID, p2.ID

	user := &model.User{ID: uuid.NewString(), Username: "alice", Email: "alice@example.com", Role: model.RoleUser}
	require.NoError(t, f.userRepo.Create(ctx, user))
	f.userID = user.ID
	require.NoError(t, f.userRepo.AddAssignedSubject(ctx, user.ID, subject.ID))

	return f
}

func (f *progressFixture) addTopic(t *testing.T, name string, problemTitles ...string) (string, []string) {
	t.Helper()
	ctx := context.Background()
	topic := &model.Topic{ID: uuid.NewString(), Name: name, SubjectID: f.subjectID, Status: model.TopicIncomplete}
	require.NoError(t, f.topicRepo.Create(ctx, topic))
	ids := []string{}
	for _, title := range problemTitles {
		p := &model.Problem{ID: uuid.NewString(), Title: title, TopicID: topic.ID, Difficulty: model.DifficultyEasy}
		require.NoError(t, f.problemRepo.Create(ctx, p))
		ids = append(ids, p.ID)
	}
	return topic.ID, ids
}

func TestToggleTopicCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("partial completion marks everything completed", func(t *testing.T) {
		f := newProgressFixture(t)
		answer := "use a hash map"
		_, err := f.exerciseRepo.Upsert(ctx, f.userID, f.p1ID, &answer, model.ProgressCompleted)
		require.NoError(t, err)

		result, err := f.svc.ToggleTopicCompletion(ctx, f.userID, f.topicID)
		require.NoError(t, err)
		assert.True(t, result.Completed)

		rec1, ok := f.store.ExerciseRecord(f.userID, f.p1ID)
		require.True(t, ok)
		assert.Equal(t, model.ProgressCompleted, rec1.Status)
		require.NotNil(t, rec1.Answer)
		assert.Equal(t, answer, *rec1.Answer, "bulk upsert must preserve stored answers")

		rec2, ok := f.store.ExerciseRecord(f.userID, f.p2ID)
		require.True(t, ok)
		assert.Equal(t, model.ProgressCompleted, rec2.Status)
	})

	t.Run("fully completed topic demotes to attempted", func(t *testing.T) {
		f := newProgressFixture(t)
		require.NoError(t, f.exerciseRepo.MarkAllCompleted(ctx, f.userID, []string{f.p1ID, f.p2ID}))

		result, err := f.svc.ToggleTopicCompletion(ctx, f.userID, f.topicID)
		require.NoError(t, err)
		assert.False(t, result.Completed)

		for _, pid := range []string{f.p1ID, f.p2ID} {
			rec, ok := f.store.ExerciseRecord(f.userID, pid)
			require.True(t, ok)
			assert.Equal(t, model.ProgressAttempted, rec.Status, "demotion keeps attempt history, never not_started")
		}
	})

	t.Run("double toggle returns to the opposite state each time", func(t *testing.T) {
		f := newProgressFixture(t)
		answer := "sort then scan"
		_, err := f.exerciseRepo.Upsert(ctx, f.userID, f.p1ID, &answer, model.ProgressAttempted)
		require.NoError(t, err)

		first, err := f.svc.ToggleTopicCompletion(ctx, f.userID, f.topicID)
		require.NoError(t, err)
		assert.True(t, first.Completed)

		second, err := f.svc.ToggleTopicCompletion(ctx, f.userID, f.topicID)
		require.NoError(t, err)
		assert.False(t, second.Completed)

		rec, ok := f.store.ExerciseRecord(f.userID, f.p1ID)
		require.True(t, ok)
		assert.Equal(t, model.ProgressAttempted, rec.Status)
		require.NotNil(t, rec.Answer)
		assert.Equal(t, answer, *rec.Answer, "demotion must not erase recorded answers")
	})

	t.Run("topic without exercises is a no-op", func(t *testing.T) {
		f := newProgressFixture(t)
		emptyTopicID, _ := f.addTopic(t, "Empty Topic")

		result, err := f.svc.ToggleTopicCompletion(ctx, f.userID, emptyTopicID)
		require.NoError(t, err)
		assert.False(t, result.Completed)
		assert.Equal(t, "No exercises in topic", result.Message)
	})

	t.Run("missing topic id is rejected", func(t *testing.T) {
		f := newProgressFixture(t)
		_, err := f.svc.ToggleTopicCompletion(ctx, f.userID, "")
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})
}

func TestProgressSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("percentages stay within bounds and zero totals never divide", func(t *testing.T) {
		f := newProgressFixture(t)
		f.addTopic(t, "Empty Topic") // zero problems

		summary, err := f.svc.ProgressSummary(ctx, f.userID)
		require.NoError(t, err)
		require.Len(t, summary.Subjects, 1)

		subject := summary.Subjects[0]
		assert.Equal(t, "Arrays", subject.Name)
		assert.Equal(t, 0, subject.PercentCompleted)
		require.Len(t, subject.Topics, 2)
		for _, topic := range subject.Topics {
			assert.GreaterOrEqual(t, topic.PercentCompleted, 0)
			assert.LessOrEqual(t, topic.PercentCompleted, 100)
		}
	})

	t.Run("course assignments win over assigned subjects", func(t *testing.T) {
		f := newProgressFixture(t)
		ctx := context.Background()

		other := &model.Subject{ID: uuid.NewString(), Name: "Graphs", CategoryID: uuid.NewString()}
		require.NoError(t, f.subjectRepo.Create(ctx, other))
		f.store.SeedAssignment(model.CourseAssignment{
			ID:        uuid.NewString(),
			UserID:    f.userID,
			SubjectID: &other.ID,
		})

		summary, err := f.svc.ProgressSummary(ctx, f.userID)
		require.NoError(t, err)
		require.Len(t, summary.Subjects, 1)
		assert.Equal(t, "Graphs", summary.Subjects[0].Name)
	})

	t.Run("end to end: attempt then toggle", func(t *testing.T) {
		f := newProgressFixture(t)

		_, err := f.svc.SaveAttempt(ctx, f.userID, SaveAttemptRequest{ExerciseID: f.p1ID, Status: model.ProgressCompleted})
		require.NoError(t, err)

		summary, err := f.svc.ProgressSummary(ctx, f.userID)
		require.NoError(t, err)
		require.Len(t, summary.Subjects, 1)
		assert.Equal(t, 50, summary.Subjects[0].PercentCompleted)
		require.Len(t, summary.Subjects[0].Topics, 1)
		assert.Equal(t, 50, summary.Subjects[0].Topics[0].PercentCompleted)

		result, err := f.svc.ToggleTopicCompletion(ctx, f.userID, f.topicID)
		require.NoError(t, err)
		assert.True(t, result.Completed)

		summary, err = f.svc.ProgressSummary(ctx, f.userID)
		require.NoError(t, err)
		assert.Equal(t, 100, summary.Subjects[0].PercentCompleted)
		assert.Equal(t, 100, summary.Subjects[0].Topics[0].PercentCompleted)
	})
}

func TestUserDashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("assigned subjects preferred with topic enrichment", func(t *testing.T) {
		f := newProgressFixture(t)
		require.NoError(t, f.exerciseRepo.MarkAllCompleted(ctx, f.userID, []string{f.p1ID, f.p2ID}))

		data, err := f.svc.UserDashboard(ctx, f.userID)
		require.NoError(t, err)
		require.Len(t, data.Subjects, 1)
		assert.Equal(t, []string{f.subjectID}, data.SubjectIDs)

		require.Len(t, data.Subjects[0].Topics, 1)
		topic := data.Subjects[0].Topics[0]
		assert.True(t, topic.UserCompleted)
		assert.Equal(t, 2, topic.ProblemCount)
		assert.Len(t, data.Attempts, 2)
	})

	t.Run("zero-problem topic is never user-completed", func(t *testing.T) {
		f := newProgressFixture(t)
		f.addTopic(t, "Empty Topic")

		data, err := f.svc.UserDashboard(ctx, f.userID)
		require.NoError(t, err)
		require.Len(t, data.Subjects, 1)
		for _, topic := range data.Subjects[0].Topics {
			if topic.Name == "Empty Topic" {
				assert.False(t, topic.UserCompleted)
				assert.Equal(t, 0, topic.ProblemCount)
			}
		}
	})

	t.Run("falls back to course assignments and dedupes", func(t *testing.T) {
		f := newProgressFixture(t)
		require.NoError(t, f.userRepo.RemoveAssignedSubject(ctx, f.userID, f.subjectID))

		// Duplicate grants for the same subject resolve to one entry.
		f.store.SeedAssignment(model.CourseAssignment{ID: uuid.NewString(), UserID: f.userID, SubjectID: &f.subjectID})
		f.store.SeedAssignment(model.CourseAssignment{ID: uuid.NewString(), UserID: f.userID, SubjectID: &f.subjectID})

		data, err := f.svc.UserDashboard(ctx, f.userID)
		require.NoError(t, err)
		require.Len(t, data.Subjects, 1)
		assert.Equal(t, f.subjectID, data.Subjects[0].ID)
	})

	t.Run("resume points at the most recently visited record", func(t *testing.T) {
		f := newProgressFixture(t)

		older := &model.UserProgress{UserID: f.userID, SubjectID: f.subjectID, TopicID: &f.topicID, Status: model.ProgressAttempted, LastVisited: time.Now().Add(-time.Hour)}
		_, err := f.progressRepo.UpsertLegacy(ctx, older)
		require.NoError(t, err)

		newer := &model.UserProgress{UserID: f.userID, SubjectID: f.subjectID, ProblemID: &f.p1ID, Status: model.ProgressCompleted, LastVisited: time.Now()}
		saved, err := f.progressRepo.UpsertLegacy(ctx, newer)
		require.NoError(t, err)

		data, err := f.svc.UserDashboard(ctx, f.userID)
		require.NoError(t, err)
		require.NotNil(t, data.Resume)
		assert.Equal(t, saved.ID, data.Resume.ID)
		assert.Len(t, data.Progress, 2)
	})

	t.Run("no legacy records means no resume pointer", func(t *testing.T) {
		f := newProgressFixture(t)
		data, err := f.svc.UserDashboard(ctx, f.userID)
		require.NoError(t, err)
		assert.Nil(t, data.Resume)
	})

	t.Run("current topic is included", func(t *testing.T) {
		f := newProgressFixture(t)
		_, err := f.userRepo.UpdateCurrentTopic(ctx, f.userID, &f.topicID)
		require.NoError(t, err)

		data, err := f.svc.UserDashboard(ctx, f.userID)
		require.NoError(t, err)
		require.NotNil(t, data.CurrentTopic)
		assert.Equal(t, f.topicID, data.CurrentTopic.ID)
	})
}

func TestSaveAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown exercise is not found", func(t *testing.T) {
		f := newProgressFixture(t)
		_, err := f.svc.SaveAttempt(ctx, f.userID, SaveAttemptRequest{ExerciseID: uuid.NewString(), Status: model.ProgressAttempted})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("upsert preserves answer when omitted", func(t *testing.T) {
		f := newProgressFixture(t)
		answer := "two pointers"
		first, err := f.svc.SaveAttempt(ctx, f.userID, SaveAttemptRequest{ExerciseID: f.p1ID, Answer: &answer, Status: model.ProgressAttempted})
		require.NoError(t, err)
		require.NotNil(t, first.Answer)

		second, err := f.svc.SaveAttempt(ctx, f.userID, SaveAttemptRequest{ExerciseID: f.p1ID, Status: model.ProgressCompleted})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, model.ProgressCompleted, second.Status)
		require.NotNil(t, second.Answer)
		assert.Equal(t, answer, *second.Answer)
	})

	t.Run("returned record carries the full chain", func(t *testing.T) {
		f := newProgressFixture(t)
		record, err := f.svc.SaveAttempt(ctx, f.userID, SaveAttemptRequest{ExerciseID: f.p1ID, Status: model.ProgressAttempted})
		require.NoError(t, err)
		require.NotNil(t, record.Exercise)
		require.NotNil(t, record.Exercise.Topic)
		require.NotNil(t, record.Exercise.Topic.Subject)
		require.NotNil(t, record.Exercise.Topic.Subject.Category)
		assert.Equal(t, "DSA", record.Exercise.Topic.Subject.Category.Name)
	})
}

func TestUpdateLegacyProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("requires subject and topic or problem", func(t *testing.T) {
		f := newProgressFixture(t)
		_, err := f.svc.UpdateLegacyProgress(ctx, f.userID, UpdateLegacyProgressRequest{SubjectID: f.subjectID})
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})

	t.Run("upsert moves last visited forward", func(t *testing.T) {
		f := newProgressFixture(t)
		req := UpdateLegacyProgressRequest{SubjectID: f.subjectID, TopicID: &f.topicID, Status: model.ProgressAttempted}

		first, err := f.svc.UpdateLegacyProgress(ctx, f.userID, req)
		require.NoError(t, err)

		req.Status = model.ProgressCompleted
		second, err := f.svc.UpdateLegacyProgress(ctx, f.userID, req)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, model.ProgressCompleted, second.Status)
		assert.False(t, second.LastVisited.Before(first.LastVisited))
	})
}

func TestListSubmissions(t *testing.T) {
	ctx := context.Background()

	seedAttempts := func(t *testing.T, f *progressFixture) {
		t.Helper()
		for _, pid := range []string{f.p1ID, f.p2ID} {
			_, err := f.exerciseRepo.Upsert(ctx, f.userID, pid, nil, model.ProgressAttempted)
			require.NoError(t, err)
		}
	}

	t.Run("defaults and totals", func(t *testing.T) {
		f := newProgressFixture(t)
		seedAttempts(t, f)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Pagination.Page)
		assert.Equal(t, submissionsDefaultLimit, page.Pagination.Limit)
		assert.Equal(t, 2, page.Pagination.Total)
		assert.Equal(t, 1, page.Pagination.TotalPages)
		assert.Len(t, page.Submissions, 2)
		for _, sub := range page.Submissions {
			require.NotNil(t, sub.User)
			assert.Equal(t, "alice", sub.User.Username)
			require.NotNil(t, sub.Exercise)
			require.NotNil(t, sub.Exercise.Topic)
		}
	})

	t.Run("limit is clamped to the maximum", func(t *testing.T) {
		f := newProgressFixture(t)
		seedAttempts(t, f)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{Limit: 10_000})
		require.NoError(t, err)
		assert.Equal(t, submissionsMaxLimit, page.Pagination.Limit)
	})

	t.Run("unmatched user fragment yields an empty page, not an unfiltered one", func(t *testing.T) {
		f := newProgressFixture(t)
		seedAttempts(t, f)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{User: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, page.Submissions)
		assert.Equal(t, 0, page.Pagination.Total)
		assert.Equal(t, 0, page.Pagination.TotalPages)
	})

	t.Run("user fragment matches username case-insensitively", func(t *testing.T) {
		f := newProgressFixture(t)
		seedAttempts(t, f)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{User: "ALI"})
		require.NoError(t, err)
		assert.Len(t, page.Submissions, 2)
	})

	t.Run("topic filter wins over subject filter", func(t *testing.T) {
		f := newProgressFixture(t)
		seedAttempts(t, f)
		otherTopicID, otherProblems := f.addTopic(t, "Sliding Window", "Max Window")
		_, err := f.exerciseRepo.Upsert(ctx, f.userID, otherProblems[0], nil, model.ProgressAttempted)
		require.NoError(t, err)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{Topic: otherTopicID, Subject: "Arrays"})
		require.NoError(t, err)
		require.Len(t, page.Submissions, 1)
		assert.Equal(t, otherProblems[0], page.Submissions[0].ExerciseID)
	})

	t.Run("subject name expands transitively", func(t *testing.T) {
		f := newProgressFixture(t)
		seedAttempts(t, f)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{Subject: "arr"})
		require.NoError(t, err)
		assert.Len(t, page.Submissions, 2)
	})

	t.Run("unmatched subject name yields an empty page", func(t *testing.T) {
		f := newProgressFixture(t)
		seedAttempts(t, f)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{Subject: "Quantum"})
		require.NoError(t, err)
		assert.Empty(t, page.Submissions)
		assert.Equal(t, 0, page.Pagination.Total)
	})

	t.Run("sorted most recently updated first", func(t *testing.T) {
		f := newProgressFixture(t)
		_, err := f.exerciseRepo.Upsert(ctx, f.userID, f.p1ID, nil, model.ProgressAttempted)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = f.exerciseRepo.Upsert(ctx, f.userID, f.p2ID, nil, model.ProgressAttempted)
		require.NoError(t, err)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{})
		require.NoError(t, err)
		require.Len(t, page.Submissions, 2)
		assert.Equal(t, f.p2ID, page.Submissions[0].ExerciseID)
		assert.Equal(t, f.p1ID, page.Submissions[1].ExerciseID)
	})

	t.Run("pagination splits pages", func(t *testing.T) {
		f := newProgressFixture(t)
		seedAttempts(t, f)

		page, err := f.svc.ListSubmissions(ctx, ListSubmissionsRequest{Limit: 1, Page: 2})
		require.NoError(t, err)
		assert.Len(t, page.Submissions, 1)
		assert.Equal(t, 2, page.Pagination.Page)
		assert.Equal(t, 2, page.Pagination.Total)
		assert.Equal(t, 2, page.Pagination.TotalPages)
	})
}
