package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courses_sheet_api/internal/api"
	"courses_sheet_api/internal/app/service"
	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/common/security"
	"courses_sheet_api/internal/domain/model"
	"courses_sheet_api/internal/domain/repository/inmem"
	"courses_sheet_api/internal/platform/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router  http.Handler
	store   *inmem.Store
	userID  string
	adminID string

	subjectID string
	topicID   string
	problemID string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	config.AppConfig = &config.Config{
		JWTKey:        []byte("test-secret"),
		JWTExp:        time.Hour,
		StatsCacheTTL: time.Second,
	}
	security.InitJWT()

	store := inmem.NewStore()
	userRepo := inmem.NewUserRepository(store)
	categoryRepo := inmem.NewCategoryRepository(store)
	subjectRepo := inmem.NewSubjectRepository(store)
	topicRepo := inmem.NewTopicRepository(store)
	problemRepo := inmem.NewProblemRepository(store)
	progressRepo := inmem.NewProgressRepository(store)
	exerciseRepo := inmem.NewExerciseProgressRepository(store)

	authService := service.NewAuthService(userRepo)
	catalogService := service.NewCatalogService(categoryRepo, subjectRepo, topicRepo, problemRepo, userRepo, nil, time.Second)
	topicService := service.NewTopicService(topicRepo, problemRepo, exerciseRepo)
	userService := service.NewUserService(userRepo, topicRepo)
	progressService := service.NewProgressService(userRepo, subjectRepo, topicRepo, problemRepo, progressRepo, exerciseRepo)

	f := &apiFixture{
		router: api.NewRouter(authService, catalogService, topicService, userService, progressService),
		store:  store,
	}

	category := &model.Category{ID: uuid.NewString(), Name: "DSA"}
	require.NoError(t, categoryRepo.Create(ctx, category))
	subject := &model.Subject{ID: uuid.NewString(), Name: "Arrays", CategoryID: category.ID}
	require.NoError(t, subjectRepo.Create(ctx, subject))
	f.subjectID = subject.ID
	topic := &model.Topic{ID: uuid.NewString(), Name: "Two Sum", Slug: "two-sum", SubjectID: subject.ID, Status: model.TopicIncomplete}
	require.NoError(t, topicRepo.Create(ctx, topic))
	f.topicID = topic.ID
	problem := &model.Problem{ID: uuid.NewString(), Title: "Two Sum I", TopicID: topic.ID, Difficulty: model.DifficultyEasy}
	require.NoError(t, problemRepo.Create(ctx, problem))
	f.problemID = problem.ID

	user := &model.User{ID: uuid.NewString(), Username: "alice", Email: "alice@example.com", Role: model.RoleUser}
	require.NoError(t, userRepo.Create(ctx, user))
	f.userID = user.ID
	require.NoError(t, userRepo.AddAssignedSubject(ctx, user.ID, subject.ID))

	admin := &model.User{ID: uuid.NewString(), Username: "root", Email: "root@example.com", Role: model.RoleAdmin}
	require.NoError(t, userRepo.Create(ctx, admin))
	f.adminID = admin.ID

	return f
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func userToken(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := security.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) common.Envelope {
	t.Helper()
	var env common.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAuthGates(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("missing token is 401", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/dashboard", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, "Authorization token required", env.Message)
	})

	t.Run("garbage token is 401 with an invalid message", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/dashboard", "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Contains(t, env.Message, "Invalid token")
	})

	t.Run("expired token is 401 with an invalid message", func(t *testing.T) {
		config.AppConfig.JWTExp = -time.Hour
		token := userToken(t, f.userID, model.RoleUser)
		config.AppConfig.JWTExp = time.Hour

		rec := f.request(t, http.MethodGet, "/api/dashboard", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Contains(t, env.Message, "Invalid token")
	})

	t.Run("non-admin on an admin route is 403", func(t *testing.T) {
		token := userToken(t, f.userID, model.RoleUser)
		rec := f.request(t, http.MethodGet, "/api/progress/all", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, "Admin access required", env.Message)
	})

	t.Run("admin passes the gate", func(t *testing.T) {
		token := userToken(t, f.adminID, model.RoleAdmin)
		rec := f.request(t, http.MethodGet, "/api/progress/all", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeEnvelope(t, rec).Success)
	})
}

func TestDashboardEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	token := userToken(t, f.userID, model.RoleUser)

	rec := f.request(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			SubjectIDs []string    `json:"subjectIds"`
			Resume     interface{} `json:"resume"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Success)
	assert.Equal(t, []string{f.subjectID}, payload.Data.SubjectIDs)
}

func TestAttemptEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	token := userToken(t, f.userID, model.RoleUser)

	rec := f.request(t, http.MethodPost, "/api/progress/attempt", token, map[string]interface{}{
		"exerciseId": f.problemID,
		"answer":     "hash map",
		"status":     "completed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	record, ok := f.store.ExerciseRecord(f.userID, f.problemID)
	require.True(t, ok)
	assert.Equal(t, model.ProgressCompleted, record.Status)

	t.Run("unknown exercise is 404", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/progress/attempt", token, map[string]interface{}{
			"exerciseId": uuid.NewString(),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, decodeEnvelope(t, rec).Success)
	})
}

func TestTopicEndpointOptionalAuth(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("anonymous read succeeds without enrichment", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/topics/"+f.topicID, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Data struct {
				ProblemCount  int  `json:"problemCount"`
				UserCompleted bool `json:"userCompleted"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, 1, payload.Data.ProblemCount)
		assert.False(t, payload.Data.UserCompleted)
	})

	t.Run("invalid token still returns the topic", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/topics/"+f.topicID, "garbage", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("valid token enriches with user progress", func(t *testing.T) {
		token := userToken(t, f.userID, model.RoleUser)
		attempt := f.request(t, http.MethodPost, "/api/progress/attempt", token, map[string]interface{}{
			"exerciseId": f.problemID,
			"status":     "completed",
		})
		require.Equal(t, http.StatusOK, attempt.Code)

		rec := f.request(t, http.MethodGet, "/api/topics/"+f.topicID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Data struct {
				UserCompleted bool `json:"userCompleted"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.True(t, payload.Data.UserCompleted)
	})
}

func TestSignupEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)

	t.Run("duplicate email is 409", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"username": "bob2",
			"email":    "bob@example.com",
			"password": "hunter23",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
