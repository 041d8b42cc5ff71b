package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"courses_sheet_api/internal/domain/model"

	"github.com/google/uuid"
)

// SubmissionFilter narrows the admin submission listing. Nil slices mean
// "no filter on this dimension"; empty non-nil slices match nothing.
type SubmissionFilter struct {
	UserIDs     []string
	ExerciseIDs []string
	Limit       int
	Offset      int
}

type ExerciseProgressRepository interface {
	// Upsert writes the (user, exercise) record. A nil answer preserves any
	// previously stored answer; status and updated_at are always set.
	Upsert(ctx context.Context, userID, exerciseID string, answer *string, status model.ProgressStatus) (*model.UserExerciseProgress, error)
	CountCompleted(ctx context.Context, userID string, exerciseIDs []string) (int, error)
	// MarkAllCompleted bulk-upserts every given exercise to completed for the user,
	// preserving stored answers.
	MarkAllCompleted(ctx context.Context, userID string, exerciseIDs []string) error
	// DemoteCompleted sets completed records back to attempted; other statuses are untouched.
	DemoteCompleted(ctx context.Context, userID string, exerciseIDs []string) error
	// ListByUser returns the user's records with the exercise -> topic -> subject -> category chain.
	ListByUser(ctx context.Context, userID string) ([]model.UserExerciseProgress, error)
	ListByUserAndExercises(ctx context.Context, userID string, exerciseIDs []string) ([]model.UserExerciseProgress, error)
	// ListSubmissions returns a page sorted by updated_at descending plus the total count,
	// with user identity and the full chain populated.
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.UserExerciseProgress, int, error)
}

type pgExerciseProgressRepository struct {
	db *sql.DB
}

func NewPgExerciseProgressRepository(db *sql.DB) ExerciseProgressRepository {
	return &pgExerciseProgressRepository{db: db}
}

func (r *pgExerciseProgressRepository) Upsert(ctx context.Context, userID, exerciseID string, answer *string, status model.ProgressStatus) (*model.UserExerciseProgress, error) {
	query := `INSERT INTO user_exercise_progress (id, user_id, exercise_id, answer, status, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (user_id, exercise_id) DO UPDATE SET
	            answer = COALESCE(EXCLUDED.answer, user_exercise_progress.answer),
	            status = EXCLUDED.status,
	            updated_at = EXCLUDED.updated_at
	          RETURNING id, user_id, exercise_id, answer, status, updated_at`
	p := &model.UserExerciseProgress{}
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), userID, exerciseID, answer, status, time.Now().UTC()).Scan(
		&p.ID, &p.UserID, &p.ExerciseID, &p.Answer, &p.Status, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("pgExerciseProgressRepository.Upsert: %w", err)
	}
	return p, nil
}

func (r *pgExerciseProgressRepository) CountCompleted(ctx context.Context, userID string, exerciseIDs []string) (int, error) {
	if len(exerciseIDs) == 0 {
		return 0, nil
	}
	args := []interface{}{userID}
	query := `SELECT COUNT(*) FROM user_exercise_progress
	          WHERE user_id = $1 AND status = 'completed' AND exercise_id IN (` + inClause(exerciseIDs, &args) + `)`
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgExerciseProgressRepository.CountCompleted: %w", err)
	}
	return n, nil
}

func (r *pgExerciseProgressRepository) MarkAllCompleted(ctx context.Context, userID string, exerciseIDs []string) error {
	if len(exerciseIDs) == 0 {
		return nil
	}
	query := `INSERT INTO user_exercise_progress (id, user_id, exercise_id, status, updated_at)
	          VALUES ($1, $2, $3, 'completed', $4)
	          ON CONFLICT (user_id, exercise_id) DO UPDATE SET
	            status = 'completed',
	            updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for _, eid := range exerciseIDs {
		if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, eid, now); err != nil {
			return fmt.Errorf("pgExerciseProgressRepository.MarkAllCompleted exercise %s: %w", eid, err)
		}
	}
	return nil
}

func (r *pgExerciseProgressRepository) DemoteCompleted(ctx context.Context, userID string, exerciseIDs []string) error {
	if len(exerciseIDs) == 0 {
		return nil
	}
	args := []interface{}{userID, time.Now().UTC()}
	query := `UPDATE user_exercise_progress SET status = 'attempted', updated_at = $2
	          WHERE user_id = $1 AND status = 'completed' AND exercise_id IN (` + inClause(exerciseIDs, &args) + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("pgExerciseProgressRepository.DemoteCompleted: %w", err)
	}
	return nil
}

const chainSelect = `SELECT uep.id, uep.user_id, uep.exercise_id, uep.answer, uep.status, uep.updated_at,
       p.title, p.description, p.difficulty, p.link, p.leetcode_link, p.yt_link, p.topic_id,
       t.name, t.subject_id,
       s.name, s.category_id,
       c.name
FROM user_exercise_progress uep
JOIN problems p ON uep.exercise_id = p.id
JOIN topics t ON p.topic_id = t.id
JOIN subjects s ON t.subject_id = s.id
JOIN categories c ON s.category_id = c.id`

func scanChainRow(rows *sql.Rows) (model.UserExerciseProgress, error) {
	var rec model.UserExerciseProgress
	p := &model.Problem{}
	t := &model.Topic{}
	s := &model.Subject{}
	c := &model.Category{}
	err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.ExerciseID, &rec.Answer, &rec.Status, &rec.UpdatedAt,
		&p.Title, &p.Description, &p.Difficulty, &p.Link, &p.LeetcodeLink, &p.YtLink, &p.TopicID,
		&t.Name, &t.SubjectID,
		&s.Name, &s.CategoryID,
		&c.Name,
	)
	if err != nil {
		return rec, err
	}
	p.ID = rec.ExerciseID
	t.ID = p.TopicID
	s.ID = t.SubjectID
	c.ID = s.CategoryID
	s.Category = c
	t.Subject = s
	p.Topic = t
	rec.Exercise = p
	return rec, nil
}

func (r *pgExerciseProgressRepository) ListByUser(ctx context.Context, userID string) ([]model.UserExerciseProgress, error) {
	query := chainSelect + ` WHERE uep.user_id = $1 ORDER BY uep.updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgExerciseProgressRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	records := []model.UserExerciseProgress{}
	for rows.Next() {
		rec, err := scanChainRow(rows)
		if err != nil {
			return nil, fmt.Errorf("pgExerciseProgressRepository.ListByUser scan: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgExerciseProgressRepository.ListByUser rows.Err: %w", err)
	}
	return records, nil
}

func (r *pgExerciseProgressRepository) ListByUserAndExercises(ctx context.Context, userID string, exerciseIDs []string) ([]model.UserExerciseProgress, error) {
	if len(exerciseIDs) == 0 {
		return []model.UserExerciseProgress{}, nil
	}
	args := []interface{}{userID}
	query := `SELECT id, user_id, exercise_id, answer, status, updated_at
	          FROM user_exercise_progress
	          WHERE user_id = $1 AND exercise_id IN (` + inClause(exerciseIDs, &args) + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgExerciseProgressRepository.ListByUserAndExercises query: %w", err)
	}
	defer rows.Close()

	records := []model.UserExerciseProgress{}
	for rows.Next() {
		var rec model.UserExerciseProgress
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ExerciseID, &rec.Answer, &rec.Status, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgExerciseProgressRepository.ListByUserAndExercises scan: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgExerciseProgressRepository.ListByUserAndExercises rows.Err: %w", err)
	}
	return records, nil
}

func (r *pgExerciseProgressRepository) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.UserExerciseProgress, int, error) {
	conditions := ""
	args := []interface{}{}
	if filter.UserIDs != nil {
		if len(filter.UserIDs) == 0 {
			return []model.UserExerciseProgress{}, 0, nil
		}
		conditions += ` AND uep.user_id IN (` + inClause(filter.UserIDs, &args) + `)`
	}
	if filter.ExerciseIDs != nil {
		if len(filter.ExerciseIDs) == 0 {
			return []model.UserExerciseProgress{}, 0, nil
		}
		conditions += ` AND uep.exercise_id IN (` + inClause(filter.ExerciseIDs, &args) + `)`
	}

	countQuery := `SELECT COUNT(*) FROM user_exercise_progress uep WHERE TRUE` + conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgExerciseProgressRepository.ListSubmissions count: %w", err)
	}

	query := `SELECT uep.id, uep.user_id, uep.exercise_id, uep.answer, uep.status, uep.updated_at,
	                 u.username, u.email,
	                 p.title, p.link, p.topic_id,
	                 t.name, t.subject_id,
	                 s.name, s.category_id,
	                 c.name
	          FROM user_exercise_progress uep
	          JOIN users u ON uep.user_id = u.id
	          JOIN problems p ON uep.exercise_id = p.id
	          JOIN topics t ON p.topic_id = t.id
	          JOIN subjects s ON t.subject_id = s.id
	          JOIN categories c ON s.category_id = c.id
	          WHERE TRUE` + conditions +
		fmt.Sprintf(` ORDER BY uep.updated_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgExerciseProgressRepository.ListSubmissions query: %w", err)
	}
	defer rows.Close()

	records := []model.UserExerciseProgress{}
	for rows.Next() {
		var rec model.UserExerciseProgress
		u := &model.User{}
		p := &model.Problem{}
		t := &model.Topic{}
		s := &model.Subject{}
		c := &model.Category{}
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ExerciseID, &rec.Answer, &rec.Status, &rec.UpdatedAt,
			&u.Username, &u.Email,
			&p.Title, &p.Link, &p.TopicID,
			&t.Name, &t.SubjectID,
			&s.Name, &s.CategoryID,
			&c.Name,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("pgExerciseProgressRepository.ListSubmissions scan: %w", err)
		}
		u.ID = rec.UserID
		p.ID = rec.ExerciseID
		t.ID = p.TopicID
		s.ID = t.SubjectID
		c.ID = s.CategoryID
		s.Category = c
		t.Subject = s
		p.Topic = t
		rec.User = u
		rec.Exercise = p
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgExerciseProgressRepository.ListSubmissions rows.Err: %w", err)
	}
	return records, total, nil
}
