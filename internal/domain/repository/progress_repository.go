package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"

	"github.com/google/uuid"
)

// ProgressRepository covers the legacy user_progress records and the legacy
// course_assignments read path.
type ProgressRepository interface {
	// ListAssignmentsByUser returns subject-scoped assignments with subjects populated.
	ListAssignmentsByUser(ctx context.Context, userID string) ([]model.CourseAssignment, error)
	// UpsertLegacy creates or updates the record matching (user, subject[, topic][, problem]).
	UpsertLegacy(ctx context.Context, p *model.UserProgress) (*model.UserProgress, error)
	ListLegacyByUserAndSubjects(ctx context.Context, userID string, subjectIDs []string) ([]model.UserProgress, error)
}

type pgProgressRepository struct {
	db *sql.DB
}

func NewPgProgressRepository(db *sql.DB) ProgressRepository {
	return &pgProgressRepository{db: db}
}

func (r *pgProgressRepository) ListAssignmentsByUser(ctx context.Context, userID string) ([]model.CourseAssignment, error) {
	query := `SELECT ca.id, ca.user_id, ca.subject_id, ca.topic_id, ca.assigned_at,
	                 s.id, s.name, s.category_id
	          FROM course_assignments ca
	          JOIN subjects s ON ca.subject_id = s.id
	          WHERE ca.user_id = $1
	          ORDER BY ca.assigned_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ListAssignmentsByUser query: %w", err)
	}
	defer rows.Close()

	assignments := []model.CourseAssignment{}
	for rows.Next() {
		var a model.CourseAssignment
		s := &model.Subject{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.SubjectID, &a.TopicID, &a.AssignedAt,
			&s.ID, &s.Name, &s.CategoryID); err != nil {
			return nil, fmt.Errorf("pgProgressRepository.ListAssignmentsByUser scan: %w", err)
		}
		a.Subject = s
		assignments = append(assignments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ListAssignmentsByUser rows.Err: %w", err)
	}
	return assignments, nil
}

func (r *pgProgressRepository) UpsertLegacy(ctx context.Context, p *model.UserProgress) (*model.UserProgress, error) {
	// Match user + subject, narrowed by topic/problem when present.
	query := `SELECT id FROM user_progress
	          WHERE user_id = $1 AND subject_id = $2
	            AND ($3::text IS NULL OR topic_id = $3)
	            AND ($4::text IS NULL OR problem_id = $4)
	          LIMIT 1`
	var existingID string
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.SubjectID, p.TopicID, p.ProblemID).Scan(&existingID)
	switch {
	case err == nil:
		update := `UPDATE user_progress SET status = $2, last_visited = $3 WHERE id = $1
		           RETURNING id, user_id, subject_id, topic_id, problem_id, status, last_visited`
		return r.scanOne(r.db.QueryRowContext(ctx, update, existingID, p.Status, p.LastVisited))
	case errors.Is(err, sql.ErrNoRows):
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		insert := `INSERT INTO user_progress (id, user_id, subject_id, topic_id, problem_id, status, last_visited)
		           VALUES ($1, $2, $3, $4, $5, $6, $7)
		           RETURNING id, user_id, subject_id, topic_id, problem_id, status, last_visited`
		return r.scanOne(r.db.QueryRowContext(ctx, insert, p.ID, p.UserID, p.SubjectID, p.TopicID, p.ProblemID, p.Status, p.LastVisited))
	default:
		return nil, fmt.Errorf("pgProgressRepository.UpsertLegacy find: %w", err)
	}
}

func (r *pgProgressRepository) scanOne(row *sql.Row) (*model.UserProgress, error) {
	p := &model.UserProgress{}
	var lastVisited time.Time
	err := row.Scan(&p.ID, &p.UserID, &p.SubjectID, &p.TopicID, &p.ProblemID, &p.Status, &lastVisited)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProgressRepository scan: %w", err)
	}
	p.LastVisited = lastVisited
	return p, nil
}

func (r *pgProgressRepository) ListLegacyByUserAndSubjects(ctx context.Context, userID string, subjectIDs []string) ([]model.UserProgress, error) {
	if len(subjectIDs) == 0 {
		return []model.UserProgress{}, nil
	}
	args := []interface{}{userID}
	query := `SELECT id, user_id, subject_id, topic_id, problem_id, status, last_visited
	          FROM user_progress
	          WHERE user_id = $1 AND subject_id IN (` + inClause(subjectIDs, &args) + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ListLegacyByUserAndSubjects query: %w", err)
	}
	defer rows.Close()

	records := []model.UserProgress{}
	for rows.Next() {
		var p model.UserProgress
		if err := rows.Scan(&p.ID, &p.UserID, &p.SubjectID, &p.TopicID, &p.ProblemID, &p.Status, &p.LastVisited); err != nil {
			return nil, fmt.Errorf("pgProgressRepository.ListLegacyByUserAndSubjects scan: %w", err)
		}
		records = append(records, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ListLegacyByUserAndSubjects rows.Err: %w", err)
	}
	return records, nil
}
