package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
)

type TopicRepository interface {
	Create(ctx context.Context, topic *model.Topic) error
	// FindByID returns the topic with its subject populated.
	FindByID(ctx context.Context, id string) (*model.Topic, error)
	ListBySubject(ctx context.Context, subjectID string) ([]model.Topic, error)
	ListBySubjects(ctx context.Context, subjectIDs []string) ([]model.Topic, error)
	Update(ctx context.Context, id string, name, content *string, status *model.TopicStatus) (*model.Topic, error)
	Delete(ctx context.Context, id string) (*model.Topic, error)
	FindIDsByNameLike(ctx context.Context, fragment string) ([]string, error)
	Count(ctx context.Context) (int, error)

	// ReplaceContent atomically updates the topic content and replaces the topic's
	// assignment and problem sets (delete-all-then-insert-all). All-or-nothing: any
	// failure rolls the whole operation back.
	ReplaceContent(ctx context.Context, topicID, content string, assignments []model.CourseAssignment, problems []model.Problem) (*model.Topic, error)
}

type pgTopicRepository struct {
	db *sql.DB
}

func NewPgTopicRepository(db *sql.DB) TopicRepository {
	return &pgTopicRepository{db: db}
}

const topicColumns = `id, name, slug, content, subject_id, status`

func (r *pgTopicRepository) Create(ctx context.Context, t *model.Topic) error {
	query := `INSERT INTO topics (id, name, slug, content, subject_id, status)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.Slug, t.Content, t.SubjectID, t.Status)
	if err != nil {
		return fmt.Errorf("pgTopicRepository.Create: %w", err)
	}
	return nil
}

func (r *pgTopicRepository) FindByID(ctx context.Context, id string) (*model.Topic, error) {
	query := `SELECT t.id, t.name, t.slug, t.content, t.subject_id, t.status,
	                 s.id, s.name, s.category_id
	          FROM topics t
	          JOIN subjects s ON t.subject_id = s.id
	          WHERE t.id = $1`
	t := &model.Topic{}
	s := &model.Subject{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Slug, &t.Content, &t.SubjectID, &t.Status,
		&s.ID, &s.Name, &s.CategoryID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTopicRepository.FindByID: %w", err)
	}
	t.Subject = s
	return t, nil
}

func (r *pgTopicRepository) ListBySubject(ctx context.Context, subjectID string) ([]model.Topic, error) {
	return r.ListBySubjects(ctx, []string{subjectID})
}

func (r *pgTopicRepository) ListBySubjects(ctx context.Context, subjectIDs []string) ([]model.Topic, error) {
	if len(subjectIDs) == 0 {
		return []model.Topic{}, nil
	}
	args := []interface{}{}
	query := `SELECT ` + topicColumns + ` FROM topics WHERE subject_id IN (` + inClause(subjectIDs, &args) + `) ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgTopicRepository.ListBySubjects query: %w", err)
	}
	defer rows.Close()

	topics := []model.Topic{}
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Content, &t.SubjectID, &t.Status); err != nil {
			return nil, fmt.Errorf("pgTopicRepository.ListBySubjects scan: %w", err)
		}
		topics = append(topics, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTopicRepository.ListBySubjects rows.Err: %w", err)
	}
	return topics, nil
}

func (r *pgTopicRepository) Update(ctx context.Context, id string, name, content *string, status *model.TopicStatus) (*model.Topic, error) {
	query := `UPDATE topics SET
	            name = COALESCE($2, name),
	            content = COALESCE($3, content),
	            status = COALESCE($4, status)
	          WHERE id = $1
	          RETURNING ` + topicColumns
	t := &model.Topic{}
	err := r.db.QueryRowContext(ctx, query, id, name, content, status).Scan(
		&t.ID, &t.Name, &t.Slug, &t.Content, &t.SubjectID, &t.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTopicRepository.Update: %w", err)
	}
	return t, nil
}

func (r *pgTopicRepository) Delete(ctx context.Context, id string) (*model.Topic, error) {
	query := `DELETE FROM topics WHERE id = $1 RETURNING ` + topicColumns
	t := &model.Topic{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Content, &t.SubjectID, &t.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTopicRepository.Delete: %w", err)
	}
	return t, nil
}

func (r *pgTopicRepository) FindIDsByNameLike(ctx context.Context, fragment string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM topics WHERE name ILIKE $1`, "%"+fragment+"%")
	if err != nil {
		return nil, fmt.Errorf("pgTopicRepository.FindIDsByNameLike query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgTopicRepository.FindIDsByNameLike scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTopicRepository.FindIDsByNameLike rows.Err: %w", err)
	}
	return ids, nil
}

func (r *pgTopicRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM topics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgTopicRepository.Count: %w", err)
	}
	return n, nil
}

func (r *pgTopicRepository) ReplaceContent(ctx context.Context, topicID, content string, assignments []model.CourseAssignment, problems []model.Problem) (*model.Topic, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pgTopicRepository.ReplaceContent begin: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	t := &model.Topic{}
	err = tx.QueryRowContext(ctx,
		`UPDATE topics SET content = $2 WHERE id = $1 RETURNING `+topicColumns,
		topicID, content,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Content, &t.SubjectID, &t.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTopicRepository.ReplaceContent update topic: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM course_assignments WHERE topic_id = $1`, topicID); err != nil {
		return nil, fmt.Errorf("pgTopicRepository.ReplaceContent delete assignments: %w", err)
	}
	for _, a := range assignments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO course_assignments (id, user_id, subject_id, topic_id, assigned_at) VALUES ($1, $2, $3, $4, $5)`,
			a.ID, a.UserID, a.SubjectID, topicID, a.AssignedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("pgTopicRepository.ReplaceContent insert assignment %s: %w", a.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM problems WHERE topic_id = $1`, topicID); err != nil {
		return nil, fmt.Errorf("pgTopicRepository.ReplaceContent delete problems: %w", err)
	}
	for _, p := range problems {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO problems (id, title, description, topic_id, difficulty, link, leetcode_link, yt_link)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Title, p.Description, topicID, p.Difficulty, p.Link, p.LeetcodeLink, p.YtLink,
		)
		if err != nil {
			return nil, fmt.Errorf("pgTopicRepository.ReplaceContent insert problem %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("pgTopicRepository.ReplaceContent commit: %w", err)
	}
	return t, nil
}
