package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
)

// ProblemUpdate carries the optional fields of a partial problem update.
type ProblemUpdate struct {
	Title        *string
	Description  *string
	TopicID      *string
	Difficulty   *model.ProblemDifficulty
	Link         *string
	LeetcodeLink *string
	YtLink       *string
}

type ProblemRepository interface {
	Create(ctx context.Context, problem *model.Problem) error
	FindByID(ctx context.Context, id string) (*model.Problem, error)
	// FindByIDWithChain populates the topic -> subject -> category chain.
	FindByIDWithChain(ctx context.Context, id string) (*model.Problem, error)
	// List returns problems (topic populated) filtered by topic id and/or topic ids.
	List(ctx context.Context, topicIDs []string) ([]model.Problem, error)
	ListByTopic(ctx context.Context, topicID string) ([]model.Problem, error)
	ListIDsByTopic(ctx context.Context, topicID string) ([]string, error)
	ListIDsByTopics(ctx context.Context, topicIDs []string) ([]string, error)
	Update(ctx context.Context, id string, upd ProblemUpdate) (*model.Problem, error)
	Delete(ctx context.Context, id string) (*model.Problem, error)
	Count(ctx context.Context) (int, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `id, title, description, topic_id, difficulty, link, leetcode_link, yt_link`

func scanProblem(row interface{ Scan(...interface{}) error }, p *model.Problem) error {
	return row.Scan(&p.ID, &p.Title, &p.Description, &p.TopicID, &p.Difficulty, &p.Link, &p.LeetcodeLink, &p.YtLink)
}

func (r *pgProblemRepository) Create(ctx context.Context, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, description, topic_id, difficulty, link, leetcode_link, yt_link)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Title, p.Description, p.TopicID, p.Difficulty, p.Link, p.LeetcodeLink, p.YtLink)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Create: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE id = $1`
	p := &model.Problem{}
	if err := scanProblem(r.db.QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) FindByIDWithChain(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT p.id, p.title, p.description, p.topic_id, p.difficulty, p.link, p.leetcode_link, p.yt_link,
	                 t.id, t.name, t.subject_id,
	                 s.id, s.name, s.category_id,
	                 c.id, c.name
	          FROM problems p
	          JOIN topics t ON p.topic_id = t.id
	          JOIN subjects s ON t.subject_id = s.id
	          JOIN categories c ON s.category_id = c.id
	          WHERE p.id = $1`
	p := &model.Problem{}
	t := &model.Topic{}
	s := &model.Subject{}
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.TopicID, &p.Difficulty, &p.Link, &p.LeetcodeLink, &p.YtLink,
		&t.ID, &t.Name, &t.SubjectID,
		&s.ID, &s.Name, &s.CategoryID,
		&c.ID, &c.Name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByIDWithChain: %w", err)
	}
	s.Category = c
	t.Subject = s
	p.Topic = t
	return p, nil
}

func (r *pgProblemRepository) List(ctx context.Context, topicIDs []string) ([]model.Problem, error) {
	query := `SELECT p.id, p.title, p.description, p.topic_id, p.difficulty, p.link, p.leetcode_link, p.yt_link,
	                 t.name, t.subject_id
	          FROM problems p
	          JOIN topics t ON p.topic_id = t.id`
	args := []interface{}{}
	if topicIDs != nil {
		if len(topicIDs) == 0 {
			return []model.Problem{}, nil
		}
		query += ` WHERE p.topic_id IN (` + inClause(topicIDs, &args) + `)`
	}
	query += ` ORDER BY p.title ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.List query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		var topicName, topicSubjectID string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.TopicID, &p.Difficulty, &p.Link, &p.LeetcodeLink, &p.YtLink,
			&topicName, &topicSubjectID); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.List scan: %w", err)
		}
		p.Topic = &model.Topic{ID: p.TopicID, Name: topicName, SubjectID: topicSubjectID}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.List rows.Err: %w", err)
	}
	return problems, nil
}

func (r *pgProblemRepository) ListByTopic(ctx context.Context, topicID string) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE topic_id = $1 ORDER BY title ASC`
	rows, err := r.db.QueryContext(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListByTopic query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := scanProblem(rows, &p); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListByTopic scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListByTopic rows.Err: %w", err)
	}
	return problems, nil
}

func (r *pgProblemRepository) ListIDsByTopic(ctx context.Context, topicID string) ([]string, error) {
	return r.ListIDsByTopics(ctx, []string{topicID})
}

func (r *pgProblemRepository) ListIDsByTopics(ctx context.Context, topicIDs []string) ([]string, error) {
	if len(topicIDs) == 0 {
		return []string{}, nil
	}
	args := []interface{}{}
	query := `SELECT id FROM problems WHERE topic_id IN (` + inClause(topicIDs, &args) + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListIDsByTopics query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListIDsByTopics scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListIDsByTopics rows.Err: %w", err)
	}
	return ids, nil
}

func (r *pgProblemRepository) Update(ctx context.Context, id string, upd ProblemUpdate) (*model.Problem, error) {
	query := `UPDATE problems SET
	            title = COALESCE($2, title),
	            description = COALESCE($3, description),
	            topic_id = COALESCE($4, topic_id),
	            difficulty = COALESCE($5, difficulty),
	            link = COALESCE($6, link),
	            leetcode_link = COALESCE($7, leetcode_link),
	            yt_link = COALESCE($8, yt_link)
	          WHERE id = $1
	          RETURNING ` + problemColumns
	p := &model.Problem{}
	err := scanProblem(r.db.QueryRowContext(ctx, query, id,
		upd.Title, upd.Description, upd.TopicID, upd.Difficulty, upd.Link, upd.LeetcodeLink, upd.YtLink), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.Update: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) Delete(ctx context.Context, id string) (*model.Problem, error) {
	query := `DELETE FROM problems WHERE id = $1 RETURNING ` + problemColumns
	p := &model.Problem{}
	if err := scanProblem(r.db.QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.Delete: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgProblemRepository.Count: %w", err)
	}
	return n, nil
}
