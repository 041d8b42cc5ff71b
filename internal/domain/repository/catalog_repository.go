package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, id, name string) (*model.Category, error)
	Delete(ctx context.Context, id string) (*model.Category, error)
}

type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	FindByID(ctx context.Context, id string) (*model.Subject, error)
	// List returns subjects (category populated), optionally filtered by category id.
	List(ctx context.Context, categoryID string) ([]model.Subject, error)
	Update(ctx context.Context, id string, name, categoryID *string) (*model.Subject, error)
	Delete(ctx context.Context, id string) (*model.Subject, error)
	FindIDsByNameLike(ctx context.Context, fragment string) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// inClause builds "$n,$n+1,..." placeholders for the given values, appending them to args.
func inClause(values []string, args *[]interface{}) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	return strings.Join(placeholders, ",")
}

type pgCategoryRepository struct {
	db *sql.DB
}

func NewPgCategoryRepository(db *sql.DB) CategoryRepository {
	return &pgCategoryRepository{db: db}
}

func (r *pgCategoryRepository) Create(ctx context.Context, c *model.Category) error {
	query := `INSERT INTO categories (id, name) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Name); err != nil {
		return fmt.Errorf("pgCategoryRepository.Create: %w", err)
	}
	return nil
}

func (r *pgCategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("pgCategoryRepository.List query: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("pgCategoryRepository.List scan: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgCategoryRepository.List rows.Err: %w", err)
	}
	return categories, nil
}

func (r *pgCategoryRepository) Update(ctx context.Context, id, name string) (*model.Category, error) {
	query := `UPDATE categories SET name = $2 WHERE id = $1 RETURNING id, name`
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx, query, id, name).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCategoryRepository.Update: %w", err)
	}
	return c, nil
}

func (r *pgCategoryRepository) Delete(ctx context.Context, id string) (*model.Category, error) {
	query := `DELETE FROM categories WHERE id = $1 RETURNING id, name`
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCategoryRepository.Delete: %w", err)
	}
	return c, nil
}

type pgSubjectRepository struct {
	db *sql.DB
}

func NewPgSubjectRepository(db *sql.DB) SubjectRepository {
	return &pgSubjectRepository{db: db}
}

func (r *pgSubjectRepository) Create(ctx context.Context, s *model.Subject) error {
	query := `INSERT INTO subjects (id, name, category_id) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.CategoryID); err != nil {
		return fmt.Errorf("pgSubjectRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSubjectRepository) FindByID(ctx context.Context, id string) (*model.Subject, error) {
	query := `SELECT id, name, category_id FROM subjects WHERE id = $1`
	s := &model.Subject{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubjectRepository.FindByID: %w", err)
	}
	return s, nil
}

func (r *pgSubjectRepository) List(ctx context.Context, categoryID string) ([]model.Subject, error) {
	query := `SELECT s.id, s.name, s.category_id, c.name
	          FROM subjects s
	          JOIN categories c ON s.category_id = c.id`
	args := []interface{}{}
	if categoryID != "" {
		query += ` WHERE s.category_id = $1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY s.name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubjectRepository.List query: %w", err)
	}
	defer rows.Close()

	subjects := []model.Subject{}
	for rows.Next() {
		var s model.Subject
		var catName string
		if err := rows.Scan(&s.ID, &s.Name, &s.CategoryID, &catName); err != nil {
			return nil, fmt.Errorf("pgSubjectRepository.List scan: %w", err)
		}
		s.Category = &model.Category{ID: s.CategoryID, Name: catName}
		subjects = append(subjects, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubjectRepository.List rows.Err: %w", err)
	}
	return subjects, nil
}

func (r *pgSubjectRepository) Update(ctx context.Context, id string, name, categoryID *string) (*model.Subject, error) {
	query := `UPDATE subjects SET
	            name = COALESCE($2, name),
	            category_id = COALESCE($3, category_id)
	          WHERE id = $1
	          RETURNING id, name, category_id`
	s := &model.Subject{}
	err := r.db.QueryRowContext(ctx, query, id, name, categoryID).Scan(&s.ID, &s.Name, &s.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubjectRepository.Update: %w", err)
	}
	return s, nil
}

func (r *pgSubjectRepository) Delete(ctx context.Context, id string) (*model.Subject, error) {
	query := `DELETE FROM subjects WHERE id = $1 RETURNING id, name, category_id`
	s := &model.Subject{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubjectRepository.Delete: %w", err)
	}
	return s, nil
}

func (r *pgSubjectRepository) FindIDsByNameLike(ctx context.Context, fragment string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM subjects WHERE name ILIKE $1`, "%"+fragment+"%")
	if err != nil {
		return nil, fmt.Errorf("pgSubjectRepository.FindIDsByNameLike query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgSubjectRepository.FindIDsByNameLike scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubjectRepository.FindIDsByNameLike rows.Err: %w", err)
	}
	return ids, nil
}

func (r *pgSubjectRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgSubjectRepository.Count: %w", err)
	}
	return n, nil
}
