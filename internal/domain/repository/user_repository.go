package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
	UpdateCurrentTopic(ctx context.Context, userID string, topicID *string) (*model.User, error)

	// Assigned-subject grants (the live assignment source).
	AssignedSubjects(ctx context.Context, userID string) ([]model.Subject, error)
	AddAssignedSubject(ctx context.Context, userID, subjectID string) error
	RemoveAssignedSubject(ctx context.Context, userID, subjectID string) error

	// SearchIDs resolves a case-insensitive username/email fragment to user ids.
	SearchIDs(ctx context.Context, fragment string) ([]string, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, username, email, hashed_password, role, current_topic_id, created_at, updated_at
	          FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "FindByEmail")
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, username, email, hashed_password, role, current_topic_id, created_at, updated_at
	          FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "FindByID")
}

func (r *pgUserRepository) scanOne(row *sql.Row, op string) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&user.CurrentTopicID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT id, username, email, role, current_topic_id, created_at, updated_at
	          FROM users ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.List query: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CurrentTopicID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgUserRepository.List scan: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.List rows.Err: %w", err)
	}
	return users, nil
}

func (r *pgUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgUserRepository.Count: %w", err)
	}
	return n, nil
}

func (r *pgUserRepository) UpdateCurrentTopic(ctx context.Context, userID string, topicID *string) (*model.User, error) {
	query := `UPDATE users SET current_topic_id = $2, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1
	          RETURNING id, username, email, hashed_password, role, current_topic_id, created_at, updated_at`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, topicID), "UpdateCurrentTopic")
}

func (r *pgUserRepository) AssignedSubjects(ctx context.Context, userID string) ([]model.Subject, error) {
	query := `SELECT s.id, s.name, s.category_id, c.id, c.name
	          FROM user_subjects us
	          JOIN subjects s ON us.subject_id = s.id
	          LEFT JOIN categories c ON s.category_id = c.id
	          WHERE us.user_id = $1
	          ORDER BY us.position ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.AssignedSubjects query: %w", err)
	}
	defer rows.Close()

	subjects := []model.Subject{}
	for rows.Next() {
		var s model.Subject
		var catID, catName *string
		if err := rows.Scan(&s.ID, &s.Name, &s.CategoryID, &catID, &catName); err != nil {
			return nil, fmt.Errorf("pgUserRepository.AssignedSubjects scan: %w", err)
		}
		if catID != nil {
			s.Category = &model.Category{ID: *catID, Name: *catName}
		}
		subjects = append(subjects, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.AssignedSubjects rows.Err: %w", err)
	}
	return subjects, nil
}

func (r *pgUserRepository) AddAssignedSubject(ctx context.Context, userID, subjectID string) error {
	query := `INSERT INTO user_subjects (user_id, subject_id) VALUES ($1, $2)
	          ON CONFLICT (user_id, subject_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, subjectID); err != nil {
		return fmt.Errorf("pgUserRepository.AddAssignedSubject: %w", err)
	}
	return nil
}

func (r *pgUserRepository) RemoveAssignedSubject(ctx context.Context, userID, subjectID string) error {
	query := `DELETE FROM user_subjects WHERE user_id = $1 AND subject_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, subjectID); err != nil {
		return fmt.Errorf("pgUserRepository.RemoveAssignedSubject: %w", err)
	}
	return nil
}

func (r *pgUserRepository) SearchIDs(ctx context.Context, fragment string) ([]string, error) {
	query := `SELECT id FROM users WHERE username ILIKE $1 OR email ILIKE $1`
	rows, err := r.db.QueryContext(ctx, query, "%"+fragment+"%")
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.SearchIDs query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgUserRepository.SearchIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.SearchIDs rows.Err: %w", err)
	}
	return ids, nil
}
