package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petro-planning/internal/entities"
	apperrors "petro-planning/pkg/errors"
)

type ProjectRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*entities.Project, error)
	Create(ctx context.Context, project *entities.Project) error
}

type ProjectRepository struct {
	storage *pgxpool.Pool
}

func NewProjectRepository(storage *pgxpool.Pool) ProjectRepositoryInterface {
	return &ProjectRepository{storage: storage}
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entities.Project, error) {
	var p entities.Project
	err := r.storage.QueryRow(ctx, `SELECT id, name, created_at FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create вставляет проект или обновляет имя существующего с тем же id.
func (r *ProjectRepository) Create(ctx context.Context, p *entities.Project) error {
	_, err := r.storage.Exec(ctx, `
		INSERT INTO projects (id, name, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		p.ID, p.Name, p.CreatedAt,
	)
	return translatePgError(err)
}
