package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/atelier-backend/internal/models"
)

var ErrSlideNotFound = errors.New("carousel slide not found")

// CarouselRepository отвечает за слайды карусели на витрине.
type CarouselRepository struct {
	db *sqlx.DB
}

// NewCarouselRepository создаёт новый экземпляр.
func NewCarouselRepository(db *sqlx.DB) *CarouselRepository {
	return &CarouselRepository{db: db}
}

// Create сохраняет новый слайд.
func (r *CarouselRepository) Create(ctx context.Context, s *models.CarouselSlide) error {
	query := `
		INSERT INTO carousel_slides (title, image_path, sort_order, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, s.Title, s.ImagePath, s.SortOrder, s.IsActive).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("carousel repository: create %w", err)
	}
	return nil
}

// ListActive возвращает активные слайды в порядке показа.
func (r *CarouselRepository) ListActive(ctx context.Context) ([]models.CarouselSlide, error) {
	slides := []models.CarouselSlide{}
	query := `
		SELECT id, title, image_path, sort_order, is_active, created_at
		FROM carousel_slides
		WHERE is_active = true
		ORDER BY sort_order ASC, id ASC
	`
	if err := r.db.SelectContext(ctx, &slides, query); err != nil {
		return nil, fmt.Errorf("carousel repository: list active %w", err)
	}
	return slides, nil
}

// Delete удаляет слайд и возвращает удалённую запись, чтобы вызывающий
// мог убрать файл изображения из хранилища.
func (r *CarouselRepository) Delete(ctx context.Context, id int64) (*models.CarouselSlide, error) {
	var s models.CarouselSlide
	query := `
		DELETE FROM carousel_slides
		WHERE id = $1
		RETURNING id, title, image_path, sort_order, is_active, created_at
	`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlideNotFound
		}
		return nil, fmt.Errorf("carousel repository: delete %w", err)
	}
	return &s, nil
}
