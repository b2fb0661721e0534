package models

import "time"

// CarouselSlide — слайд карусели на витрине магазина.
// Файл изображения лежит в файловом хранилище, в базе хранится
// относительный путь к нему.
type CarouselSlide struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	ImagePath string    `db:"image_path" json:"image_path"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
