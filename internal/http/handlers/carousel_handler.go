package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/atelier-backend/internal/http/handlers/common"
	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/pkg/apperror"
	"github.com/ignatzorin/atelier-backend/internal/repository"
	"github.com/ignatzorin/atelier-backend/internal/storage"
)

// Разрешённые типы изображений карусели
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Разрешённые расширения файлов
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// CarouselHandler управляет слайдами карусели на витрине.
type CarouselHandler struct {
	repo    *repository.CarouselRepository
	storage *storage.ImageStorage
}

// NewCarouselHandler создаёт новый хэндлер.
func NewCarouselHandler(repo *repository.CarouselRepository, storage *storage.ImageStorage) *CarouselHandler {
	return &CarouselHandler{repo: repo, storage: storage}
}

// List обрабатывает GET /api/carousel — активные слайды для витрины.
func (h *CarouselHandler) List(c *gin.Context) {
	slides, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "не удалось получить слайды")
		return
	}
	common.RespondSuccess(c, http.StatusOK, "", slides)
}

// Upload обрабатывает POST /api/admin/carousel. Принимает multipart-форму
// с полями file, title, sort_order, is_active.
func (h *CarouselHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}
	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		common.RespondBadRequest(c, fmt.Sprintf("неподдерживаемый формат файла. Разрешены: %s", strings.Join(extensionList(), ", ")))
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "не удалось открыть файл")
		return
	}
	defer src.Close()

	// Проверяем магические байты, а не только расширение
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		common.RespondBadRequest(c, "не удалось определить тип файла. Разрешены только изображения")
		return
	}
	if !allowedMimeTypes[kind.MIME.Value] {
		common.RespondBadRequest(c, fmt.Sprintf("неподдерживаемый тип файла (%s)", kind.MIME.Value))
		return
	}

	expectedExt := "." + kind.Extension
	// .jpg и .jpeg — одно и то же
	if ext != expectedExt && !(ext == ".jpg" && expectedExt == ".jpeg") && !(ext == ".jpeg" && expectedExt == ".jpg") {
		common.RespondBadRequest(c, fmt.Sprintf("расширение файла (%s) не соответствует реальному типу (%s)", ext, expectedExt))
		return
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			common.RespondError(c, http.StatusInternalServerError, "не удалось сбросить позицию файла")
			return
		}
	}

	relativePath, _, err := h.storage.Save(c.Request.Context(), file.Filename, src)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, "не удалось сохранить файл")
		return
	}

	sortOrder := 0
	if v := c.PostForm("sort_order"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			sortOrder = parsed
		}
	}
	isActive := true
	if v := c.PostForm("is_active"); v != "" {
		isActive = v == "true" || v == "1"
	}

	slide := &models.CarouselSlide{
		Title:     c.PostForm("title"),
		ImagePath: filepath.ToSlash(relativePath),
		SortOrder: sortOrder,
		IsActive:  isActive,
	}
	if err := h.repo.Create(c.Request.Context(), slide); err != nil {
		_ = h.storage.Delete(c.Request.Context(), relativePath)
		common.RespondError(c, http.StatusInternalServerError, "не удалось сохранить слайд")
		return
	}

	common.RespondSuccess(c, http.StatusCreated, "слайд добавлен", slide)
}

// Delete обрабатывает DELETE /api/admin/carousel/:id.
// Вместе с записью удаляется и файл изображения.
func (h *CarouselHandler) Delete(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	slide, err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSlideNotFound) {
			common.RespondAppError(c, apperror.ErrSlideNotFound)
			return
		}
		common.RespondError(c, http.StatusInternalServerError, "не удалось удалить слайд")
		return
	}

	if err := h.storage.Delete(c.Request.Context(), slide.ImagePath); err != nil {
		common.RespondError(c, http.StatusInternalServerError, "слайд удалён, но файл изображения удалить не удалось")
		return
	}

	common.RespondSuccess(c, http.StatusOK, "слайд удалён", nil)
}

// extensionList возвращает список разрешённых расширений.
func extensionList() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	return exts
}
