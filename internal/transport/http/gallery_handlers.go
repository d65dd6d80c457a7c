package http

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	gallery "ali_portfolio/internal/services/gallery_service"
	"ali_portfolio/internal/storage"
	"ali_portfolio/internal/transport/http/dto/request"
	"ali_portfolio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// ListGalleries godoc
// @Summary Список галерей
// @Description Папки photos/ с обложкой и отображаемым именем. Ошибки хранилища дают пустой список.
// @Tags galleries
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Gallery}
// @Failure 401 {object} response.ErrorResponse
// @Router /api/admin/galleries [get]
func (r *Routers) ListGalleries(c echo.Context) error {
	return c.JSON(http.StatusOK, response.SuccessResponse(r.GalleryService.ListGalleries(c.Request().Context())))
}

// CreateGallery godoc
// @Summary Создать галерею
// @Description Слаг из имени: нижний регистр, пробелы -> "_". Папка создается плейсхолдером.
// @Tags galleries
// @Accept json
// @Produce json
// @Param request body request.CreateGalleryRequest true "Имя галереи"
// @Success 201 {object} response.Response{data=models.Gallery}
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/admin/galleries [post]
func (r *Routers) CreateGallery(c echo.Context) error {
	const op = "http.routers.CreateGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.CreateGalleryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Invalid request format"))
	}

	g, err := r.GalleryService.CreateGallery(c.Request().Context(), req.Name)
	if err != nil {
		if errors.Is(err, gallery.ErrEmptyName) {
			return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Gallery name is required"))
		}
		log.Error("failed to create gallery", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to create gallery"))
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(g))
}

// UploadPhotos godoc
// @Summary Загрузить фото в галерею
// @Description Принимает один или несколько файлов в поле files (или file).
// @Tags galleries
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Слаг галереи"
// @Param files formData file true "Изображения"
// @Success 201 {object} response.Response{data=[]models.Photo}
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/admin/galleries/{id}/photos [post]
func (r *Routers) UploadPhotos(c echo.Context) error {
	const op = "http.routers.UploadPhotos"

	galleryID := c.Param("id")
	log := r.log.With(
		slog.String("op", op),
		slog.String("gallery_id", galleryID),
	)

	form, err := c.MultipartForm()
	if err != nil {
		log.Warn("bad multipart form", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Multipart form expected"))
	}

	files := append(form.File["files"], form.File["file"]...)
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("File is required"))
	}

	photos := make([]models.Photo, 0, len(files))
	for _, fh := range files {
		photo, err := r.uploadPhoto(c, galleryID, fh)
		if err != nil {
			if errors.Is(err, gallery.ErrInvalidGallery) {
				return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Invalid gallery id"))
			}
			log.Error("failed to upload photo", slog.String("filename", fh.Filename), sl.Err(err))
			return c.JSON(http.StatusInternalServerError, response.Internal("Failed to upload photos"))
		}
		photos = append(photos, photo)
	}

	log.Info("photos uploaded", slog.Int("count", len(photos)))

	return c.JSON(http.StatusCreated, response.SuccessResponse(photos))
}

func (r *Routers) uploadPhoto(c echo.Context, galleryID string, fh *multipart.FileHeader) (models.Photo, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Photo{}, err
	}
	defer f.Close()

	return r.GalleryService.UploadPhoto(
		c.Request().Context(),
		galleryID,
		fh.Filename,
		f,
		fh.Size,
		fh.Header.Get("Content-Type"),
	)
}

// ListPhotos godoc
// @Summary Фото галереи
// @Tags galleries
// @Produce json
// @Param id path string true "Слаг галереи"
// @Success 200 {object} response.Response{data=[]models.Photo}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/admin/galleries/{id}/photos [get]
func (r *Routers) ListPhotos(c echo.Context) error {
	photos, err := r.GalleryService.ListPhotos(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gallery.ErrInvalidGallery) {
			return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Invalid gallery id"))
		}
		r.log.Error("failed to list photos", slog.String("gallery_id", c.Param("id")), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to load photos"))
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(photos))
}

// RenameGallery godoc
// @Summary Переименовать галерею
// @Description Переносит файлы в новую папку. Прерванное переименование можно продолжить или откатить.
// @Tags galleries
// @Accept json
// @Produce json
// @Param id path string true "Текущий слаг"
// @Param request body request.RenameGalleryRequest true "Новое имя"
// @Success 200 {object} response.Response{data=models.RenameIntent}
// @Success 202 {object} response.Response{data=models.RenameIntent} "Файлы скопированы, оригиналы удалены не полностью"
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/admin/galleries/{id} [put]
func (r *Routers) RenameGallery(c echo.Context) error {
	const op = "http.routers.RenameGallery"

	log := r.log.With(
		slog.String("op", op),
		slog.String("gallery_id", c.Param("id")),
	)

	var req request.RenameGalleryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Invalid request format"))
	}

	intent, err := r.GalleryService.RenameGallery(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return r.renameError(c, log, intent, err, "Failed to rename gallery")
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(intent))
}

// RenameGalleryDisplayName godoc
// @Summary Сменить отображаемое имя галереи
// @Description Папка и файлы не меняются, пишется только запись оверлея.
// @Tags galleries
// @Accept json
// @Produce json
// @Param id path string true "Слаг галереи"
// @Param request body request.RenameGalleryRequest true "Новое имя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/admin/galleries/{id}/display-name [put]
func (r *Routers) RenameGalleryDisplayName(c echo.Context) error {
	var req request.RenameGalleryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Invalid request format"))
	}

	err := r.GalleryService.RenameGalleryDisplayName(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		if errors.Is(err, gallery.ErrEmptyDisplayName) || errors.Is(err, gallery.ErrInvalidGallery) {
			return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat(err.Error()))
		}
		r.log.Error("failed to rename gallery display name", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to rename gallery"))
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "Gallery renamed"})
}

// ListRenames godoc
// @Summary Незавершенные переименования
// @Tags galleries
// @Produce json
// @Success 200 {object} response.Response{data=[]models.RenameIntent}
// @Router /api/admin/galleries/renames [get]
func (r *Routers) ListRenames(c echo.Context) error {
	intents, err := r.GalleryService.ListPendingRenames(c.Request().Context())
	if err != nil {
		r.log.Error("failed to list renames", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to load renames"))
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(intents))
}

// ResumeRename godoc
// @Summary Продолжить переименование
// @Tags galleries
// @Produce json
// @Param id path string true "ID намерения"
// @Success 200 {object} response.Response{data=models.RenameIntent}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/admin/galleries/renames/{id}/resume [post]
func (r *Routers) ResumeRename(c echo.Context) error {
	log := r.log.With(slog.String("op", "http.routers.ResumeRename"), slog.String("rename_id", c.Param("id")))

	intent, err := r.GalleryService.ResumeRename(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.renameError(c, log, intent, err, "Failed to resume rename")
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(intent))
}

// RollbackRename godoc
// @Summary Откатить переименование
// @Tags galleries
// @Produce json
// @Param id path string true "ID намерения"
// @Success 200 {object} response.Response{data=models.RenameIntent}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/admin/galleries/renames/{id}/rollback [post]
func (r *Routers) RollbackRename(c echo.Context) error {
	log := r.log.With(slog.String("op", "http.routers.RollbackRename"), slog.String("rename_id", c.Param("id")))

	intent, err := r.GalleryService.RollbackRename(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.renameError(c, log, intent, err, "Failed to roll back rename")
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(intent))
}

func (r *Routers) renameError(c echo.Context, log *slog.Logger, intent models.RenameIntent, err error, fallback string) error {
	switch {
	case errors.Is(err, gallery.ErrEmptyName), errors.Is(err, gallery.ErrInvalidGallery):
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat(err.Error()))
	case errors.Is(err, gallery.ErrGalleryNotFound), errors.Is(err, storage.ErrRenameNotFound):
		return c.JSON(http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, gallery.ErrGalleryExists),
		errors.Is(err, gallery.ErrRenameInProgress),
		errors.Is(err, gallery.ErrRenameAlreadyActive),
		errors.Is(err, gallery.ErrInvalidRenameState):
		return c.JSON(http.StatusConflict, response.Conflict(err.Error()))
	case errors.Is(err, gallery.ErrRenameIncomplete):
		log.Warn("rename left resumable", slog.String("rename_id", intent.ID), sl.Err(err))
		return c.JSON(http.StatusAccepted, response.Response{
			Status:  "partial",
			Data:    intent,
			Message: "Files copied but some originals remain; resume the rename to finish",
		})
	}

	log.Error("rename failed", slog.String("rename_id", intent.ID), sl.Err(err))
	return c.JSON(http.StatusInternalServerError, response.Internal(fallback))
}
