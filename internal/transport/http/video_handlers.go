package http

import (
	"errors"
	"log/slog"
	"net/http"

	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/storage"
	video "ali_portfolio/internal/services/video_service"
	"ali_portfolio/internal/transport/http/dto/request"
	"ali_portfolio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// ListVideos godoc
// @Summary Список видео
// @Tags videos
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Video}
// @Failure 500 {object} response.ErrorResponse
// @Router /api/admin/videos [get]
func (r *Routers) ListVideos(c echo.Context) error {
	videos, err := r.VideoService.ListVideosAdmin(c.Request().Context())
	if err != nil {
		r.log.Error("failed to list videos", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to load videos"))
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(videos))
}

// UploadVideo godoc
// @Summary Загрузить видео
// @Description Поддерживаются mp4, webm, mov, avi.
// @Tags videos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Видео"
// @Param title formData string false "Заголовок"
// @Success 201 {object} response.Response{data=models.Video}
// @Failure 400 {object} response.ErrorResponse
// @Failure 415 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/admin/videos [post]
func (r *Routers) UploadVideo(c echo.Context) error {
	const op = "http.routers.UploadVideo"

	log := r.log.With(
		slog.String("op", op),
	)

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("File is required"))
	}

	f, err := fh.Open()
	if err != nil {
		log.Error("failed to open upload", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Unreadable file"))
	}
	defer f.Close()

	v, err := r.VideoService.UploadVideo(
		c.Request().Context(),
		fh.Filename,
		f,
		fh.Size,
		fh.Header.Get("Content-Type"),
		c.FormValue("title"),
	)
	if err != nil {
		if errors.Is(err, video.ErrUnsupportedVideo) {
			return c.JSON(http.StatusUnsupportedMediaType, response.ErrorResponseWithDetails("unsupported_media", "Only mp4, webm, mov and avi videos are accepted"))
		}
		log.Error("failed to upload video", slog.String("filename", fh.Filename), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to upload video"))
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(v))
}

// RenameVideo godoc
// @Summary Переименовать видео
// @Description Меняет только отображаемое имя, объект в хранилище не трогается.
// @Tags videos
// @Accept json
// @Produce json
// @Param request body request.RenameVideoRequest true "Путь и новое имя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/admin/videos/name [put]
func (r *Routers) RenameVideo(c echo.Context) error {
	var req request.RenameVideoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Invalid request format"))
	}

	err := r.VideoService.RenameVideo(c.Request().Context(), req.Path, req.Name)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "Video renamed"})
	case errors.Is(err, video.ErrInvalidVideoPath), errors.Is(err, video.ErrEmptyVideoName):
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat(err.Error()))
	case errors.Is(err, video.ErrVideoNotFound), errors.Is(err, storage.ErrObjectNotFound):
		return c.JSON(http.StatusNotFound, response.ErrNotFound)
	}

	r.log.Error("failed to rename video", slog.String("path", req.Path), sl.Err(err))
	return c.JSON(http.StatusInternalServerError, response.Internal("Failed to rename video"))
}

// DeleteVideo godoc
// @Summary Удалить видео
// @Tags videos
// @Produce json
// @Param path query string true "Ключ объекта"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/admin/videos [delete]
func (r *Routers) DeleteVideo(c echo.Context) error {
	videoPath := c.QueryParam("path")
	log := r.log.With(
		slog.String("op", "http.routers.DeleteVideo"),
		slog.String("path", videoPath),
	)

	err := r.VideoService.DeleteVideo(c.Request().Context(), videoPath)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "Video deleted"})
	case errors.Is(err, video.ErrOverlayNotRemoved):
		log.Warn("video deleted with stale display name", sl.Err(err))
		return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "Video deleted, display name cleanup pending"})
	case errors.Is(err, video.ErrInvalidVideoPath):
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat(err.Error()))
	}

	log.Error("failed to delete video", sl.Err(err))
	return c.JSON(http.StatusInternalServerError, response.Internal("Failed to delete video"))
}
