package http

import (
	"errors"
	"net/http"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	inbox "ali_portfolio/internal/services/inbox_service"
	"ali_portfolio/internal/storage"
	"ali_portfolio/internal/transport/http/dto/request"
	"ali_portfolio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// ListMessages godoc
// @Summary Входящие письма
// @Description Новые сверху. q ищет по отправителю, теме и тексту.
// @Tags messages
// @Produce json
// @Param q query string false "Поиск"
// @Param status query string false "all, read, unread"
// @Success 200 {object} response.Response{data=[]models.Message}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/admin/messages [get]
func (r *Routers) ListMessages(c echo.Context) error {
	var filter models.MessageFilter
	if err := c.Bind(&filter); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Invalid query"))
	}

	msgs, err := r.InboxService.List(c.Request().Context(), filter)
	if err != nil {
		if errors.Is(err, inbox.ErrInvalidStatus) {
			return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("status must be all, read or unread"))
		}
		r.log.Error("failed to list messages", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to load messages"))
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(msgs))
}

// UpdateMessageStatus godoc
// @Summary Пометить письмо прочитанным или непрочитанным
// @Tags messages
// @Accept json
// @Produce json
// @Param id path string true "ID письма"
// @Param request body request.UpdateMessageStatusRequest true "Статус"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/admin/messages/{id} [patch]
func (r *Routers) UpdateMessageStatus(c echo.Context) error {
	var req request.UpdateMessageStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("Invalid request format"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat("status must be read or unread"))
	}

	err := r.InboxService.SetStatus(c.Request().Context(), c.Param("id"), models.MessageStatus(req.Status))
	if err != nil {
		return r.messageError(c, err, "Failed to update message")
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Data: map[string]string{
		"id":     c.Param("id"),
		"status": req.Status,
	}})
}

// ToggleMessageStatus godoc
// @Summary Переключить статус письма
// @Tags messages
// @Produce json
// @Param id path string true "ID письма"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/admin/messages/{id}/toggle [post]
func (r *Routers) ToggleMessageStatus(c echo.Context) error {
	status, err := r.InboxService.ToggleStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.messageError(c, err, "Failed to update message")
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Data: map[string]string{
		"id":     c.Param("id"),
		"status": string(status),
	}})
}

// DeleteMessage godoc
// @Summary Удалить письмо
// @Tags messages
// @Produce json
// @Param id path string true "ID письма"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/admin/messages/{id} [delete]
func (r *Routers) DeleteMessage(c echo.Context) error {
	if err := r.InboxService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return r.messageError(c, err, "Failed to delete message")
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "Message deleted"})
}

// LiveMessages godoc
// @Summary Живой список писем (websocket)
// @Description После подключения приходит снимок списка, затем новый снимок на каждое изменение.
// @Tags messages
// @Param q query string false "Поиск"
// @Param status query string false "all, read, unread"
// @Success 101
// @Router /api/admin/messages/live [get]
func (r *Routers) LiveMessages(c echo.Context) error {
	return r.Live.Handle(c)
}

func (r *Routers) messageError(c echo.Context, err error, fallback string) error {
	if errors.Is(err, storage.ErrMessageNotFound) {
		return c.JSON(http.StatusNotFound, response.ErrNotFound)
	}
	if errors.Is(err, inbox.ErrInvalidStatus) {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat(err.Error()))
	}

	r.log.Error(fallback, sl.Err(err))
	return c.JSON(http.StatusInternalServerError, response.Internal(fallback))
}
