package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	booking "ali_portfolio/internal/services/booking_service"
	"ali_portfolio/internal/transport/http/dto"
	"ali_portfolio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// SubmitBooking godoc
// @Summary Заявка на съёмку
// @Description Проверяет форму и отправляет письмо владельцу. Ответ на письмо уходит клиенту.
// @Tags public
// @Accept json
// @Produce json
// @Param request body models.BookingRequest true "Форма"
// @Success 200 {object} response.BookingResponse
// @Failure 400 {object} response.BookingResponse
// @Failure 429 {object} response.BookingResponse
// @Failure 500 {object} response.BookingResponse
// @Router /api/booking [post]
func (r *Routers) SubmitBooking(c echo.Context) error {
	const op = "http.routers.SubmitBooking"

	log := r.log.With(
		slog.String("op", op),
	)

	var req models.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.BookingResponse{
			Success: false,
			Error:   "Invalid form data",
		})
	}

	id, err := r.BookingService.Submit(c.Request().Context(), req)
	if err != nil {
		var verr *booking.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, response.BookingResponse{
				Success: false,
				Error:   "Invalid form data",
				Details: verr.Issues,
			})
		case errors.Is(err, booking.ErrSendFailed):
			log.Error("booking email failed", sl.Err(err))
			return c.JSON(http.StatusInternalServerError, response.BookingResponse{
				Success: false,
				Error:   "Failed to send email",
			})
		}

		log.Error("booking failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.BookingResponse{
			Success: false,
			Error:   "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, response.BookingResponse{
		Success: true,
		Message: "Booking request sent successfully",
		EmailID: id,
	})
}

// InboundEmail godoc
// @Summary Входящее письмо от почтового провайдера
// @Tags public
// @Accept json
// @Produce json
// @Success 200 {object} response.WebhookResponse
// @Failure 500 {object} response.WebhookResponse
// @Router /api/emails/inbound [post]
func (r *Routers) InboundEmail(c echo.Context) error {
	const op = "http.routers.InboundEmail"

	log := r.log.With(
		slog.String("op", op),
	)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.WebhookResponse{Error: "Internal server error"})
	}

	email, err := dto.ParseInboundWebhook(body)
	if err != nil {
		log.Warn("rejected webhook payload", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.WebhookResponse{Error: "Internal server error"})
	}

	msg, err := r.InboxService.Receive(c.Request().Context(), email, models.SourceWebhook)
	if err != nil {
		log.Error("failed to process inbound email", slog.String("message_id", msg.ID), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.WebhookResponse{Error: "Internal server error"})
	}

	return c.JSON(http.StatusOK, response.WebhookResponse{Success: true})
}

// InstagramFeed godoc
// @Summary Лента Instagram
// @Description Если адрес ленты не настроен, отдаются заглушки с isMock=true.
// @Tags public
// @Produce json
// @Success 200 {object} models.InstagramFeed
// @Failure 500 {object} models.InstagramFeed
// @Router /api/instagram [get]
func (r *Routers) InstagramFeed(c echo.Context) error {
	feed, err := r.InstagramService.Feed(c.Request().Context())
	if err != nil {
		r.log.Error("failed to fetch instagram feed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, models.InstagramFeed{
			Error:  "Failed to fetch Instagram feed",
			IsMock: true,
			Posts:  []models.InstagramPost{},
		})
	}

	return c.JSON(http.StatusOK, feed)
}

// PortfolioImages godoc
// @Summary Фото для витрины
// @Tags public
// @Produce json
// @Success 200 {array} models.PortfolioImage
// @Failure 500 {object} response.ErrorResponse
// @Router /api/portfolio/images [get]
func (r *Routers) PortfolioImages(c echo.Context) error {
	images, err := r.GalleryService.ListPortfolioImages(c.Request().Context())
	if err != nil {
		r.log.Error("failed to list portfolio images", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to load images"))
	}
	if images == nil {
		images = []models.PortfolioImage{}
	}

	return c.JSON(http.StatusOK, images)
}

// PortfolioVideos godoc
// @Summary Видео для витрины
// @Tags public
// @Produce json
// @Success 200 {array} models.PortfolioVideo
// @Failure 500 {object} response.ErrorResponse
// @Router /api/portfolio/videos [get]
func (r *Routers) PortfolioVideos(c echo.Context) error {
	videos, err := r.VideoService.ListPortfolioVideos(c.Request().Context())
	if err != nil {
		r.log.Error("failed to list portfolio videos", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.Internal("Failed to load videos"))
	}
	if videos == nil {
		videos = []models.PortfolioVideo{}
	}

	return c.JSON(http.StatusOK, videos)
}

// PublicGalleries godoc
// @Summary Галереи для витрины
// @Tags public
// @Produce json
// @Success 200 {array} models.Gallery
// @Router /api/galleries [get]
func (r *Routers) PublicGalleries(c echo.Context) error {
	galleries := r.GalleryService.ListGalleries(c.Request().Context())
	if galleries == nil {
		galleries = []models.Gallery{}
	}

	return c.JSON(http.StatusOK, galleries)
}
