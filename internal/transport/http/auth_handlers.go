package http

import (
	"errors"
	"log/slog"
	"net/http"

	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/services/auth"
	"ali_portfolio/internal/transport/http/dto/request"
	"ali_portfolio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// Login godoc
// @Summary Вход администратора
// @Description Сверяет email и пароль, ставит HTTP-only cookie admin_session на 24 часа.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Учетные данные"
// @Success 200 {object} response.AuthResponse "Успешный вход"
// @Failure 400 {object} response.AuthResponse "Неверный формат запроса"
// @Failure 401 {object} response.AuthResponse "Неверные учетные данные"
// @Failure 429 {object} response.AuthResponse "Слишком много попыток"
// @Router /api/auth/login [post]
func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.LoginRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.AuthResponse{Message: "Invalid request"})
	}

	token, sess, err := r.AuthService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Warn("login rejected", slog.String("remote_ip", c.RealIP()))
			return c.JSON(http.StatusUnauthorized, response.AuthResponse{Message: "Invalid credentials"})
		}

		log.Error("login failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.AuthResponse{Message: "Server error"})
	}

	if err := r.saveSession(c, token, int(r.cookie.MaxAge.Seconds())); err != nil {
		log.Error("failed to save session cookie", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.AuthResponse{Message: "Server error"})
	}

	log.Info("admin logged in", slog.String("session_id", sess.ID))

	return c.JSON(http.StatusOK, response.AuthResponse{
		Success: true,
		Message: "Login successful",
	})
}

// CheckSession godoc
// @Summary Проверка сессии
// @Description Проверяет подпись, срок действия и отзыв токена из cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} response.AuthResponse "Сессия действительна"
// @Failure 401 {object} response.AuthResponse "Нет действующей сессии"
// @Router /api/auth/check [get]
func (r *Routers) CheckSession(c echo.Context) error {
	authenticated := false

	token := SessionToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, response.AuthResponse{Authenticated: &authenticated})
	}

	sess, err := r.AuthService.Validate(c.Request().Context(), token)
	if err != nil {
		r.log.Debug("session rejected", slog.String("op", "http.routers.CheckSession"), sl.Err(err))
		return c.JSON(http.StatusUnauthorized, response.AuthResponse{Authenticated: &authenticated})
	}

	authenticated = true
	return c.JSON(http.StatusOK, response.AuthResponse{
		Success:       true,
		Authenticated: &authenticated,
		Email:         sess.Email,
		ExpiresAt:     sess.ExpiresAt.UnixMilli(),
	})
}

// Logout godoc
// @Summary Выход администратора
// @Description Отзывает токен до истечения срока и очищает cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} response.AuthResponse
// @Router /api/auth/logout [post]
func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	log := r.log.With(
		slog.String("op", op),
	)

	if token := SessionToken(c); token != "" {
		if err := r.AuthService.Logout(c.Request().Context(), token); err != nil {
			log.Warn("failed to revoke session", sl.Err(err))
		}
	}

	if err := r.saveSession(c, "", -1); err != nil {
		log.Error("failed to clear session cookie", sl.Err(err))
	}

	return c.JSON(http.StatusOK, response.AuthResponse{Success: true})
}

// AdminOnly пропускает запрос только с действующей сессией
func (r *Routers) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := SessionToken(c)
		if token == "" {
			return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
		}

		sess, err := r.AuthService.Validate(c.Request().Context(), token)
		if err != nil {
			r.log.Debug("admin request rejected", slog.String("path", c.Path()), sl.Err(err))
			return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
		}

		c.Set("admin_email", sess.Email)
		return next(c)
	}
}
