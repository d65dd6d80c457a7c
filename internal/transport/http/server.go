package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ali_portfolio/internal/domain/models"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	_ "ali_portfolio/docs"
)

const (
	SessionName = "admin_session"
	tokenKey    = "token"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, models.Session, error)
	Validate(ctx context.Context, token string) (models.Session, error)
	Logout(ctx context.Context, token string) error
}

type GalleryService interface {
	ListGalleries(ctx context.Context) []models.Gallery
	CreateGallery(ctx context.Context, name string) (models.Gallery, error)
	UploadPhoto(ctx context.Context, galleryID, filename string, r io.Reader, size int64, contentType string) (models.Photo, error)
	ListPhotos(ctx context.Context, galleryID string) ([]models.Photo, error)
	RenameGallery(ctx context.Context, oldSlug, newName string) (models.RenameIntent, error)
	RenameGalleryDisplayName(ctx context.Context, galleryID, name string) error
	ListPendingRenames(ctx context.Context) ([]models.RenameIntent, error)
	ResumeRename(ctx context.Context, id string) (models.RenameIntent, error)
	RollbackRename(ctx context.Context, id string) (models.RenameIntent, error)
	ListPortfolioImages(ctx context.Context) ([]models.PortfolioImage, error)
}

type VideoService interface {
	ListVideosAdmin(ctx context.Context) ([]models.Video, error)
	ListPortfolioVideos(ctx context.Context) ([]models.PortfolioVideo, error)
	UploadVideo(ctx context.Context, filename string, r io.Reader, size int64, contentType, title string) (models.Video, error)
	RenameVideo(ctx context.Context, videoPath, newName string) error
	DeleteVideo(ctx context.Context, videoPath string) error
}

type InboxService interface {
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	SetStatus(ctx context.Context, id string, status models.MessageStatus) error
	ToggleStatus(ctx context.Context, id string) (models.MessageStatus, error)
	Delete(ctx context.Context, id string) error
	Receive(ctx context.Context, email models.InboundEmail, source models.MessageSource) (models.Message, error)
}

type BookingService interface {
	Submit(ctx context.Context, req models.BookingRequest) (string, error)
}

type InstagramService interface {
	Feed(ctx context.Context) (models.InstagramFeed, error)
}

// LiveInbox апгрейдит запрос до websocket с живым списком писем
type LiveInbox interface {
	Handle(c echo.Context) error
}

type Services struct {
	Auth      AuthService
	Gallery   GalleryService
	Video     VideoService
	Inbox     InboxService
	Booking   BookingService
	Instagram InstagramService
	Live      LiveInbox
}

type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

type Routers struct {
	log              *slog.Logger
	AuthService      AuthService
	GalleryService   GalleryService
	VideoService     VideoService
	InboxService     InboxService
	BookingService   BookingService
	InstagramService InstagramService
	Live             LiveInbox
	cookie           CookieConfig
}

func NewRouter(log *slog.Logger, svc Services, cookie CookieConfig) *Routers {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = 24 * time.Hour
	}

	return &Routers{
		log:              log,
		AuthService:      svc.Auth,
		GalleryService:   svc.Gallery,
		VideoService:     svc.Video,
		InboxService:     svc.Inbox,
		BookingService:   svc.Booking,
		InstagramService: svc.Instagram,
		Live:             svc.Live,
		cookie:           cookie,
	}
}

// SessionToken достаёт токен админа из cookie-сессии
func SessionToken(c echo.Context) string {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return ""
	}
	token, _ := sess.Values[tokenKey].(string)
	return token
}

func (r *Routers) saveSession(c echo.Context, token string, maxAge int) error {
	sess, err := session.Get(SessionName, c)
	if err != nil && sess == nil {
		return err
	}

	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if token == "" {
		delete(sess.Values, tokenKey)
	} else {
		sess.Values[tokenKey] = token
	}

	return sess.Save(c.Request(), c.Response())
}
