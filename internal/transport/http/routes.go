package http

import (
	"github.com/labstack/echo/v4"
)

// Limits это ограничители частоты для публичных ручек, nil отключает ограничение
type Limits struct {
	Login   echo.MiddlewareFunc
	Booking echo.MiddlewareFunc
	Webhook echo.MiddlewareFunc
}

func withLimit(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}

// Register вешает публичные и админские маршруты на echo
func (r *Routers) Register(e *echo.Echo, limits Limits) {
	api := e.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", r.Login, withLimit(limits.Login)...)
			authGroup.GET("/check", r.CheckSession)
			authGroup.POST("/logout", r.Logout)
		}

		api.POST("/booking", r.SubmitBooking, withLimit(limits.Booking)...)
		api.POST("/emails/inbound", r.InboundEmail, withLimit(limits.Webhook)...)
		api.GET("/instagram", r.InstagramFeed)
		api.GET("/portfolio/images", r.PortfolioImages)
		api.GET("/portfolio/videos", r.PortfolioVideos)
		api.GET("/galleries", r.PublicGalleries)
	}

	admin := api.Group("/admin", r.AdminOnly)
	{
		galleries := admin.Group("/galleries")
		{
			galleries.GET("", r.ListGalleries)
			galleries.POST("", r.CreateGallery)
			galleries.GET("/renames", r.ListRenames)
			galleries.POST("/renames/:id/resume", r.ResumeRename)
			galleries.POST("/renames/:id/rollback", r.RollbackRename)
			galleries.GET("/:id/photos", r.ListPhotos)
			galleries.POST("/:id/photos", r.UploadPhotos)
			galleries.PUT("/:id", r.RenameGallery)
			galleries.PUT("/:id/display-name", r.RenameGalleryDisplayName)
		}

		videos := admin.Group("/videos")
		{
			videos.GET("", r.ListVideos)
			videos.POST("", r.UploadVideo)
			videos.PUT("/name", r.RenameVideo)
			videos.DELETE("", r.DeleteVideo)
		}

		messages := admin.Group("/messages")
		{
			messages.GET("", r.ListMessages)
			messages.GET("/live", r.LiveMessages)
			messages.PATCH("/:id", r.UpdateMessageStatus)
			messages.POST("/:id/toggle", r.ToggleMessageStatus)
			messages.DELETE("/:id", r.DeleteMessage)
		}
	}
}
