package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	httpapp "ali_portfolio/internal/app/http"
	"ali_portfolio/internal/config"
	"ali_portfolio/internal/health"
	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/repository/firestorerepo"
	"ali_portfolio/internal/repository/memory"
	"ali_portfolio/internal/repository/mongorepo"
	"ali_portfolio/internal/services/auth"
	booking "ali_portfolio/internal/services/booking_service"
	gallery "ali_portfolio/internal/services/gallery_service"
	inbox "ali_portfolio/internal/services/inbox_service"
	instagram "ali_portfolio/internal/services/instagram_service"
	"ali_portfolio/internal/services/mailer"
	"ali_portfolio/internal/services/overlay"
	"ali_portfolio/internal/services/reconcile"
	video "ali_portfolio/internal/services/video_service"
	"ali_portfolio/internal/smtp"
	"ali_portfolio/internal/storage/objectstore"
	redisapp "ali_portfolio/internal/storage/redis"
	httprouters "ali_portfolio/internal/transport/http"
	"ali_portfolio/internal/websocket"

	"golang.org/x/sync/errgroup"
)

type eventBus interface {
	inbox.Publisher
	websocket.Subscriber
}

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server
	docs       repository.DocumentStore
	redis      *redisapp.Client
	objects    objectstore.Store
	gallery    *gallery.GalleryService
	hub        *websocket.Hub
	reconciler *reconcile.Reconciler
	smtp       *smtp.Server
	redisBus   *inbox.RedisBus
}

func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	docs, err := newDocumentStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{
		log:     log,
		docs:    docs,
		objects: objects,
	}

	checker := health.NewChecker()
	checker.AddReadiness("object_store", objects.Ping)
	checker.AddReadiness("document_store", docs.HealthCheck)

	var sessions repository.SessionRepository = repository.NewCacheSessionRepo()
	var bus eventBus = inbox.NewLocalBus()
	if cfg.Redis.RedisAddr != "" {
		a.redis = redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
		checker.AddReadiness("redis", a.redis.HealthCheck)

		sessions = repository.NewRedisSessionRepo(a.redis)
		a.redisBus = inbox.NewRedisBus(log, a.redis.Client)
		bus = a.redisBus
	} else {
		log.Warn("redis is not configured, session revocation and inbox events stay in-process")
	}

	m, err := newMailer(log, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	names := overlay.New(log, docs.DisplayNames())

	authService := auth.New(log, sessions, auth.Config{
		Email:        cfg.Admin.Email,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
		Secret:       cfg.Admin.SessionSecret,
		TTL:          cfg.Admin.SessionTTL,
	})

	a.gallery = gallery.NewGalleryService(log, objects, names, docs.Renames(), gallery.Config{
		ScanConcurrency: cfg.Gallery.ScanConcurrency,
		RenameTimeout:   cfg.Gallery.RenameTimeout,
	})
	videoService := video.NewVideoService(log, objects, names)

	inboxService := inbox.NewInboxService(log, docs.Messages(), m, bus, inbox.ForwardConfig{
		From:   cfg.Mail.ForwardFrom,
		To:     cfg.Mail.ForwardTo,
		Domain: cfg.Mail.Domain,
	})

	bookingService := booking.NewBookingService(log, m, booking.Config{
		From:     cfg.Mail.BookingFrom,
		NotifyTo: cfg.Mail.BookingNotifyTo,
	})

	instagramService := instagram.NewInstagramService(log, instagram.Config{
		FeedURL:  cfg.Instagram.FeedURL,
		CacheTTL: cfg.Instagram.CacheTTL,
		Timeout:  cfg.Instagram.Timeout,
	})

	a.hub = websocket.NewHub(log, inboxService, bus, cfg.HTTP.AllowOrigins)

	if cfg.InboundSMTP.Enabled {
		a.smtp = smtp.NewServer(log, inboxService, smtp.Config{
			Addr:            cfg.InboundSMTP.Addr,
			Domain:          cfg.InboundSMTP.Domain,
			AllowedDomains:  cfg.InboundSMTP.AllowedDomains,
			MaxMessageBytes: cfg.InboundSMTP.MaxMessageBytes,
			ReadTimeout:     cfg.InboundSMTP.ReadTimeout,
			WriteTimeout:    cfg.InboundSMTP.WriteTimeout,
		})
	}

	a.reconciler = reconcile.New(log, objects, docs.DisplayNames(), cfg.Reconcile.Interval)

	routers := httprouters.NewRouter(log, httprouters.Services{
		Auth:      authService,
		Gallery:   a.gallery,
		Video:     videoService,
		Inbox:     inboxService,
		Booking:   bookingService,
		Instagram: instagramService,
		Live:      a.hub,
	}, httprouters.CookieConfig{
		Secure: cfg.Env != "local",
		MaxAge: cfg.Admin.SessionTTL,
	})

	uploadsDir := ""
	if cfg.ObjectStore.Driver == "local" {
		uploadsDir = cfg.ObjectStore.BaseDir
	}

	a.HTTPServer = httpapp.New(log, httpapp.Config{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		AllowOrigins:    cfg.HTTP.AllowOrigins,
		BodyLimit:       cfg.HTTP.BodyLimit,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		SessionSecret:   cfg.Admin.SessionSecret,
		UploadsDir:      uploadsDir,
		LoginRate:       cfg.Admin.LoginRate,
		LoginBurst:      cfg.Admin.LoginBurst,
		BookingRate:     cfg.Mail.BookingRateLimit,
		BookingBurst:    cfg.Mail.BookingBurst,
		WebhookRate:     cfg.Mail.WebhookRateLimit,
	}, routers, checker)
	a.HTTPServer.BuildRouters()

	return a, nil
}

// Run запускает http, websocket hub и фоновые задачи до отмены ctx
func (a *App) Run(ctx context.Context) error {
	a.gallery.ReportPendingRenames(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.HTTPServer.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		return a.HTTPServer.Stop()
	})
	g.Go(func() error {
		return a.hub.Run(ctx)
	})

	if a.redisBus != nil {
		g.Go(func() error {
			return a.redisBus.Run(ctx)
		})
	}
	if a.smtp != nil {
		g.Go(func() error {
			return a.smtp.Run(ctx)
		})
	}
	if a.reconciler != nil {
		g.Go(func() error {
			return a.reconciler.Run(ctx)
		})
	}

	return g.Wait()
}

// Stop закрывает соединения с хранилищами
func (a *App) Stop(ctx context.Context) {
	if err := a.docs.Close(ctx); err != nil {
		a.log.Error("failed to close document store", sl.Err(err))
	}
	if c, ok := a.objects.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.log.Error("failed to close object store", sl.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("failed to close redis", sl.Err(err))
		}
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	oc := cfg.ObjectStore

	switch strings.ToLower(oc.Driver) {
	case "local":
		baseURL := oc.PublicBaseURL
		if baseURL == "" {
			baseURL = "/uploads"
		}
		return objectstore.NewLocalStore(oc.BaseDir, baseURL)
	case "memory":
		return objectstore.NewMemoryStore(oc.PublicBaseURL), nil
	case "minio":
		return objectstore.NewMinioStore(ctx, objectstore.MinioConfig{
			Endpoint:      oc.Endpoint,
			AccessKey:     oc.AccessKey,
			SecretKey:     oc.SecretKey,
			Bucket:        oc.Bucket,
			UseSSL:        oc.UseSSL,
			PublicBaseURL: oc.PublicBaseURL,
			PresignTTL:    oc.PresignTTL,
		})
	case "s3":
		return objectstore.NewS3Store(ctx, objectstore.S3Config{
			Region:                 oc.Region,
			Bucket:                 oc.Bucket,
			AccessKeyID:            oc.AccessKey,
			SecretAccessKey:        oc.SecretKey,
			Endpoint:               oc.Endpoint,
			UsePathStyle:           oc.UsePathStyle,
			PublicBaseURL:          oc.PublicBaseURL,
			PresignTTL:             oc.PresignTTL,
			CreateBucketIfNotExist: oc.CreateBucket,
		})
	case "gcs":
		return objectstore.NewGCSStore(ctx, objectstore.GCSConfig{
			Bucket:          oc.Bucket,
			CredentialsFile: oc.CredentialsFile,
			PublicBaseURL:   oc.PublicBaseURL,
			PresignTTL:      oc.PresignTTL,
		})
	}

	return nil, fmt.Errorf("unknown object store driver %q", oc.Driver)
}

func newDocumentStore(ctx context.Context, cfg *config.Config) (repository.DocumentStore, error) {
	dc := cfg.DocumentStore

	switch strings.ToLower(dc.Driver) {
	case "postgres":
		repo, err := repository.NewRepository(ctx, dc.DSN)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close(ctx)
			return nil, err
		}
		return repo, nil
	case "mongo":
		return mongorepo.New(ctx, dc.DSN, dc.Database)
	case "firestore":
		return firestorerepo.New(ctx, dc.ProjectID, dc.CredentialsFile)
	case "memory":
		return memory.New(), nil
	}

	return nil, fmt.Errorf("unknown document store driver %q", dc.Driver)
}

func newMailer(log *slog.Logger, cfg *config.Config) (mailer.Mailer, error) {
	mc := cfg.Mail

	switch strings.ToLower(mc.Driver) {
	case "resend":
		return mailer.NewResendMailer(mc.ResendAPIKey)
	case "smtp":
		return mailer.NewSMTPMailer(mailer.SMTPConfig{
			Addr:     mc.SMTPAddr,
			Username: mc.SMTPUsername,
			Password: mc.SMTPPassword,
			Domain:   mc.Domain,
		})
	case "log", "":
		log.Warn("mail driver is log, emails are written to the log only")
		return mailer.NewLogMailer(log), nil
	}

	return nil, errors.New("unknown mail driver " + mc.Driver)
}
