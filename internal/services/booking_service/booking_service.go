package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/metrics"
	"ali_portfolio/internal/services/mailer"

	"github.com/go-playground/validator/v10"
)

var ErrSendFailed = errors.New("failed to send booking email")

// Issue описывает одну ошибку валидации поля формы
type Issue struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		fields = append(fields, strings.Join(is.Path, "."))
	}
	return "invalid booking request: " + strings.Join(fields, ", ")
}

type Config struct {
	From     string
	NotifyTo string
}

type BookingService struct {
	log      *slog.Logger
	mailer   mailer.Mailer
	validate *validator.Validate
	cfg      Config
}

func NewBookingService(log *slog.Logger, m mailer.Mailer, cfg Config) *BookingService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("bookingdate", func(fl validator.FieldLevel) bool {
		_, err := ParseBookingDate(fl.Field().String())
		return err == nil
	})

	return &BookingService{
		log:      log,
		mailer:   m,
		validate: v,
		cfg:      cfg,
	}
}

// Submit проверяет заявку и отправляет уведомление владельцу.
// Возвращает id письма у почтового провайдера.
func (s *BookingService) Submit(ctx context.Context, req models.BookingRequest) (string, error) {
	const op = "service.BookingService.Submit"
	log := s.log.With(slog.String("op", op))

	if err := s.Validate(req); err != nil {
		return "", err
	}

	date, _ := ParseBookingDate(req.Date)
	service, ok := models.ServiceTypeDisplay[req.ServiceType]
	if !ok {
		service = req.ServiceType
	}

	var body bytes.Buffer
	err := bookingTmpl.Execute(&body, bookingData{
		Name:    req.Name,
		Email:   req.Email,
		Service: service,
		Date:    FormatLongDate(date),
		Message: req.Message,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.mailer.Send(ctx, mailer.Email{
		From:    s.cfg.From,
		To:      []string{s.cfg.NotifyTo},
		ReplyTo: req.Email,
		Subject: "New Booking Request from " + req.Name,
		HTML:    body.String(),
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues("booking", "error").Inc()
		log.Error("failed to send booking email", sl.Err(err))
		return "", fmt.Errorf("%s: %w: %w", op, ErrSendFailed, err)
	}
	metrics.EmailsSent.WithLabelValues("booking", "ok").Inc()

	log.Info("booking request sent", slog.String("email_id", id), slog.String("service", req.ServiceType))

	return id, nil
}

// Validate возвращает *ValidationError со списком проблем по полям
func (s *BookingService) Validate(req models.BookingRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, toIssue(fe))
	}
	return &ValidationError{Issues: issues}
}

func toIssue(fe validator.FieldError) Issue {
	is := Issue{Path: []string{fe.Field()}}

	switch fe.Tag() {
	case "required":
		is.Code, is.Message = "invalid_type", "Required"
	case "min":
		is.Code = "too_small"
		is.Message = fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "email":
		is.Code, is.Message = "invalid_string", "Invalid email"
	case "bookingdate":
		is.Code, is.Message = "invalid_date", "Invalid date"
	default:
		is.Code, is.Message = "custom", "Invalid input"
	}

	return is
}

// ParseBookingDate принимает RFC3339 или YYYY-MM-DD
func ParseBookingDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// FormatLongDate formats t like "October 18th, 2026".
func FormatLongDate(t time.Time) string {
	return fmt.Sprintf("%s %d%s, %d", t.Month(), t.Day(), ordinal(t.Day()), t.Year())
}

func ordinal(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

type bookingData struct {
	Name    string
	Email   string
	Service string
	Date    string
	Message string
}

var bookingTmpl = template.Must(template.New("booking").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="color: #f97316; border-bottom: 2px solid #f97316; padding-bottom: 10px;">New Booking Request</h1>

    <div style="background-color: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
        <h2 style="margin-top: 0; color: #1e293b;">Client Details</h2>
        <p><strong>Name:</strong> {{.Name}}</p>
        <p><strong>Email:</strong> <a href="mailto:{{.Email}}">{{.Email}}</a></p>
    </div>

    <div style="background-color: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
        <h2 style="margin-top: 0; color: #1e293b;">Booking Details</h2>
        <p><strong>Service Type:</strong> {{.Service}}</p>
        <p><strong>Preferred Date:</strong> {{.Date}}</p>
    </div>

    <div style="background-color: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
        <h2 style="margin-top: 0; color: #1e293b;">Message</h2>
        <p style="white-space: pre-wrap;">{{.Message}}</p>
    </div>

    <hr style="border: none; border-top: 1px solid #e2e8f0; margin: 30px 0;">

    <p style="color: #64748b; font-size: 14px;">Reply directly to this email to contact the client at {{.Email}}</p>
</div>
`))
