package services

import (
	"context"
	"fmt"
	"unicode"
	"unicode/utf8"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/storage/objectstore"
)

const generalCategory = "General"

// Раскладка сетки витрины повторяется каждые шесть картинок
var spanPatterns = []string{
	"md:col-span-1 md:row-span-1",
	"md:col-span-1 md:row-span-2",
	"md:col-span-1 md:row-span-1",
	"md:col-span-2 md:row-span-2",
	"md:col-span-1 md:row-span-1",
	"md:col-span-1 md:row-span-1",
}

// ListPortfolioImages собирает картинки из корня photos/ и из папок первого уровня
func (s *GalleryService) ListPortfolioImages(ctx context.Context) ([]models.PortfolioImage, error) {
	const op = "service.GalleryService.ListPortfolioImages"

	root, err := s.store.List(ctx, photosRoot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	images := make([]models.PortfolioImage, 0, len(root.Objects))

	add := func(id, key, category string) error {
		url, err := s.store.URL(ctx, key)
		if err != nil {
			return err
		}
		images = append(images, models.PortfolioImage{
			ID:       id,
			Src:      url,
			Type:     "image",
			Span:     spanPatterns[len(images)%len(spanPatterns)],
			Category: category,
		})
		return nil
	}

	for _, obj := range root.Objects {
		if !objectstore.HasExt(obj.Key, ImageExts...) {
			continue
		}
		if err := add(obj.Name, obj.Key, generalCategory); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	for _, prefix := range root.Prefixes {
		folder := objectstore.Base(prefix)

		l, err := s.store.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		category := capitalize(folder)
		for _, obj := range l.Objects {
			if !objectstore.HasExt(obj.Key, ImageExts...) {
				continue
			}
			if err := add(folder+"-"+obj.Name, obj.Key, category); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	return images, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
