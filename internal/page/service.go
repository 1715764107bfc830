// Package page はプレビューページの編集サービスを提供する。
package page

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/siteforge/internal/htmlpatch"
	"github.com/hitoshi/siteforge/internal/model"
	"github.com/hitoshi/siteforge/internal/repository"
	"github.com/hitoshi/siteforge/internal/security"
)

// Service はプレビューページへの部分編集を適用するサービス。
// 編集値のサニタイズ、パッチ適用、編集ジャーナルのマージ、永続化を行う。
type Service struct {
	pages     repository.PageRepository
	sanitizer security.EditSanitizerService
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はService の新しいインスタンスを生成する。
func NewService(pages repository.PageRepository, sanitizer security.EditSanitizerService, logger *slog.Logger) *Service {
	return &Service{
		pages:     pages,
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
	}
}

// ApplyContentUpdate は指定ページに編集を適用して保存し、更新後のページを返す。
// 更新フィールドが1つもない場合、ページが存在しない場合はAPIErrorを返す。
func (s *Service) ApplyContentUpdate(ctx context.Context, pageID string, updates htmlpatch.Updates) (*model.Page, error) {
	if updates.IsEmpty() {
		return nil, model.NewEmptyUpdateError()
	}

	clean := s.sanitizeUpdates(updates)

	pg, err := s.pages.FindByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	if pg == nil {
		return nil, model.NewPageNotFoundError(pageID)
	}

	now := s.now().UTC()
	patched, journal := htmlpatch.ApplyUpdates(pg.HTML, pg.CustomEdits, clean, now)

	if err := s.pages.UpdateContent(ctx, pg.ID, patched, journal, now); err != nil {
		return nil, fmt.Errorf("ページ本文の保存に失敗しました: %w", err)
	}

	s.logger.Info("ページ編集を適用しました",
		slog.String("page_id", pg.ID),
		slog.Bool("phone", clean.Phone != ""),
		slog.Int("hours", len(clean.Hours)),
		slog.Int("prices", len(clean.Prices)),
		slog.Bool("logo", clean.Logo != ""),
	)

	pg.HTML = patched
	pg.CustomEdits = journal
	pg.UpdatedAt = now
	return pg, nil
}

// sanitizeUpdates は全ての編集値からHTMLタグを除去する。
// サニタイズで空になった値は未指定として扱われる。
func (s *Service) sanitizeUpdates(updates htmlpatch.Updates) htmlpatch.Updates {
	clean := htmlpatch.Updates{
		Phone: s.sanitizer.SanitizeValue(updates.Phone),
		Logo:  s.sanitizer.SanitizeValue(updates.Logo),
	}

	if len(updates.Hours) > 0 {
		clean.Hours = make(map[string]string, len(updates.Hours))
		for day, value := range updates.Hours {
			key := s.sanitizer.SanitizeValue(day)
			val := s.sanitizer.SanitizeValue(value)
			if key == "" || val == "" {
				continue
			}
			clean.Hours[key] = val
		}
	}

	for _, pair := range updates.Prices {
		old := s.sanitizer.SanitizeValue(pair.Old)
		newVal := s.sanitizer.SanitizeValue(pair.New)
		if old == "" || newVal == "" {
			continue
		}
		clean.Prices = append(clean.Prices, htmlpatch.PricePair{Old: old, New: newVal})
	}

	return clean
}
