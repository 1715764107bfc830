package seo

import (
	"fmt"

	"github.com/hitoshi/siteforge/internal/model"
)

const (
	// HeroWidth / HeroHeight はヒーロー画像の固定サイズ（OGP標準）。
	HeroWidth  = 1200
	HeroHeight = 630

	// defaultHeroAlt はタイトルが空の場合の汎用alt。
	defaultHeroAlt = "Business preview image"
)

// HeroSelector はページのヒーロー画像を決定的に選択する。
// 実プロバイダではページIDをシードとした画像URLを構築し、
// モックでは固定パターンのプレースホルダーURLを返す。
// 同じページIDからは常に同じURLが得られる。
type HeroSelector struct {
	baseURL string
	mock    bool
}

// NewHeroSelector はHeroSelectorを生成する。
// baseURLが空の場合はデフォルトのプロバイダを使用する。
func NewHeroSelector(baseURL string, mock bool) *HeroSelector {
	if baseURL == "" {
		baseURL = "https://picsum.photos"
	}
	return &HeroSelector{baseURL: baseURL, mock: mock}
}

// SelectHero はページIDとタイトルからヒーロー画像レコードを構築する。
// altにはタイトルを使い、タイトルが空の場合は汎用の文言にする。
// IDの採番と永続化は呼び出し元の責務。
func (s *HeroSelector) SelectHero(pageID, title string) *model.PageImage {
	alt := title
	if alt == "" {
		alt = defaultHeroAlt
	}

	return &model.PageImage{
		PageID: pageID,
		Kind:   model.ImageKindHero,
		URL:    s.heroURL(pageID),
		Alt:    alt,
		Width:  HeroWidth,
		Height: HeroHeight,
	}
}

// heroURL はページIDをシードとした決定的な画像URLを構築する。
func (s *HeroSelector) heroURL(pageID string) string {
	if s.mock {
		return fmt.Sprintf("https://placehold.co/%dx%d?seed=%s", HeroWidth, HeroHeight, pageID)
	}
	return fmt.Sprintf("%s/seed/%s/%d/%d", s.baseURL, pageID, HeroWidth, HeroHeight)
}
