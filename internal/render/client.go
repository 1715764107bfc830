// Package render はプレビュー生成サービスとの連携機能を提供する。
// 生成APIの呼び出しとバッチプレビューオーケストレーターを含む。
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Client はプレビュー生成サービスのHTTPクライアント。
// ビジネスIDを渡してプレビューページの生成を依頼する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient はClient の新しいインスタンスを生成する。
// baseURLは生成サービスのルートURL（例: https://render.example.com）。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// generateRequest は生成APIのリクエストボディ。
type generateRequest struct {
	BusinessID string `json:"business_id"`
	Overwrite  bool   `json:"overwrite"`
}

// Generate は指定ビジネスのプレビューページ生成を依頼する。
// 生成サービスがエラーステータスを返した場合はエラーを返す
// （呼び出し元がリトライとサーキットブレーカーを判断する）。
func (c *Client) Generate(ctx context.Context, businessID string, overwrite bool) error {
	body, err := json.Marshal(generateRequest{BusinessID: businessID, Overwrite: overwrite})
	if err != nil {
		return fmt.Errorf("リクエストボディのシリアライズに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Siteforge/1.0 Preview Pipeline")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("生成サービスの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("business_id", businessID),
		)
		return fmt.Errorf("生成サービスの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// エラー詳細はボディ先頭のみログに残す
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("生成サービスがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("business_id", businessID),
			slog.String("body", string(snippet)),
		)
		return fmt.Errorf("生成サービスがステータス %d を返しました", resp.StatusCode)
	}

	return nil
}
