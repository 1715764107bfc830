package render

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Generate(t *testing.T) {
	var gotPath string
	var gotBody generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("リクエストボディのデコードに失敗しました: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), server.URL)

	if err := client.Generate(context.Background(), "biz-1", true); err != nil {
		t.Fatalf("Generateがエラーを返しました: %v", err)
	}

	if gotPath != "/generate" {
		t.Errorf("リクエストパスが期待値と異なります: got %s", gotPath)
	}
	if gotBody.BusinessID != "biz-1" {
		t.Errorf("business_idが期待値と異なります: got %s", gotBody.BusinessID)
	}
	if !gotBody.Overwrite {
		t.Error("overwriteがtrueで送信されていません")
	}
}

func TestClient_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), server.URL)

	if err := client.Generate(context.Background(), "biz-1", false); err == nil {
		t.Fatal("サーバーエラー時にエラーが返されるべきです")
	}
}

func TestClient_Generate_TrailingSlash(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.Client(), testLogger(), server.URL+"/")

	if err := client.Generate(context.Background(), "biz-2", false); err != nil {
		t.Fatalf("Generateがエラーを返しました: %v", err)
	}
	if gotPath != "/generate" {
		t.Errorf("末尾スラッシュが正規化されていません: got %s", gotPath)
	}
}
