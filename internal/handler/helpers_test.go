package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
)

// jsonBody はテスト用リクエストボディを生成する。
func jsonBody(t *testing.T, body any) io.Reader {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

// bytesReader は生の文字列ボディを生成する。
func bytesReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}

// withURLParam はchiのURLパラメータをリクエストに注入する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
