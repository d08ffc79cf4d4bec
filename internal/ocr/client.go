// Package ocr はYandex OCRによる書類認識とエンティティ抽出を提供する。
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultOCRURL = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"

// 認識モデル。書類種別ごとにYandex OCRの専用モデルを指定する。
const (
	ModelPassport = "passport"
	ModelSTSFront = "vehicle-registration-front"
)

// Entities はOCRレスポンスから抽出したエンティティ名→テキストのマップ。
type Entities map[string]string

// recognizeResponse はrecognizeTextレスポンスのうち必要な部分。
type recognizeResponse struct {
	Result struct {
		TextAnnotation struct {
			Entities []struct {
				Name string `json:"name"`
				Text string `json:"text"`
			} `json:"entities"`
		} `json:"textAnnotation"`
	} `json:"result"`
}

// ProviderMetrics は外部プロバイダー呼び出しの計測インターフェース。
type ProviderMetrics interface {
	RecordProviderCall(provider string, duration time.Duration, isError bool)
}

// ClientConfig はYandex OCRクライアントの設定。
type ClientConfig struct {
	APIKey   string
	FolderID string
	Timeout  time.Duration

	// テスト用にオーバーライド可能なURL
	URL string

	// nilの場合は計測しない
	Metrics ProviderMetrics
}

// Client はYandex OCR APIクライアント。
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient はClientを生成する。
func NewClient(config ClientConfig) *Client {
	if config.URL == "" {
		config.URL = defaultOCRURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Recognize は画像を指定モデルで認識し、エンティティマップを返す。
// contentは画像のバイト列で、リクエスト時にbase64エンコードされる。
func (c *Client) Recognize(ctx context.Context, content []byte, mimeType, model string) (Entities, error) {
	body, err := json.Marshal(map[string]any{
		"mimeType":      mimeType,
		"languageCodes": []string{"ru", "en"},
		"model":         model,
		"content":       base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("x-folder-id", c.config.FolderID)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.config.Metrics != nil {
		c.config.Metrics.RecordProviderCall("yandex_ocr", time.Since(start), err != nil)
	}
	if err != nil {
		return nil, fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OCR response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("yandex OCR API error",
			slog.Int("status", resp.StatusCode),
			slog.String("model", model),
			slog.String("body", string(respBody)),
		)
		return nil, fmt.Errorf("OCR API returned status %d", resp.StatusCode)
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}

	entities := make(Entities)
	for _, e := range parsed.Result.TextAnnotation.Entities {
		entities[e.Name] = e.Text
	}

	return entities, nil
}
