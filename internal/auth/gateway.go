package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultGatewayBaseURL = "https://gatewayapi.telegram.org"

// 検証コードの桁数。Telegram Gatewayは4〜8桁を受け付ける。
const verificationCodeLength = 6

// VerificationStatusCodeValid はコード検証成功を表すステータス。
const VerificationStatusCodeValid = "code_valid"

// TelegramUser はGatewayが返すTelegramユーザー情報。
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoURL  string `json:"photo_url"`
}

// VerificationResult はcheckVerificationStatusの検証結果。
type VerificationResult struct {
	RequestID string        `json:"request_id"`
	Status    string        `json:"status"`
	User      *TelegramUser `json:"user"`
}

// gatewayEnvelope はGateway APIの共通レスポンス形式。
type gatewayEnvelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// ProviderMetrics は外部プロバイダー呼び出しの計測インターフェース。
type ProviderMetrics interface {
	RecordProviderCall(provider string, duration time.Duration, isError bool)
}

// GatewayClientConfig はTelegram Gatewayクライアントの設定。
type GatewayClientConfig struct {
	Token   string
	Timeout time.Duration

	// テスト用にオーバーライド可能なURL
	BaseURL string

	// nilの場合は計測しない
	Metrics ProviderMetrics
}

// GatewayClient はTelegram Gateway APIによる電話番号検証を提供する。
type GatewayClient struct {
	config     GatewayClientConfig
	httpClient *http.Client
}

// NewGatewayClient はGatewayClientを生成する。
func NewGatewayClient(config GatewayClientConfig) *GatewayClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultGatewayBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &GatewayClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// SendVerificationMessage は電話番号に検証コードを送信し、request_idを返す。
// phoneNumberはE.164形式を想定する。
func (c *GatewayClient) SendVerificationMessage(ctx context.Context, phoneNumber string) (string, error) {
	result, err := c.post(ctx, "/sendVerificationMessage", map[string]any{
		"phone_number": phoneNumber,
		"code_length":  verificationCodeLength,
	})
	if err != nil {
		return "", err
	}

	var vr VerificationResult
	if err := json.Unmarshal(result, &vr); err != nil {
		return "", fmt.Errorf("failed to decode verification result: %w", err)
	}
	if vr.RequestID == "" {
		return "", fmt.Errorf("gateway returned no request_id")
	}

	return vr.RequestID, nil
}

// CheckVerificationStatus は検証コードの状態を確認する。
// codeが空の場合はステータス照会のみを行う。
func (c *GatewayClient) CheckVerificationStatus(ctx context.Context, requestID, code string) (*VerificationResult, error) {
	params := map[string]any{"request_id": requestID}
	if code != "" {
		params["code"] = code
	}

	result, err := c.post(ctx, "/checkVerificationStatus", params)
	if err != nil {
		return nil, err
	}

	var vr VerificationResult
	if err := json.Unmarshal(result, &vr); err != nil {
		return nil, fmt.Errorf("failed to decode verification result: %w", err)
	}

	return &vr, nil
}

// VerifySignature はコールバックのX-Request-Signatureを検証する。
// 期待値はSHA-256(token)を鍵としたpayloadのHMAC-SHA256で、定数時間比較する。
func (c *GatewayClient) VerifySignature(signature string, payload []byte) bool {
	tokenHash := sha256.Sum256([]byte(c.config.Token))
	mac := hmac.New(sha256.New, tokenHash[:])
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// post はGateway APIにJSONリクエストを送り、成功時のresultを返す。
// ok:falseのレスポンスはエラー詳細をログに残し、呼び出し側には汎用エラーを返す。
func (c *GatewayClient) post(ctx context.Context, path string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.config.Metrics != nil {
		c.config.Metrics.RecordProviderCall("telegram_gateway", time.Since(start), err != nil)
	}
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	var envelope gatewayEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if !envelope.OK {
		slog.Error("telegram gateway API error",
			slog.String("path", path),
			slog.String("error", envelope.Error),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("gateway returned error response")
	}

	return envelope.Result, nil
}
