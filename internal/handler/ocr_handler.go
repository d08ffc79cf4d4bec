package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/hitoshi/cardeal/internal/model"
)

// maxUploadSize はアップロード画像の上限サイズ（20MB）。
const maxUploadSize = 20 << 20

// OCRServiceInterface はOCRハンドラーが必要とするサービスインターフェース。
type OCRServiceInterface interface {
	// RecognizePassport はパスポート画像を認識しPersonを永続化して返す。
	RecognizePassport(ctx context.Context, content []byte, mimeType string) (*model.Person, error)
	// RecognizeSTS は車両登録証画像を認識しCarを永続化して返す。
	RecognizeSTS(ctx context.Context, content []byte, mimeType string) (*model.Car, error)
	// FetchImage は外部URLから画像を取得する。
	FetchImage(ctx context.Context, rawURL string) ([]byte, string, error)
}

// OCRHandler は書類認識のHTTPハンドラー。
type OCRHandler struct {
	service OCRServiceInterface
}

// NewOCRHandler はOCRHandlerを生成する。
func NewOCRHandler(service OCRServiceInterface) *OCRHandler {
	return &OCRHandler{service: service}
}

// RecognizePassport はパスポート画像からPerson+Passportを事前入力する。
// POST /v1/ocr/passport
// multipartのfileフィールド、またはimage_urlのいずれかを受け付ける。
func (h *OCRHandler) RecognizePassport(w http.ResponseWriter, r *http.Request) {
	content, mimeType, ok := h.readImage(w, r)
	if !ok {
		return
	}

	person, err := h.service.RecognizePassport(r.Context(), content, mimeType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Passport recognized successfully",
		"person":  toPersonResponse(person),
	})
}

// RecognizeSTS は車両登録証（СТС）表面の画像からCarを事前入力する。
// POST /v1/ocr/sts
func (h *OCRHandler) RecognizeSTS(w http.ResponseWriter, r *http.Request) {
	content, mimeType, ok := h.readImage(w, r)
	if !ok {
		return
	}

	car, err := h.service.RecognizeSTS(r.Context(), content, mimeType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "STS recognized successfully",
		"car":     toCarResponse(car),
	})
}

// imageURLRequest はURL指定の認識リクエストのボディ。
type imageURLRequest struct {
	ImageURL string `json:"image_url"`
}

// readImage はリクエストから画像バイト列とMIMEタイプを取り出す。
// multipartの場合はfileフィールドまたはimage_urlフォーム値、
// JSONの場合はimage_urlフィールドを受け付ける。
// エラーはこの関数内でレスポンスに書き込み、okにfalseを返す。
func (h *OCRHandler) readImage(w http.ResponseWriter, r *http.Request) (content []byte, mimeType string, ok bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeValidationErrors(w, map[string][]string{
				"file": {"The file may not be greater than 20 megabytes"},
			})
			return nil, "", false
		}

		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			return h.readUploadedFile(w, file, header)
		}

		// fileが無い場合はimage_urlフォーム値を試す
		if imageURL := r.FormValue("image_url"); imageURL != "" {
			return h.fetchRemoteImage(r.Context(), w, imageURL)
		}

		writeValidationErrors(w, map[string][]string{
			"file": {"The file or image_url field is required"},
		})
		return nil, "", false
	}

	var req imageURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageURL == "" {
		writeValidationErrors(w, map[string][]string{
			"image_url": {"The file or image_url field is required"},
		})
		return nil, "", false
	}

	return h.fetchRemoteImage(r.Context(), w, req.ImageURL)
}

// readUploadedFile はアップロードされたファイルを検証付きで読み込む。
func (h *OCRHandler) readUploadedFile(w http.ResponseWriter, file multipart.File, header *multipart.FileHeader) ([]byte, string, bool) {
	if header.Size > maxUploadSize {
		writeValidationErrors(w, map[string][]string{
			"file": {"The file may not be greater than 20 megabytes"},
		})
		return nil, "", false
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil || len(content) > maxUploadSize {
		writeValidationErrors(w, map[string][]string{
			"file": {"The file may not be greater than 20 megabytes"},
		})
		return nil, "", false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}
	if !isAllowedMimeType(mimeType) {
		writeValidationErrors(w, map[string][]string{
			"file": {"The file must be a file of type: jpeg, png, pdf"},
		})
		return nil, "", false
	}

	return content, mimeType, true
}

// fetchRemoteImage は外部URLから画像を取得する。
func (h *OCRHandler) fetchRemoteImage(ctx context.Context, w http.ResponseWriter, imageURL string) ([]byte, string, bool) {
	content, mimeType, err := h.service.FetchImage(ctx, imageURL)
	if err != nil {
		handleServiceError(w, err)
		return nil, "", false
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}
	if !isAllowedMimeType(mimeType) {
		writeValidationErrors(w, map[string][]string{
			"image_url": {"The file must be a file of type: jpeg, png, pdf"},
		})
		return nil, "", false
	}

	return content, mimeType, true
}

// isAllowedMimeType は受け付け可能な書類のMIMEタイプかどうかを判定する。
func isAllowedMimeType(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])) {
	case "image/jpeg", "image/png", "application/pdf":
		return true
	default:
		return false
	}
}
