package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
	"github.com/hitoshi/cardeal/internal/repository"
	"github.com/hitoshi/cardeal/internal/security"
)

// Recognizer は書類認識クライアントのインターフェース。
type Recognizer interface {
	Recognize(ctx context.Context, content []byte, mimeType, model string) (Entities, error)
}

// Sanitizer はOCR抽出テキストのタグ除去インターフェース。
type Sanitizer interface {
	Sanitize(s string) string
}

// Metrics はOCR処理結果の計測インターフェース。
type Metrics interface {
	// RecordRecognition は認識結果を記録する。docTypeは"passport"/"sts"、
	// outcomeは"success"/"failed"。
	RecordRecognition(docType, outcome string)
}

// ServiceConfig はOCRサービスの設定。
type ServiceConfig struct {
	ImageFetchTimeout time.Duration
	ImageMaxSize      int64
}

// Service は書類認識と認識結果の永続化を提供する。
type Service struct {
	recognizer Recognizer
	personRepo repository.PersonRepository
	carRepo    repository.CarRepository
	urlGuard   security.URLGuardService
	sanitizer  Sanitizer
	metrics    Metrics
	config     ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	recognizer Recognizer,
	personRepo repository.PersonRepository,
	carRepo repository.CarRepository,
	urlGuard security.URLGuardService,
	sanitizer Sanitizer,
	metrics Metrics,
	config ServiceConfig,
) *Service {
	return &Service{
		recognizer: recognizer,
		personRepo: personRepo,
		carRepo:    carRepo,
		urlGuard:   urlGuard,
		sanitizer:  sanitizer,
		metrics:    metrics,
		config:     config,
	}
}

// RecognizePassport はパスポート画像を認識し、抽出したPerson+Passportを永続化して返す。
// 認識失敗はRECOGNITION_FAILEDエラーになる。
func (s *Service) RecognizePassport(ctx context.Context, content []byte, mimeType string) (*model.Person, error) {
	entities, err := s.recognizer.Recognize(ctx, content, mimeType, ModelPassport)
	if err != nil {
		slog.Error("passport recognition failed", slog.String("error", err.Error()))
		s.metrics.RecordRecognition("passport", "failed")
		return nil, model.NewRecognitionFailedError("passport")
	}

	passport := &model.Passport{
		Serie:     extractSerie(s.clean(entities["number"])),
		Number:    extractNumber(s.clean(entities["number"])),
		Issuer:    capitalizeText(s.clean(entities["issued_by"])),
		IssueDate: parseDate(s.clean(entities["issue_date"])),
	}

	person := &model.Person{
		Surname:    capitalizeProperName(s.clean(entities["surname"])),
		Name:       capitalizeProperName(s.clean(entities["name"])),
		Fathername: capitalizeProperName(s.clean(entities["middle_name"])),
		Birthdate:  parseDate(s.clean(entities["birth_date"])),
	}

	if err := s.personRepo.SaveWithPassport(ctx, person, passport); err != nil {
		s.metrics.RecordRecognition("passport", "failed")
		return nil, fmt.Errorf("failed to save recognized person: %w", err)
	}

	s.metrics.RecordRecognition("passport", "success")
	slog.Info("passport recognized", slog.Int64("person_id", person.ID))

	return person, nil
}

// RecognizeSTS は車両登録証（СТС）表面の画像を認識し、抽出したCarを永続化して返す。
// 認識失敗はRECOGNITION_FAILEDエラーになる。
func (s *Service) RecognizeSTS(ctx context.Context, content []byte, mimeType string) (*model.Car, error) {
	entities, err := s.recognizer.Recognize(ctx, content, mimeType, ModelSTSFront)
	if err != nil {
		slog.Error("sts recognition failed", slog.String("error", err.Error()))
		s.metrics.RecordRecognition("sts", "failed")
		return nil, model.NewRecognitionFailedError("sts")
	}

	car := &model.Car{
		VIN:           strings.ToUpper(s.clean(entities["stsfront_vin_number"])),
		STS:           optional(s.clean(entities["stsfront_sts_number"])),
		Plates:        optional(strings.ToUpper(s.clean(entities["stsfront_car_number"]))),
		Model:         stringValue(capitalizeText(s.clean(buildCarModel(entities)))),
		TypeCategory:  capitalizeText(s.clean(entities["stsfront_car_type"])),
		IssueYear:     parseYear(s.clean(entities["stsfront_car_year"])),
		EngineModel:   optional(s.clean(entities["stsfront_engine_model"])),
		EngineNumber:  optional(s.clean(entities["stsfront_engine_number"])),
		ChassisNumber: optional(s.clean(entities["stsfront_car_chassis_number"])),
		BodyNumber:    optional(s.clean(entities["stsfront_car_trailer_number"])),
		Color:         capitalizeText(s.clean(entities["stsfront_car_color"])),
	}

	if err := s.carRepo.Save(ctx, car); err != nil {
		s.metrics.RecordRecognition("sts", "failed")
		return nil, fmt.Errorf("failed to save recognized car: %w", err)
	}

	s.metrics.RecordRecognition("sts", "success")
	slog.Info("sts recognized", slog.Int64("car_id", car.ID), slog.String("vin", car.VIN))

	return car, nil
}

// FetchImage は外部URLから画像を取得する。SSRF対策のため、事前検証と
// DNS解決後のIP検証付きクライアントの両方を通す。
// 戻り値は（画像バイト列, Content-Type, error）。
func (s *Service) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := s.urlGuard.ValidateURL(rawURL); err != nil {
		slog.Warn("image URL blocked", slog.String("error", err.Error()))
		return nil, "", model.NewSSRFBlockedError()
	}

	client := s.urlGuard.NewSafeClient(s.config.ImageFetchTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", model.NewImageFetchFailedError()
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Error("image fetch failed", slog.String("error", err.Error()))
		return nil, "", model.NewImageFetchFailedError()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("image fetch returned non-OK status", slog.Int("status", resp.StatusCode))
		return nil, "", model.NewImageFetchFailedError()
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, s.config.ImageMaxSize+1))
	if err != nil {
		return nil, "", model.NewImageFetchFailedError()
	}
	if int64(len(content)) > s.config.ImageMaxSize {
		slog.Warn("image exceeds size limit", slog.Int("size", len(content)))
		return nil, "", model.NewImageFetchFailedError()
	}

	return content, resp.Header.Get("Content-Type"), nil
}

// clean はOCR抽出テキストからタグを除去する。
func (s *Service) clean(text string) string {
	return s.sanitizer.Sanitize(text)
}

// optional は空文字列をnilに写すヘルパー。
func optional(text string) *string {
	if text == "" {
		return nil
	}
	return &text
}

// stringValue はnilを空文字列に写すヘルパー。
func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// parseYear は年表記を整数に変換する。パース不能な場合は0。
func parseYear(text string) int {
	year, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	return year
}
