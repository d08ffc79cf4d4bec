package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/cardeal/internal/model"
)

// CarServiceInterface は車両ハンドラーが必要とするサービスインターフェース。
type CarServiceInterface interface {
	// Get は指定IDの車両を返す。
	Get(ctx context.Context, id int64) (*model.Car, error)
	// Save は車両を保存する。戻り値は更新だったかどうか。
	Save(ctx context.Context, car *model.Car) (bool, error)
}

// CarHandler は車両管理のHTTPハンドラー。
type CarHandler struct {
	service CarServiceInterface
}

// NewCarHandler はCarHandlerを生成する。
func NewCarHandler(service CarServiceInterface) *CarHandler {
	return &CarHandler{service: service}
}

// carRequest は車両保存リクエストのボディ。IDが0以外の場合は更新。
type carRequest struct {
	ID            int64   `json:"id"`
	VIN           string  `json:"vin"`
	STS           *string `json:"sts"`
	PTS           *string `json:"pts"`
	Plates        *string `json:"plates"`
	Model         string  `json:"model"`
	TypeCategory  *string `json:"type_category"`
	IssueYear     int     `json:"issue_year"`
	EngineModel   *string `json:"engine_model"`
	EngineNumber  *string `json:"engine_number"`
	ChassisNumber *string `json:"chassis_number"`
	BodyNumber    *string `json:"body_number"`
	Color         *string `json:"color"`
}

// carResponse は車両情報のAPIレスポンス。
type carResponse struct {
	ID            int64   `json:"id"`
	VIN           string  `json:"vin"`
	STS           *string `json:"sts"`
	PTS           *string `json:"pts"`
	Plates        *string `json:"plates"`
	Model         string  `json:"model"`
	TypeCategory  *string `json:"type_category"`
	IssueYear     int     `json:"issue_year"`
	EngineModel   *string `json:"engine_model"`
	EngineNumber  *string `json:"engine_number"`
	ChassisNumber *string `json:"chassis_number"`
	BodyNumber    *string `json:"body_number"`
	Color         *string `json:"color"`
}

// Get は指定IDの車両を返す。
// GET /v1/car/{id}
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	car, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"car":     toCarResponse(car),
	})
}

// Save は車両を作成または更新する。
// POST /v1/car
// idが指定されていれば200（更新）、なければ201（作成）を返す。
func (h *CarHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req carRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSONError(w)
		return
	}

	if fieldErrors := validateCarRequest(&req); len(fieldErrors) > 0 {
		writeValidationErrors(w, fieldErrors)
		return
	}

	car := &model.Car{
		ID:            req.ID,
		VIN:           req.VIN,
		STS:           req.STS,
		PTS:           req.PTS,
		Plates:        req.Plates,
		Model:         req.Model,
		TypeCategory:  req.TypeCategory,
		IssueYear:     req.IssueYear,
		EngineModel:   req.EngineModel,
		EngineNumber:  req.EngineNumber,
		ChassisNumber: req.ChassisNumber,
		BodyNumber:    req.BodyNumber,
		Color:         req.Color,
	}

	isUpdate, err := h.service.Save(r.Context(), car)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	statusCode := http.StatusCreated
	message := "Car created successfully"
	if isUpdate {
		statusCode = http.StatusOK
		message = "Car updated successfully"
	}

	writeJSON(w, statusCode, map[string]any{
		"success": true,
		"message": message,
		"car":     toCarResponse(car),
	})
}

// validateCarRequest は車両保存リクエストの入力形式を検証する。
func validateCarRequest(req *carRequest) map[string][]string {
	fieldErrors := make(map[string][]string)

	if req.VIN == "" {
		fieldErrors["vin"] = append(fieldErrors["vin"], "The vin field is required")
	}
	if req.Model == "" {
		fieldErrors["model"] = append(fieldErrors["model"], "The model field is required")
	}
	if req.IssueYear == 0 {
		fieldErrors["issue_year"] = append(fieldErrors["issue_year"], "The issue_year field is required")
	}

	return fieldErrors
}

// toCarResponse はmodel.CarからAPIレスポンスに変換する。
func toCarResponse(car *model.Car) carResponse {
	return carResponse{
		ID:            car.ID,
		VIN:           car.VIN,
		STS:           car.STS,
		PTS:           car.PTS,
		Plates:        car.Plates,
		Model:         car.Model,
		TypeCategory:  car.TypeCategory,
		IssueYear:     car.IssueYear,
		EngineModel:   car.EngineModel,
		EngineNumber:  car.EngineNumber,
		ChassisNumber: car.ChassisNumber,
		BodyNumber:    car.BodyNumber,
		Color:         car.Color,
	}
}
