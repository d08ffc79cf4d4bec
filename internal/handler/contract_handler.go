package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cardeal/internal/contract"
	"github.com/hitoshi/cardeal/internal/model"
)

// ContractServiceInterface は契約ハンドラーが必要とするサービスインターフェース。
type ContractServiceInterface interface {
	// List は契約一覧をページネーション付きで返す。
	List(ctx context.Context, pageNo, pageSize int) (*contract.Page, error)
	// Get は指定IDの契約を関連データ付きで返す。
	Get(ctx context.Context, id int64) (*model.Contract, error)
	// Create は契約を作成する。
	Create(ctx context.Context, c *model.Contract) (*model.Contract, error)
	// Update は既存契約を部分更新する。
	Update(ctx context.Context, id int64, patch *contract.Patch) (*model.Contract, error)
	// Delete は指定IDの契約を削除する。
	Delete(ctx context.Context, id int64) error
}

// ContractHandler は売買契約管理のHTTPハンドラー。
type ContractHandler struct {
	service ContractServiceInterface
}

// NewContractHandler はContractHandlerを生成する。
func NewContractHandler(service ContractServiceInterface) *ContractHandler {
	return &ContractHandler{service: service}
}

// createContractRequest は契約作成リクエストのボディ。
type createContractRequest struct {
	Status   string `json:"status"`
	Date     string `json:"date"`
	City     string `json:"city"`
	SellerID int64  `json:"seller_id"`
	BuyerID  int64  `json:"buyer_id"`
	CarID    int64  `json:"car_id"`
	Price    string `json:"price"`
}

// updateContractRequest は契約更新リクエストのボディ。nilフィールドは変更しない。
type updateContractRequest struct {
	Status   *string `json:"status"`
	Date     *string `json:"date"`
	City     *string `json:"city"`
	SellerID *int64  `json:"seller_id"`
	BuyerID  *int64  `json:"buyer_id"`
	CarID    *int64  `json:"car_id"`
	Price    *string `json:"price"`
}

// contractResponse は契約情報のAPIレスポンス。
type contractResponse struct {
	ID        int64           `json:"id"`
	Status    string          `json:"status"`
	Date      string          `json:"date"`
	City      string          `json:"city"`
	Price     string          `json:"price"`
	Seller    *personResponse `json:"seller"`
	Buyer     *personResponse `json:"buyer"`
	Car       *carResponse    `json:"car"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// paginationResponse は一覧のページネーション情報。
type paginationResponse struct {
	Total      int `json:"total"`
	PageNo     int `json:"pageNo"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// List は契約一覧を返す。
// GET /v1/contracts?pageNo=&pageSize=
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	pageNo, _ := strconv.Atoi(r.URL.Query().Get("pageNo"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	page, err := h.service.List(r.Context(), pageNo, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	contracts := make([]contractResponse, len(page.Contracts))
	for i, c := range page.Contracts {
		contracts[i] = toContractResponse(c)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Contracts list",
		"contracts": contracts,
		"pagination": paginationResponse{
			Total:      page.Total,
			PageNo:     page.PageNo,
			PageSize:   page.PageSize,
			TotalPages: page.TotalPages,
		},
	})
}

// Get は指定IDの契約を返す。
// GET /v1/contracts/{id}
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"contract": toContractResponse(c),
	})
}

// Create は契約を作成する。
// POST /v1/contracts
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSONError(w)
		return
	}

	fieldErrors := validateCreateContractRequest(&req)
	var date time.Time
	if req.Date != "" {
		var err error
		date, err = parseDateField(req.Date)
		if err != nil {
			fieldErrors["date"] = append(fieldErrors["date"], "The date is not a valid date")
		}
	}
	if len(fieldErrors) > 0 {
		writeValidationErrors(w, fieldErrors)
		return
	}

	c := &model.Contract{
		Status:   req.Status,
		Date:     date,
		City:     req.City,
		SellerID: req.SellerID,
		BuyerID:  req.BuyerID,
		CarID:    req.CarID,
		Price:    req.Price,
	}

	created, err := h.service.Create(r.Context(), c)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  "Contract created successfully",
		"contract": toContractResponse(created),
	})
}

// Update は既存契約を部分更新する。リクエストに含まれないフィールドは維持される。
// PUT /v1/contracts/{id}
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req updateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSONError(w)
		return
	}

	patch := &contract.Patch{
		Status:   req.Status,
		City:     req.City,
		SellerID: req.SellerID,
		BuyerID:  req.BuyerID,
		CarID:    req.CarID,
		Price:    req.Price,
	}
	if req.Status != nil && !model.IsValidContractStatus(*req.Status) {
		writeValidationErrors(w, map[string][]string{
			"status": {"The status must be one of: draft, generated"},
		})
		return
	}
	if req.Date != nil {
		t, err := parseDateField(*req.Date)
		if err != nil {
			writeValidationErrors(w, map[string][]string{
				"date": {"The date is not a valid date"},
			})
			return
		}
		patch.Date = &t
	}

	updated, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Contract updated successfully",
		"contract": toContractResponse(updated),
	})
}

// Delete は指定IDの契約を削除する。
// DELETE /v1/contracts/{id}
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Contract deleted successfully",
	})
}

// validateCreateContractRequest は契約作成リクエストの入力形式を検証する。
func validateCreateContractRequest(req *createContractRequest) map[string][]string {
	fieldErrors := make(map[string][]string)

	if req.SellerID == 0 {
		fieldErrors["seller_id"] = append(fieldErrors["seller_id"], "The seller_id field is required")
	}
	if req.BuyerID == 0 {
		fieldErrors["buyer_id"] = append(fieldErrors["buyer_id"], "The buyer_id field is required")
	}
	if req.CarID == 0 {
		fieldErrors["car_id"] = append(fieldErrors["car_id"], "The car_id field is required")
	}
	if req.Price == "" {
		fieldErrors["price"] = append(fieldErrors["price"], "The price field is required")
	}
	if req.Status != "" && !model.IsValidContractStatus(req.Status) {
		fieldErrors["status"] = append(fieldErrors["status"], "The status must be one of: draft, generated")
	}

	return fieldErrors
}

// parseIDParam はURLのidパラメータを解釈する。不正な場合は422を書き込む。
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeValidationErrors(w, map[string][]string{"id": {"The id must be an integer"}})
		return 0, false
	}
	return id, true
}

// toContractResponse はmodel.ContractからAPIレスポンスに変換する。
func toContractResponse(c *model.Contract) contractResponse {
	resp := contractResponse{
		ID:        c.ID,
		Status:    c.Status,
		Date:      c.Date.Format(dateLayout),
		City:      c.City,
		Price:     c.Price,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Seller != nil {
		seller := toPersonResponse(c.Seller)
		resp.Seller = &seller
	}
	if c.Buyer != nil {
		buyer := toPersonResponse(c.Buyer)
		resp.Buyer = &buyer
	}
	if c.Car != nil {
		car := toCarResponse(c.Car)
		resp.Car = &car
	}
	return resp
}
