package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/cardeal/internal/model"
)

// PersonServiceInterface は人物ハンドラーが必要とするサービスインターフェース。
type PersonServiceInterface interface {
	// Get は指定IDの人物をパスポート付きで返す。
	Get(ctx context.Context, id int64) (*model.Person, error)
	// Save は人物とパスポートを保存する。戻り値は更新だったかどうか。
	Save(ctx context.Context, person *model.Person, passport *model.Passport) (bool, error)
}

// PersonHandler は人物・パスポート管理のHTTPハンドラー。
type PersonHandler struct {
	service PersonServiceInterface
}

// NewPersonHandler はPersonHandlerを生成する。
func NewPersonHandler(service PersonServiceInterface) *PersonHandler {
	return &PersonHandler{service: service}
}

// passportRequest はパスポート情報のリクエストボディ。
type passportRequest struct {
	ID        int64   `json:"id"`
	Serie     string  `json:"serie"`
	Number    string  `json:"number"`
	Issuer    *string `json:"issuer"`
	IssueDate *string `json:"issue_date"`
}

// personRequest は人物保存リクエストのボディ。IDが0以外の場合は更新。
type personRequest struct {
	ID         int64            `json:"id"`
	Surname    *string          `json:"surname"`
	Name       *string          `json:"name"`
	Fathername *string          `json:"fathername"`
	Birthdate  *string          `json:"birthdate"`
	Country    *string          `json:"country"`
	Index      *string          `json:"index"`
	Region     *string          `json:"region"`
	Passport   *passportRequest `json:"passport"`
}

// passportResponse はパスポート情報のAPIレスポンス。
type passportResponse struct {
	ID        int64   `json:"id"`
	Serie     string  `json:"serie"`
	Number    string  `json:"number"`
	Issuer    *string `json:"issuer"`
	IssueDate *string `json:"issue_date"`
}

// personResponse は人物情報のAPIレスポンス。
type personResponse struct {
	ID         int64             `json:"id"`
	Surname    *string           `json:"surname"`
	Name       *string           `json:"name"`
	Fathername *string           `json:"fathername"`
	Birthdate  *string           `json:"birthdate"`
	Country    *string           `json:"country"`
	Index      *string           `json:"index"`
	Region     *string           `json:"region"`
	Avatar     *string           `json:"avatar"`
	Passport   *passportResponse `json:"passport"`
}

// Get は指定IDの人物を返す。
// GET /v1/passport/{id}
func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	person, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"person":  toPersonResponse(person),
	})
}

// Save は人物とパスポートを作成または更新する。
// POST /v1/passport
// idが指定されていれば200（更新）、なければ201（作成）を返す。
func (h *PersonHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSONError(w)
		return
	}

	if fieldErrors := validatePersonRequest(&req); len(fieldErrors) > 0 {
		writeValidationErrors(w, fieldErrors)
		return
	}

	person := &model.Person{
		ID:         req.ID,
		Surname:    req.Surname,
		Name:       req.Name,
		Fathername: req.Fathername,
		Country:    req.Country,
		Index:      req.Index,
		Region:     req.Region,
	}
	if req.Birthdate != nil {
		t, err := parseDateField(*req.Birthdate)
		if err != nil {
			writeValidationErrors(w, map[string][]string{"birthdate": {"The birthdate is not a valid date"}})
			return
		}
		person.Birthdate = &t
	}

	passport := &model.Passport{
		ID:     req.Passport.ID,
		Serie:  req.Passport.Serie,
		Number: req.Passport.Number,
		Issuer: req.Passport.Issuer,
	}
	if req.Passport.IssueDate != nil {
		t, err := parseDateField(*req.Passport.IssueDate)
		if err != nil {
			writeValidationErrors(w, map[string][]string{"passport.issue_date": {"The issue_date is not a valid date"}})
			return
		}
		passport.IssueDate = &t
	}

	isUpdate, err := h.service.Save(r.Context(), person, passport)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	statusCode := http.StatusCreated
	message := "Person created successfully"
	if isUpdate {
		statusCode = http.StatusOK
		message = "Person updated successfully"
	}

	writeJSON(w, statusCode, map[string]any{
		"success": true,
		"message": message,
		"person":  toPersonResponse(person),
	})
}

// validatePersonRequest は人物保存リクエストの入力形式を検証する。
func validatePersonRequest(req *personRequest) map[string][]string {
	fieldErrors := make(map[string][]string)

	if req.Surname == nil || *req.Surname == "" {
		fieldErrors["surname"] = append(fieldErrors["surname"], "The surname field is required")
	}
	if req.Name == nil || *req.Name == "" {
		fieldErrors["name"] = append(fieldErrors["name"], "The name field is required")
	}
	if req.Passport == nil {
		fieldErrors["passport"] = append(fieldErrors["passport"], "The passport field is required")
	} else {
		if req.Passport.Serie == "" {
			fieldErrors["passport.serie"] = append(fieldErrors["passport.serie"], "The serie field is required")
		}
		if req.Passport.Number == "" {
			fieldErrors["passport.number"] = append(fieldErrors["passport.number"], "The number field is required")
		}
	}

	return fieldErrors
}

// toPersonResponse はmodel.PersonからAPIレスポンスに変換する。
func toPersonResponse(person *model.Person) personResponse {
	resp := personResponse{
		ID:         person.ID,
		Surname:    person.Surname,
		Name:       person.Name,
		Fathername: person.Fathername,
		Birthdate:  formatDate(person.Birthdate),
		Country:    person.Country,
		Index:      person.Index,
		Region:     person.Region,
		Avatar:     person.Avatar,
	}
	if person.Passport != nil {
		resp.Passport = &passportResponse{
			ID:        person.Passport.ID,
			Serie:     person.Passport.Serie,
			Number:    person.Passport.Number,
			Issuer:    person.Passport.Issuer,
			IssueDate: formatDate(person.Passport.IssueDate),
		}
	}
	return resp
}
