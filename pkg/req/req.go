package req

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Dhoini/checkout-bridge/pkg/logger"
	"github.com/Dhoini/checkout-bridge/pkg/res"
	"github.com/go-playground/validator/v10"
)

// Decode декодирует JSON из io.ReadCloser в структуру типа T.
func Decode[T any](body io.ReadCloser) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid валидирует структуру типа T.
func IsValid[T any](payload T) error {
	validate := validator.New()
	err := validate.Struct(payload)
	return err
}

// HandleBody декодирует, валидирует и обрабатывает тело запроса.
func HandleBody[T any](w http.ResponseWriter, r *http.Request, log *logger.Logger) (*T, error) {
	body, err := Decode[T](r.Body)
	if err != nil {
		log.Errorw("Failed to decode request body", "error", err)
		res.JsonResponse(w, res.ErrorResponse{Error: "Invalid request format"}, http.StatusUnprocessableEntity)
		return nil, err
	}

	err = IsValid(body)
	if err != nil {
		log.Errorw("Request body validation failed", "error", err)
		res.JsonResponse(w, res.ErrorResponse{Error: "Invalid request data", Details: err.Error()}, http.StatusUnprocessableEntity)
		return nil, err
	}
	return &body, nil
}
