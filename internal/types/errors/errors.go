package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

var (
	ErrNoAuth          = errors.New("authorization required")
	ErrSessionNotFound = errors.New("session not found")
	ErrStaleSession    = errors.New("session changed while request was in flight")
	ErrTokenExpired    = errors.New("token is expired")

	ErrUnauthorized       = errors.New("backend rejected the token")
	ErrForbidden          = errors.New("admin access required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrBackendStatus      = errors.New("unexpected backend status")
	ErrFetchFailed        = errors.New("failed to load data")
	ErrInvalidRole        = errors.New("invalid role")

	ErrEmptyFeedback      = errors.New("feedback text is empty")
	ErrInvalidJSONPayload = errors.New("invalid JSON payload")
)

type ErrorServer struct {
	Message string `json:"message"`
}

func (e *ErrorServer) Error() string {
	return e.Message
}

/*
NewErrorServer
Функция имеет возможность принимать "nil ошибку"
при получении nil наша функция понимает, что нам
просто надо отдать саксесс клиенту
*/
func NewErrorServer(err error) ErrorServer {
	if err == nil {
		return ErrorServer{
			Message: "success",
		}
	}

	return ErrorServer{
		Message: err.Error(),
	}
}

func SendErrorTo(w http.ResponseWriter, err error, statusCode int, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if errEncode := json.NewEncoder(w).Encode(NewErrorServer(err)); errEncode != nil {
		logger.Error(errEncode)
	}
}
