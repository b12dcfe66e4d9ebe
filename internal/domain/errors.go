package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Клиентские ошибки: в аудит не попадают
var (
	ErrBadRequest     = errors.New("bad request")
	ErrAgentNotFound  = errors.New("agent not found")
	ErrTaskNotAllowed = errors.New("task not allowed")
	ErrUnauthorized   = errors.New("unauthorized")
)

// Ошибки вышестоящих сервисов
var (
	ErrUpstreamUnreachable     = errors.New("upstream unreachable")
	ErrUpstreamInvalidResponse = errors.New("upstream invalid response")
)

// ExtractionFailedError: сервис извлечения отверг бандл. Details отдаются вызывающему как есть.
type ExtractionFailedError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction failed [%d]: %s", e.StatusCode, e.Message)
}

// ExtractionUnavailableError: сервис извлечения не ответил (сеть, таймаут, невалидный ответ).
type ExtractionUnavailableError struct {
	Err error
}

func (e *ExtractionUnavailableError) Error() string {
	return fmt.Sprintf("extraction unavailable: %v", e.Err)
}

func (e *ExtractionUnavailableError) Unwrap() error { return ErrUpstreamUnreachable }

// UnknownTaskError: неизвестный дискриминатор задачи оркестратора.
type UnknownTaskError struct {
	Task string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task: %s", e.Task)
}

func (e *UnknownTaskError) Unwrap() error { return ErrBadRequest }

// HTTPStatus сопоставляет ошибку с HTTP-кодом ответа.
func HTTPStatus(err error) int {
	var extErr *ExtractionFailedError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &extErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrAgentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrTaskNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUpstreamUnreachable), errors.Is(err, ErrUpstreamInvalidResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
