package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"fulfillment-api/pkg/apierror"
)

// Response is the success envelope.
type Response struct {
	Success bool  `json:"success"`
	Data    any   `json:"data,omitempty"`
	Meta    *Meta `json:"meta,omitempty"`
}

// Meta describes a truncated list.
type Meta struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}

func write(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// JSON wraps data in the success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{Success: true, Data: data})
}

// List sends a list together with the limit it was fetched with.
func List(w http.ResponseWriter, data any, limit, count int) {
	write(w, http.StatusOK, Response{Success: true, Data: data, Meta: &Meta{Limit: limit, Count: count}})
}

// Error sends err as an API error. Anything that is not an *apierror.Error is a 500.
func Error(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierror.InternalError("")
	}
	apiErr.Write(w)
}

// NoContent sends 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Created sends 201 with the new resource.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Accepted sends 202 for work that completes asynchronously.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, data)
}

// OK sends 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}
