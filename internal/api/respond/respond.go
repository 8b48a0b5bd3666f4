// Package respond contains JSON response helpers shared by the HTTP
// handlers.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/wb-go/wbf/zlog"
)

type successResponse struct {
	Result interface{} `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// JSON writes value as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(value); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode response")
	}
}

// OK writes a 200 response with the result envelope.
func OK(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusOK, successResponse{Result: result})
}

// Created writes a 201 response with the result envelope.
func Created(w http.ResponseWriter, result interface{}) {
	JSON(w, http.StatusCreated, successResponse{Result: result})
}

// Fail writes an error response with the error envelope.
func Fail(w http.ResponseWriter, status int, err error) {
	JSON(w, status, errorResponse{Error: err.Error()})
}
