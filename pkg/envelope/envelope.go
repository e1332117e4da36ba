// Package envelope writes the success half of the JSON response envelope.
// Failures are rendered by the error handler in internal/platform/apperr.
package envelope

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the JSON shape of every successful response.
type Response struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta,omitempty"`
}

// OK writes a 200 envelope.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{OK: true, Data: data})
}

// Created writes a 201 envelope.
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{OK: true, Data: data})
}

// List writes a 200 envelope carrying list metadata.
func List(c echo.Context, data interface{}, meta interface{}) error {
	return c.JSON(http.StatusOK, Response{OK: true, Data: data, Meta: meta})
}
