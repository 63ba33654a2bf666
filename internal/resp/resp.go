// Package resp 提供统一的HTTP JSON响应结构与写入辅助函数。
package resp

import (
	"encoding/json"
	"net/http"
)

// Code 业务响应码
type Code int

// 约定的业务响应码集合。
const (
	CodeOK            Code = 0
	CodeInvalidParam  Code = 40001
	CodeUnauthorized  Code = 40101
	CodeForbidden     Code = 40301
	CodeNotFound      Code = 40401
	CodeConflict      Code = 40901
	CodeTooManyReq    Code = 42901
	CodeTimeout       Code = 50401
	CodeInternalError Code = 50001
)

// Response 统一响应体
// data字段在错误响应中为空。
type Response[T any] struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// HTTPStatusFromCode 将业务码映射为HTTP状态码
func HTTPStatusFromCode(code Code) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyReq:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON 写入JSON响应
func WriteJSON(w http.ResponseWriter, status int, code Code, message string, data any, requestID, traceID string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response[any]{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// OK 写入成功响应
func OK(w http.ResponseWriter, data any, requestID, traceID string) {
	WriteJSON(w, http.StatusOK, CodeOK, "success", data, requestID, traceID)
}

// Error 写入错误响应
func Error(w http.ResponseWriter, status int, code Code, message, requestID, traceID string) {
	WriteJSON(w, status, code, message, nil, requestID, traceID)
}
