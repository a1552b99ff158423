// Package response 提供统一的 HTTP 响应封装，业务错误按 xerrors 类型映射状态码。
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/tforest/tracing"
	"github.com/wyfcoding/tforest/xerrors"
)

// Body 统一响应结构.
type Body struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	Detail  string `json:"detail,omitempty"`
	Data    any    `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Success 发送一个标准的成功响应：HTTP 200，业务码 0.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: "success", Data: data, TraceID: traceID(c)})
}

// SuccessWithRawData 发送不包装的原始数据，用于健康检查等系统接口.
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 发送错误响应.
// *xerrors.Error 使用其错误码与状态码映射，其余错误兜底为 500.
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	var xe *xerrors.Error
	if errors.As(err, &xe) {
		status := xe.HTTPStatus()
		c.JSON(status, Body{Code: xe.Code, Msg: xe.Message, Detail: xe.Detail, TraceID: traceID(c)})
		return
	}

	c.JSON(http.StatusInternalServerError, Body{Code: http.StatusInternalServerError, Msg: err.Error(), TraceID: traceID(c)})
}

// ErrorWithStatus 发送一个带有指定 HTTP 状态码、消息和详情的错误响应。
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, Body{Code: status, Msg: msg, Detail: detail, TraceID: traceID(c)})
}

func traceID(c *gin.Context) string {
	if c.Request == nil {
		return ""
	}
	return tracing.GetTraceID(c.Request.Context())
}
