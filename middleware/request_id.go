// Package middleware 提供预测服务使用的 Gin 中间件.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/tforest/idgen"
)

// HeaderXRequestID 请求 ID 头.
const HeaderXRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestID 透传或生成请求 ID，并写入响应头与请求上下文.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = idgen.GenIDString()
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, requestID))
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}

// GetRequestID 从上下文读取请求 ID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
