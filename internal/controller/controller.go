package controller

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/internal/response"
	"github.com/jalh2/businesschat-backend/internal/service"
)

// currentUserID 从上下文获取已认证的用户 ID（由 Auth 中间件写入）
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}

// idParam 解析路径中的数字 ID 参数
func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("非法的 %s", name)
	}
	return id, nil
}

// failService 把业务错误映射为统一响应
func failService(c *gin.Context, serr *service.Error) {
	response.FailWithCode(c, serr.Status, serr.Code, serr.Message)
}

// readUpload 读取 multipart 文件，带大小上限
func readUpload(header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if maxSize <= 0 {
		maxSize = 32 << 20
	}
	if header.Size > maxSize {
		return nil, "", fmt.Errorf("文件大小超过限制 (%d 字节)", maxSize)
	}
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxSize {
		return nil, "", fmt.Errorf("文件大小超过限制 (%d 字节)", maxSize)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// parseDataURL 解析 base64 数据，支持 data URL 和裸 base64 两种格式
func parseDataURL(raw, fallbackMime string) ([]byte, string, error) {
	mimeType := fallbackMime
	payload := raw

	if strings.HasPrefix(raw, "data:") {
		idx := strings.Index(raw, ",")
		if idx < 0 {
			return nil, "", fmt.Errorf("非法的 data URL")
		}
		meta := raw[5:idx]
		payload = raw[idx+1:]
		if semi := strings.Index(meta, ";"); semi >= 0 {
			meta = meta[:semi]
		}
		if meta != "" {
			mimeType = meta
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("base64 解码失败: %w", err)
	}
	return data, mimeType, nil
}
