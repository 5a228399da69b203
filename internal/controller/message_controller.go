package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/config"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"github.com/jalh2/businesschat-backend/internal/response"
	"github.com/jalh2/businesschat-backend/internal/service"
)

type MessageController struct {
	messageService *service.MessageService
}

// NewMessageController 创建消息控制器
func NewMessageController(n notifier.Notifier) *MessageController {
	return &MessageController{
		messageService: service.NewMessageService(n),
	}
}

// List 列出群聊消息
func (ctl *MessageController) List(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	messages, serr := ctl.messageService.ListByChat(c.Request.Context(), chatID, currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, messages)
}

// textRequest 文本消息请求体
type textRequest struct {
	Content string `json:"content"`
}

// CreateText 发送文本消息
func (ctl *MessageController) CreateText(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	message, serr := ctl.messageService.CreateText(c.Request.Context(), chatID, currentUserID(c), strings.TrimSpace(req.Content))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Created(c, message)
}

// imageRequest JSON 方式上传图片的请求体（data URL）
type imageRequest struct {
	Image string `json:"image"`
}

// CreateImage 发送图片消息
// 支持 multipart 文件上传和 JSON base64 两种方式
func (ctl *MessageController) CreateImage(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	maxSize := config.Cfg.Upload.MaxImageSize

	var data []byte
	var mimeType string
	if header, ferr := c.FormFile("image"); ferr == nil {
		data, mimeType, err = readUpload(header, maxSize)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var req imageRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
			response.Fail(c, http.StatusBadRequest, "请上传图片文件或提供图片数据")
			return
		}
		data, mimeType, err = parseDataURL(req.Image, "image/jpeg")
		if err != nil {
			response.Fail(c, http.StatusBadRequest, err.Error())
			return
		}
		if maxSize > 0 && int64(len(data)) > maxSize {
			response.Fail(c, http.StatusBadRequest, "图片大小超过限制")
			return
		}
	}

	message, serr := ctl.messageService.CreateImage(c.Request.Context(), chatID, currentUserID(c), data, mimeType)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Created(c, message)
}

// CreateVoice 发送语音消息（multipart：voice 文件 + duration 秒数）
func (ctl *MessageController) CreateVoice(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	header, err := c.FormFile("voice")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "请上传语音文件")
		return
	}
	data, mimeType, err := readUpload(header, config.Cfg.Upload.MaxVoiceSize)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	duration := 0
	if raw := c.PostForm("duration"); raw != "" {
		if d, derr := strconv.Atoi(raw); derr == nil && d > 0 {
			duration = d
		}
	}

	message, serr := ctl.messageService.CreateVoice(c.Request.Context(), chatID, currentUserID(c), data, mimeType, duration)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Created(c, message)
}

// paymentRequest JSON 方式的付款消息请求体
type paymentRequest struct {
	AmountUsd int64  `json:"amount_usd"`
	AmountCny int64  `json:"amount_cny"`
	Receipt   string `json:"receipt"` // data URL，可选
}

// CreatePayment 创建付款消息
// 支持 multipart（amount_usd/amount_cny 表单字段 + receipt 文件）和 JSON 两种方式
func (ctl *MessageController) CreatePayment(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	maxSize := config.Cfg.Upload.MaxImageSize
	req := &service.CreatePaymentRequest{}

	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if raw := c.PostForm("amount_usd"); raw != "" {
			if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				req.AmountUsd = v
			}
		}
		if raw := c.PostForm("amount_cny"); raw != "" {
			if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				req.AmountCny = v
			}
		}
		if header, ferr := c.FormFile("receipt"); ferr == nil {
			data, mimeType, rerr := readUpload(header, maxSize)
			if rerr != nil {
				response.Fail(c, http.StatusBadRequest, rerr.Error())
				return
			}
			req.ReceiptData = data
			req.ReceiptMimeType = mimeType
		}
	} else {
		var body paymentRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
			return
		}
		req.AmountUsd = body.AmountUsd
		req.AmountCny = body.AmountCny
		if body.Receipt != "" {
			data, mimeType, rerr := parseDataURL(body.Receipt, "image/jpeg")
			if rerr != nil {
				response.Fail(c, http.StatusBadRequest, rerr.Error())
				return
			}
			if maxSize > 0 && int64(len(data)) > maxSize {
				response.Fail(c, http.StatusBadRequest, "付款凭证大小超过限制")
				return
			}
			req.ReceiptData = data
			req.ReceiptMimeType = mimeType
		}
	}

	payload, serr := ctl.messageService.CreatePayment(c.Request.Context(), chatID, currentUserID(c), req)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Created(c, payload)
}

// ConfirmPayment 群主确认付款
func (ctl *MessageController) ConfirmPayment(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	messageID, err := idParam(c, "messageId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	payload, serr := ctl.messageService.ConfirmPayment(c.Request.Context(), chatID, messageID, currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, payload)
}

// GetImage 下载图片
func (ctl *MessageController) GetImage(c *gin.Context) {
	ctl.serveBlob(c, ctl.messageService.GetImage)
}

// GetReceipt 下载付款凭证
func (ctl *MessageController) GetReceipt(c *gin.Context) {
	ctl.serveBlob(c, ctl.messageService.GetReceipt)
}

// GetVoice 下载语音
func (ctl *MessageController) GetVoice(c *gin.Context) {
	ctl.serveBlob(c, ctl.messageService.GetVoice)
}

// serveBlob 二进制数据下载的公共逻辑
func (ctl *MessageController) serveBlob(c *gin.Context, load func(ctx context.Context, messageID, userID int64) ([]byte, string, *service.Error)) {
	messageID, err := idParam(c, "messageId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	data, mimeType, serr := load(c.Request.Context(), messageID, currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Data(http.StatusOK, mimeType, data)
}
