package service

import (
	"net/http"
)

// Error 业务错误
// Code 为业务错误码，Status 为对应的 HTTP 状态码；
// Message 是可以直接返回给调用方的文案，内部细节只进日志
type Error struct {
	Code    int
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// 业务错误码定义
const (
	ErrCodeValidation         = 7801
	ErrCodeChatNotFound       = 7802
	ErrCodeForbidden          = 7803
	ErrCodeNotCreator         = 7804
	ErrCodeMessageNotFound    = 7805
	ErrCodeNotPayment         = 7806
	ErrCodeAlreadyConfirmed   = 7807
	ErrCodeCreatorAlert       = 7808
	ErrCodeUsernameTaken      = 7809
	ErrCodeInvalidCredentials = 7810
	ErrCodeUserNotFound       = 7811
	ErrCodeBlobNotFound       = 7812
	ErrCodeStorage            = 7899
)

// 错误定义
var (
	ErrAmountRequired         = &Error{Code: ErrCodeValidation, Status: http.StatusBadRequest, Message: "请提供大于0的金额"}
	ErrAmountNegative         = &Error{Code: ErrCodeValidation, Status: http.StatusBadRequest, Message: "金额不能为负数"}
	ErrAmountOrReceipt        = &Error{Code: ErrCodeValidation, Status: http.StatusBadRequest, Message: "请提供大于0的金额或付款凭证"}
	ErrContentRequired        = &Error{Code: ErrCodeValidation, Status: http.StatusBadRequest, Message: "消息内容不能为空"}
	ErrImageRequired          = &Error{Code: ErrCodeValidation, Status: http.StatusBadRequest, Message: "请上传图片文件或提供图片数据"}
	ErrVoiceRequired          = &Error{Code: ErrCodeValidation, Status: http.StatusBadRequest, Message: "请上传语音文件"}
	ErrCredentialsRequired    = &Error{Code: ErrCodeValidation, Status: http.StatusBadRequest, Message: "用户名和密码不能为空"}
	ErrNothingToUpdate        = &Error{Code: ErrCodeValidation, Status: http.StatusBadRequest, Message: "没有需要更新的内容"}
	ErrChatNotFound           = &Error{Code: ErrCodeChatNotFound, Status: http.StatusNotFound, Message: "群聊不存在"}
	ErrNotParticipant         = &Error{Code: ErrCodeForbidden, Status: http.StatusForbidden, Message: "无权访问该群聊"}
	ErrOnlyCreatorAdjust      = &Error{Code: ErrCodeNotCreator, Status: http.StatusForbidden, Message: "只有群主可以调整余额"}
	ErrOnlyCreatorConfirm     = &Error{Code: ErrCodeNotCreator, Status: http.StatusForbidden, Message: "只有群主可以确认付款"}
	ErrOnlyCreatorDelete      = &Error{Code: ErrCodeNotCreator, Status: http.StatusForbidden, Message: "只有群主可以删除群聊"}
	ErrMessageNotFound        = &Error{Code: ErrCodeMessageNotFound, Status: http.StatusNotFound, Message: "消息不存在"}
	ErrPaymentNotFound        = &Error{Code: ErrCodeMessageNotFound, Status: http.StatusNotFound, Message: "付款消息不存在"}
	ErrNotPaymentMessage      = &Error{Code: ErrCodeNotPayment, Status: http.StatusBadRequest, Message: "不是付款消息"}
	ErrPaymentConfirmed       = &Error{Code: ErrCodeAlreadyConfirmed, Status: http.StatusBadRequest, Message: "付款已确认"}
	ErrCreatorAlertConfirm    = &Error{Code: ErrCodeCreatorAlert, Status: http.StatusBadRequest, Message: "群主收款提醒不可确认"}
	ErrUsernameTaken          = &Error{Code: ErrCodeUsernameTaken, Status: http.StatusConflict, Message: "用户名已被占用"}
	ErrInvalidCredentials     = &Error{Code: ErrCodeInvalidCredentials, Status: http.StatusUnauthorized, Message: "用户名或密码错误"}
	ErrUserNotFound           = &Error{Code: ErrCodeUserNotFound, Status: http.StatusNotFound, Message: "用户不存在"}
	ErrImageNotAvailable      = &Error{Code: ErrCodeBlobNotFound, Status: http.StatusNotFound, Message: "图片不存在"}
	ErrReceiptNotAvailable    = &Error{Code: ErrCodeBlobNotFound, Status: http.StatusNotFound, Message: "付款凭证不存在"}
	ErrVoiceNotAvailable      = &Error{Code: ErrCodeBlobNotFound, Status: http.StatusNotFound, Message: "语音不存在"}
	ErrStorage                = &Error{Code: ErrCodeStorage, Status: http.StatusInternalServerError, Message: "系统繁忙,请稍后重试"}
)
