package controller

import (
	"errors"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/internal/util"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxAudioBytes = 25 << 20

type SpeechController struct {
	SpeechService *service.SpeechService
}

func NewSpeechController(speechService *service.SpeechService) *SpeechController {
	return &SpeechController{SpeechService: speechService}
}

func allowedAudioExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range util.AllowedAudioExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Transcribe godoc
// @Summary 语音转文字
// @Description 最长 30 秒，连续 3 秒静音即停止；没有识别结果时返回 [No speech detected]
// @Tags 语音
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   audio formData file true "录音文件"
// @Success 200 {object} util.Response{data=service.TranscriptResult} "成功"
// @Failure 400 {object} util.Response "文件无效"
// @Failure 503 {object} util.Response "未启用语音识别"
// @Router /api/speech/transcribe [post]
func (c *SpeechController) Transcribe(ctx *gin.Context) {
	if !c.SpeechService.Enabled() {
		util.Error(ctx, http.StatusServiceUnavailable, "Speech transcription is not enabled")
		return
	}

	fh, err := ctx.FormFile("audio")
	if err != nil {
		util.BadRequest(ctx, "Missing audio file")
		return
	}
	if !allowedAudioExt(fh.Filename) {
		util.BadRequest(ctx, "Unsupported audio format")
		return
	}
	data, err := util.ReadMultipartFile(fh, maxAudioBytes)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.SpeechService.Transcribe(ctx.Request.Context(), data, fh.Filename)
	if errors.Is(err, util.ErrSpeechDisabled) {
		util.Error(ctx, http.StatusServiceUnavailable, "Speech transcription is not enabled")
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
