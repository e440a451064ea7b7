package controller

import (
	"errors"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/internal/util"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxImageBytes = 8 << 20

type ProctorController struct {
	Hub         *service.ProctorHub
	FaceService *service.FaceService
}

func NewProctorController(hub *service.ProctorHub, faceService *service.FaceService) *ProctorController {
	return &ProctorController{Hub: hub, FaceService: faceService}
}

// readImage 读取并校验一张上传图片
func readImage(fh *multipart.FileHeader) (service.Upload, error) {
	data, err := util.ReadMultipartFile(fh, maxImageBytes)
	if err != nil {
		return service.Upload{}, err
	}
	mimeType, err := util.ValidateMimeType(data, []string{util.MimeImage})
	if err != nil {
		return service.Upload{}, err
	}
	return service.Upload{Filename: fh.Filename, ContentType: mimeType, Data: data}, nil
}

func formImage(ctx *gin.Context, field string) (service.Upload, bool) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		util.BadRequest(ctx, "Missing image field: "+field)
		return service.Upload{}, false
	}
	img, err := readImage(fh)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return service.Upload{}, false
	}
	return img, true
}

// faceError 人脸服务错误统一映射
func faceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrNoEnrollment):
		util.BadRequest(ctx, "No enrollments found for user")
	case errors.Is(err, util.ErrNoImages):
		util.BadRequest(ctx, "No images provided")
	case errors.Is(err, util.ErrTooManyImages):
		util.BadRequest(ctx, "Too many images")
	case errors.Is(err, util.ErrNoFace):
		util.BadRequest(ctx, "No face detected in image")
	case errors.Is(err, util.ErrFaceService):
		util.Error(ctx, http.StatusBadGateway, "Face service error")
	default:
		util.LogInternalError(ctx, err)
	}
}

// HandleWS godoc
// @Summary 监考 WebSocket
// @Description 上行摄像头状态与视频帧，下行监考状态变化
// @Tags 监考
// @Security ApiKeyAuth
// @Param   token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/proctor/ws [get]
func (c *ProctorController) HandleWS(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	c.Hub.ServeWs(ctx.Writer, ctx.Request, claims.UserID)
}

// Classify godoc
// @Summary 单帧人脸在场判定
// @Description 基于肤色像素占比的启发式判定
// @Tags 监考
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   image formData file true "视频帧"
// @Success 200 {object} util.Response{data=proctor.Result} "成功"
// @Failure 400 {object} util.Response "图片无效"
// @Router /api/proctor/classify [post]
func (c *ProctorController) Classify(ctx *gin.Context) {
	img, ok := formImage(ctx, "image")
	if !ok {
		return
	}
	res, err := c.Hub.Classifier().ClassifyBytes(img.Data)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, res)
}

// Detect godoc
// @Summary 人脸检测
// @Tags 监考
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   image formData file true "图片"
// @Success 200 {object} util.Response{data=service.DetectResult} "成功"
// @Failure 502 {object} util.Response "人脸服务错误"
// @Router /api/proctor/detect [post]
func (c *ProctorController) Detect(ctx *gin.Context) {
	img, ok := formImage(ctx, "image")
	if !ok {
		return
	}
	res, err := c.FaceService.Detect(ctx.Request.Context(), img)
	if err != nil {
		faceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Verify godoc
// @Summary 两张照片比对
// @Tags 监考
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   image1 formData file true "图片1"
// @Param   image2 formData file true "图片2"
// @Success 200 {object} util.Response{data=service.VerifyResult} "成功"
// @Failure 502 {object} util.Response "人脸服务错误"
// @Router /api/proctor/verify [post]
func (c *ProctorController) Verify(ctx *gin.Context) {
	img1, ok := formImage(ctx, "image1")
	if !ok {
		return
	}
	img2, ok := formImage(ctx, "image2")
	if !ok {
		return
	}
	res, err := c.FaceService.Verify(ctx.Request.Context(), img1, img2)
	if err != nil {
		faceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Enroll godoc
// @Summary 注册人脸
// @Description 上传最多 10 张自拍，提取特征后保存
// @Tags 监考
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   images formData file true "自拍照片，可多张"
// @Success 201 {object} util.Response{data=service.EnrollResult} "成功"
// @Failure 400 {object} util.Response "没有图片或图片中没有人脸"
// @Failure 502 {object} util.Response "人脸服务错误"
// @Router /api/proctor/enroll [post]
func (c *ProctorController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		util.BadRequest(ctx, "No images provided")
		return
	}
	files := form.File["images"]
	images := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		img, err := readImage(fh)
		if err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		images = append(images, img)
	}

	res, err := c.FaceService.Enroll(ctx.Request.Context(), claims.UserID, images)
	if err != nil {
		faceError(ctx, err)
		return
	}
	util.Created(ctx, res)
}

// VerifyLive godoc
// @Summary 实时身份核验
// @Description 与已注册特征逐一比较，取最小余弦距离，距离不超过阈值视为同一人
// @Tags 监考
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   image formData file true "当前画面"
// @Success 200 {object} util.Response{data=service.LiveVerifyResult} "成功"
// @Failure 400 {object} util.Response "尚未注册"
// @Failure 502 {object} util.Response "人脸服务错误"
// @Router /api/proctor/verify-live [post]
func (c *ProctorController) VerifyLive(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	img, ok := formImage(ctx, "image")
	if !ok {
		return
	}
	res, err := c.FaceService.VerifyLive(ctx.Request.Context(), claims.UserID, img)
	if err != nil {
		faceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
