package controller

import (
	"errors"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// swagger:model RegisterRequest
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Register godoc
// @Summary 注册新用户
// @Description 用户名唯一，成功后直接返回令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=service.AuthResult} "创建成功"
// @Failure 400 {object} util.Response "缺少字段或用户名已存在"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.Register(req.Username, req.Password, req.Email)
	switch {
	case errors.Is(err, util.ErrMissingFields):
		util.BadRequest(ctx, "Username and password are required")
	case errors.Is(err, util.ErrUsernameTaken):
		util.BadRequest(ctx, "Username already exists")
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Created(ctx, result)
	}
}

// swagger:model LoginRequest
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login godoc
// @Summary 用户登录
// @Description 验证用户名密码并返回JWT令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "用户登录凭据"
// @Success 200 {object} util.Response{data=service.AuthResult} "登录成功"
// @Failure 400 {object} util.Response "缺少字段"
// @Failure 401 {object} util.Response "用户名或密码错误"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, util.ErrMissingFields):
		util.BadRequest(ctx, "Username and password are required")
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, "Invalid credentials")
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Success(ctx, result)
	}
}
