package service

import (
	"errors"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/util"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.JWTConfig
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.JWTConfig) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) Register(username, password, email string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, util.ErrMissingFields
	}

	exists, err := s.UserRepo.ExistsByUsername(username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrUsernameTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		Email:        strings.TrimSpace(email),
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *AuthService) Login(username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, util.ErrMissingFields
	}

	user, err := s.UserRepo.FindByUsername(strings.TrimSpace(username))
	if errors.Is(err, util.ErrUserNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := util.GenerateJWT(user, s.Cfg.Secret, s.Cfg.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
