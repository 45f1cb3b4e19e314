package service

import (
	"errors"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	StudentRepo *repository.StudentRepository
	Cfg         *config.Config
}

func NewAuthService(studentRepo *repository.StudentRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		StudentRepo: studentRepo,
		Cfg:         cfg,
	}
}

type RegisterReq struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResp struct {
	Token   string         `json:"token"`
	Student *model.Student `json:"student"`
}

func (s *AuthService) Register(req RegisterReq) (*model.Student, error) {
	if _, err := s.StudentRepo.FindByEmail(req.Email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     model.RoleStudent,
	}
	if err := s.StudentRepo.Create(student); err != nil {
		return nil, err
	}

	logger.Log.Info("student registered", zap.Uint("studentId", student.ID))
	return student, nil
}

func (s *AuthService) Login(req LoginReq) (*LoginResp, error) {
	student, err := s.StudentRepo.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrStudentNotFound
		}
		return nil, err
	}
	if student.Disabled {
		return nil, util.ErrPermissionDenied
	}

	if err := bcrypt.CompareHashAndPassword([]byte(student.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrStudentNotFound
	}

	token, err := util.GenerateJWT(student, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	if err := s.StudentRepo.UpdateLastLogin(student.ID); err != nil {
		logger.Log.Warn("update last login failed", zap.Uint("studentId", student.ID), zap.Error(err))
	}

	return &LoginResp{Token: token, Student: student}, nil
}

func (s *AuthService) GetProfile(studentID uint) (*model.Student, error) {
	student, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}
