package repository

import (
	"exam_platform_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) Create(student *model.Student) error {
	return r.DB.Create(student).Error
}

func (r *StudentRepository) FindByID(id uint) (*model.Student, error) {
	var student model.Student
	err := r.DB.First(&student, id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) FindByEmail(email string) (*model.Student, error) {
	var student model.Student
	err := r.DB.Where("email = ?", email).First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) UpdateLastLogin(id uint) error {
	return r.DB.Model(&model.Student{}).Where("id = ?", id).
		Update("last_login", time.Now()).Error
}

func (r *StudentRepository) UpdateLastSeen(id uint) error {
	return r.DB.Model(&model.Student{}).Where("id = ?", id).
		Update("last_seen", time.Now()).Error
}
