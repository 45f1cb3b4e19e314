package model

import (
	"time"
)

type StudentRole string

const (
	RoleStudent StudentRole = "student"
	RoleAdmin   StudentRole = "admin"
)

// swagger:model Student
type Student struct {
	BaseModel
	Name      string      `gorm:"size:100;not null" json:"name"`
	Email     string      `gorm:"size:100;unique;not null" json:"email"`
	Password  string      `gorm:"size:100;not null" json:"-"`
	Role      StudentRole `gorm:"type:enum('student','admin');default:'student'" json:"role"`
	Disabled  bool        `gorm:"default:false" json:"disabled"`
	LastLogin time.Time   `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen  time.Time   `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (Student) TableName() string {
	return "students"
}
