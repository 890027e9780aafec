// Package skconsult gère les demandes de consultation envoyées depuis
// le formulaire de contact du site.
package skconsult

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Statuts d'une demande de consultation.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusClosed    = "closed"
)

// ValidStatus indique si status est un statut connu.
func ValidStatus(status string) bool {
	switch status {
	case StatusNew, StatusContacted, StatusClosed:
		return true
	}
	return false
}

// Request représente une demande de consultation persistée.
type Request struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Reference   string    `json:"reference" gorm:"uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Email       string    `json:"email" gorm:"not null"`
	Phone       string    `json:"phone"`
	Company     string    `json:"company"`
	ProjectType string    `json:"project_type"`
	Budget      string    `json:"budget"`
	Timeline    string    `json:"timeline"`
	Message     string    `json:"message" gorm:"type:text;not null"`
	Status      string    `json:"status" gorm:"default:new;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Request) TableName() string {
	return "consultation_requests"
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.Reference == "" {
		r.Reference = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusNew
	}
	return nil
}

// CreateRequest est la charge utile JSON du formulaire public.
type CreateRequest struct {
	CaptchaID     string `json:"captcha_id" binding:"required"`
	CaptchaAnswer string `json:"captcha_answer" binding:"required"`
	Name          string `json:"name" binding:"required,max=120"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"max=40"`
	Company       string `json:"company" binding:"max=120"`
	ProjectType   string `json:"project_type" binding:"max=80"`
	Budget        string `json:"budget" binding:"max=80"`
	Timeline      string `json:"timeline" binding:"max=80"`
	Message       string `json:"message" binding:"required,max=5000"`
}

// ToRequest construit le modèle persisté à partir de la charge utile.
func (cr *CreateRequest) ToRequest() *Request {
	return &Request{
		Name:        cr.Name,
		Email:       cr.Email,
		Phone:       cr.Phone,
		Company:     cr.Company,
		ProjectType: cr.ProjectType,
		Budget:      cr.Budget,
		Timeline:    cr.Timeline,
		Message:     cr.Message,
	}
}
