// Package skcontent porte le contenu marketing du site: offres de
// services, projets du portfolio et témoignages clients.
package skcontent

import (
	"html/template"
	"strings"
	"time"

	"github.com/Benim22/Skaply-sub000/internal/models/skmarkdown"
	"gorm.io/gorm"
)

// Service représente une offre de l'agence (ex: webbutveckling,
// apputveckling, design). La description est du Markdown.
type Service struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	Title           string        `json:"title" gorm:"not null"`
	Slug            string        `json:"slug" gorm:"uniqueIndex;not null"`
	Icon            string        `json:"icon"`
	Description     string        `json:"description" gorm:"type:text;not null"`
	DescriptionHTML template.HTML `json:"description_html" gorm:"-"`
	Excerpt         string        `json:"excerpt"`
	Position        int           `json:"position" gorm:"default:0;index"`
	Published       bool          `json:"published" gorm:"default:true;index"`
	CreatedAt       time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// Project représente une réalisation du portfolio.
type Project struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	Title           string        `json:"title" gorm:"not null"`
	Slug            string        `json:"slug" gorm:"uniqueIndex;not null"`
	Client          string        `json:"client"`
	Description     string        `json:"description" gorm:"type:text;not null"`
	DescriptionHTML template.HTML `json:"description_html" gorm:"-"`
	Excerpt         string        `json:"excerpt"`
	Image           string        `json:"image"`
	Link            string        `json:"link"`
	Tags            string        `json:"-" gorm:"type:text"`
	TagsList        []string      `json:"tags" gorm:"-"`
	Featured        bool          `json:"featured" gorm:"default:false;index"`
	Published       bool          `json:"published" gorm:"default:true;index"`
	CreatedAt       time.Time     `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// Testimonial représente un témoignage client affiché sur le site.
type Testimonial struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Author    string    `json:"author" gorm:"not null"`
	Company   string    `json:"company"`
	Role      string    `json:"role"`
	Quote     string    `json:"quote" gorm:"type:text;not null"`
	Rating    int       `json:"rating" gorm:"default:5"`
	Published bool      `json:"published" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ============= Hooks GORM =============

func (s *Service) BeforeSave(tx *gorm.DB) error {
	if s.Excerpt == "" && s.Description != "" {
		s.Excerpt = skmarkdown.Excerpt(s.Description, 300)
	}
	return nil
}

func (s *Service) AfterFind(tx *gorm.DB) error {
	s.DescriptionHTML = skmarkdown.ToHTML(s.Description)
	return nil
}

func (p *Project) BeforeSave(tx *gorm.DB) error {
	if len(p.TagsList) > 0 {
		p.Tags = strings.Join(p.TagsList, ",")
	}
	if p.Excerpt == "" && p.Description != "" {
		p.Excerpt = skmarkdown.Excerpt(p.Description, 300)
	}
	return nil
}

func (p *Project) AfterFind(tx *gorm.DB) error {
	if p.Tags != "" {
		p.TagsList = strings.Split(p.Tags, ",")
	}
	p.DescriptionHTML = skmarkdown.ToHTML(p.Description)
	return nil
}
