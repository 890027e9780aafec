package handlers_content

import (
	"net/http"
	"strconv"

	"github.com/Benim22/Skaply-sub000/internal/models/skcontent"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ContentHandler struct {
	db *gorm.DB
}

func NewContentHandler(db *gorm.DB) *ContentHandler {
	return &ContentHandler{db: db}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

// ============= Endpoints publics =============

// ListServices retourne les services publiés, triés par position.
func (ch *ContentHandler) ListServices(c *gin.Context) {
	var services []skcontent.Service
	err := ch.db.Where("published = ?", true).
		Order("position ASC").
		Find(&services).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve services"})
		return
	}
	c.JSON(http.StatusOK, services)
}

// GetService retourne un service publié par son slug.
func (ch *ContentHandler) GetService(c *gin.Context) {
	var service skcontent.Service
	err := ch.db.Where("slug = ? AND published = ?", c.Param("slug"), true).
		First(&service).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	c.JSON(http.StatusOK, service)
}

// ListProjects retourne les projets publiés, les mis en avant d'abord.
func (ch *ContentHandler) ListProjects(c *gin.Context) {
	var projects []skcontent.Project
	err := ch.db.Where("published = ?", true).
		Order("featured DESC, created_at DESC").
		Find(&projects).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject retourne un projet publié par son slug.
func (ch *ContentHandler) GetProject(c *gin.Context) {
	var project skcontent.Project
	err := ch.db.Where("slug = ? AND published = ?", c.Param("slug"), true).
		First(&project).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	c.JSON(http.StatusOK, project)
}

// ListTestimonials retourne les témoignages publiés, du plus récent
// au plus ancien.
func (ch *ContentHandler) ListTestimonials(c *gin.Context) {
	var testimonials []skcontent.Testimonial
	err := ch.db.Where("published = ?", true).
		Order("created_at DESC").
		Find(&testimonials).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve testimonials"})
		return
	}
	c.JSON(http.StatusOK, testimonials)
}

// ============= Administration: services =============

type ServiceRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Slug        string `json:"slug" binding:"required,max=200"`
	Icon        string `json:"icon" binding:"max=80"`
	Description string `json:"description" binding:"required"`
	Position    int    `json:"position"`
	Published   *bool  `json:"published"`
}

func (sr *ServiceRequest) apply(s *skcontent.Service) {
	s.Title = sr.Title
	s.Slug = sr.Slug
	s.Icon = sr.Icon
	s.Description = sr.Description
	s.Position = sr.Position
	if sr.Published != nil {
		s.Published = *sr.Published
	}
}

func (ch *ContentHandler) AdminListServices(c *gin.Context) {
	var services []skcontent.Service
	if err := ch.db.Order("position ASC").Find(&services).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve services"})
		return
	}
	c.JSON(http.StatusOK, services)
}

func (ch *ContentHandler) CreateService(c *gin.Context) {
	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	service := skcontent.Service{Published: true}
	req.apply(&service)
	if err := ch.db.Create(&service).Error; err != nil {
		log.Error().Err(err).Str("slug", service.Slug).Msg("service creation failed")
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create service"})
		return
	}
	c.JSON(http.StatusCreated, service)
}

func (ch *ContentHandler) UpdateService(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var service skcontent.Service
	if err := ch.db.First(&service, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}

	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.apply(&service)
	service.Excerpt = ""
	if err := ch.db.Save(&service).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update service"})
		return
	}
	c.JSON(http.StatusOK, service)
}

func (ch *ContentHandler) DeleteService(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	result := ch.db.Delete(&skcontent.Service{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete service"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted"})
}

// ============= Administration: projets =============

type ProjectRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Slug        string   `json:"slug" binding:"required,max=200"`
	Client      string   `json:"client" binding:"max=120"`
	Description string   `json:"description" binding:"required"`
	Image       string   `json:"image"`
	Link        string   `json:"link" binding:"max=500"`
	Tags        []string `json:"tags"`
	Featured    bool     `json:"featured"`
	Published   *bool    `json:"published"`
}

func (pr *ProjectRequest) apply(p *skcontent.Project) {
	p.Title = pr.Title
	p.Slug = pr.Slug
	p.Client = pr.Client
	p.Description = pr.Description
	p.Image = pr.Image
	p.Link = pr.Link
	p.TagsList = pr.Tags
	p.Featured = pr.Featured
	if pr.Published != nil {
		p.Published = *pr.Published
	}
}

func (ch *ContentHandler) AdminListProjects(c *gin.Context) {
	var projects []skcontent.Project
	if err := ch.db.Order("created_at DESC").Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (ch *ContentHandler) CreateProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := skcontent.Project{Published: true}
	req.apply(&project)
	if err := ch.db.Create(&project).Error; err != nil {
		log.Error().Err(err).Str("slug", project.Slug).Msg("project creation failed")
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create project"})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (ch *ContentHandler) UpdateProject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var project skcontent.Project
	if err := ch.db.First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.apply(&project)
	project.Excerpt = ""
	if len(project.TagsList) == 0 {
		project.Tags = ""
	}
	if err := ch.db.Save(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (ch *ContentHandler) DeleteProject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	result := ch.db.Delete(&skcontent.Project{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// ============= Administration: témoignages =============

type TestimonialRequest struct {
	Author    string `json:"author" binding:"required,max=120"`
	Company   string `json:"company" binding:"max=120"`
	Role      string `json:"role" binding:"max=120"`
	Quote     string `json:"quote" binding:"required,max=2000"`
	Rating    int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Published *bool  `json:"published"`
}

func (tr *TestimonialRequest) apply(t *skcontent.Testimonial) {
	t.Author = tr.Author
	t.Company = tr.Company
	t.Role = tr.Role
	t.Quote = tr.Quote
	if tr.Rating != 0 {
		t.Rating = tr.Rating
	}
	if tr.Published != nil {
		t.Published = *tr.Published
	}
}

func (ch *ContentHandler) AdminListTestimonials(c *gin.Context) {
	var testimonials []skcontent.Testimonial
	if err := ch.db.Order("created_at DESC").Find(&testimonials).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve testimonials"})
		return
	}
	c.JSON(http.StatusOK, testimonials)
}

func (ch *ContentHandler) CreateTestimonial(c *gin.Context) {
	var req TestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	testimonial := skcontent.Testimonial{Rating: 5, Published: true}
	req.apply(&testimonial)
	if err := ch.db.Create(&testimonial).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create testimonial"})
		return
	}
	c.JSON(http.StatusCreated, testimonial)
}

func (ch *ContentHandler) UpdateTestimonial(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var testimonial skcontent.Testimonial
	if err := ch.db.First(&testimonial, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Testimonial not found"})
		return
	}

	var req TestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.apply(&testimonial)
	if err := ch.db.Save(&testimonial).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update testimonial"})
		return
	}
	c.JSON(http.StatusOK, testimonial)
}

func (ch *ContentHandler) DeleteTestimonial(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	result := ch.db.Delete(&skcontent.Testimonial{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete testimonial"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Testimonial not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Testimonial deleted"})
}
