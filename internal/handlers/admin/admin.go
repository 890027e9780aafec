package handlers_admin

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Benim22/Skaply-sub000/internal/models/skconsult"
	"github.com/Benim22/Skaply-sub000/internal/models/skcontent"
	"github.com/Benim22/Skaply-sub000/internal/models/skimages"
	"github.com/Benim22/Skaply-sub000/internal/skconfig"
	"github.com/andskur/argon2-hashing"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const maxUploadSize = 10 << 20 // 10 Mo

type AdminHandler struct {
	db     *gorm.DB
	config *skconfig.Config
}

func NewAdminHandler(db *gorm.DB, config *skconfig.Config) *AdminHandler {
	return &AdminHandler{
		db:     db,
		config: config,
	}
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login vérifie les identifiants contre le hash argon2 de la
// configuration et ouvre la session.
func (ah *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Login != ah.config.User.Login {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Identifiants invalides"})
		return
	}
	if err := argon2.CompareHashAndPassword([]byte(ah.config.User.Hash), []byte(req.Password)); err != nil {
		log.Warn().Str("login", req.Login).Str("ip", c.ClientIP()).Msg("failed login attempt")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Identifiants invalides"})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", req.Login)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open session"})
		return
	}

	log.Info().Str("login", req.Login).Msg("admin logged in")
	c.JSON(http.StatusOK, gin.H{"message": "Inloggad"})
}

// Logout ferme la session.
func (ah *AdminHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"message": "Utloggad"})
}

// Dashboard retourne les compteurs affichés en tête du panneau admin.
func (ah *AdminHandler) Dashboard(c *gin.Context) {
	var services, projects, testimonials, pending int64
	ah.db.Model(&skcontent.Service{}).Count(&services)
	ah.db.Model(&skcontent.Project{}).Count(&projects)
	ah.db.Model(&skcontent.Testimonial{}).Count(&testimonials)
	ah.db.Model(&skconsult.Request{}).Where("status = ?", skconsult.StatusNew).Count(&pending)

	c.JSON(http.StatusOK, gin.H{
		"services":              services,
		"projects":              projects,
		"testimonials":          testimonials,
		"pending_consultations": pending,
		"sitename":              ah.config.SiteName,
	})
}

// Upload reçoit une image, la redimensionne et l'écrit dans le
// sous-répertoire uploads du répertoire statique. L'URL retournée
// passe par le montage /files/ qui sert StaticPath.
func (ah *AdminHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Fichier trop volumineux"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	processed, ext, err := skimages.Process(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Format d'image non supporté"})
		return
	}

	dir := filepath.Join(ah.config.StaticPath, "uploads")
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().Unix(), uuid.NewString()[:8], ext)
	if err := os.WriteFile(filepath.Join(dir, name), processed, 0644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	log.Info().Str("file", name).Int("bytes", len(processed)).Msg("image uploaded")
	c.JSON(http.StatusCreated, gin.H{"url": "/files/uploads/" + name})
}
