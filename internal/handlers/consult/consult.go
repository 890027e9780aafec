package handlers_consult

import (
	"context"
	"net/http"
	"time"

	"github.com/Benim22/Skaply-sub000/internal/models/skcaptcha"
	"github.com/Benim22/Skaply-sub000/internal/models/skconsult"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ConsultHandler struct {
	db      *gorm.DB
	captcha *skcaptcha.Captchas
	mailer  *skconsult.Mailer
}

func NewConsultHandler(db *gorm.DB, captcha *skcaptcha.Captchas, mailer *skconsult.Mailer) *ConsultHandler {
	return &ConsultHandler{
		db:      db,
		captcha: captcha,
		mailer:  mailer,
	}
}

// Create reçoit une demande de consultation depuis le formulaire
// public. Le captcha est vérifié avant toute écriture.
func (ch *ConsultHandler) Create(c *gin.Context) {
	var req skconsult.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ch.captcha.Verify(req.CaptchaID, req.CaptchaAnswer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Captcha invalide"})
		return
	}

	request := req.ToRequest()
	if err := ch.db.Create(request).Error; err != nil {
		log.Error().Err(err).Msg("consultation request insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save request"})
		return
	}

	// La notification ne bloque pas la réponse HTTP. Un échec d'envoi
	// est loggé, la demande reste en base.
	if ch.mailer.Enabled() {
		go func(r skconsult.Request) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := ch.mailer.Notify(ctx, &r); err != nil {
				log.Error().Err(err).Str("reference", r.Reference).Msg("consultation notification failed")
			}
		}(*request)
	}

	log.Info().Str("reference", request.Reference).Msg("consultation request created")
	c.JSON(http.StatusCreated, gin.H{
		"reference": request.Reference,
		"message":   "Tack! Vi återkommer inom 24 timmar.",
	})
}

// List retourne les demandes, filtrables par statut.
func (ch *ConsultHandler) List(c *gin.Context) {
	query := ch.db.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		if !skconsult.ValidStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
			return
		}
		query = query.Where("status = ?", status)
	}

	var requests []skconsult.Request
	if err := query.Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve requests"})
		return
	}
	c.JSON(http.StatusOK, requests)
}

type statusUpdate struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus fait avancer une demande dans le workflow
// new → contacted → closed.
func (ch *ConsultHandler) UpdateStatus(c *gin.Context) {
	var update statusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !skconsult.ValidStatus(update.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	var request skconsult.Request
	if err := ch.db.Where("reference = ?", c.Param("reference")).First(&request).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}

	request.Status = update.Status
	if err := ch.db.Save(&request).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
		return
	}
	c.JSON(http.StatusOK, request)
}
