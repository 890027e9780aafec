package skcaptcha

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Benim22/Skaply-sub000/internal/models/skredis"
	"github.com/gin-gonic/gin"
	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

type Captchas struct {
	store  base64Captcha.Store
	driver base64Captcha.Driver
}

// New utilise Redis comme store si un client est fourni, sinon le
// store mémoire par défaut (suffisant pour une instance unique).
func New(client *redis.Client) *Captchas {
	var store base64Captcha.Store
	if client != nil {
		store = skredis.New(client)
	} else {
		store = base64Captcha.DefaultMemStore
	}

	driver := base64Captcha.NewDriverMath(
		80,  // hauteur
		240, // largeur
		6,   // nombre d'opérations à afficher
		base64Captcha.OptionShowHollowLine,
		nil, // couleur de fond
		nil, // police
		nil, // couleurs
	)

	return &Captchas{
		store:  store,
		driver: driver,
	}
}

func (cap *Captchas) Generate(production bool) (map[string]any, error) {
	captcha := base64Captcha.NewCaptcha(cap.driver, cap.store)

	id, b64s, answer, err := captcha.Generate()
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la génération du CAPTCHA")
	}

	data := gin.H{
		"captcha_id": id,
		"image":      b64s,
		"answer":     "",
	}

	// En développement la réponse est exposée pour faciliter les tests
	if !production {
		data["answer"] = answer
	}

	return data, nil
}

func (cap *Captchas) Verify(captchaID string, captchaAnswer string) error {
	captchaID = strings.TrimSpace(captchaID)
	captchaAnswer = strings.TrimSpace(captchaAnswer)

	if captchaID == "" || captchaAnswer == "" {
		return fmt.Errorf("CAPTCHA manquant")
	}

	if !cap.store.Verify(captchaID, captchaAnswer, true) {
		return fmt.Errorf("CAPTCHA incorrect")
	}
	return nil
}

func (cap *Captchas) Handler(c *gin.Context, production bool) {
	data, err := cap.Generate(production)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, data)
}

// Seed permet aux tests d'injecter une réponse connue dans le store.
func (cap *Captchas) Seed(id, answer string) error {
	return cap.store.Set(id, answer)
}
