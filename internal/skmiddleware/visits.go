package skmiddleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/Benim22/Skaply-sub000/internal/models/skgeo"
	"github.com/Benim22/Skaply-sub000/internal/models/skvisits"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const visitorCookie = "_visitor_id"

// cookieMaxAge vaut environ un an
const cookieMaxAge = 365 * 24 * 60 * 60

// VisitTracker intercepte chaque requête de page pour enregistrer une
// vue et mettre à jour la session temps réel du visiteur. Le tracking
// est best-effort: aucune erreur ne doit jamais empêcher la page de
// se charger.
type VisitTracker struct {
	Visits     *skvisits.VisitService
	Geo        skgeo.Resolver
	Production bool
}

func NewVisitTracker(visits *skvisits.VisitService, geo skgeo.Resolver, production bool) *VisitTracker {
	return &VisitTracker{
		Visits:     visits,
		Geo:        geo,
		Production: production,
	}
}

// shouldTrack exclut l'admin, les API, les assets et tout chemin
// contenant un point (heuristique fichier statique). Les préfixes
// listés sont les routes d'assets de ce serveur; les assets de
// frameworks front (/_next/..., fonts, icônes) ne sont couverts que
// par la règle du point — une route d'asset sans extension devrait
// être ajoutée ici explicitement.
func shouldTrack(path string) bool {
	if strings.HasPrefix(path, "/admin") ||
		strings.HasPrefix(path, "/api") ||
		strings.HasPrefix(path, "/files") ||
		strings.HasPrefix(path, "/static") ||
		strings.HasPrefix(path, "/metrics") {
		return false
	}
	return !strings.Contains(path, ".")
}

func (vt *VisitTracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !shouldTrack(c.Request.URL.Path) {
			c.Next()
			return
		}

		visitorID := vt.resolveVisitorID(c)

		// Enregistrement synchrone avant de servir la page: l'insert
		// de la vue précède l'upsert de session, et tout est absorbé
		// par la barrière d'erreur.
		vt.track(c, visitorID)

		c.Next()
	}
}

// resolveVisitorID lit le cookie visiteur ou en émet un nouveau.
// La valeur d'un cookie existant est acceptée telle quelle.
func (vt *VisitTracker) resolveVisitorID(c *gin.Context) string {
	visitorID, err := c.Cookie(visitorCookie)
	if err == nil && visitorID != "" {
		return visitorID
	}

	randomBytes := make([]byte, 16)
	rand.Read(randomBytes)
	visitorID = hex.EncodeToString(randomBytes)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		visitorCookie,
		visitorID,
		cookieMaxAge,
		"/",
		"",
		vt.Production, // secure (true si HTTPS)
		true,          // httpOnly
	)

	return visitorID
}

func (vt *VisitTracker) track(c *gin.Context, visitorID string) {
	// Barrière unique: une panique dans le pipeline ne doit pas
	// remonter jusqu'au handler de la page
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("error", r).
				Str("path", c.Request.URL.Path).
				Msg("visit tracking panic")
		}
	}()

	ctx := c.Request.Context()
	ipAddress := clientIP(c)
	pagePath := c.Request.URL.Path
	userAgent := c.Request.UserAgent()
	referrer := c.Request.Referer()

	// Réutiliser le bundle d'une vue précédente pour la même IP avant
	// de solliciter le resolver externe. Aucun appel pour le loopback.
	var bundle *skgeo.Bundle
	if !skgeo.IsLoopback(ipAddress) {
		bundle = vt.Visits.ReusableGeo(ipAddress)
		if bundle == nil {
			bundle = vt.Geo.Resolve(ipAddress)
		}
	}

	pageView := skvisits.PageView{
		VisitorID: visitorID,
		PagePath:  pagePath,
		Referrer:  referrer,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
	skvisits.ApplyGeo(&pageView, bundle)

	if err := vt.Visits.RecordPageView(ctx, &pageView); err != nil {
		log.Error().Err(err).Str("path", pagePath).Msg("page view insert failed")
	}

	session := skvisits.ActiveSession{
		VisitorID: visitorID,
		PagePath:  pagePath,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if bundle != nil {
		session.CountryCode = bundle.CountryCode
		session.CountryName = bundle.CountryName
	}
	if err := vt.Visits.UpsertActiveSession(ctx, session); err != nil {
		log.Error().Err(err).Str("visitor", visitorID).Msg("session upsert failed")
	}
}

// clientIP applique la chaîne de priorité des headers de proxy.
// La fiabilité des headers dépend de la topologie réelle du edge,
// voir trustedproxies dans la configuration.
func clientIP(c *gin.Context) string {
	ip := c.GetHeader("CF-Connecting-IP")
	if ip == "" {
		ip = c.GetHeader("X-Real-IP")
	}
	if ip == "" {
		ip = c.GetHeader("X-Forwarded-For")
		if ip != "" {
			// Prendre la première IP si plusieurs
			ips := strings.Split(ip, ",")
			ip = strings.TrimSpace(ips[0])
		}
	}
	if ip == "" {
		ip = c.ClientIP()
	}
	if ip == "" {
		ip = "127.0.0.1"
	}
	return ip
}
