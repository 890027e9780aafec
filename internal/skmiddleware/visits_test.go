package skmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Benim22/Skaply-sub000/internal/models/skgeo"
	"github.com/Benim22/Skaply-sub000/internal/models/skvisits"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ============= Setup =============

// stubResolver compte les appels et retourne un bundle fixe.
type stubResolver struct {
	calls  int
	bundle *skgeo.Bundle
}

func (s *stubResolver) Resolve(ip string) *skgeo.Bundle {
	s.calls++
	return s.bundle
}

// panicResolver simule un resolver défaillant.
type panicResolver struct{}

func (p *panicResolver) Resolve(ip string) *skgeo.Bundle {
	panic("resolver out of order")
}

func setupVisitsDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&skvisits.PageView{}))
	return db
}

func setupTracker(t *testing.T, geo skgeo.Resolver) (*gin.Engine, *gorm.DB, *redis.Client) {
	gin.SetMode(gin.TestMode)

	db := setupVisitsDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	visits := skvisits.NewVisitService(db, client, 90)
	t.Cleanup(visits.Close)
	tracker := NewVisitTracker(visits, geo, false)

	r := gin.New()
	r.Use(tracker.Middleware())
	r.GET("/*path", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r, db, client
}

func doGet(r *gin.Engine, path string, headers map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func countPageViews(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&skvisits.PageView{}).Count(&n).Error)
	return n
}

// ============= Identité visiteur =============

func TestVisitorCookie_Minted(t *testing.T) {
	r, db, _ := setupTracker(t, &stubResolver{})

	w := doGet(r, "/kontakt", map[string]string{"X-Real-IP": "203.0.113.5"})
	assert.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	var visitor *http.Cookie
	for _, ck := range cookies {
		if ck.Name == "_visitor_id" {
			require.Nil(t, visitor, "un seul Set-Cookie attendu")
			visitor = ck
		}
	}
	require.NotNil(t, visitor)
	assert.Len(t, visitor.Value, 32) // 16 octets en hex
	assert.True(t, visitor.HttpOnly)
	assert.False(t, visitor.Secure) // hors production
	assert.Equal(t, http.SameSiteLaxMode, visitor.SameSite)
	assert.Equal(t, 365*24*60*60, visitor.MaxAge)

	var pv skvisits.PageView
	require.NoError(t, db.First(&pv).Error)
	assert.Equal(t, visitor.Value, pv.VisitorID)
	assert.Equal(t, "/kontakt", pv.PagePath)
}

func TestVisitorCookie_Reused(t *testing.T) {
	r, db, _ := setupTracker(t, &stubResolver{})

	existing := &http.Cookie{Name: "_visitor_id", Value: "abc123def456"}
	w := doGet(r, "/", nil, existing)
	assert.Equal(t, http.StatusOK, w.Code)

	// Identité stable: pas de nouveau cookie
	for _, ck := range w.Result().Cookies() {
		assert.NotEqual(t, "_visitor_id", ck.Name)
	}

	var pv skvisits.PageView
	require.NoError(t, db.First(&pv).Error)
	assert.Equal(t, "abc123def456", pv.VisitorID)
}

func TestVisitorCookie_SecureInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupVisitsDB(t)
	visits := skvisits.NewVisitService(db, nil, 90)
	t.Cleanup(visits.Close)
	tracker := NewVisitTracker(visits, &stubResolver{}, true)

	r := gin.New()
	r.Use(tracker.Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := doGet(r, "/", nil)
	var visitor *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "_visitor_id" {
			visitor = ck
		}
	}
	require.NotNil(t, visitor)
	assert.True(t, visitor.Secure)
}

// ============= Filtrage des chemins =============

func TestShouldTrack(t *testing.T) {
	tracked := []string{"/", "/kontakt", "/tjanster", "/projekt/moi-sushi"}
	for _, path := range tracked {
		assert.True(t, shouldTrack(path), path)
	}

	skipped := []string{
		"/admin", "/admin/dashboard",
		"/api/services",
		"/files/logo.png", "/files/captcha",
		"/static/css/main.css",
		"/_next/static/chunk.js",
		"/metrics",
		"/favicon.ico", "/robots.txt", "/sitemap.xml",
	}
	for _, path := range skipped {
		assert.False(t, shouldTrack(path), path)
	}
}

func TestMiddleware_SkipsExcludedPaths(t *testing.T) {
	r, db, _ := setupTracker(t, &stubResolver{})

	doGet(r, "/admin/dashboard", nil)
	doGet(r, "/api/services", nil)
	doGet(r, "/favicon.ico", nil)
	assert.EqualValues(t, 0, countPageViews(t, db))

	doGet(r, "/kontakt", nil)
	assert.EqualValues(t, 1, countPageViews(t, db))
}

// ============= Résolution géo =============

func TestTrack_GeoResolved(t *testing.T) {
	stub := &stubResolver{bundle: &skgeo.Bundle{
		CountryCode: "SE",
		CountryName: "Sweden",
		Region:      "Skåne",
		City:        "Trelleborg",
		Latitude:    55.37,
		Longitude:   13.16,
		Timezone:    "Europe/Stockholm",
	}}
	r, db, _ := setupTracker(t, stub)

	doGet(r, "/", map[string]string{"X-Real-IP": "203.0.113.5"})
	assert.Equal(t, 1, stub.calls)

	var pv skvisits.PageView
	require.NoError(t, db.First(&pv).Error)
	assert.Equal(t, "203.0.113.5", pv.IPAddress)
	require.NotNil(t, pv.CountryCode)
	assert.Equal(t, "SE", *pv.CountryCode)
	assert.Equal(t, "Trelleborg", *pv.City)
	assert.InDelta(t, 55.37, *pv.Latitude, 0.001)
}

func TestTrack_GeoReusedFromPriorVisit(t *testing.T) {
	stub := &stubResolver{bundle: &skgeo.Bundle{CountryCode: "SE", CountryName: "Sweden"}}
	r, db, _ := setupTracker(t, stub)

	// Première visite: le resolver est sollicité
	doGet(r, "/", map[string]string{"X-Real-IP": "203.0.113.5"})
	assert.Equal(t, 1, stub.calls)

	// Deuxième visite même IP: réutilisation, pas d'appel sortant
	doGet(r, "/kontakt", map[string]string{"X-Real-IP": "203.0.113.5"})
	assert.Equal(t, 1, stub.calls)

	var views []skvisits.PageView
	require.NoError(t, db.Order("id ASC").Find(&views).Error)
	require.Len(t, views, 2)
	require.NotNil(t, views[1].CountryCode)
	assert.Equal(t, "SE", *views[1].CountryCode)
}

func TestTrack_GeoFailureLeavesNullFields(t *testing.T) {
	stub := &stubResolver{bundle: nil}
	r, db, _ := setupTracker(t, stub)

	doGet(r, "/", map[string]string{"X-Real-IP": "203.0.113.5"})
	assert.Equal(t, 1, stub.calls)

	var pv skvisits.PageView
	require.NoError(t, db.First(&pv).Error)
	assert.Nil(t, pv.CountryCode)
	assert.Nil(t, pv.City)
	assert.Nil(t, pv.Latitude)

	// Échec non mis en cache: l'IP suivante retente
	doGet(r, "/kontakt", map[string]string{"X-Real-IP": "203.0.113.5"})
	assert.Equal(t, 2, stub.calls)
}

func TestTrack_LoopbackSkipsResolver(t *testing.T) {
	stub := &stubResolver{bundle: &skgeo.Bundle{CountryCode: "SE"}}
	r, db, _ := setupTracker(t, stub)

	doGet(r, "/", nil) // httptest: RemoteAddr 192.0.2.1, pas de header
	doGet(r, "/", map[string]string{"X-Real-IP": "127.0.0.1"})
	doGet(r, "/", map[string]string{"X-Real-IP": "::1"})

	// Seule la requête sans header loopback a déclenché une résolution
	assert.Equal(t, 1, stub.calls)
	assert.EqualValues(t, 3, countPageViews(t, db))
}

// ============= Résilience =============

func TestTrack_ResolverPanicDoesNotBreakPage(t *testing.T) {
	r, db, _ := setupTracker(t, &panicResolver{})

	w := doGet(r, "/", map[string]string{"X-Real-IP": "203.0.113.5"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	// La panique a interrompu le pipeline avant l'insert
	assert.EqualValues(t, 0, countPageViews(t, db))
}

func TestTrack_RedisDownDoesNotBreakPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupVisitsDB(t)

	// Client pointant vers un port fermé
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	visits := skvisits.NewVisitService(db, client, 90)
	t.Cleanup(visits.Close)
	tracker := NewVisitTracker(visits, &stubResolver{}, false)

	r := gin.New()
	r.Use(tracker.Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := doGet(r, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	// La vue est quand même persistée en base
	assert.EqualValues(t, 1, countPageViews(t, db))
}

// ============= Session temps réel =============

func TestTrack_UpsertsActiveSession(t *testing.T) {
	r, _, client := setupTracker(t, &stubResolver{bundle: &skgeo.Bundle{
		CountryCode: "SE",
		CountryName: "Sweden",
	}})

	ck := &http.Cookie{Name: "_visitor_id", Value: "visitor-1"}
	doGet(r, "/", map[string]string{"X-Real-IP": "203.0.113.5"}, ck)
	doGet(r, "/kontakt", map[string]string{"X-Real-IP": "203.0.113.5"}, ck)

	ctx := t.Context()
	fields, err := client.HGetAll(ctx, "visits:session:visitor-1").Result()
	require.NoError(t, err)
	assert.Equal(t, "/kontakt", fields["page_path"])
	assert.Equal(t, "SE", fields["country_code"])

	// Une seule entrée dans l'index malgré deux pages vues
	total, err := client.ZCard(ctx, "visits:active").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

// ============= Chaîne d'extraction de l'IP =============

func TestClientIP_HeaderPriority(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name: "cloudflare d'abord",
			headers: map[string]string{
				"CF-Connecting-IP": "198.51.100.1",
				"X-Real-IP":        "198.51.100.2",
				"X-Forwarded-For":  "198.51.100.3",
			},
			want: "198.51.100.1",
		},
		{
			name: "puis x-real-ip",
			headers: map[string]string{
				"X-Real-IP":       "198.51.100.2",
				"X-Forwarded-For": "198.51.100.3",
			},
			want: "198.51.100.2",
		},
		{
			name: "premier saut du x-forwarded-for",
			headers: map[string]string{
				"X-Forwarded-For": "198.51.100.3, 10.0.0.1, 10.0.0.2",
			},
			want: "198.51.100.3",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			for k, v := range tc.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, clientIP(c))
		})
	}
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = "192.0.2.1:1234"

	ip := clientIP(c)
	assert.True(t, strings.HasPrefix(ip, "192.0.2."), ip)
}
