package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/Benim22/Skaply-sub000/internal/handlers/admin"
	"github.com/Benim22/Skaply-sub000/internal/handlers/analytics"
	"github.com/Benim22/Skaply-sub000/internal/handlers/consult"
	"github.com/Benim22/Skaply-sub000/internal/handlers/content"
	"github.com/Benim22/Skaply-sub000/internal/models/sksite"
	"github.com/Benim22/Skaply-sub000/internal/skconfig"
	"github.com/Benim22/Skaply-sub000/internal/sklog"
	"github.com/Benim22/Skaply-sub000/internal/skmiddleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const VERSION string = "1.0.0"

// BuildID est injecté au build via -ldflags
var BuildID string

func parseCommandLineArgs() (configFile string, shouldCreateExample bool, versionDisplay bool, err error) {
	var config = flag.String("config", "", "Fichier de configuration YAML")
	var example = flag.Bool("example", false, "Créer un fichier de configuration exemple")
	var version = flag.Bool("version", false, "version du produit")
	flag.Parse()

	if *version {
		return "", false, true, nil
	}

	if *example {
		return "", true, false, nil
	}

	if *config == "" {
		return "", false, false, fmt.Errorf("fichier de configuration requis")
	}

	return *config, false, false, nil
}

func initConfiguration() *skconfig.Config {
	configFile, shouldCreateExample, versionDisplay, err := parseCommandLineArgs()
	if err != nil {
		fmt.Println("Usage:")
		fmt.Println("  skaply -config skaply.yaml")
		fmt.Println("  skaply -example  (pour créer un fichier exemple)")
		fmt.Println("  skaply -version  (affiche la version)")
		os.Exit(1)
	}

	if versionDisplay {
		println(VERSION)
		os.Exit(0)
	}

	skconfig.CreateExample(shouldCreateExample, configFile)

	conf, err := skconfig.LoadConfig(configFile)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	return conf
}

func newServer(site *sksite.Site) *gin.Engine {
	conf := site.Configuration
	if conf.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	if conf.TrustedProxies != nil {
		r.SetTrustedProxies(conf.TrustedProxies)
	}
	if conf.TrustedPlatform != "" {
		switch conf.TrustedPlatform {
		case "cloudflare":
			r.TrustedPlatform = gin.PlatformCloudflare
		case "google":
			r.TrustedPlatform = gin.PlatformGoogleAppEngine
		case "flyio":
			r.TrustedPlatform = gin.PlatformFlyIO
		default:
			r.TrustedPlatform = conf.TrustedPlatform
		}
	}

	return r
}

func setRoutes(r *gin.Engine, site *sksite.Site) {
	conf := site.Configuration

	contentHandler := handlers_content.NewContentHandler(site.Db)
	consultHandler := handlers_consult.NewConsultHandler(site.Db, site.Captcha, site.Mailer)
	analyticsHandler := handlers_analytics.NewAnalyticsHandler(site.Visits)
	adminHandler := handlers_admin.NewAdminHandler(site.Db, conf)

	// middleware rate limiter pour les entrées sensibles
	loginLimiter := skmiddleware.NewLimiter(10)
	consultLimiter := skmiddleware.NewLimiter(5)

	// tracking des visites sur les pages publiques
	tracker := skmiddleware.NewVisitTracker(site.Visits, site.Geo, conf.Production)
	r.Use(tracker.Middleware())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page non trouvée"})
	})

	// Route statiques
	r.Static("/files/", conf.StaticPath)

	// API publiques
	api := r.Group("/api")
	{
		api.GET("/services", contentHandler.ListServices)
		api.GET("/services/:slug", contentHandler.GetService)
		api.GET("/projects", contentHandler.ListProjects)
		api.GET("/projects/:slug", contentHandler.GetProject)
		api.GET("/testimonials", contentHandler.ListTestimonials)
		api.GET("/captcha", func(c *gin.Context) {
			site.Captcha.Handler(c, conf.Production)
		})
		api.POST("/consultation", consultLimiter, consultHandler.Create)
	}

	// Routes d'authentification
	r.POST("/admin/login", loginLimiter, adminHandler.Login)
	r.POST("/admin/logout", adminHandler.Logout)

	// Routes d'administration protégées
	adm := r.Group("/admin")
	adm.Use(skmiddleware.AuthRequired())
	{
		adm.GET("/dashboard", adminHandler.Dashboard)
		adm.POST("/upload/image", adminHandler.Upload)

		adm.GET("/stats/overview", analyticsHandler.GetOverview)
		adm.GET("/stats/geo", analyticsHandler.GetGeo)
		adm.GET("/stats/realtime", analyticsHandler.GetRealtime)

		adm.GET("/services", contentHandler.AdminListServices)
		adm.POST("/services", contentHandler.CreateService)
		adm.PUT("/services/:id", contentHandler.UpdateService)
		adm.DELETE("/services/:id", contentHandler.DeleteService)

		adm.GET("/projects", contentHandler.AdminListProjects)
		adm.POST("/projects", contentHandler.CreateProject)
		adm.PUT("/projects/:id", contentHandler.UpdateProject)
		adm.DELETE("/projects/:id", contentHandler.DeleteProject)

		adm.GET("/testimonials", contentHandler.AdminListTestimonials)
		adm.POST("/testimonials", contentHandler.CreateTestimonial)
		adm.PUT("/testimonials/:id", contentHandler.UpdateTestimonial)
		adm.DELETE("/testimonials/:id", contentHandler.DeleteTestimonial)

		adm.GET("/consultations", consultHandler.List)
		adm.PUT("/consultations/:reference/status", consultHandler.UpdateStatus)
	}
}

func startServer(r *gin.Engine, site *sksite.Site) {
	conf := site.Configuration
	if conf.Listen.Metrics != "" {
		log.Info().Str("addr", conf.Listen.Metrics).Msg("metrics endpoint started")
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			http.ListenAndServe(conf.Listen.Metrics, nil)
		}()
	}

	log.Info().Str("addr", conf.Listen.Website).Str("version", site.Version).Msg("website started")
	if err := r.Run(conf.Listen.Website); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func main() {
	if BuildID == "" {
		BuildID = VERSION
	}

	conf := initConfiguration()
	sklog.InitLogger(conf.Logger, conf.Production)

	site, err := sksite.Init(conf, VERSION, BuildID)
	if err != nil {
		log.Fatal().Err(err).Msg("site initialization failed")
	}

	r := newServer(site)
	skmiddleware.InitMiddleware(r, conf.Production)
	setRoutes(r, site)

	startServer(r, site)
}
