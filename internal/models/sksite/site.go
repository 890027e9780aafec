// Package sksite assemble les composants du site: bases de données,
// redis, captcha, visites, géolocalisation et mailer.
package sksite

import (
	"fmt"

	"github.com/Benim22/Skaply-sub000/internal/gormzerologger"
	"github.com/Benim22/Skaply-sub000/internal/models/skcaptcha"
	"github.com/Benim22/Skaply-sub000/internal/models/skconsult"
	"github.com/Benim22/Skaply-sub000/internal/models/skcontent"
	"github.com/Benim22/Skaply-sub000/internal/models/skgeo"
	"github.com/Benim22/Skaply-sub000/internal/models/skmarkdown"
	"github.com/Benim22/Skaply-sub000/internal/models/skvisits"
	"github.com/Benim22/Skaply-sub000/internal/skconfig"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Site regroupe l'état partagé de l'application.
type Site struct {
	Configuration *skconfig.Config
	Db            *gorm.DB
	AnalyticsDb   *gorm.DB
	Redis         *redis.Client
	Captcha       *skcaptcha.Captchas
	Visits        *skvisits.VisitService
	Geo           skgeo.Resolver
	Mailer        *skconsult.Mailer
	Version       string
	BuildID       string
}

// Init construit le Site complet à partir de la configuration.
func Init(config *skconfig.Config, version string, buildid string) (*Site, error) {
	site := &Site{
		Configuration: config,
		Version:       version,
		BuildID:       buildid,
	}

	skmarkdown.Init()

	if err := site.initDatabase(); err != nil {
		return nil, err
	}
	if err := site.initAnalyticsDatabase(); err != nil {
		return nil, err
	}
	site.initRedis()

	site.Captcha = skcaptcha.New(site.Redis)
	site.Visits = skvisits.NewVisitService(site.AnalyticsDb, site.Redis, config.Analytics.RetentionDays)
	site.Mailer = skconsult.NewMailer(config.Mail)

	geo, err := skgeo.New(config.Geo)
	if err != nil {
		return nil, fmt.Errorf("initialisation géolocalisation: %w", err)
	}
	site.Geo = geo

	return site, nil
}

// Close libère les ressources de fond (cron de rétention).
func (site *Site) Close() {
	if site.Visits != nil {
		site.Visits.Close()
	}
}

func (site *Site) gormLogLevel() string {
	if site.Configuration.Production && site.Configuration.Logger.Level != "debug" {
		return site.Configuration.Logger.Level
	}
	return "trace"
}

func (site *Site) openDatabase(db string, path string, dsn string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormzerologger.New(site.gormLogLevel()),
	}

	switch db {
	case "sqlite":
		return gorm.Open(sqlite.Open(path), gormConfig)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), gormConfig)
	}
	return nil, fmt.Errorf("base de données non supportée: %s", db)
}

func (site *Site) initDatabase() error {
	cfg := site.Configuration.Database
	db, err := site.openDatabase(cfg.Db, cfg.Path, cfg.Dsn)
	if err != nil {
		return fmt.Errorf("connexion base de données: %w", err)
	}

	if err := db.AutoMigrate(
		&skcontent.Service{},
		&skcontent.Project{},
		&skcontent.Testimonial{},
		&skconsult.Request{},
	); err != nil {
		return fmt.Errorf("migration: %w", err)
	}

	site.Db = db
	site.seedContent()
	return nil
}

// initAnalyticsDatabase ouvre la base dédiée aux pages vues, ou
// réutilise la base principale si aucune n'est configurée.
func (site *Site) initAnalyticsDatabase() error {
	cfg := site.Configuration.Analytics
	if cfg.Db == "" {
		site.AnalyticsDb = site.Db
	} else {
		db, err := site.openDatabase(cfg.Db, cfg.Path, cfg.Dsn)
		if err != nil {
			return fmt.Errorf("connexion base analytics: %w", err)
		}
		site.AnalyticsDb = db
	}

	if err := site.AnalyticsDb.AutoMigrate(&skvisits.PageView{}); err != nil {
		return fmt.Errorf("migration analytics: %w", err)
	}
	return nil
}

func (site *Site) initRedis() {
	addr := site.Configuration.Database.Redis.Addr
	if addr == "" {
		log.Warn().Msg("redis non configuré, sessions temps réel et captcha en mémoire")
		return
	}

	site.Redis = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   site.Configuration.Database.Redis.Db,
	})
}

// seedContent remplit la base avec un contenu de démarrage quand elle
// est vide, pour que le site ne soit jamais une coquille vide.
func (site *Site) seedContent() {
	var count int64
	site.Db.Model(&skcontent.Service{}).Count(&count)
	if count > 0 {
		return
	}

	services := []skcontent.Service{
		{
			Title:       "Webbutveckling",
			Slug:        "webbutveckling",
			Icon:        "globe",
			Description: "Moderna webbplatser och webbapplikationer byggda med **Next.js** och **React**. Snabba, responsiva och optimerade för sökmotorer.",
			Position:    1,
		},
		{
			Title:       "Apputveckling",
			Slug:        "apputveckling",
			Icon:        "smartphone",
			Description: "Mobilappar för iOS och Android med **React Native**. En kodbas, två plattformar.",
			Position:    2,
		},
		{
			Title:       "UI/UX Design",
			Slug:        "ui-ux-design",
			Icon:        "pen-tool",
			Description: "Användarcentrerad design från wireframe till färdig produkt. Designsystem, prototyper och användartester.",
			Position:    3,
		},
	}
	for i := range services {
		if err := site.Db.Create(&services[i]).Error; err != nil {
			log.Error().Err(err).Str("slug", services[i].Slug).Msg("seed du contenu impossible")
		}
	}

	testimonial := skcontent.Testimonial{
		Author:  "Moi Sushi & Poké Bowl",
		Company: "Moi Sushi",
		Role:    "Restaurang",
		Quote:   "Skaply byggde vår beställningsapp och webbplats. Professionellt bemötande och snabb leverans.",
		Rating:  5,
	}
	if err := site.Db.Create(&testimonial).Error; err != nil {
		log.Error().Err(err).Msg("seed du témoignage impossible")
	}

	log.Info().Msg("contenu de démarrage créé")
}
