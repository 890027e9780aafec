package skvisits

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Benim22/Skaply-sub000/internal/models/skgeo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ActiveWindow définit depuis combien de temps un visiteur doit avoir
// été vu pour être compté comme "en ligne".
const ActiveWindow = 5 * time.Minute

var pageViewsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skaply_page_views_recorded_total",
	Help: "Nombre de vues de pages persistées par le tracking.",
})

type VisitService struct {
	db    *gorm.DB
	redis *redis.Client
	cron  *cron.Cron
}

func NewVisitService(db *gorm.DB, redisClient *redis.Client, retentionDays int) *VisitService {
	return &VisitService{
		db:    db,
		redis: redisClient,
		cron:  setupCleanupCron(db, retentionDays),
	}
}

// Close arrête le scheduler de rétention. Sans appel explicite le cron
// tourne jusqu'à la fin du processus.
func (vs *VisitService) Close() {
	if vs.cron != nil {
		vs.cron.Stop()
		vs.cron = nil
	}
}

// ============= Pipeline d'écriture =============

// ReusableGeo retourne le bundle géo de la vue la plus récente pour
// cette IP ayant un code pays, ou nil. Simple lookup-before-write,
// pas un vrai cache: pas d'expiration ni d'invalidation.
func (vs *VisitService) ReusableGeo(ip string) *skgeo.Bundle {
	var prior PageView
	err := vs.db.
		Where("ip_address = ? AND country_code IS NOT NULL", ip).
		Order("created_at DESC").
		First(&prior).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Warn().Err(err).Str("ip", ip).Msg("geo reuse lookup failed")
		}
		return nil
	}

	bundle := &skgeo.Bundle{
		CountryCode: *prior.CountryCode,
	}
	if prior.CountryName != nil {
		bundle.CountryName = *prior.CountryName
	}
	if prior.Region != nil {
		bundle.Region = *prior.Region
	}
	if prior.City != nil {
		bundle.City = *prior.City
	}
	if prior.Latitude != nil {
		bundle.Latitude = *prior.Latitude
	}
	if prior.Longitude != nil {
		bundle.Longitude = *prior.Longitude
	}
	if prior.Timezone != nil {
		bundle.Timezone = *prior.Timezone
	}
	return bundle
}

// ApplyGeo copie un bundle dans la vue de page. Un bundle nil laisse
// tous les champs géo à NULL.
func ApplyGeo(pv *PageView, bundle *skgeo.Bundle) {
	if bundle == nil {
		return
	}
	pv.CountryCode = &bundle.CountryCode
	pv.CountryName = &bundle.CountryName
	pv.Region = &bundle.Region
	pv.City = &bundle.City
	pv.Latitude = &bundle.Latitude
	pv.Longitude = &bundle.Longitude
	pv.Timezone = &bundle.Timezone
}

// RecordPageView persiste une vue de page et incrémente les compteurs
// journaliers Redis.
func (vs *VisitService) RecordPageView(ctx context.Context, pv *PageView) error {
	if pv.CreatedAt.IsZero() {
		pv.CreatedAt = time.Now()
	}

	if err := vs.db.Create(pv).Error; err != nil {
		return fmt.Errorf("page view insert: %w", err)
	}
	pageViewsRecorded.Inc()

	if vs.redis == nil {
		return nil
	}

	// Compteurs journaliers, conservés 31 jours
	day := pv.CreatedAt.Format("2006-01-02")
	cacheKey := fmt.Sprintf("visits:daily:%s", day)
	vs.redis.HIncrBy(ctx, cacheKey, "page_views", 1)
	vs.redis.Expire(ctx, cacheKey, 31*24*time.Hour)

	visitorKey := fmt.Sprintf("visits:visitors:%s", day)
	vs.redis.SAdd(ctx, visitorKey, pv.VisitorID)
	vs.redis.Expire(ctx, visitorKey, 31*24*time.Hour)

	return nil
}

// UpsertActiveSession écrit la session "dernière page vue" du visiteur.
// Une seule entrée par visiteur: la clé est dérivée du visitor id.
func (vs *VisitService) UpsertActiveSession(ctx context.Context, s ActiveSession) error {
	if vs.redis == nil {
		return nil
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	sessionKey := "visits:session:" + s.VisitorID
	if err := vs.redis.HSet(ctx, sessionKey, map[string]interface{}{
		"page_path":    s.PagePath,
		"ip_address":   s.IPAddress,
		"country_code": s.CountryCode,
		"country_name": s.CountryName,
		"user_agent":   s.UserAgent,
		"updated_at":   s.UpdatedAt.Unix(),
	}).Err(); err != nil {
		return fmt.Errorf("session upsert: %w", err)
	}
	vs.redis.Expire(ctx, sessionKey, ActiveWindow)

	// Index trié par dernier passage, purgé au fil de l'eau
	if err := vs.redis.ZAdd(ctx, "visits:active", redis.Z{
		Score:  float64(s.UpdatedAt.Unix()),
		Member: s.VisitorID,
	}).Err(); err != nil {
		return fmt.Errorf("session index: %w", err)
	}
	horizon := strconv.FormatInt(s.UpdatedAt.Add(-ActiveWindow).Unix(), 10)
	vs.redis.ZRemRangeByScore(ctx, "visits:active", "-inf", "("+horizon)

	return nil
}

// ============= Requêtes d'agrégation =============

type OverviewStats struct {
	TotalPageViews         int64          `json:"total_page_views"`
	UniqueVisitors         int64          `json:"unique_visitors"`
	AvgPageViewsPerVisitor float64        `json:"avg_page_views_per_visitor"`
	TopPages               []PageStat     `json:"top_pages"`
	TopReferrers           []ReferrerStat `json:"top_referrers"`
	DailyStats             []DailyStat    `json:"daily_stats"`
}

type PageStat struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

type ReferrerStat struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

type DailyStat struct {
	Date           string `json:"date"`
	PageViews      int64  `json:"page_views"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

type CountryStat struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Views       int64  `json:"views"`
	Visitors    int64  `json:"visitors"`
}

type CityStat struct {
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	Views       int64  `json:"views"`
}

type GeoStats struct {
	Countries  []CountryStat `json:"countries"`
	TopCities  []CityStat    `json:"top_cities"`
	Unresolved int64         `json:"unresolved"`
}

// GetOverviewStats récupère les statistiques agrégées sur n jours.
func (vs *VisitService) GetOverviewStats(days int) (*OverviewStats, error) {
	since := time.Now().AddDate(0, 0, -days)

	stats := &OverviewStats{}

	err := vs.db.Model(&PageView{}).
		Where("created_at >= ?", since).
		Count(&stats.TotalPageViews).Error
	if err != nil {
		return nil, fmt.Errorf("error counting page views: %w", err)
	}

	err = vs.db.Model(&PageView{}).
		Where("created_at >= ?", since).
		Distinct("visitor_id").
		Count(&stats.UniqueVisitors).Error
	if err != nil {
		return nil, fmt.Errorf("error counting unique visitors: %w", err)
	}

	if stats.UniqueVisitors > 0 {
		stats.AvgPageViewsPerVisitor = float64(stats.TotalPageViews) / float64(stats.UniqueVisitors)
	}

	err = vs.db.Model(&PageView{}).
		Select("page_path as path, COUNT(*) as views").
		Where("created_at >= ?", since).
		Group("page_path").
		Order("views DESC").
		Limit(10).
		Scan(&stats.TopPages).Error
	if err != nil {
		return nil, fmt.Errorf("error getting top pages: %w", err)
	}

	err = vs.db.Model(&PageView{}).
		Select("referrer, COUNT(*) as count").
		Where("created_at >= ? AND referrer != ''", since).
		Group("referrer").
		Order("count DESC").
		Limit(10).
		Scan(&stats.TopReferrers).Error
	if err != nil {
		return nil, fmt.Errorf("error getting top referrers: %w", err)
	}

	dailyStats, err := vs.getDailyStats(since)
	if err != nil {
		return nil, fmt.Errorf("error getting daily stats: %w", err)
	}
	stats.DailyStats = dailyStats

	return stats, nil
}

// getDailyStats récupère les statistiques jour par jour
func (vs *VisitService) getDailyStats(since time.Time) ([]DailyStat, error) {
	type dailyRow struct {
		Date     string `json:"date"`
		Views    int64  `json:"views"`
		Visitors int64  `json:"visitors"`
	}

	var rows []dailyRow
	err := vs.db.Model(&PageView{}).
		Select("DATE(created_at) as date, COUNT(*) as views, COUNT(DISTINCT visitor_id) as visitors").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]DailyStat, 0, len(rows))
	for _, row := range rows {
		result = append(result, DailyStat{
			Date:           row.Date,
			PageViews:      row.Views,
			UniqueVisitors: row.Visitors,
		})
	}
	return result, nil
}

// GetGeoStats agrège les vues par pays et par ville sur n jours.
func (vs *VisitService) GetGeoStats(days int) (*GeoStats, error) {
	since := time.Now().AddDate(0, 0, -days)

	stats := &GeoStats{}

	err := vs.db.Model(&PageView{}).
		Select("country_code, country_name, COUNT(*) as views, COUNT(DISTINCT visitor_id) as visitors").
		Where("created_at >= ? AND country_code IS NOT NULL", since).
		Group("country_code, country_name").
		Order("views DESC").
		Scan(&stats.Countries).Error
	if err != nil {
		return nil, fmt.Errorf("error getting country stats: %w", err)
	}

	err = vs.db.Model(&PageView{}).
		Select("city, country_code, COUNT(*) as views").
		Where("created_at >= ? AND city IS NOT NULL AND city != ''", since).
		Group("city, country_code").
		Order("views DESC").
		Limit(10).
		Scan(&stats.TopCities).Error
	if err != nil {
		return nil, fmt.Errorf("error getting city stats: %w", err)
	}

	err = vs.db.Model(&PageView{}).
		Where("created_at >= ? AND country_code IS NULL", since).
		Count(&stats.Unresolved).Error
	if err != nil {
		return nil, fmt.Errorf("error counting unresolved views: %w", err)
	}

	return stats, nil
}

// GetRealtimeStats récupère le nombre de visiteurs actifs et les
// compteurs du jour depuis Redis.
func (vs *VisitService) GetRealtimeStats(ctx context.Context) (map[string]interface{}, error) {
	if vs.redis == nil {
		return nil, fmt.Errorf("redis non configuré")
	}

	horizon := strconv.FormatInt(time.Now().Add(-ActiveWindow).Unix(), 10)
	active, err := vs.redis.ZCount(ctx, "visits:active", horizon, "+inf").Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	today := time.Now().Format("2006-01-02")
	cacheKey := fmt.Sprintf("visits:daily:%s", today)
	pageViews, err := vs.redis.HGet(ctx, cacheKey, "page_views").Int64()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	visitorKey := fmt.Sprintf("visits:visitors:%s", today)
	uniqueVisitors, err := vs.redis.SCard(ctx, visitorKey).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	return map[string]interface{}{
		"active_visitors":       active,
		"today_page_views":      pageViews,
		"today_unique_visitors": uniqueVisitors,
	}, nil
}

// ============= Rétention =============

func cleanupOldPageViews(db *gorm.DB, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := db.Where("created_at < ?", cutoff).Delete(&PageView{})
	if result.Error != nil {
		return result.Error
	}

	log.Info().Int64("deleted", result.RowsAffected).Msg("old page views purged")
	return nil
}

func setupCleanupCron(db *gorm.DB, retentionDays int) *cron.Cron {
	c := cron.New()

	// Exécuter tous les jours à 2h du matin
	c.AddFunc("0 2 * * *", func() {
		if err := cleanupOldPageViews(db, retentionDays); err != nil {
			log.Error().Err(err).Msg("page view cleanup failed")
		}
	})

	c.Start()
	return c
}
