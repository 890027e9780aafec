// Package skgeo résout la géolocalisation d'une adresse IP publique,
// soit via un service HTTP externe, soit via une base MaxMind locale.
package skgeo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/Benim22/Skaply-sub000/internal/skconfig"
	"github.com/oschwald/geoip2-golang/v2"
	"github.com/rs/zerolog/log"
)

// Bundle regroupe les attributs de localisation dérivés d'une IP.
// Tous les champs sont renseignés ensemble ou pas du tout.
type Bundle struct {
	CountryCode string
	CountryName string
	Region      string
	City        string
	Latitude    float64
	Longitude   float64
	Timezone    string
}

// Resolver retourne un Bundle pour une IP, ou nil si aucune donnée
// n'est disponible. Les échecs sont loggés, jamais propagés.
type Resolver interface {
	Resolve(ip string) *Bundle
}

// IsLoopback indique si l'IP ne doit jamais être envoyée au resolver.
func IsLoopback(ip string) bool {
	return ip == "" || ip == "127.0.0.1" || ip == "::1"
}

// New construit le resolver selon la configuration.
func New(cfg skconfig.GeoConfig) (Resolver, error) {
	switch cfg.Provider {
	case "mmdb":
		return NewMmdbResolver(cfg.MmdbPath)
	case "http", "":
		return NewHTTPResolver(cfg.Endpoint, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("geo.provider doit être http ou mmdb, pas %q", cfg.Provider)
	}
}

// ============= Provider HTTP =============

// HTTPResolver interroge un service de géolocalisation distant.
// Le endpoint est un template fmt avec un %s pour l'IP,
// ex: https://ipapi.co/%s/json/
type HTTPResolver struct {
	Endpoint string
	Client   *http.Client
}

type httpGeoResponse struct {
	CountryCode string   `json:"country_code"`
	CountryName string   `json:"country_name"`
	Region      string   `json:"region"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Timezone    string   `json:"timezone"`
}

func NewHTTPResolver(endpoint string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		Endpoint: endpoint,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Resolve fait un seul appel sortant, sans retry ni backoff.
func (r *HTTPResolver) Resolve(ip string) *Bundle {
	url := fmt.Sprintf(r.Endpoint, ip)

	resp, err := r.Client.Get(url)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("geo lookup failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("ip", ip).Msg("geo lookup non-2xx")
		return nil
	}

	var body httpGeoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("geo lookup malformed body")
		return nil
	}

	// Sans code pays la réponse est inexploitable
	if body.CountryCode == "" {
		return nil
	}

	bundle := &Bundle{
		CountryCode: body.CountryCode,
		CountryName: body.CountryName,
		Region:      body.Region,
		City:        body.City,
		Timezone:    body.Timezone,
	}
	if body.Latitude != nil {
		bundle.Latitude = *body.Latitude
	}
	if body.Longitude != nil {
		bundle.Longitude = *body.Longitude
	}

	return bundle
}

// ============= Provider MaxMind local =============

// MmdbResolver lit une base GeoLite2-City locale, sans appel réseau.
type MmdbResolver struct {
	reader *geoip2.Reader
}

func NewMmdbResolver(path string) (*MmdbResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("impossible d'ouvrir la base mmdb %s: %w", path, err)
	}
	return &MmdbResolver{reader: reader}, nil
}

func (r *MmdbResolver) Resolve(ip string) *Bundle {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("geo mmdb invalid ip")
		return nil
	}

	record, err := r.reader.City(addr)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("geo mmdb lookup failed")
		return nil
	}
	if record.Country.ISOCode == "" {
		return nil
	}

	bundle := &Bundle{
		CountryCode: record.Country.ISOCode,
		CountryName: record.Country.Names.English,
		City:        record.City.Names.English,
		Timezone:    record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		bundle.Region = record.Subdivisions[0].Names.English
	}
	if record.Location.Latitude != nil {
		bundle.Latitude = *record.Location.Latitude
	}
	if record.Location.Longitude != nil {
		bundle.Longitude = *record.Location.Longitude
	}

	return bundle
}

func (r *MmdbResolver) Close() error {
	return r.reader.Close()
}
