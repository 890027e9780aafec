package skconfig

import (
	"fmt"
	"log/syslog"
	"os"
	"strings"

	"github.com/andskur/argon2-hashing"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SiteName        string          `yaml:"sitename"`
	Description     string          `yaml:"description"`
	BaseURL         string          `yaml:"baseurl"`
	TrustedProxies  []string        `yaml:"trustedproxies"`
	TrustedPlatform string          `yaml:"trustedplatform"`
	Database        DatabaseConfig  `yaml:"database"`
	Analytics       AnalyticsConfig `yaml:"analytics"`
	Geo             GeoConfig       `yaml:"geo"`
	Mail            MailConfig      `yaml:"mail"`
	StaticPath      string          `yaml:"staticpath"`
	User            UserConfig      `yaml:"user"`
	Production      bool            `yaml:"production"`
	Listen          ListenConfig    `yaml:"listen"`
	Logger          LoggerConfig    `yaml:"logger"`
}

type LoggerConfig struct {
	Level  string             `yaml:"level"`
	File   LoggerFileConfig   `yaml:"file"`
	Syslog LoggerSyslogConfig `yaml:"syslog"`
}

type LoggerFileConfig struct {
	Enable     bool   `yaml:"enable"`
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxsize"`
	MaxBackups int    `yaml:"maxbackups"`
	MaxAge     int    `yaml:"maxage"`
	Compress   bool   `yaml:"compress"`
}

type LoggerSyslogConfig struct {
	Enable   bool            `yaml:"enable"`
	Protocol string          `yaml:"protocol"`
	Address  string          `yaml:"address"`
	Tag      string          `yaml:"tag"`
	Priority syslog.Priority `yaml:"priority"`
}

type ListenConfig struct {
	Website string `yaml:"website"`
	Metrics string `yaml:"metrics"`
}

type UserConfig struct {
	Login string `yaml:"login"`
	Pass  string `yaml:"pass"`
	Hash  string `yaml:"hash"`
}

type DatabaseConfig struct {
	Redis RedisConfig `yaml:"redis"`
	Db    string      `yaml:"db"`
	Path  string      `yaml:"path"`
	Dsn   string      `yaml:"dsn"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	Db   int    `yaml:"db"`
}

// AnalyticsConfig permet d'isoler les pages vues dans une base dédiée.
// Si Db est vide, la base principale est utilisée.
type AnalyticsConfig struct {
	Db            string `yaml:"db"`
	Path          string `yaml:"path"`
	Dsn           string `yaml:"dsn"`
	RetentionDays int    `yaml:"retentiondays"`
}

// GeoConfig sélectionne le fournisseur de géolocalisation.
// provider "http" interroge un service distant, "mmdb" lit une base MaxMind locale.
type GeoConfig struct {
	Provider       string `yaml:"provider"`
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeoutseconds"`
	MmdbPath       string `yaml:"mmdbpath"`
}

type MailConfig struct {
	Enable   bool   `yaml:"enable"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

func CreateExampleConfig(filename string) (string, error) {
	example := &Config{
		SiteName:    "Skaply",
		Description: "Digitalbyrå – webb, appar och design",
		BaseURL:     "http://localhost:8080",
		Database: DatabaseConfig{
			Db:   "sqlite",
			Path: "./skaply.db",
		},
		Analytics: AnalyticsConfig{
			RetentionDays: 90,
		},
		Geo: GeoConfig{
			Provider:       "http",
			Endpoint:       "https://ipapi.co/%s/json/",
			TimeoutSeconds: 5,
		},
		User: UserConfig{
			Login: "admin",
			Pass:  "admin1234",
		},
		StaticPath: "./static",
		Production: false,
		Logger: LoggerConfig{
			Level: "info",
			File: LoggerFileConfig{
				Enable: false,
			},
			Syslog: LoggerSyslogConfig{
				Enable: false,
			},
		},
		Listen: ListenConfig{
			Website: "0.0.0.0:8080",
			Metrics: "0.0.0.0:8090",
		},
	}

	if filename == "/etc/" {
		example.Listen.Website = "127.0.0.1:8000"
		example.Production = true
		example.Database.Path = "/var/lib/skaply/sqlite.db"
		example.StaticPath = "/var/lib/skaply/static"
		example.Logger.File = LoggerFileConfig{
			Enable:     true,
			Path:       "/var/log/skaply/skaply.log",
			MaxSize:    100,
			MaxBackups: 30,
			MaxAge:     7,
			Compress:   true,
		}
		filename = "/etc/skaply/config.yaml"
	}

	return filename, WriteConfigYaml(filename, example)
}

func WriteConfigYaml(filename string, conf *Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

// LoadConfig charge et valide le fichier YAML. Si user.pass est renseigné,
// il est hashé en argon2 dans user.hash et le fichier est réécrit.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("impossible de lire le fichier %s: %v", filename, err)
	}

	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("erreur de parsing YAML: %v", err)
	}

	if err := validate(&conf); err != nil {
		return nil, err
	}

	if conf.Listen.Website == "" {
		conf.Listen.Website = "localhost:8080"
	}
	if strings.HasPrefix(conf.Listen.Website, ":") {
		conf.Listen.Website = "localhost" + conf.Listen.Website
	}
	if conf.Geo.Provider == "" {
		conf.Geo.Provider = "http"
	}
	if conf.Geo.Endpoint == "" {
		conf.Geo.Endpoint = "https://ipapi.co/%s/json/"
	}
	if conf.Geo.TimeoutSeconds <= 0 {
		conf.Geo.TimeoutSeconds = 5
	}
	if conf.Analytics.RetentionDays <= 0 {
		conf.Analytics.RetentionDays = 90
	}

	if conf.User.Pass != "" {
		if len(conf.User.Pass) < 8 {
			return nil, fmt.Errorf("le mot de passe doit contenir au moins 8 caractères")
		}

		hash, err := argon2.GenerateFromPassword([]byte(conf.User.Pass), argon2.DefaultParams)
		if err != nil {
			return nil, err
		}
		conf.User.Hash = string(hash)
		conf.User.Pass = ""
		if err := WriteConfigYaml(filename, &conf); err != nil {
			return nil, err
		}
	}

	return &conf, nil
}

func validate(conf *Config) error {
	if conf.Database.Db == "sqlite" && conf.Database.Path == "" {
		return fmt.Errorf("database.path ne peut pas être vide")
	}
	if conf.Database.Db == "mysql" && conf.Database.Dsn == "" {
		return fmt.Errorf("database.dsn ne peut pas être vide")
	}
	if conf.Database.Db == "" {
		return fmt.Errorf("database.db ne peut pas être vide")
	}
	if conf.Geo.Provider == "mmdb" && conf.Geo.MmdbPath == "" {
		return fmt.Errorf("geo.mmdbpath ne peut pas être vide avec le provider mmdb")
	}
	if conf.Mail.Enable && (conf.Mail.Host == "" || conf.Mail.From == "" || conf.Mail.To == "") {
		return fmt.Errorf("mail.host, mail.from et mail.to sont requis quand mail.enable est actif")
	}
	return nil
}

func CreateExample(shouldCreateExample bool, configFile string) {
	// Handle example creation
	if shouldCreateExample {
		if err := handleExampleCreation(configFile); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
		os.Exit(1)
	}

	_, err := os.Stat(configFile)
	if err != nil && os.IsNotExist(err) {
		if err := handleExampleCreation(configFile); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}

	}
}

func handleExampleCreation(filename string) error {
	if filename == "" {
		filename = "skaply.yaml"
	}
	filename, err := CreateExampleConfig(filename)
	if err != nil {
		return fmt.Errorf("erreur création exemple: %v", err)
	}

	fmt.Printf("✅ Fichier exemple créé: %s", filename)
	fmt.Println("⚠️  user.pass sera automatiquement hashé en argon2 dans user.hash au premier lancement")
	return nil
}
