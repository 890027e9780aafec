package skvisits

import "time"

// PageView représente une vue de page. Les champs géo sont tous
// renseignés ensemble, ou tous NULL si la résolution a échoué.
type PageView struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	VisitorID   string    `gorm:"index;not null" json:"visitor_id"`
	PagePath    string    `gorm:"index;not null" json:"page_path"`
	Referrer    string    `json:"referrer"`
	UserAgent   string    `json:"user_agent"`
	IPAddress   string    `gorm:"index" json:"ip_address"`
	CountryCode *string   `gorm:"index" json:"country_code"`
	CountryName *string   `json:"country_name"`
	Region      *string   `json:"region"`
	City        *string   `json:"city"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Timezone    *string   `json:"timezone"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// ActiveSession reflète la dernière page vue par un visiteur.
// Stockée dans Redis, une seule entrée par visiteur (upsert).
type ActiveSession struct {
	VisitorID   string    `json:"visitor_id"`
	PagePath    string    `json:"page_path"`
	IPAddress   string    `json:"ip_address"`
	CountryCode string    `json:"country_code"`
	CountryName string    `json:"country_name"`
	UserAgent   string    `json:"user_agent"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName spécifie le nom de la table pour PageView
func (PageView) TableName() string {
	return "page_views"
}
