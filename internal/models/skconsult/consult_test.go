package skconsult

import (
	"testing"

	"github.com/Benim22/Skaply-sub000/internal/skconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Request{}))
	return db
}

func mailerConfig(enable bool) skconfig.MailConfig {
	return skconfig.MailConfig{
		Enable: enable,
		Host:   "localhost",
		Port:   2525,
		From:   "noreply@skaply.se",
		To:     "hej@skaply.se",
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusNew))
	assert.True(t, ValidStatus(StatusContacted))
	assert.True(t, ValidStatus(StatusClosed))
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("archived"))
}

func TestRequest_BeforeCreate(t *testing.T) {
	db := setupTestDB(t)

	req := &Request{
		Name:    "Anna Svensson",
		Email:   "anna@example.se",
		Message: "Vi behöver en ny webbplats.",
	}
	require.NoError(t, db.Create(req).Error)

	assert.NotEmpty(t, req.Reference)
	assert.Len(t, req.Reference, 36) // uuid
	assert.Equal(t, StatusNew, req.Status)
}

func TestRequest_ReferenceUnique(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&Request{
		Reference: "fixed-ref", Name: "A", Email: "a@b.se", Message: "x",
	}).Error)
	err := db.Create(&Request{
		Reference: "fixed-ref", Name: "B", Email: "b@b.se", Message: "y",
	}).Error
	assert.Error(t, err)
}

func TestCreateRequest_ToRequest(t *testing.T) {
	payload := &CreateRequest{
		Name:        "Anna Svensson",
		Email:       "anna@example.se",
		Phone:       "070-1234567",
		Company:     "Moi Sushi",
		ProjectType: "webbplats",
		Budget:      "50-100k",
		Timeline:    "3 månader",
		Message:     "Vi behöver en ny webbplats.",
	}

	req := payload.ToRequest()
	assert.Equal(t, payload.Name, req.Name)
	assert.Equal(t, payload.Email, req.Email)
	assert.Equal(t, payload.Company, req.Company)
	assert.Equal(t, payload.Message, req.Message)
	assert.Empty(t, req.Reference) // rempli par BeforeCreate
}

func TestMailer_Disabled(t *testing.T) {
	mailer := NewMailer(mailerConfig(false))
	assert.False(t, mailer.Enabled())
	assert.NoError(t, mailer.Notify(t.Context(), &Request{Name: "Anna"}))
}

func TestMailer_RenderText(t *testing.T) {
	mailer := NewMailer(mailerConfig(true))
	body := mailer.renderText(&Request{
		Reference: "ref-1",
		Name:      "Anna Svensson",
		Email:     "anna@example.se",
		Company:   "Moi Sushi",
		Message:   "Hej!",
	})
	assert.Contains(t, body, "ref-1")
	assert.Contains(t, body, "Anna Svensson")
	assert.Contains(t, body, "Moi Sushi")
	assert.Contains(t, body, "Hej!")
	assert.NotContains(t, body, "Budget:") // champs vides omis
}

func TestMailer_RenderHTMLEscapes(t *testing.T) {
	mailer := NewMailer(mailerConfig(true))
	body := mailer.renderHTML(&Request{
		Name:    "<script>alert(1)</script>",
		Message: "ligne1\nligne2",
	})
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "ligne1<br>ligne2")
}
