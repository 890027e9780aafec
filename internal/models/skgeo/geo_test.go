package skgeo

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Benim22/Skaply-sub000/internal/skconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLoopback(t *testing.T) {
	assert.True(t, IsLoopback(""))
	assert.True(t, IsLoopback("127.0.0.1"))
	assert.True(t, IsLoopback("::1"))
	assert.False(t, IsLoopback("203.0.113.5"))
}

func TestNew(t *testing.T) {
	r, err := New(skconfig.GeoConfig{Provider: "http", Endpoint: "https://ipapi.co/%s/json/", TimeoutSeconds: 5})
	require.NoError(t, err)
	assert.IsType(t, &HTTPResolver{}, r)

	_, err = New(skconfig.GeoConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestHTTPResolver_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"country_code": "SE",
			"country_name": "Sweden",
			"region": "Skåne",
			"city": "Trelleborg",
			"latitude": 55.37,
			"longitude": 13.16,
			"timezone": "Europe/Stockholm"
		}`))
	}))
	defer server.Close()

	resolver := NewHTTPResolver(server.URL+"/%s/json/", 2*time.Second)
	bundle := resolver.Resolve("203.0.113.5")
	require.NotNil(t, bundle)
	assert.Equal(t, "SE", bundle.CountryCode)
	assert.Equal(t, "Sweden", bundle.CountryName)
	assert.Equal(t, "Trelleborg", bundle.City)
	assert.InDelta(t, 55.37, bundle.Latitude, 0.001)
	assert.Equal(t, "Europe/Stockholm", bundle.Timezone)
}

func TestHTTPResolver_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	resolver := NewHTTPResolver(server.URL+"/%s/json/", 2*time.Second)
	assert.Nil(t, resolver.Resolve("203.0.113.5"))
}

func TestHTTPResolver_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	resolver := NewHTTPResolver(server.URL+"/%s/json/", 2*time.Second)
	assert.Nil(t, resolver.Resolve("203.0.113.5"))
}

func TestHTTPResolver_EmptyCountryCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country_code": "", "city": "Nowhere"}`))
	}))
	defer server.Close()

	resolver := NewHTTPResolver(server.URL+"/%s/json/", 2*time.Second)
	assert.Nil(t, resolver.Resolve("203.0.113.5"))
}

func TestHTTPResolver_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	resolver := NewHTTPResolver(server.URL+"/%s/json/", 20*time.Millisecond)
	assert.Nil(t, resolver.Resolve("203.0.113.5"))
}

func TestHTTPResolver_ConnectionRefused(t *testing.T) {
	resolver := NewHTTPResolver("http://127.0.0.1:1/%s/json/", time.Second)
	assert.Nil(t, resolver.Resolve("203.0.113.5"))
}
