package videoroom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func TestCreateRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rooms", r.URL.Path)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return []byte("s3cret"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "key", claims.Issuer)

		var body createRoomRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "private", body.Privacy)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Room{ID: "r-1", Name: body.Name, JoinURL: "https://video.test/" + body.Name})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key", APISecret: "s3cret"}, logger.Nop())
	room, err := c.CreateRoom(context.Background(), "consult-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", room.ID)
	assert.Equal(t, "https://video.test/consult-1", room.JoinURL)
}

func TestCreateRoom_JoinBaseOverride(t *testing.T) {
	c := NewClient(Config{JoinBaseURL: "https://meet.clinic.test/"}, logger.Nop())
	room, err := c.CreateRoom(context.Background(), "consult-2")
	require.NoError(t, err)
	assert.Equal(t, "consult-2", room.ID)
	assert.Equal(t, "https://meet.clinic.test/consult-2", room.JoinURL)
}

func TestCreateRoom_ProviderFailureTripsBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APISecret: "x", BreakerTrips: 2}, logger.Nop())
	for i := 0; i < 2; i++ {
		_, err := c.CreateRoom(context.Background(), "r")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	}
	_, err := c.CreateRoom(context.Background(), "r")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, calls)
}
