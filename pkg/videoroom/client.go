// Package videoroom provisions consultation rooms with an external video
// provider.
package videoroom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Config struct {
	// BaseURL of the provider REST API. When empty, rooms are named locally
	// and no provider call is made.
	BaseURL   string
	APIKey    string
	APISecret string
	// JoinBaseURL overrides the link handed to participants.
	JoinBaseURL  string
	Timeout      time.Duration
	TokenTTL     time.Duration
	BreakerTrips uint32
}

// Room is a provisioned meeting room.
type Room struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	JoinURL string `json:"url"`
}

// Provider creates rooms.
type Provider interface {
	CreateRoom(ctx context.Context, name string) (*Room, error)
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *logger.Logger
	now        func() time.Time
}

func NewClient(cfg Config, log *logger.Logger, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 5 * time.Minute
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "videoroom",
			MaxFailures: cfg.BreakerTrips,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
		}, log),
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createRoomRequest struct {
	Name       string `json:"name"`
	Privacy    string `json:"privacy"`
	Expiration int64  `json:"exp"`
}

// CreateRoom provisions a private room that expires after a day.
func (c *Client) CreateRoom(ctx context.Context, name string) (*Room, error) {
	if c.cfg.BaseURL == "" {
		return &Room{ID: name, Name: name, JoinURL: c.joinURL(name, "")}, nil
	}

	body, err := json.Marshal(createRoomRequest{
		Name:       name,
		Privacy:    "private",
		Expiration: c.now().Add(24 * time.Hour).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room request: %w", err)
	}

	var room Room
	err = c.breaker.Execute(func() error {
		token, err := c.token()
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/rooms", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build room request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to reach video provider: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("video provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
			return fmt.Errorf("failed to decode room: %w", err)
		}
		return nil
	})
	if err != nil {
		c.logger.Error(err, "failed to create video room", "room", name)
		return nil, err
	}

	if room.ID == "" {
		room.ID = name
	}
	if room.Name == "" {
		room.Name = name
	}
	room.JoinURL = c.joinURL(room.Name, room.JoinURL)
	return &room, nil
}

func (c *Client) joinURL(name, fromProvider string) string {
	if c.cfg.JoinBaseURL != "" {
		return strings.TrimRight(c.cfg.JoinBaseURL, "/") + "/" + name
	}
	if fromProvider != "" {
		return fromProvider
	}
	return name
}

// token signs a short-lived HS256 management token for the provider API.
func (c *Client) token() (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.cfg.APIKey,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.cfg.APISecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign provider token: %w", err)
	}
	return signed, nil
}
