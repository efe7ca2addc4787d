package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goldclear/clearing-api/internal/types"
	"github.com/goldclear/clearing-api/pkg/response"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid API credentials")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// Credentials represents the API authentication credentials
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string     `json:"jwt_token"`
	ActorID    string     `json:"actor_id"`
	Role       types.Role `json:"role"`
	Expiration time.Time  `json:"expiration"`
}

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	ActorID string     `json:"actor_id"`
	Role    types.Role `json:"role"`
}

type registeredActor struct {
	apiSecret string
	actorID   string
	role      types.Role
}

// Service exchanges API credentials for actor tokens. Session
// management lives upstream; the core only needs id + role claims.
type Service struct {
	jwtSecret []byte
	// In a real deployment this is backed by the identity provider.
	actors map[string]registeredActor // map[APIKey]registeredActor
}

// NewService creates a new authentication service with the given JWT secret
func NewService(jwtSecret string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		actors:    make(map[string]registeredActor),
	}
}

// RegisterActorCredentials binds API credentials to an actor identity.
func (s *Service) RegisterActorCredentials(apiKey, apiSecret, actorID string, role types.Role) {
	s.actors[apiKey] = registeredActor{
		apiSecret: apiSecret,
		actorID:   actorID,
		role:      role,
	}
}

// GenerateToken generates a JWT token for valid API credentials.
// The token carries actor id and role with 24-hour expiration.
func (s *Service) GenerateToken(creds Credentials) (*TokenResponse, error) {
	actor, ok := s.actors[creds.APIKey]
	if !ok || actor.apiSecret != creds.APISecret {
		return nil, ErrInvalidCredentials
	}

	expiration := time.Now().Add(24 * time.Hour)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
		ActorID: actor.actorID,
		Role:    actor.role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		ActorID:    actor.actorID,
		Role:       actor.role,
		Expiration: expiration,
	}, nil
}

// GetActorID extracts the actor id from parsed claims.
func GetActorID(claims interface{}) string {
	if mapClaims, ok := claims.(jwt.MapClaims); ok {
		if actorID, ok := mapClaims["actor_id"].(string); ok {
			return actorID
		}
	}
	return ""
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateTokenHandler handles POST requests to exchange credentials
// for an actor token
func (h *GinHandlers) GenerateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		tokenResponse, err := h.service.GenerateToken(creds)
		if err != nil {
			response.Unauthorized(c, err.Error())
			return
		}

		response.Success(c, tokenResponse)
	}
}
