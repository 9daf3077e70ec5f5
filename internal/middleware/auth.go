package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

var tracer = otel.Tracer("github.com/jwalitptl/clinic-api/internal/middleware")

// ContextAccess is the gin key holding the resolved *access.Context.
const ContextAccess = "access_context"

// Resolver turns an authenticated principal into an access context.
type Resolver interface {
	Resolve(ctx context.Context, principalID uuid.UUID) (*access.Context, error)
}

type AuthMiddleware struct {
	tokens   auth.JWTService
	resolver Resolver
}

func NewAuthMiddleware(tokens auth.JWTService, resolver Resolver) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		resolver: resolver,
	}
}

// Authenticate verifies the bearer token and attaches the caller's access
// context to both the gin context and the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := m.authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextAccess, ac)
		c.Request = c.Request.WithContext(access.NewContext(c.Request.Context(), ac))
		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(ctx context.Context, header string) (*access.Context, error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	fail := func(reason string, err error) (*access.Context, error) {
		span.SetStatus(codes.Error, reason)
		span.SetAttributes(attribute.String("error.type", reason))
		return nil, err
	}

	if header == "" {
		return fail("missing_authorization", apperrors.Unauthorized(nil))
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return fail("invalid_header_format", apperrors.Unauthorized(nil))
	}

	principalID, err := m.tokens.PrincipalID(parts[1])
	if err != nil {
		return fail("invalid_token", apperrors.Unauthorized(err))
	}

	ac, err := m.resolver.Resolve(ctx, principalID)
	if err != nil {
		// An unknown principal is treated like a bad token.
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return fail("unknown_principal", apperrors.Unauthorized(err))
		}
		return fail("resolve_failed", err)
	}

	span.SetAttributes(
		attribute.String("enduser.id", ac.UserID.String()),
		attribute.String("enduser.role", string(ac.Role)),
	)
	return ac, nil
}

// AccessContext returns the context set by Authenticate, or nil.
func AccessContext(c *gin.Context) *access.Context {
	if v, ok := c.Get(ContextAccess); ok {
		if ac, ok := v.(*access.Context); ok {
			return ac
		}
	}
	return access.FromContext(c.Request.Context())
}
