package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // HTTP status codes for responses
    "strconv"  // claim conversion helpers
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the IDM service and injects the token's subject and role claims
// into the request context. The provided secret must match the IDM's signing
// secret. Handlers can access the authenticated identity via
// c.Get("user_id") and c.Get("role"); the raw Authorization header is kept
// under "auth_header" so it can be forwarded unmodified to the inventory
// service.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse with HS256 only; reject any other signing method.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            // Store the subject (IDM user id) and role claims in the context.
            // Type assertions are left to downstream consumers.
            c.Set("user_id", claims["sub"])
            c.Set("role", claims["role"])
            c.Set("auth_header", auth)
            return next(c)
        }
    }
}

// UserID extracts the IDM user id stored by JWTAuth. JWT numeric claims
// decode as float64; both that and string subjects are accepted. The
// second return value is false when no usable id is present.
func UserID(c echo.Context) (int, bool) {
    switch v := c.Get("user_id").(type) {
    case float64:
        return int(v), true
    case int:
        return v, true
    case string:
        n, err := strconv.Atoi(v)
        if err != nil {
            return 0, false
        }
        return n, true
    default:
        return 0, false
    }
}

// AuthHeader returns the raw Authorization header captured by JWTAuth,
// or "" when the request was not authenticated.
func AuthHeader(c echo.Context) string {
    if v, ok := c.Get("auth_header").(string); ok {
        return v
    }
    return ""
}

// IsAdmin reports whether the authenticated user carries the admin role.
func IsAdmin(c echo.Context) bool {
    role, _ := c.Get("role").(string)
    return role == "admin"
}
