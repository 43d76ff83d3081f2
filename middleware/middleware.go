package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"unidos-api/utils"
)

// AuthMiddleware validates the bearer token and loads the account
// identity into the request context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			utils.SendError(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			utils.SendError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.SendError(c, http.StatusUnauthorized, "invalid token claims")
			c.Abort()
			return
		}

		userID, _ := claims["user_id"].(float64)
		role, _ := claims["role"].(string)
		ngoID, _ := claims["ngo_id"].(float64)
		if userID == 0 || role == "" {
			utils.SendError(c, http.StatusUnauthorized, "invalid token claims")
			c.Abort()
			return
		}

		c.Set("user_id", int(userID))
		c.Set("role", role)
		c.Set("ngo_id", int(ngoID))
		c.Next()
	}
}

// RequireRoles rejects requests whose account role is not listed.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString("role")
		if !allowed[role] {
			utils.SendError(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimiter keeps a token bucket per client IP.
func RateLimiter(rps rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu       sync.RWMutex
		limiters = make(map[string]*rate.Limiter)
	)

	getLimiter := func(ip string) *rate.Limiter {
		mu.RLock()
		l, ok := limiters[ip]
		mu.RUnlock()
		if ok {
			return l
		}
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[ip]; ok {
			return l
		}
		l = rate.NewLimiter(rps, burst)
		limiters[ip] = l
		return l
	}

	return func(c *gin.Context) {
		if !getLimiter(c.ClientIP()).Allow() {
			utils.SendError(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SecurityHeaders sets the usual hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequestLogger logs method, path, status and latency for each request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// PaginationDefaults normalizes page and page_size query params.
func PaginationDefaults() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("page") == "" {
			c.Request.URL.RawQuery += "&page=1"
		}
		if c.Query("page_size") == "" {
			c.Request.URL.RawQuery += "&page_size=20"
		}
		c.Next()
	}
}
