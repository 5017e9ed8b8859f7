package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lastseat/server/internal/captcha"
	"lastseat/server/internal/config"
	"lastseat/server/internal/logging"
)

const (
	// ContextKeyIsHumanVerified holds the key for captcha status in Gin context.
	ContextKeyIsHumanVerified = "isHumanVerified"
)

// CaptchaMiddleware handles Cloudflare Turnstile verification (X-C-V) and
// human-token (X-C-T) checks. It never aborts: it only records whether the
// client proved it is human, and the rate limiter decides what that is worth.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	logger := logging.Get().Named("captcha")
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		fingerprint := c.GetHeader("X-BFP")
		spaSession := c.GetHeader("X-SPA")
		humanToken := c.GetHeader("X-C-T")
		challenge := c.GetHeader("X-C-V")

		isHuman := false

		// 1. An existing valid X-C-T token is enough.
		if humanToken != "" && verifier.ValidateHumanToken(humanToken, clientIP, fingerprint, spaSession) {
			isHuman = true
		}

		// 2. Otherwise verify a fresh X-C-V challenge and mint a new token.
		if !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, clientIP)
			if err != nil {
				logger.Warn("turnstile verification error", zap.Error(err))
			} else if verified {
				isHuman = true
				newToken, tokenErr := verifier.GenerateHumanToken(clientIP, fingerprint, spaSession, cfg.CaptchaTokenTTL)
				if tokenErr != nil {
					logger.Error("failed to generate human token", zap.Error(tokenErr))
				} else {
					c.Header("X-C-T", newToken)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
