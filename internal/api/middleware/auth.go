package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// JWTAuth 解析并校验 Bearer Token，同时查 Redis 吊销黑名单
//
// 黑名单查不了（Redis 挂了）按"未吊销"放行——fail open。
// 这是一个明确的取舍：可用性优先于严格性，最坏情况是已登出的
// Token 在剩余有效期内还能用。按威胁模型可以改成 fail closed。
func JWTAuth(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "Authorization header required"})
			c.Abort()
			return
		}

		// 格式通常是 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "Invalid authorization format"})
			c.Abort()
			return
		}

		tokenString := parts[1]
		secret := viper.GetString("jwt.secret")

		// 解析 Token
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "Invalid token claims"})
			c.Abort()
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "Invalid token claims"})
			c.Abort()
			return
		}

		// 黑名单检查 (登出吊销)
		if jti, ok := claims["jti"].(string); ok && jti != "" {
			if rdb != nil {
				blocked, err := rdb.Exists(c.Request.Context(), "jti:"+jti).Result()
				if err != nil {
					// fail open：查不了黑名单就当没吊销
					slog.Error("黑名单检查失败，放行", "err", err)
				} else if blocked > 0 {
					c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "Token has been revoked"})
					c.Abort()
					return
				}
			}
			c.Set("jti", jti)
		}

		// 把过期时间也带上，登出时算黑名单 TTL 用
		if exp, ok := claims["exp"].(float64); ok {
			c.Set("tokenExp", time.Unix(int64(exp), 0))
		}

		c.Set("userID", userID)
		c.Next()
	}
}
