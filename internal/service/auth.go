package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leon37/finsight/internal/infrastructure/queue"
	"github.com/leon37/finsight/internal/model"
	"github.com/leon37/finsight/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ErrEmailTaken 注册时邮箱已存在，controller 映射成 409
var ErrEmailTaken = errors.New("user with this email already exists")

type AuthService struct {
	userRepo repository.UserRepo
	rdb      *redis.Client
	enqueuer *queue.Enqueuer
}

func NewAuthService(userRepo repository.UserRepo, rdb *redis.Client, enqueuer *queue.Enqueuer) *AuthService {
	return &AuthService{userRepo: userRepo, rdb: rdb, enqueuer: enqueuer}
}

// Register 注册逻辑
func (s *AuthService) Register(ctx context.Context, email, password string) error {
	// 1. 基本校验
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}

	// 2. 查重 (DB Unique Index 会兜底，但先查能给出友好的 409)
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// 3. 密码加密
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	// 4. 落库
	id, _ := uuid.NewV7()
	user := &model.User{
		ID:       id.String(),
		Email:    email,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return err
	}

	// 5. 欢迎邮件走异步队列，发不出去不影响注册
	if s.enqueuer != nil {
		_, err := s.enqueuer.EnqueueEmail(ctx, queue.EmailPayload{
			To:      user.Email,
			Subject: "Welcome to FinSight",
			HTML:    "<p>Your account is ready. Start tracking your expenses!</p>",
		})
		if err != nil {
			slog.Warn("欢迎邮件入队失败", "email", user.Email, "err", err)
		}
	}
	return nil
}

// Login 登录逻辑，返回 Token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	// 1. 查用户
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", "", errors.New("invalid credentials") // 模糊报错为了安全
	}

	// 2. 比对密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", errors.New("invalid credentials")
	}

	// 3. 生成 JWT
	return s.generateToken(user.ID)
}

// Logout 吊销当前 Token：把 jti 写进 Redis 黑名单
// TTL 设成 Token 剩余有效期，过期后黑名单条目自动消失，不会无限膨胀
func (s *AuthService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // 已经过期，不需要吊销
	}
	return s.rdb.Set(ctx, "jti:"+jti, "1", ttl).Err()
}

// Profile 取用户信息
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) generateToken(userID string) (string, string, error) {
	secret := viper.GetString("jwt.secret")
	expireHours := viper.GetInt("jwt.expire_hours")
	if expireHours <= 0 {
		expireHours = 24
	}

	jti, _ := uuid.NewV7()
	claims := jwt.MapClaims{
		"user_id": userID,
		"jti":     jti.String(),
		"exp":     time.Now().Add(time.Hour * time.Duration(expireHours)).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return ss, userID, nil
}
