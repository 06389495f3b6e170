package controller

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

// 参数绑定层的拦截不依赖 service，重点在 binding tag 有没有写对
func TestRegisterBindingValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := NewAuthController(nil)

	r := gin.New()
	r.POST("/auth/register", ctrl.Register)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing email", gin.H{"password": "longenough"}},
		{"bad email", gin.H{"email": "not-an-email", "password": "longenough"}},
		{"short password", gin.H{"email": "a@b.com", "password": "short"}},
		{"empty body", gin.H{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/auth/register", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("code = %d, want 400", w.Code)
			}
		})
	}
}

func TestLoginBindingValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := NewAuthController(nil)

	r := gin.New()
	r.POST("/auth/login", ctrl.Login)

	w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{"email": "a@b.com"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}
