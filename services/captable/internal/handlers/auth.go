package handlers

import (
	"net/http"

	"github.com/AfshinJalili/captable/services/captable/internal/service"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload", nil)
		return
	}
	h.authenticate(c, req.Email, req.Password)
}

// Token is the OAuth2 password-grant form of Login.
func (h *Handler) Token(c *gin.Context) {
	h.authenticate(c, c.PostForm("username"), c.PostForm("password"))
}

func (h *Handler) authenticate(c *gin.Context, email, password string) {
	result, err := h.Auth.Authenticate(c.Request.Context(), service.LoginInput{
		Email:       email,
		Password:    password,
		RequestMeta: requestMeta(c),
	})
	if err != nil {
		h.writeServiceError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: result.Token.Token,
		TokenType:   "bearer",
		ExpiresIn:   result.Token.ExpiresIn,
	})
}
