package service

import (
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/marketing/internal/config"
	"github.com/dujiao-next/marketing/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

const defaultConsoleTokenTTL = 12 * time.Hour

// ErrConsoleTokenInvalid 控制台令牌无效
var ErrConsoleTokenInvalid = errors.New("console token invalid")

// ConsoleClaims 控制台 JWT 声明
type ConsoleClaims struct {
	TenantID uint   `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ConsoleAuthService 控制台令牌签发与校验
// 正式环境由身份系统签发，这里的签发只给 seed 和测试使用。
type ConsoleAuthService struct {
	secret []byte
	issuer string
}

// NewConsoleAuthService 创建控制台令牌服务
func NewConsoleAuthService(cfg config.JWTConfig) *ConsoleAuthService {
	return &ConsoleAuthService{
		secret: []byte(cfg.SecretKey),
		issuer: strings.TrimSpace(cfg.Issuer),
	}
}

// Configured 是否配置了签名密钥
func (s *ConsoleAuthService) Configured() bool {
	return s != nil && len(s.secret) > 0
}

// Issue 签发控制台令牌
func (s *ConsoleAuthService) Issue(tenantID uint, role string, ttl time.Duration) (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, ErrConsoleTokenInvalid
	}
	if tenantID == 0 || !isConsoleRole(role) {
		return "", time.Time{}, ErrInvalidInput
	}
	if ttl <= 0 {
		ttl = defaultConsoleTokenTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := ConsoleClaims{
		TenantID: tenantID,
		Role:     strings.ToLower(strings.TrimSpace(role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Parse 解析并校验控制台令牌
func (s *ConsoleAuthService) Parse(tokenString string) (*ConsoleClaims, error) {
	if !s.Configured() {
		return nil, ErrConsoleTokenInvalid
	}
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		options = append(options, jwt.WithIssuer(s.issuer))
	}
	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenString, &ConsoleClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrConsoleTokenInvalid, err)
	}
	claims, ok := token.Claims.(*ConsoleClaims)
	if !ok || !token.Valid || claims.TenantID == 0 || !isConsoleRole(claims.Role) {
		return nil, ErrConsoleTokenInvalid
	}
	claims.Role = strings.ToLower(strings.TrimSpace(claims.Role))
	return claims, nil
}

func isConsoleRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case constants.ConsoleRoleViewer, constants.ConsoleRoleOperator, constants.ConsoleRoleAdmin:
		return true
	default:
		return false
	}
}
