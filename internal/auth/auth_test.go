package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-settlement/internal/models"
)

const testSecret = "test-secret"

func TestNewService(t *testing.T) {
	service, err := NewService(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenExpiry, service.tokenExp)

	_, err = NewService("", time.Hour)
	assert.Error(t, err)
}

func TestService_ValidateToken(t *testing.T) {
	service, _ := NewService(testSecret, time.Hour)

	token, err := service.GenerateToken(models.Claims{
		UserID:         "u-1",
		Username:       "accounts",
		Role:           models.RoleAccountant,
		OrganizationID: "org-1",
	})
	require.NoError(t, err)

	claims, err := service.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "accounts", claims.Username)
	assert.Equal(t, models.RoleAccountant, claims.Role)
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Greater(t, claims.Exp, time.Now().Unix())

	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateTokenWrongSecret(t *testing.T) {
	issuer, _ := NewService("other-secret", time.Hour)
	service, _ := NewService(testSecret, time.Hour)

	token, _ := issuer.GenerateToken(models.Claims{UserID: "u-1", Role: models.RoleViewer, OrganizationID: "org-1"})
	_, err := service.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateTokenExpired(t *testing.T) {
	service, _ := NewService(testSecret, time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":         "u-1",
		"role":            "VIEWER",
		"organization_id": "org-1",
		"exp":             time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateToken(signed)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateTokenOrganization(t *testing.T) {
	service, _ := NewService(testSecret, time.Hour)

	tests := []struct {
		name    string
		claims  models.Claims
		wantErr bool
	}{
		{"super admin without org", models.Claims{UserID: "u", Role: models.RoleSuperAdmin}, false},
		{"org admin without org", models.Claims{UserID: "u", Role: models.RoleOrgAdmin}, true},
		{"unknown role", models.Claims{UserID: "u", Role: "OWNER", OrganizationID: "org-1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := service.GenerateToken(tt.claims)
			require.NoError(t, err)
			_, err = service.ValidateToken(token)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidToken, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service, _ := NewService(testSecret, time.Hour)

	token, err := service.ExtractTokenFromHeader("Bearer abc.def")
	assert.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer "} {
		_, err := service.ExtractTokenFromHeader(header)
		assert.Equal(t, ErrInvalidToken, err, header)
	}
}
