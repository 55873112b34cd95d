// Package auth autentica al único operador de la instalación (titular de la partita IVA).
package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// OperatorConfig credenciales configuradas del operador.
type OperatorConfig struct {
	Email        string
	PasswordHash string // bcrypt
}

// AuthUseCase login del operador contra las credenciales de configuración.
type AuthUseCase struct {
	operator OperatorConfig
	jwtCfg   JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(operator OperatorConfig, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{operator: operator, jwtCfg: jwtCfg}
}

// Login valida email y password con bcrypt y emite un JWT. Devuelve ErrUnauthorized si no coinciden
// o si no hay operador configurado.
func (uc *AuthUseCase) Login(in dto.LoginRequest) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	want := strings.ToLower(strings.TrimSpace(uc.operator.Email))
	if want == "" || uc.operator.PasswordHash == "" {
		return nil, domain.ErrUnauthorized
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(want)) == 1
	// bcrypt se evalúa aunque el email no coincida
	passErr := bcrypt.CompareHashAndPassword([]byte(uc.operator.PasswordHash), []byte(in.Password))
	if !emailOK || passErr != nil {
		return nil, domain.ErrUnauthorized
	}

	token, err := jwt.Generate(uc.jwtCfg.Secret, want, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, ExpiresIn: uc.jwtCfg.ExpMinutes * 60, Email: want}, nil
}

// HashPassword hash bcrypt para OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", domain.NewValidationError("la contraseña debe tener al menos 8 caracteres")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
