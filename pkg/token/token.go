package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleType set user role
type RoleType string

const (
	// RoleStudent campus student
	RoleStudent RoleType = "student"
	// RoleFaculty teaching faculty
	RoleFaculty RoleType = "faculty"
	// RoleDepartmentStaff department-level admin staff
	RoleDepartmentStaff RoleType = "department-staff"
	// RoleCentralAdmin top-level admin
	RoleCentralAdmin RoleType = "central-admin"
)

// Claims structure for custom claims in JWT. Department/Year/Batch are only
// set for roles they apply to; the auth service fills them in at issuance.
type Claims struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Year       int    `json:"year,omitempty"`
	Batch      string `json:"batch,omitempty"`
	jwt.RegisteredClaims
}

// Secret Key for JWT signing and validation
var (
	JWTSecret       = []byte("secure_secret_key")
	tokenExpiration = 60 * time.Minute
)

// GenerateJWT generates a JWT token
func GenerateJWT(userID, role, department string, year int, batch, issuer string) (string, error) {
	claims := Claims{
		UserID:     userID,
		Role:       role,
		Department: department,
		Year:       year,
		Batch:      batch,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// ParseJWT parses a JWT and extracts the Claims
func ParseJWT(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
