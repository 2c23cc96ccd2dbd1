package jwttoken

import (
	"github.com/google/uuid"

	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	authmw "turnstile/pkg/platform/middleware/auth"
)

// ToMiddlewareClaims converts validated token claims into the middleware's
// claim shape.
func ToMiddlewareClaims(claims *Claims) (*authmw.DeviceClaims, error) {
	deviceID, err := uuid.Parse(claims.DeviceID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &authmw.DeviceClaims{
		DeviceID:    id.DeviceID(deviceID),
		DeviceName:  claims.DeviceName,
		Fingerprint: claims.Fingerprint,
		JTI:         claims.ID,
	}, nil
}

// JWTServiceAdapter implements the device auth middleware's TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.DeviceClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims)
}
