package token

import (
	"canguard/internal/platform/middleware"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
)

// MiddlewareAdapter exposes the token service through the auth middleware's
// validator interface.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token claims")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token claims")
	}
	return &middleware.TokenClaims{UserID: userID, SessionID: sessionID}, nil
}
