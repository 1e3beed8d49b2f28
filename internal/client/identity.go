package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/talgya/hexsettlers/internal/board"
)

// PlayerFromToken reads the player name from the sub claim of a bearer
// token. The signature is not checked here; the server does that on connect.
func PlayerFromToken(token string) (board.PlayerID, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return "", errors.New("empty token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("token subject: %w", err)
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return board.PlayerID(sub), nil
}

// ResolvePlayer picks the configured player, falling back to the token.
func ResolvePlayer(configured, token string) (board.PlayerID, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		return board.PlayerID(configured), nil
	}
	if strings.TrimSpace(token) == "" {
		return "", errors.New("no player name and no token to read one from")
	}
	return PlayerFromToken(token)
}
