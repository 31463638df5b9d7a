// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that fail verification or carry malformed claims.
var ErrInvalidToken = errors.New("invalid player token")

// PlayerClaims bind a token to one player of one game.
type PlayerClaims struct {
	GameID uuid.UUID `json:"gameId"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies player tokens with an ed25519 key pair.
type Issuer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	expire  time.Duration // 0 => tokens carry no exp claim
	now     func() time.Time
}

// NewIssuer generates a fresh key pair. Tokens do not survive a restart of the process.
func NewIssuer(expire time.Duration) (*Issuer, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return &Issuer{private: private, public: public, expire: expire, now: time.Now}, nil
}

// NewIssuerFromFiles reads a raw ed25519 key pair from disk, so that every server instance
// accepts the same tokens.
func NewIssuerFromFiles(privatePath, publicPath string, expire time.Duration) (*Issuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, errors.New("key files do not hold a raw ed25519 key pair")
	}
	return &Issuer{
		private: ed25519.PrivateKey(privateKeyData),
		public:  ed25519.PublicKey(publicKeyData),
		expire:  expire,
		now:     time.Now,
	}, nil
}

// Issue creates a signed token with "sub" = playerID and the game id as a private claim.
func (i *Issuer) Issue(playerID, gameID uuid.UUID) (string, error) {
	now := i.now()
	claims := PlayerClaims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  playerID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.expire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.expire))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.private)
}

// Verify checks a token and returns the player and game it was issued for.
func (i *Issuer) Verify(token string) (playerID, gameID uuid.UUID, err error) {
	var claims PlayerClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.public, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}

	playerID, err = uuid.Parse(claims.Subject)
	if err != nil || claims.GameID == uuid.Nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: missing player or game", ErrInvalidToken)
	}
	return playerID, claims.GameID, nil
}
