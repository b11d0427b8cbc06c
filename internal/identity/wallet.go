package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jongan69/threadiverse/internal/config"
	"github.com/jongan69/threadiverse/internal/model"
)

var (
	ErrMalformedToken   = errors.New("malformed wallet token")
	ErrInvalidSignature = errors.New("invalid wallet signature")
)

// WalletProvider authenticates users by an ed25519 signature over a server
// challenge. The wallet address derived from the public key is the user id,
// so any keypair self-registers by signing.
type WalletProvider struct {
	mu        sync.RWMutex
	challenge []byte
}

func NewWalletProvider() (*WalletProvider, error) {
	p := &WalletProvider{}
	if err := p.RefreshChallenge(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WalletProvider) RefreshChallenge() error {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return fmt.Errorf("failed to generate challenge: %w", err)
	}

	p.mu.Lock()
	p.challenge = challenge
	p.mu.Unlock()
	return nil
}

// Challenge returns the current challenge, base64-encoded for the client to
// sign.
func (p *WalletProvider) Challenge() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return base64.StdEncoding.EncodeToString(p.challenge)
}

// AddressFromPublicKey derives a 20-byte hex wallet address from an ed25519
// public key.
func AddressFromPublicKey(pub ed25519.PublicKey) model.UserID {
	hash := sha256.Sum256(pub)
	return model.UserID("0x" + hex.EncodeToString(hash[12:]))
}

// VerifyToken checks a wallet token, base64(publicKey || signature), against
// the current challenge and returns the derived address.
func (p *WalletProvider) VerifyToken(token string) (model.UserID, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if len(raw) != ed25519.PublicKeySize+ed25519.SignatureSize {
		return "", ErrMalformedToken
	}

	pub := ed25519.PublicKey(raw[:ed25519.PublicKeySize])
	sig := raw[ed25519.PublicKeySize:]

	p.mu.RLock()
	challenge := p.challenge
	p.mu.RUnlock()

	if !ed25519.Verify(pub, challenge, sig) {
		return "", ErrInvalidSignature
	}

	return AddressFromPublicKey(pub), nil
}

func (p *WalletProvider) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := zerolog.Ctx(r.Context())

			token := r.Header.Get("Authorization")
			if token == "" {
				if cookie, err := r.Cookie(config.CookieWalletToken); err == nil {
					token = cookie.Value
				}
			}

			if token != "" {
				userID, err := p.VerifyToken(token)
				if err == nil {
					ctx := ContextWithUser(r.Context(), userID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				l.Debug().Err(err).Msg("Wallet token rejected")
			}

			// No valid token: proceed without an identity.
			next.ServeHTTP(w, r)
		})
	}
}

func (p *WalletProvider) UserFromSession(r *http.Request) (model.UserID, error) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		return "", errors.New("no active wallet session")
	}
	return userID, nil
}
