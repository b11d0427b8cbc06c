package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jongan69/threadiverse/internal/config"
	"github.com/jongan69/threadiverse/internal/model"
)

func signChallenge(t *testing.T, provider *WalletProvider) (string, model.UserID) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	challenge, err := base64.StdEncoding.DecodeString(provider.Challenge())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	sig := ed25519.Sign(priv, challenge)
	token := base64.StdEncoding.EncodeToString(append([]byte(pub), sig...))
	return token, AddressFromPublicKey(pub)
}

func TestVerifyToken(t *testing.T) {
	provider, err := NewWalletProvider()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	token, wantAddress := signChallenge(t, provider)

	address, err := provider.VerifyToken(token)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if address != wantAddress {
		t.Errorf("Expected %s, got %s", wantAddress, address)
	}
	if len(address) != 2+40 {
		t.Errorf("Expected a 0x-prefixed 20-byte address, got %s", address)
	}
}

func TestVerifyTokenRejections(t *testing.T) {
	provider, err := NewWalletProvider()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Signature over a stale challenge fails once the challenge rotates.
	staleToken, _ := signChallenge(t, provider)
	if err := provider.RefreshChallenge(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	testCases := []struct {
		name  string
		token string
		want  error
	}{
		{"Not base64", "not-base64!!!", ErrMalformedToken},
		{"Too short", base64.StdEncoding.EncodeToString([]byte("short")), ErrMalformedToken},
		{"Stale challenge", staleToken, ErrInvalidSignature},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := provider.VerifyToken(tc.token); !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMiddlewareBindsIdentity(t *testing.T) {
	provider, err := NewWalletProvider()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	token, wantAddress := signChallenge(t, provider)

	var gotUser model.UserID
	var gotOK bool
	handler := provider.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotOK = ContextSource{}.Current(r.Context())
	}))

	testCases := []struct {
		name    string
		prepare func(r *http.Request)
		wantOK  bool
	}{
		{
			name:    "Authorization header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", token) },
			wantOK:  true,
		},
		{
			name: "Cookie",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: config.CookieWalletToken, Value: token})
			},
			wantOK: true,
		},
		{
			name:    "No token",
			prepare: func(r *http.Request) {},
			wantOK:  false,
		},
		{
			name:    "Garbage token",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "garbage") },
			wantOK:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotUser, gotOK = "", false

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.prepare(r)
			handler.ServeHTTP(httptest.NewRecorder(), r)

			if gotOK != tc.wantOK {
				t.Fatalf("Expected identity present = %v, got %v", tc.wantOK, gotOK)
			}
			if tc.wantOK && gotUser != wantAddress {
				t.Errorf("Expected %s, got %s", wantAddress, gotUser)
			}
		})
	}
}

func TestWalletAuthHandlers(t *testing.T) {
	provider, err := NewWalletProvider()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	token, wantAddress := signChallenge(t, provider)

	t.Run("Challenge", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/challenge", nil)
		w := httptest.NewRecorder()
		WalletChallengeHandler(provider)(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if body := w.Body.String(); !strings.Contains(body, `"challenge"`) {
			t.Errorf("Expected a challenge field, got %s", body)
		}
	})

	t.Run("Verify", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(`{"token":"`+token+`"}`))
		w := httptest.NewRecorder()
		WalletVerifyHandler(provider)(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var cookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == config.CookieWalletToken {
				cookie = c
			}
		}
		if cookie == nil || cookie.Value != token || !cookie.HttpOnly {
			t.Errorf("Expected an HttpOnly wallet token cookie, got %+v", cookie)
		}
		if !strings.Contains(w.Body.String(), string(wantAddress)) {
			t.Errorf("Expected address %s in the response, got %s", wantAddress, w.Body.String())
		}
	})

	t.Run("Verify bad signature", func(t *testing.T) {
		if err := provider.RefreshChallenge(); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		r := httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(`{"token":"`+token+`"}`))
		w := httptest.NewRecorder()
		WalletVerifyHandler(provider)(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", w.Code)
		}
	})

	t.Run("Verify malformed token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(`{"token":"???"}`))
		w := httptest.NewRecorder()
		WalletVerifyHandler(provider)(w, r)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}
