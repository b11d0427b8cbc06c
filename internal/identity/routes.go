package identity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jongan69/threadiverse/internal/config"
	"github.com/jongan69/threadiverse/internal/routes"
)

// RegisterWalletAuthRoutes registers the wallet challenge/verify endpoints.
func RegisterWalletAuthRoutes(mux *http.ServeMux, provider *WalletProvider) {
	mux.HandleFunc(routes.AuthChallenge, WalletChallengeHandler(provider))
	mux.HandleFunc(routes.AuthVerify, WalletVerifyHandler(provider))
}

func WalletChallengeHandler(provider *WalletProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set(config.HCType, config.CTypeJSON)
		json.NewEncoder(w).Encode(map[string]string{
			"challenge": provider.Challenge(),
		})
	}
}

func WalletVerifyHandler(provider *WalletProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		address, err := provider.VerifyToken(body.Token)
		if err != nil {
			if errors.Is(err, ErrMalformedToken) {
				http.Error(w, "Invalid token format", http.StatusBadRequest)
				return
			}
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     config.CookieWalletToken,
			Value:    body.Token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		w.Header().Set(config.HCType, config.CTypeJSON)
		json.NewEncoder(w).Encode(map[string]string{
			"address": string(address),
		})
	}
}
