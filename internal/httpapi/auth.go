package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"tgadmin/internal/session"
	"tgadmin/pkg/logx"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a *App) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Success: false, Message: "Invalid request"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.Creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.Creds.Password)) == 1
	if !userOK || !passOK {
		a.Log.Warn("login rejected", logx.String("username", req.Username))
		writeJSON(w, http.StatusUnauthorized, loginResponse{Success: false, Message: "Invalid credentials"})
		return
	}

	token, _ := a.Sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.Sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	a.Log.Info("operator logged in", logx.String("username", req.Username))
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Message: "Login successful"})
}

func (a *App) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.CookieName); err == nil {
		a.Sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Message: "Logged out"})
}

// requireSession gates every authenticated route. This is an API, so an
// unauthenticated caller gets 401 JSON rather than a redirect.
func (a *App) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(session.CookieName)
		if err != nil || !a.Sessions.Validate(c.Value) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
