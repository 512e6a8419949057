package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates
var templatesFS embed.FS

const (
	cookieName  = "userdir_token"
	defaultPort = "3000"
	defaultAPI  = "http://localhost:8080"
	envWebPort  = "USERDIR_WEB_PORT"
	envAPIURL   = "USERDIR_API_URL"
)

func main() {
	port := getEnv(envWebPort, defaultPort)
	apiBase := getEnv(envAPIURL, defaultAPI)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health (no auth, no templates)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Public
	r.Get("/login", loginForm)
	r.Post("/login", loginSubmit(apiBase))
	r.Get("/logout", logout)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(apiBase))
		r.Get("/", redirectProfile)
		r.Get("/profile", profilePage(apiBase))
		r.Get("/users", usersList(apiBase))
		r.Get("/users/new", userCreateForm)
		r.Post("/users", userCreate(apiBase))
		r.Get("/users/{id}/edit", userEditForm(apiBase))
		r.Post("/users/{id}/edit", userUpdate(apiBase))
		r.Get("/users/{id}/delete", userDeleteConfirm(apiBase))
		r.Post("/users/{id}/delete", userDelete(apiBase))
	})

	log.Printf("Web UI running on http://localhost:%s (API: %s)", port, apiBase)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// webUser mirrors the five fields the API returns for an account.
type webUser struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// requireAuth redirects to /login when the cookie is missing or no longer
// accepted. The API reports auth problems as 403, never 401, so validity is
// probed with GET /auth/me instead of watching for 401s.
func requireAuth(apiBase string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookieToken(r)
			if token == "" {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
				return
			}
			_, status, err := apiGet(apiBase, "/auth/me", token)
			if err != nil || status != http.StatusOK {
				clearAuthAndRedirectToLogin(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// cookieToken returns the stored token, or "" when not logged in.
func cookieToken(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func redirectProfile(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/profile", http.StatusFound)
}

func loginForm(w http.ResponseWriter, r *http.Request) {
	if cookieToken(r) != "" {
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}
	renderTemplate(w, "login.html", map[string]string{})
}

func loginSubmit(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		if username == "" {
			renderTemplate(w, "login.html", map[string]string{"Error": "Username is required"})
			return
		}

		body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
		req, _ := http.NewRequest("POST", apiBase+"/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			renderTemplate(w, "login.html", map[string]string{"Error": "Cannot reach API: " + err.Error()})
			return
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			renderTemplate(w, "login.html", map[string]string{"Error": apiDetail(data)})
			return
		}

		var out struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(data, &out); err != nil || out.Token == "" {
			renderTemplate(w, "login.html", map[string]string{"Error": "Invalid login response"})
			return
		}

		next := r.URL.Query().Get("next")
		if next == "" {
			next = "/profile"
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    out.Token,
			Path:     "/",
			MaxAge:   24 * 3600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, next, http.StatusFound)
	}
}

func logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusFound)
}

// clearAuthAndRedirectToLogin clears the token cookie and redirects to login
// with next=current path. Call when the API no longer accepts the token so
// the user can sign in again.
func clearAuthAndRedirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	next := r.URL.Path
	if r.URL.RawQuery != "" {
		next += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, "/login?next="+url.QueryEscape(next), http.StatusFound)
}

// apiDetail extracts the API's "detail" message, falling back to the raw body.
func apiDetail(data []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	msg := string(data)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

// apiGet performs GET to the API with the given token.
func apiGet(apiBase, path, token string) ([]byte, int, error) {
	req, _ := http.NewRequest("GET", apiBase+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return data, resp.StatusCode, nil
}

// apiSend performs POST/PUT/DELETE to the API with token and optional JSON body.
func apiSend(method, apiBase, path, token string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, _ := http.NewRequest(method, apiBase+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return data, resp.StatusCode, nil
}

// userFormBody builds the JSON body for create and update from the form.
func userFormBody(r *http.Request) []byte {
	payload := map[string]string{
		"username":   strings.TrimSpace(r.FormValue("username")),
		"first_name": strings.TrimSpace(r.FormValue("first_name")),
		"last_name":  strings.TrimSpace(r.FormValue("last_name")),
		"email":      strings.TrimSpace(r.FormValue("email")),
		"password":   r.FormValue("password"),
	}
	body, _ := json.Marshal(payload)
	return body
}

func profilePage(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, status, err := apiGet(apiBase, "/auth/me", cookieToken(r))
		if err != nil {
			renderTemplate(w, "profile.html", map[string]interface{}{"Error": err.Error(), "User": webUser{}})
			return
		}
		if status != http.StatusOK {
			clearAuthAndRedirectToLogin(w, r)
			return
		}

		var user webUser
		if err := json.Unmarshal(data, &user); err != nil {
			renderTemplate(w, "profile.html", map[string]interface{}{"Error": "Invalid account response", "User": webUser{}})
			return
		}

		renderTemplate(w, "profile.html", map[string]interface{}{"User": user})
	}
}

func usersList(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, status, err := apiGet(apiBase, "/users?limit=200", cookieToken(r))
		if err != nil {
			renderTemplate(w, "users.html", map[string]interface{}{"Error": err.Error()})
			return
		}
		if status != http.StatusOK {
			// Non-staff callers land here with the API's permission message.
			renderTemplate(w, "users.html", map[string]interface{}{"Error": apiDetail(data)})
			return
		}

		var env struct {
			Items []webUser `json:"items"`
			Total int       `json:"total"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			renderTemplate(w, "users.html", map[string]interface{}{"Error": "Invalid users response"})
			return
		}

		renderTemplate(w, "users.html", map[string]interface{}{
			"Users": env.Items,
			"Total": env.Total,
		})
	}
}

func userCreateForm(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, "user_form.html", map[string]interface{}{
		"User":        webUser{},
		"FormAction":  "/users",
		"SubmitLabel": "Create user",
	})
}

func userCreate(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		formPayload := func(errMsg string) map[string]interface{} {
			return map[string]interface{}{
				"Error":       errMsg,
				"User":        webUser{Username: r.FormValue("username"), FirstName: r.FormValue("first_name"), LastName: r.FormValue("last_name"), Email: r.FormValue("email")},
				"FormAction":  "/users",
				"SubmitLabel": "Create user",
			}
		}

		data, status, err := apiSend("POST", apiBase, "/users", cookieToken(r), userFormBody(r))
		if err != nil {
			renderTemplate(w, "user_form.html", formPayload(err.Error()))
			return
		}
		if status != http.StatusCreated {
			renderTemplate(w, "user_form.html", formPayload(apiDetail(data)))
			return
		}

		http.Redirect(w, r, "/users", http.StatusFound)
	}
}

func userEditForm(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		payload := func(errMsg string, u webUser) map[string]interface{} {
			return map[string]interface{}{
				"Error":       errMsg,
				"User":        u,
				"FormAction":  "/users/" + id + "/edit",
				"SubmitLabel": "Save changes",
			}
		}

		data, status, err := apiGet(apiBase, "/users/"+id, cookieToken(r))
		if err != nil {
			renderTemplate(w, "user_form.html", payload(err.Error(), webUser{}))
			return
		}
		if status != http.StatusOK {
			renderTemplate(w, "user_form.html", payload(apiDetail(data), webUser{}))
			return
		}

		var user webUser
		if err := json.Unmarshal(data, &user); err != nil {
			renderTemplate(w, "user_form.html", payload("Invalid user response", webUser{}))
			return
		}

		renderTemplate(w, "user_form.html", payload("", user))
	}
}

func userUpdate(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		formPayload := func(errMsg string) map[string]interface{} {
			return map[string]interface{}{
				"Error":       errMsg,
				"User":        webUser{Username: r.FormValue("username"), FirstName: r.FormValue("first_name"), LastName: r.FormValue("last_name"), Email: r.FormValue("email")},
				"FormAction":  "/users/" + id + "/edit",
				"SubmitLabel": "Save changes",
			}
		}

		data, status, err := apiSend("PUT", apiBase, "/users/"+id, cookieToken(r), userFormBody(r))
		if err != nil {
			renderTemplate(w, "user_form.html", formPayload(err.Error()))
			return
		}
		if status != http.StatusOK {
			renderTemplate(w, "user_form.html", formPayload(apiDetail(data)))
			return
		}

		http.Redirect(w, r, "/users", http.StatusFound)
	}
}

func userDeleteConfirm(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		data, status, err := apiGet(apiBase, "/users/"+id, cookieToken(r))
		if err != nil {
			renderTemplate(w, "user_delete_confirm.html", map[string]interface{}{"Error": err.Error(), "User": webUser{}})
			return
		}
		if status != http.StatusOK {
			renderTemplate(w, "user_delete_confirm.html", map[string]interface{}{"Error": apiDetail(data), "User": webUser{}})
			return
		}

		var user webUser
		if err := json.Unmarshal(data, &user); err != nil {
			renderTemplate(w, "user_delete_confirm.html", map[string]interface{}{"Error": "Invalid user response", "User": webUser{}})
			return
		}

		renderTemplate(w, "user_delete_confirm.html", map[string]interface{}{"User": user})
	}
}

func userDelete(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		data, status, err := apiSend("DELETE", apiBase, "/users/"+id, cookieToken(r), nil)
		if err != nil {
			renderTemplate(w, "user_delete_confirm.html", map[string]interface{}{"Error": err.Error(), "User": webUser{}})
			return
		}
		if status != http.StatusNoContent {
			renderTemplate(w, "user_delete_confirm.html", map[string]interface{}{"Error": "Delete failed: " + apiDetail(data), "User": webUser{}})
			return
		}

		http.Redirect(w, r, "/users", http.StatusFound)
	}
}

func renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	content, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if name == "login.html" {
		t := template.Must(template.New("").Parse(string(content)))
		_ = t.ExecuteTemplate(w, "login", data)
		return
	}

	layout, _ := templatesFS.ReadFile("templates/layout.html")
	t := template.Must(template.New("").Parse(string(layout)))
	t = template.Must(t.New("").Parse(string(content)))
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("template execute: %v", err)
	}
}
