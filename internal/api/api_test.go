package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/auth"
	"github.com/eatbalance/web/internal/backend"
	"github.com/eatbalance/web/internal/service"
	"github.com/eatbalance/web/internal/session"
	"github.com/eatbalance/web/internal/storage"
)

const fakeOptions = `{"ok":true,"plan":{
 "desayuno":{"target":{"kcal":600,"protein_g":40,"carb_g":70,"fat_g":18},"options":[
   {"menu_id":"d1","menu_name":"Avena","items":[],"achieved":{"kcal":600,"protein_g":40,"carb_g":70,"fat_g":18},"errors":{"kcal":0,"protein_g":0,"carb_g":0,"fat_g":0},"score":0},
   {"menu_id":"d2","menu_name":"Tostadas","items":[],"achieved":{"kcal":590,"protein_g":38,"carb_g":72,"fat_g":17},"errors":{"kcal":-10,"protein_g":-2,"carb_g":2,"fat_g":-1},"score":3.1}]},
 "cena":{"target":{"kcal":900,"protein_g":60,"carb_g":90,"fat_g":30},"options":[
   {"menu_id":"c1","menu_name":"Salmón","items":[],"achieved":{"kcal":900,"protein_g":60,"carb_g":90,"fat_g":30},"errors":{"kcal":0,"protein_g":0,"carb_g":0,"fat_g":0},"score":0}]}
}}`

const fakeConfirmed = `{"ok":true,"plan":{
 "desayuno":{"menu_id":"d2","menu_name":"Tostadas","items":[{"food_id":"f1","name":"Pan","grams":80,"kcal":200,"protein_g":8,"carb_g":36,"fat_g":2}],
   "target":{"kcal":600,"protein_g":40,"carb_g":70,"fat_g":18},"achieved":{"kcal":590,"protein_g":38,"carb_g":72,"fat_g":17},"errors":{"kcal":-10,"protein_g":-2,"carb_g":2,"fat_g":-1}},
 "cena":{"menu_id":"c1","menu_name":"Salmón","items":[],
   "target":{"kcal":900,"protein_g":60,"carb_g":90,"fat_g":30},"achieved":{"kcal":900,"protein_g":60,"carb_g":90,"fat_g":30},"errors":{"kcal":0,"protein_g":0,"carb_g":0,"fat_g":0}}
}}`

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/plan/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Prompt == "???" {
			_, _ = io.WriteString(w, `{"bmr":null,"tdee":null,"calorias_objetivo":null,"proteinas":null,"grasas":null,"carbohidratos":null,"porcentajes":null}`)
			return
		}
		_, _ = io.WriteString(w, `{"bmr":1700,"tdee":2600,"calorias_objetivo":1500.25,"proteinas":120,"grasas":50,"carbohidratos":160,"porcentajes":null}`)
	})
	mux.HandleFunc("/plan/generate_all", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, fakeOptions)
	})
	mux.HandleFunc("/plan/generate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, fakeConfirmed)
	})
	mux.HandleFunc("/buscar-productos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"123","nombre":"Yogur natural","marca":"Danone"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupRouter(t *testing.T, backendURL string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := internal.NopLogger()

	dir := t.TempDir()
	store, err := storage.NewFileStorage(filepath.Join(dir, "sessions.json"), filepath.Join(dir, "handoffs.json"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client := backend.NewClient(backendURL, 5*time.Second, logger)
	provider := auth.NewLocalAuthProvider(logger)
	sessions := session.NewManager(store, provider, time.Hour, logger)
	handoffs := service.NewHandoffService(store, 30*time.Minute, logger)

	app := &Services{
		Log:        logger,
		SessionMgr: sessions,
		Account:    service.NewAccountService(provider, sessions, logger),
		Plan:       service.NewPlanService(client, sessions, handoffs, logger),
		Menu:       service.NewMenuService(client, sessions, "4", 5, logger),
		Handoff:    handoffs,
		Food:       service.NewFoodService(client, sessions, logger),
	}
	return NewRouter(app, auth.CookieOptions{MaxAge: 3600})
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    int    `json:"code"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// client carries the session id between requests the way a browser would.
type client struct {
	t         *testing.T
	r         *gin.Engine
	sessionID string
}

func (c *client) do(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: c.sessionID})
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	if id := w.Header().Get(auth.HeaderName); id != "" {
		c.sessionID = id
	}
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealthz(t *testing.T) {
	r := setupRouter(t, "http://127.0.0.1:1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	c := &client{t: t, r: setupRouter(t, fakeBackend(t).URL)}

	w, _ := c.do(http.MethodGet, "/api/plan", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotEmpty(t, c.sessionID)
	assert.Contains(t, w.Header().Get("Set-Cookie"), auth.CookieName+"="+c.sessionID)

	first := c.sessionID
	w, _ = c.do(http.MethodGet, "/api/plan", "")
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	assert.Equal(t, first, c.sessionID)
}

func TestPlanToMenuFlow(t *testing.T) {
	c := &client{t: t, r: setupRouter(t, fakeBackend(t).URL)}

	w, env := c.do(http.MethodPost, "/api/plan", `{"text":"quiero un plan"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var plan internal.PlanResult
	require.NoError(t, json.Unmarshal(env.Data, &plan))
	assert.Equal(t, 2600.0, plan.TDEE)

	w, env = c.do(http.MethodPost, "/api/plan/forward", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fwd service.Forwarding
	require.NoError(t, json.Unmarshal(env.Data, &fwd))
	assert.True(t, strings.HasPrefix(fwd.URL, "/menus?"))

	w, env = c.do(http.MethodGet, "/api/menus/prefill", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.PrefillHandoff, env.Meta["source"])
	var totals internal.Totals
	require.NoError(t, json.Unmarshal(env.Data, &totals))
	assert.Equal(t, 1500.25, totals.Kcal)

	w, env = c.do(http.MethodGet, "/api/menus/prefill?kcal=2000&protein_g=1&carb_g=2&fat_g=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.PrefillQuery, env.Meta["source"])

	w, env = c.do(http.MethodPost, "/api/menus/options", `{"totals":{"kcal":1500.25,"protein_g":120,"carb_g":160,"fat_g":50},"scheme":"3"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var exp internal.MenuExploration
	require.NoError(t, json.Unmarshal(env.Data, &exp))
	assert.Equal(t, map[string]string{"desayuno": "d1", "cena": "c1"}, exp.Selection)

	w, env = c.do(http.MethodPost, "/api/menus/confirm", `{"selection":{"desayuno":"d2"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(internal.KindValidation), env.Error.Kind)
	assert.Contains(t, env.Error.Message, "cena")

	w, _ = c.do(http.MethodPut, "/api/menus/selection", `{"slot":"desayuno","option_id":"d2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = c.do(http.MethodPost, "/api/menus/confirm", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var menu internal.ConfirmedMenu
	require.NoError(t, json.Unmarshal(env.Data, &menu))
	require.Len(t, menu.Meals, 2)
	assert.Equal(t, "desayuno", menu.Meals[0].Slot)
	assert.Equal(t, "Tostadas", menu.Meals[0].MenuName)

	w, _ = c.do(http.MethodGet, "/api/menus/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestPlan_UnresolvedInput(t *testing.T) {
	c := &client{t: t, r: setupRouter(t, fakeBackend(t).URL)}
	w, env := c.do(http.MethodPost, "/api/plan", `{"text":"???"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(internal.KindUnresolvedInput), env.Error.Kind)
}

func TestPlan_BackendUnreachable(t *testing.T) {
	c := &client{t: t, r: setupRouter(t, "http://127.0.0.1:1")}
	w, env := c.do(http.MethodPost, "/api/plan", `{"text":"hola"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(internal.KindNetwork), env.Error.Kind)
}

func TestPlan_InvalidJSON(t *testing.T) {
	c := &client{t: t, r: setupRouter(t, fakeBackend(t).URL)}
	w, _ := c.do(http.MethodPost, "/api/plan", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountFlow(t *testing.T) {
	c := &client{t: t, r: setupRouter(t, fakeBackend(t).URL)}

	w, _ := c.do(http.MethodGet, "/api/menus/saved", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := c.do(http.MethodPost, "/api/auth/register", `{"full_name":"Ana","email":"ana@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view sessionView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.True(t, view.Authenticated)

	w, env = c.do(http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	var user internal.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "ana@example.com", user.Email)

	w, _ = c.do(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = c.do(http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = c.do(http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = c.do(http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"secret"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFoods(t *testing.T) {
	c := &client{t: t, r: setupRouter(t, fakeBackend(t).URL)}

	w, env := c.do(http.MethodGet, "/api/foods?q=yogur", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var foods []internal.Food
	require.NoError(t, json.Unmarshal(env.Data, &foods))
	assert.Equal(t, []internal.Food{{Code: "123", Name: "Yogur natural", Brand: "Danone"}}, foods)

	w, _ = c.do(http.MethodGet, "/api/foods?q=", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = c.do(http.MethodGet, "/api/foods/123?grams=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = c.do(http.MethodGet, "/api/foods/123?grams=Inf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = c.do(http.MethodGet, "/api/foods/recent", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteSession_ForgetsEverything(t *testing.T) {
	c := &client{t: t, r: setupRouter(t, fakeBackend(t).URL)}

	w, _ := c.do(http.MethodPost, "/api/plan", `{"text":"quiero un plan"}`)
	require.Equal(t, http.StatusOK, w.Code)
	old := c.sessionID

	w, _ = c.do(http.MethodDelete, "/api/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
	assert.Empty(t, w.Header().Get(auth.HeaderName))

	w, _ = c.do(http.MethodGet, "/api/plan", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEqual(t, old, c.sessionID)
}
