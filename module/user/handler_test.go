package user

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatter/module/user/model"
	"chatter/module/user/service"
	security "chatter/tools/security"
)

// memStore keeps users in a map; only what the tested handlers touch is
// implemented.
type memStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*model.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[primitive.ObjectID]*model.User)}
}

func (m *memStore) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) FindByLogin(_ context.Context, email, phone string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if (email != "" && u.Email == email) || (phone != "" && u.Phone == phone) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *memStore) PublicProfile(context.Context, primitive.ObjectID) (*model.Profile, error) {
	return nil, nil
}
func (m *memStore) Profile(context.Context, primitive.ObjectID) (*service.OwnProfile, error) {
	return nil, nil
}
func (m *memStore) Search(context.Context, string, primitive.ObjectID) ([]model.Profile, error) {
	return nil, nil
}
func (m *memStore) Update(context.Context, primitive.ObjectID, map[string]any) (*model.User, error) {
	return nil, nil
}
func (m *memStore) SetAvatar(context.Context, primitive.ObjectID, string) error { return nil }
func (m *memStore) Block(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return nil
}
func (m *memStore) Unblock(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return nil
}
func (m *memStore) AddDevice(context.Context, primitive.ObjectID, string) error { return nil }
func (m *memStore) Delete(context.Context, primitive.ObjectID) error            { return nil }

// burnOnce mimics the redis GETDEL semantics of the pairing store.
type burnOnce struct {
	mu   sync.Mutex
	live map[string]bool
}

func newBurnOnce(nonces ...string) *burnOnce {
	b := &burnOnce{live: make(map[string]bool)}
	for _, n := range nonces {
		b.live[n] = true
	}
	return b
}

func (b *burnOnce) Consume(_ context.Context, nonce string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live[nonce] {
		return false, nil
	}
	delete(b.live, nonce)
	return true, nil
}

func userRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/createUser", h.Create)
	r.POST("/login", h.Login)
	r.POST("/login-with-token", h.LoginWithToken)
	r.POST("/qr", h.GenerateQr)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testJWT() security.Options {
	return security.DefaultOptions([]byte("test-secret"))
}

func TestCreateMissingFields(t *testing.T) {
	h := NewHandler(newMemStore(), testJWT(), nil, nil)
	w := postJSON(userRouter(h), "/createUser", `{"email":"a@example.com"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "Missing fields")
	require.ElementsMatch(t, []string{"Name", "Password"}, resp.Errors)
}

func TestCreateReturnsSessionToken(t *testing.T) {
	h := NewHandler(newMemStore(), testJWT(), nil, nil)
	w := postJSON(userRouter(h), "/createUser",
		`{"name":"alice","email":"a@example.com","password":"pw123"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		ID    string `json:"_id"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.NotContains(t, w.Body.String(), "password", "hash must never leave the server")

	claims, err := security.Verify(testJWT(), resp.Token)
	require.NoError(t, err)
	require.Equal(t, resp.ID, security.UserID(claims))
}

func TestCreateDuplicateEmail(t *testing.T) {
	h := NewHandler(newMemStore(), testJWT(), nil, nil)
	r := userRouter(h)
	body := `{"name":"alice","email":"a@example.com","password":"pw123"}`
	require.Equal(t, http.StatusOK, postJSON(r, "/createUser", body).Code)

	w := postJSON(r, "/createUser", body)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "email already taken")
}

func TestLogin(t *testing.T) {
	h := NewHandler(newMemStore(), testJWT(), nil, nil)
	r := userRouter(h)
	postJSON(r, "/createUser", `{"name":"alice","phone":"123456","password":"pw123"}`)

	w := postJSON(r, "/login", `{"phone":"123456","password":"pw123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"token"`)

	w = postJSON(r, "/login", `{"phone":"123456","password":"wrong"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/login", `{"phone":"123456"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginWithTokenIsSingleUse(t *testing.T) {
	store := newMemStore()
	u := &model.User{Name: "alice"}
	require.NoError(t, store.Create(context.Background(), u))

	jwt := testJWT()
	pairingToken, err := security.GeneratePairing(jwt, u.ID.Hex(), "nonce-1", time.Minute)
	require.NoError(t, err)

	h := NewHandler(store, jwt, newBurnOnce("nonce-1"), nil)
	r := userRouter(h)
	body := `{"token":"` + pairingToken + `"}`

	w := postJSON(r, "/login-with-token", body)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEqual(t, pairingToken, resp.Token, "exchange must mint a fresh session token")

	claims, err := security.Verify(jwt, resp.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID.Hex(), security.UserID(claims))

	w = postJSON(r, "/login-with-token", body)
	require.Equal(t, http.StatusUnauthorized, w.Code, "replayed pairing token must fail")
}

func TestLoginWithTokenRejectsForgedToken(t *testing.T) {
	store := newMemStore()
	u := &model.User{Name: "alice"}
	require.NoError(t, store.Create(context.Background(), u))

	forged, err := security.GeneratePairing(
		security.DefaultOptions([]byte("other-secret")), u.ID.Hex(), "nonce-1", time.Minute)
	require.NoError(t, err)

	h := NewHandler(store, testJWT(), newBurnOnce("nonce-1"), nil)
	w := postJSON(userRouter(h), "/login-with-token", `{"token":"`+forged+`"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateQr(t *testing.T) {
	h := NewHandler(newMemStore(), testJWT(), nil, nil)
	w := postJSON(userRouter(h), "/qr", `{"secret":"pairing-room-7"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Src string `json:"src"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.Src, "data:image/png;base64,"))

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(resp.Src, "data:image/png;base64,"))
	require.NoError(t, err)
	require.Equal(t, []byte("\x89PNG"), png[:4])

	w = postJSON(userRouter(h), "/qr", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
