package translate

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatter/module/user/model"
)

type stubFinder struct {
	user *model.User
}

func (s stubFinder) FindByID(context.Context, primitive.ObjectID) (*model.User, error) {
	return s.user, nil
}

type stubTranslator struct {
	calls int
	from  string
	to    string
}

func (s *stubTranslator) Translate(_ context.Context, text, from, to string) (string, error) {
	s.calls++
	s.from, s.to = from, to
	return "[" + to + "] " + text, nil
}

func post(h *Handler, id primitive.ObjectID, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/translate/:user", h.Translate)
	req := httptest.NewRequest(http.MethodPost, "/translate/"+id.Hex(), bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTranslateUsesRecipientLanguage(t *testing.T) {
	id := primitive.NewObjectID()
	tr := &stubTranslator{}
	h := NewHandler(stubFinder{user: &model.User{ID: id, LanguageCode: "pl"}}, tr)

	w := post(h, id, `{"text":"hello","from":"en"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "[pl] hello")
	require.Equal(t, "en", tr.from)
	require.Equal(t, "pl", tr.to)
}

func TestTranslateSkipsWithoutPreference(t *testing.T) {
	id := primitive.NewObjectID()
	tr := &stubTranslator{}
	h := NewHandler(stubFinder{user: &model.User{ID: id}}, tr)

	w := post(h, id, `{"text":"hello","from":"en"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "hello")
	require.Zero(t, tr.calls, "no preference means no external call")
}

func TestTranslateSkipsSameLanguage(t *testing.T) {
	id := primitive.NewObjectID()
	tr := &stubTranslator{}
	h := NewHandler(stubFinder{user: &model.User{ID: id, LanguageCode: "en"}}, tr)

	w := post(h, id, `{"text":"hello","from":"en"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, tr.calls)
}

func TestTranslateUnknownRecipient(t *testing.T) {
	h := NewHandler(stubFinder{}, &stubTranslator{})
	w := post(h, primitive.NewObjectID(), `{"text":"hello"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTranslateRequiresText(t *testing.T) {
	h := NewHandler(stubFinder{user: &model.User{}}, &stubTranslator{})
	w := post(h, primitive.NewObjectID(), `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
