package user

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatter/logger"
	auth "chatter/middleware/security"
	"chatter/module/user/model"
	"chatter/module/user/service"
	"chatter/service/media"
	"chatter/tools"
	"chatter/tools/errs"
	security "chatter/tools/security"
)

// Store is the slice of the user repository the handlers consume.
type Store interface {
	Create(ctx context.Context, u *model.User) error
	FindByLogin(ctx context.Context, email, phone string) (*model.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	PublicProfile(ctx context.Context, id primitive.ObjectID) (*model.Profile, error)
	Profile(ctx context.Context, id primitive.ObjectID) (*service.OwnProfile, error)
	Search(ctx context.Context, q string, self primitive.ObjectID) ([]model.Profile, error)
	Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*model.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, path string) error
	Block(ctx context.Context, self, target primitive.ObjectID) error
	Unblock(ctx context.Context, self, target primitive.ObjectID) error
	AddDevice(ctx context.Context, id primitive.ObjectID, device string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PairingConsumer burns a QR pairing nonce on token exchange.
type PairingConsumer interface {
	Consume(ctx context.Context, nonce string) (bool, error)
}

type Handler struct {
	store   Store
	jwt     security.Options
	pairing PairingConsumer
	objects media.ObjectStore
}

func NewHandler(store Store, jwt security.Options, pairing PairingConsumer, objects media.ObjectStore) *Handler {
	return &Handler{store: store, jwt: jwt, pairing: pairing, objects: objects}
}

type createRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	LanguageCode string `json:"languageCode"`
}

type authedUser struct {
	*model.User
	Token string `json:"token"`
}

// Create registers an account and returns it with a login token.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid body"))
		return
	}
	var missing []string
	if req.Name == "" {
		missing = append(missing, "Name")
	}
	if req.Password == "" {
		missing = append(missing, "Password")
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest,
			errs.NewCodeError(400, "Missing fields: "+strings.Join(missing, ","), missing...))
		return
	}

	kind := "email"
	if req.Phone != "" {
		kind = "phone"
	}
	existing, err := h.store.FindByLogin(c.Request.Context(), req.Email, req.Phone)
	if err != nil {
		h.fail(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict,
			errs.NewCodeError(409, "This "+kind+" already taken. Please try with a different "+kind))
		return
	}

	u := &model.User{Name: req.Name, Phone: req.Phone, Email: req.Email, LanguageCode: req.LanguageCode}
	if err := u.SetPassword(req.Password); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.store.Create(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusBadRequest,
			errs.NewCodeError(400, "An error occurred during user creation, please try again later."))
		return
	}
	h.replyWithToken(c, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		(req.Email == "" && req.Phone == "") || req.Password == "" {
		c.JSON(http.StatusNotFound, errs.NewCodeError(404, "Missing required fields"))
		return
	}
	u, err := h.store.FindByLogin(c.Request.Context(), req.Email, req.Phone)
	if err != nil {
		h.fail(c, err)
		return
	}
	kind := "email"
	if req.Email == "" {
		kind = "phone"
	}
	if u == nil || !u.ValidatePassword(req.Password) {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, kind+" or password is invalid"))
		return
	}
	h.replyWithToken(c, u)
}

type tokenLoginRequest struct {
	Token string `json:"token"`
}

// LoginWithToken exchanges a QR pairing token (minted by the gateway) for a
// session. The embedded nonce is single-use: a second exchange fails even
// inside the expiry window.
func (h *Handler) LoginWithToken(c *gin.Context) {
	var req tokenLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "token is required"))
		return
	}
	claims, err := security.Verify(h.jwt, req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
		return
	}
	if h.pairing != nil {
		ok, err := h.pairing.Consume(c.Request.Context(), security.Nonce(claims))
		if err != nil {
			h.fail(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
	}
	oid, err := primitive.ObjectIDFromHex(security.UserID(claims))
	if err != nil {
		c.JSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
		return
	}
	u, err := h.store.FindByID(c.Request.Context(), oid)
	if err != nil {
		h.fail(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, errs.ErrNotFound)
		return
	}
	h.replyWithToken(c, u)
}

type qrRequest struct {
	Secret string `json:"secret"`
}

// GenerateQr renders the pairing secret as a QR PNG data URL. The device
// showing the code joins the same-named gateway room and waits for
// qrLoginToken there.
func (h *Handler) GenerateQr(c *gin.Context) {
	var req qrRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Secret == "" {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "secret is required"))
		return
	}
	png, err := qrcode.Encode(req.Secret, qrcode.Medium, 256)
	if err != nil {
		h.fail(c, err)
		return
	}
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	c.JSON(http.StatusOK, gin.H{"src": src})
}

type deviceRequest struct {
	Device string `json:"device"`
}

func (h *Handler) AddDevice(c *gin.Context) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Device == "" {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "device is required"))
		return
	}
	if err := h.store.AddDevice(c.Request.Context(), h.self(c), req.Device); err != nil {
		h.fail(c, err)
		return
	}
	c.String(http.StatusOK, "ok")
}

func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.store.Profile(c.Request.Context(), h.self(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, errs.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.String(http.StatusNotFound, "query is required")
		return
	}
	data, err := h.store.Search(c.Request.Context(), q, h.self(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) Get(c *gin.Context) {
	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid user id"))
		return
	}
	p, err := h.store.PublicProfile(c.Request.Context(), oid)
	if err != nil {
		h.fail(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, errs.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

type updateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid body"))
		return
	}
	fields := tools.NonEmpty(map[string]any{"name": req.Name, "phone": req.Phone, "email": req.Email})
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "nothing to update"))
		return
	}
	u, err := h.store.Update(c.Request.Context(), h.self(c), fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "avatar file is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, err)
		return
	}

	self := h.self(c)
	key := media.ObjectName("user", self.Hex(), data)
	path, err := h.objects.Put(c.Request.Context(), key, bytes.NewReader(data))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.store.SetAvatar(c.Request.Context(), self, path); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (h *Handler) Block(c *gin.Context) {
	h.blockOp(c, h.store.Block)
}

func (h *Handler) Unblock(c *gin.Context) {
	h.blockOp(c, h.store.Unblock)
}

func (h *Handler) blockOp(c *gin.Context, op func(ctx context.Context, self, target primitive.ObjectID) error) {
	target, err := primitive.ObjectIDFromHex(c.Param("user"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid user id"))
		return
	}
	if err := op(c.Request.Context(), h.self(c), target); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) Remove(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), h.self(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": 1})
}

func (h *Handler) replyWithToken(c *gin.Context, u *model.User) {
	token, _, err := security.Generate(h.jwt, u.ID.Hex())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, authedUser{User: u, Token: token})
}

func (h *Handler) self(c *gin.Context) primitive.ObjectID {
	oid, _ := primitive.ObjectIDFromHex(auth.UserID(c))
	return oid
}

func (h *Handler) fail(c *gin.Context, err error) {
	logger.Errorf("[user] %v", err)
	c.JSON(http.StatusInternalServerError, errs.NewCodeError(500, "internal error"))
}
