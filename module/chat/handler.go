package chat

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatter/logger"
	auth "chatter/middleware/security"
	"chatter/module/chat/model"
	"chatter/module/chat/service"
	"chatter/service/media"
	"chatter/service/notify"
	"chatter/tools/errs"
)

// Store is the slice of the conversation repository the handlers consume.
type Store interface {
	ListForUser(ctx context.Context, uid primitive.ObjectID) ([]service.Preview, error)
	Get(ctx context.Context, id primitive.ObjectID, page int64) (*service.ConversationView, []service.MessageView, error)
	Messages(ctx context.Context, id primitive.ObjectID, page int64) ([]service.MessageView, error)
	Create(ctx context.Context, self, recipient primitive.ObjectID) (*service.ConversationView, error)
	CreateGroup(ctx context.Context, admin primitive.ObjectID, name string, participants []primitive.ObjectID) (*service.ConversationView, error)
	Exists(ctx context.Context, self, recipient primitive.ObjectID) (bool, primitive.ObjectID, error)
	Reply(ctx context.Context, conversationID, sender primitive.ObjectID, msg model.Message) (*service.MessageView, error)
	NotifyTargets(ctx context.Context, conversationID, sender primitive.ObjectID) ([]string, error)
	SetSeen(ctx context.Context, messageIDs []primitive.ObjectID, uid primitive.ObjectID) error
	RemoveUser(ctx context.Context, conversationID, uid primitive.ObjectID) error
	AddParticipants(ctx context.Context, conversationID primitive.ObjectID, participants []primitive.ObjectID) error
	Rename(ctx context.Context, conversationID primitive.ObjectID, name string) error
	SetImage(ctx context.Context, conversationID primitive.ObjectID, path string) error
	MuteUnmute(ctx context.Context, conversationID, uid primitive.ObjectID, isMuted bool) error
	Media(ctx context.Context, conversationID primitive.ObjectID) ([]model.Message, error)
	Delete(ctx context.Context, conversationID primitive.ObjectID) error
	DeleteMessage(ctx context.Context, messageID primitive.ObjectID) error
}

// ContactAdder cross-adds two users as contacts when a direct conversation
// opens (user repository boundary).
type ContactAdder interface {
	AddContacts(ctx context.Context, a, b primitive.ObjectID) error
}

// OnlineChecker is the gateway's presence registry: recipients with a live
// connection see the message arrive in realtime and are not push-notified.
type OnlineChecker interface {
	IsOnline(userID string) bool
}

type Handler struct {
	store    Store
	contacts ContactAdder
	notifier notify.Notifier
	online   OnlineChecker
	objects  media.ObjectStore
}

func NewHandler(store Store, contacts ContactAdder, notifier notify.Notifier, online OnlineChecker, objects media.ObjectStore) *Handler {
	return &Handler{store: store, contacts: contacts, notifier: notifier, online: online, objects: objects}
}

func (h *Handler) GetConversations(c *gin.Context) {
	data, err := h.store.ListForUser(c.Request.Context(), h.self(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if data == nil {
		data = []service.Preview{}
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *Handler) GetConversation(c *gin.Context) {
	id, ok := h.objectID(c, c.Param("id"))
	if !ok {
		return
	}
	conv, msgs, err := h.store.Get(c.Request.Context(), id, h.page(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, errs.NewCodeError(404, "Conversation not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"_id":          conv.ID,
		"name":         conv.Name,
		"isGroup":      conv.IsGroup,
		"admin":        conv.Admin,
		"image":        conv.Image,
		"users":        conv.Users,
		"mutedBy":      conv.MutedBy,
		"userProfiles": conv.UserProfiles,
		"messages":     msgs,
	})
}

func (h *Handler) GetConversationMessages(c *gin.Context) {
	id, ok := h.objectID(c, c.Param("id"))
	if !ok {
		return
	}
	msgs, err := h.store.Messages(c.Request.Context(), id, h.page(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) CreateConversation(c *gin.Context) {
	recipient, ok := h.objectID(c, c.Param("recipient"))
	if !ok {
		return
	}
	self := h.self(c)
	conv, err := h.store.Create(c.Request.Context(), self, recipient)
	if err != nil {
		c.JSON(http.StatusNotFound, errs.NewCodeError(404, "Failed to create conversation"))
		return
	}
	if err := h.contacts.AddContacts(c.Request.Context(), self, recipient); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

type createGroupRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid body"))
		return
	}
	participants, ok := h.objectIDs(c, req.Participants)
	if !ok {
		return
	}
	group, err := h.store.CreateGroup(c.Request.Context(), h.self(c), req.Name, participants)
	if err != nil {
		c.JSON(http.StatusNotFound, errs.NewCodeError(404, "Failed to create conversation"))
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *Handler) ConversationExists(c *gin.Context) {
	recipient, ok := h.objectID(c, c.Param("recipient"))
	if !ok {
		return
	}
	exists, id, err := h.store.Exists(c.Request.Context(), h.self(c), recipient)
	if err != nil {
		h.fail(c, err)
		return
	}
	if exists {
		c.JSON(http.StatusOK, gin.H{"isExist": true, "conversationId": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isExist": false})
}

type replyRequest struct {
	MessageData model.Message `json:"messageData"`
}

// Reply persists the message, then push-notifies the participants who will
// not see it live: the sender, muters, and anyone currently online are
// skipped (online state comes from the gateway's presence registry).
func (h *Handler) Reply(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid body"))
		return
	}
	self := h.self(c)
	msg, err := h.store.Reply(c.Request.Context(), conversationID, self, req.MessageData)
	if err != nil {
		c.JSON(http.StatusNotFound, errs.NewCodeError(404, "Conversation not found"))
		return
	}

	targets, err := h.store.NotifyTargets(c.Request.Context(), conversationID, self)
	if err != nil {
		logger.Errorf("[chat] notify targets: %v", err)
	}
	targets = lo.Filter(targets, func(uid string, _ int) bool {
		return !h.online.IsOnline(uid)
	})
	if len(targets) > 0 {
		if err := h.notifier.Send(c.Request.Context(), msg.PreviewText(), targets,
			map[string]string{"conversationId": conversationID.Hex()}); err != nil {
			// Push delivery is best effort; the message is already stored.
			logger.Errorf("[chat] push notify: %v", err)
		}
	}

	name := ""
	if msg.UserProfile != nil {
		name = msg.UserProfile.Name
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "name": name})
}

func (h *Handler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "file is required"))
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
	key := media.ObjectName("chat", "", data)
	path, err := h.objects.Put(c.Request.Context(), key, bytes.NewReader(data))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

type setSeenRequest struct {
	MessageIDs []string `json:"messageIds"`
}

func (h *Handler) SetSeenMessages(c *gin.Context) {
	var req setSeenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid body"))
		return
	}
	ids, ok := h.objectIDs(c, req.MessageIDs)
	if !ok {
		return
	}
	if err := h.store.SetSeen(c.Request.Context(), ids, h.self(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) GroupExit(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	if err := h.store.RemoveUser(c.Request.Context(), conversationID, h.self(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) RemoveGroupUser(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	uid, ok := h.objectID(c, c.Param("user"))
	if !ok {
		return
	}
	if err := h.store.RemoveUser(c.Request.Context(), conversationID, uid); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

type addParticipantRequest struct {
	Participants []string `json:"participants"`
}

func (h *Handler) AddGroupParticipant(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid body"))
		return
	}
	participants, ok := h.objectIDs(c, req.Participants)
	if !ok {
		return
	}
	if err := h.store.AddParticipants(c.Request.Context(), conversationID, participants); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) UpdateGroupImage(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "image file is required"))
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
	key := media.ObjectName("chat", conversationID.Hex(), data)
	path, err := h.objects.Put(c.Request.Context(), key, bytes.NewReader(data))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.store.SetImage(c.Request.Context(), conversationID, path); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "name is required"))
		return
	}
	if err := h.store.Rename(c.Request.Context(), conversationID, req.Name); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

type muteRequest struct {
	IsMuted bool `json:"isMuted"`
}

func (h *Handler) MuteUnmute(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid body"))
		return
	}
	if err := h.store.MuteUnmute(c.Request.Context(), conversationID, h.self(c), req.IsMuted); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) GetMedia(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	data, err := h.store.Media(c.Request.Context(), conversationID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	conversationID, ok := h.objectID(c, c.Param("conversation"))
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), conversationID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	messageID, ok := h.objectID(c, c.Param("message"))
	if !ok {
		return
	}
	if err := h.store.DeleteMessage(c.Request.Context(), messageID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) self(c *gin.Context) primitive.ObjectID {
	oid, _ := primitive.ObjectIDFromHex(auth.UserID(c))
	return oid
}

func (h *Handler) page(c *gin.Context) int64 {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "0"), 10, 64)
	if page < 0 {
		page = 0
	}
	return page
}

func (h *Handler) objectID(c *gin.Context, hex string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid id"))
		return primitive.NilObjectID, false
	}
	return oid, true
}

func (h *Handler) objectIDs(c *gin.Context, hexes []string) ([]primitive.ObjectID, bool) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, hx := range hexes {
		oid, ok := h.objectID(c, hx)
		if !ok {
			return nil, false
		}
		out = append(out, oid)
	}
	return out, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	logger.Errorf("[chat] %v", err)
	c.JSON(http.StatusInternalServerError, errs.NewCodeError(500, "internal error"))
}
