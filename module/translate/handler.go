package translate

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatter/logger"
	"chatter/module/user/model"
	"chatter/service/translate"
	"chatter/tools/errs"
)

// UserFinder resolves the recipient whose preferred language drives the
// translation target.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
}

type Handler struct {
	users      UserFinder
	translator translate.Translator
}

func NewHandler(users UserFinder, translator translate.Translator) *Handler {
	return &Handler{users: users, translator: translator}
}

type translateRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
}

// Translate converts text into the recipient's preferred language. A
// recipient with no language preference gets the text back unchanged.
func (h *Handler) Translate(c *gin.Context) {
	recipient, err := primitive.ObjectIDFromHex(c.Param("user"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "invalid id"))
		return
	}
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, errs.NewCodeError(400, "text is required"))
		return
	}
	u, err := h.users.FindByID(c.Request.Context(), recipient)
	if err != nil {
		logger.Errorf("[translate] find recipient: %v", err)
		c.JSON(http.StatusInternalServerError, errs.NewCodeError(500, "internal error"))
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, errs.NewCodeError(404, "User not found"))
		return
	}
	if u.LanguageCode == "" || u.LanguageCode == req.From {
		c.JSON(http.StatusOK, gin.H{"text": req.Text})
		return
	}
	from := req.From
	if from == "" {
		from = "auto"
	}
	out, err := h.translator.Translate(c.Request.Context(), req.Text, from, u.LanguageCode)
	if err != nil {
		logger.Errorf("[translate] %v", err)
		c.JSON(http.StatusBadGateway, errs.NewCodeError(502, "translation failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": out})
}
