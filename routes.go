package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chatter/global"
	auth "chatter/middleware/security"
	chathandler "chatter/module/chat"
	translatehandler "chatter/module/translate"
	userhandler "chatter/module/user"
	gateway "chatter/service/chat"
	"chatter/tools/security"
)

type api struct {
	users     *userhandler.Handler
	chats     *chathandler.Handler
	translate *translatehandler.Handler
	gateway   *gateway.Server
	jwt       security.Options
}

func newRouter(cfg *global.Config, a api) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	authed := auth.Middleware(auth.Options{JWT: a.jwt})

	r.GET("/ws", a.gateway.HandleWS)
	r.Static("/public", cfg.MediaDir)

	v1 := r.Group("/api/v1")

	user := v1.Group("/user")
	{
		user.POST("/createUser", a.users.Create)
		user.POST("/login", a.users.Login)
		user.POST("/login-with-token", a.users.LoginWithToken)
		user.POST("/qr", a.users.GenerateQr)
		user.PUT("/device", authed, a.users.AddDevice)
		user.GET("", authed, a.users.GetProfile)
		user.GET("/search", authed, a.users.Search)
		user.GET("/:id", authed, a.users.Get)
		user.PUT("", authed, a.users.Update)
		user.PUT("/avatar", authed, a.users.UpdateAvatar)
		user.PUT("/block/:user", authed, a.users.Block)
		user.PUT("/unblock/:user", authed, a.users.Unblock)
		user.DELETE("/:id", authed, a.users.Remove)
	}

	chat := v1.Group("/chat", authed)
	{
		chat.GET("/conversation", a.chats.GetConversations)
		chat.GET("/conversation/:id", a.chats.GetConversation)
		chat.GET("/conversation/:id/messages", a.chats.GetConversationMessages)
		chat.POST("/conversation/:recipient", a.chats.CreateConversation)
		chat.POST("/group-conversation", a.chats.CreateGroup)
		chat.GET("/conversation-exist/:recipient", a.chats.ConversationExists)
		chat.POST("/conversation/reply/:conversation", a.chats.Reply)
		chat.PUT("/conversation/set-seen-messages", a.chats.SetSeenMessages)
		chat.PUT("/conversation/group/:conversation/exit", a.chats.GroupExit)
		chat.PUT("/conversation/group/:conversation/participant", a.chats.AddGroupParticipant)
		chat.PUT("/conversation/group/:conversation/image", a.chats.UpdateGroupImage)
		chat.PUT("/conversation/group/:conversation", a.chats.UpdateGroup)
		chat.PUT("/conversation/group/:conversation/remove/:user", a.chats.RemoveGroupUser)
		chat.PUT("/conversation/:conversation/muteUnmute", a.chats.MuteUnmute)
		chat.POST("/file", a.chats.UploadFile)
		chat.GET("/:conversation/media", a.chats.GetMedia)
		chat.DELETE("/conversation/:conversation", a.chats.DeleteConversation)
		chat.DELETE("/conversation/message/:message", a.chats.DeleteMessage)
	}

	v1.POST("/translate/:user", authed, a.translate.Translate)

	return r
}
