package http

import (
	"github.com/gin-gonic/gin"

	"github.com/flashorca/gateway/config"
	"github.com/flashorca/gateway/ports"
)

// SetupRouter sets up the Gin router.
func SetupRouter(handlers *Handlers, tokenizer ports.Tokenizer, cfg config.Config) *gin.Engine {
	router := gin.Default()
	router.Use(SessionMiddleware(tokenizer, cfg))

	api := router.Group("/api")
	{
		api.GET("/siws/create", handlers.SIWSCreate)
		api.POST("/siws/verify", handlers.SIWSVerify)
		api.GET("/auth/nonce", handlers.LegacyNonce)
		api.POST("/auth/verify", handlers.LegacyVerify)
		api.GET("/auth/exchange_jwt", handlers.ExchangeJWT)
		api.POST("/logout", handlers.Logout)
		api.GET("/env", handlers.Env)
	}

	router.POST("/rpc", handlers.RPC)
	router.OPTIONS("/rpc", handlers.RPCPreflight)
	router.GET("/verify_token", handlers.VerifyToken)
	router.GET("/healthz", handlers.Healthz)

	return router
}
