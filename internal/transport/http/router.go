package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kinger55555/thenailcasino/internal/arena"
	"github.com/kinger55555/thenailcasino/internal/auth"
	"github.com/kinger55555/thenailcasino/internal/economy"
	"github.com/kinger55555/thenailcasino/internal/game"
	"github.com/kinger55555/thenailcasino/internal/guard"
	"github.com/kinger55555/thenailcasino/internal/story"
)

// Deps are the services the router serves. Limiter and Locks may be nil
// when no redis is configured.
type Deps struct {
	Economy        *economy.Service
	Arena          *arena.Service
	Story          *story.Service
	Rules          *game.Provider
	Tokens         *auth.TokenManager
	Limiter        *guard.RateLimiter
	Locks          *guard.ActionLock
	AllowedOrigins []string
	Log            *slog.Logger
}

type Handler struct {
	Deps
	log *slog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	h := &Handler{Deps: d, log: d.Log.With("component", "http")}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog())

	config := cors.DefaultConfig()
	if len(d.AllowedOrigins) == 0 || d.AllowedOrigins[0] == "*" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = d.AllowedOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api/v1")
	api.GET("/rules", h.GameRules)
	api.GET("/catalog", h.Catalog)
	api.GET("/cases/:tier/odds", h.Odds)

	user := api.Group("")
	user.Use(h.authenticate(), h.ensureProfile())
	{
		user.GET("/profile", h.Profile)
		user.GET("/inventory", h.Inventory)
		user.GET("/history", h.History)

		user.POST("/cases/:tier/open", h.limit("cases", 30, time.Minute), h.lock("cases"), h.OpenCase)
		user.POST("/inventory/:id/sell", h.lock("inventory"), h.Sell)
		user.DELETE("/inventory/:id", h.lock("inventory"), h.Discard)
		user.POST("/exchange", h.lock("exchange"), h.Exchange)
		user.POST("/masks", h.lock("masks"), h.BuyMasks)

		user.POST("/admin/links", h.CreateAdminLink)
		user.GET("/admin/links/:code", h.InspectAdminLink)
		user.POST("/admin/redeem", h.limit("redeem", 10, time.Minute), h.Redeem)

		user.POST("/trades", h.lock("inventory"), h.CreateTrade)
		user.GET("/trades/:code", h.InspectTrade)
		user.POST("/trades/:code/claim", h.limit("claim", 10, time.Minute), h.ClaimTrade)

		user.POST("/battles", h.StartBattle)
		user.GET("/battles/current", h.CurrentBattle)
		user.POST("/battles/attack", h.Attack)
		user.POST("/battles/forfeit", h.Forfeit)

		user.GET("/story", h.StoryView)
		user.POST("/story/choose", h.StoryChoose)
		user.POST("/story/reset", h.StoryReset)
	}
	return r
}
