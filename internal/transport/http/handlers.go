package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kinger55555/thenailcasino/internal/arena"
	"github.com/kinger55555/thenailcasino/internal/combat"
	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/economy"
	"github.com/kinger55555/thenailcasino/internal/errs"
	"github.com/kinger55555/thenailcasino/internal/gacha"
	"github.com/kinger55555/thenailcasino/internal/story"
)

// bind decodes the JSON body, reporting bad input as a validation error.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, errs.Validation("http.bind", err.Error()))
		return false
	}
	return true
}

// GET /api/v1/rules
func (h *Handler) GameRules(c *gin.Context) {
	r := h.Deps.Rules.Current()
	c.JSON(http.StatusOK, gin.H{
		"version":    r.Version,
		"presets":    r.Presets,
		"prices":     r.Prices,
		"modifiers":  r.Battle(),
		"bosses":     r.Bosses,
		"bar_speed":  r.Combat.BarSpeed,
		"tick_ms":    r.Combat.TickInterval.Milliseconds(),
		"strip":      r.Strip,
		"bonus_odds": r.Loot.BonusChance,
	})
}

// GET /api/v1/catalog
func (h *Handler) Catalog(c *gin.Context) {
	nails, err := h.Economy.Catalog(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nails": nails})
}

// GET /api/v1/cases/:tier/odds
func (h *Handler) Odds(c *gin.Context) {
	table, err := h.Economy.DropTable(c, gacha.CaseTier(c.Param("tier")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tier": c.Param("tier"), "odds": table})
}

// GET /api/v1/profile
func (h *Handler) Profile(c *gin.Context) {
	p, err := h.Economy.Profile(c, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /api/v1/inventory
func (h *Handler) Inventory(c *gin.Context) {
	items, err := h.Economy.Inventory(c, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /api/v1/history?limit=20
func (h *Handler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		h.fail(c, errs.Validation("http.History", "limit must be a non-negative integer"))
		return
	}
	recs, err := h.Economy.History(c, userID(c), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"battles": recs})
}

// POST /api/v1/cases/:tier/open
func (h *Handler) OpenCase(c *gin.Context) {
	res, err := h.Economy.OpenCase(c, userID(c), gacha.CaseTier(c.Param("tier")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/v1/inventory/:id/sell
func (h *Handler) Sell(c *gin.Context) {
	p, err := h.Economy.Sell(c, userID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /api/v1/inventory/:id
func (h *Handler) Discard(c *gin.Context) {
	if err := h.Economy.Discard(c, userID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type exchangeReq struct {
	From   domain.Currency `json:"from" binding:"required"`
	To     domain.Currency `json:"to" binding:"required"`
	Amount int64           `json:"amount" binding:"required"`
}

// POST /api/v1/exchange
func (h *Handler) Exchange(c *gin.Context) {
	var req exchangeReq
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Economy.Convert(c, userID(c), req.From, req.To, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type masksReq struct {
	Qty int64 `json:"qty" binding:"required"`
}

// POST /api/v1/masks
func (h *Handler) BuyMasks(c *gin.Context) {
	var req masksReq
	if !h.bind(c, &req) {
		return
	}
	p, err := h.Economy.BuyMasks(c, userID(c), req.Qty)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /api/v1/admin/links
func (h *Handler) CreateAdminLink(c *gin.Context) {
	var req economy.AdminLinkRequest
	if !h.bind(c, &req) {
		return
	}
	link, err := h.Economy.CreateAdminLink(c, userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": link.Code, "soul": link.SoulAmount,
		"dream_points": link.DreamPointsAmount, "uses": link.UsesRemaining})
}

// GET /api/v1/admin/links/:code
func (h *Handler) InspectAdminLink(c *gin.Context) {
	st, err := h.Economy.InspectAdminLink(c, userID(c), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type codeReq struct {
	Code string `json:"code" binding:"required"`
}

// POST /api/v1/admin/redeem
func (h *Handler) Redeem(c *gin.Context) {
	var req codeReq
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Economy.RedeemAdminCode(c, userID(c), req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type tradeReq struct {
	OwnedNailID string `json:"owned_nail_id" binding:"required"`
}

// POST /api/v1/trades
func (h *Handler) CreateTrade(c *gin.Context) {
	var req tradeReq
	if !h.bind(c, &req) {
		return
	}
	link, err := h.Economy.CreateTradeLink(c, userID(c), req.OwnedNailID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": link.Code, "nail_id": link.NailID, "is_dream": link.IsDream})
}

// GET /api/v1/trades/:code
func (h *Handler) InspectTrade(c *gin.Context) {
	link, nail, err := h.Economy.InspectTradeLink(c, userID(c), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": link.Code, "from": link.FromUserID, "nail": nail, "is_dream": link.IsDream})
}

// POST /api/v1/trades/:code/claim
func (h *Handler) ClaimTrade(c *gin.Context) {
	owned, err := h.Economy.ClaimTrade(c, userID(c), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, owned)
}

type battleView struct {
	ID       string          `json:"id"`
	Snapshot combat.Snapshot `json:"state"`
}

func viewBattle(b *arena.Battle) battleView {
	return battleView{ID: b.ID, Snapshot: b.Session.Snapshot()}
}

type startReq struct {
	OwnedNailID string `json:"owned_nail_id" binding:"required"`
	Dream       bool   `json:"dream"`
	Difficulty  int    `json:"difficulty" binding:"required"`
}

// POST /api/v1/battles
func (h *Handler) StartBattle(c *gin.Context) {
	var req startReq
	if !h.bind(c, &req) {
		return
	}
	b, err := h.Arena.StartBattle(c, arena.StartRequest{
		UserID:      userID(c),
		OwnedNailID: req.OwnedNailID,
		Dream:       req.Dream,
		Difficulty:  req.Difficulty,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewBattle(b))
}

// GET /api/v1/battles/current
func (h *Handler) CurrentBattle(c *gin.Context) {
	snap, err := h.Arena.Current(userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// POST /api/v1/battles/attack samples the bar on the server.
func (h *Handler) Attack(c *gin.Context) {
	res, err := h.Arena.Attack(c, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/v1/battles/forfeit
func (h *Handler) Forfeit(c *gin.Context) {
	o, err := h.Arena.Forfeit(c, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /api/v1/story
func (h *Handler) StoryView(c *gin.Context) {
	v, err := h.Story.View(c, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type chooseReq struct {
	Index       *int   `json:"index" binding:"required"`
	OwnedNailID string `json:"owned_nail_id"`
	Dream       bool   `json:"dream"`
}

// POST /api/v1/story/choose
func (h *Handler) StoryChoose(c *gin.Context) {
	var req chooseReq
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Story.Choose(c, story.ChooseRequest{
		UserID:      userID(c),
		Index:       *req.Index,
		OwnedNailID: req.OwnedNailID,
		Dream:       req.Dream,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Battle != nil {
		c.JSON(http.StatusCreated, gin.H{"battle": viewBattle(res.Battle)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": res.View})
}

// POST /api/v1/story/reset
func (h *Handler) StoryReset(c *gin.Context) {
	v, err := h.Story.Reset(c, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
