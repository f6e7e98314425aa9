package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CyberWeaverX/poly-survivor/pkg/market"
	"github.com/CyberWeaverX/poly-survivor/pkg/risk"
	"github.com/CyberWeaverX/poly-survivor/pkg/tool"
)

// marketsListTool returns the filtered market list
type marketsListTool struct {
	bot *Bot
}

func (t *marketsListTool) Name() string { return "get_markets_list" }

func (t *marketsListTool) Description() string {
	return `Get active markets list from Polymarket.
Returns non-sports, non-price-prediction events.
Each market includes: id, title, category, price (YES price), volume_24h, liquidity, end_date.
Default returns top 50 markets sorted by liquidity.`
}

func (t *marketsListTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"limit": {
				"type": "integer",
				"description": "Number of markets to return, default 50, max 100"
			},
			"min_liquidity": {
				"type": "number",
				"description": "Minimum liquidity in USD, default 5000"
			},
			"category": {
				"type": "string",
				"description": "Category filter: politics, crypto, science, entertainment, business"
			}
		},
		"required": []
	}`)
}

type marketsListParams struct {
	Limit        int     `json:"limit"`
	MinLiquidity float64 `json:"min_liquidity"`
	Category     string  `json:"category"`
}

func (t *marketsListTool) Execute(ctx context.Context, input *tool.Input) (*tool.Output, error) {
	params, err := tool.ParamsTo[marketsListParams](input.Params)
	if err != nil {
		return nil, err
	}

	if params.Limit == 0 {
		params.Limit = 50
	}
	if params.MinLiquidity == 0 {
		params.MinLiquidity = t.bot.cfg.MinLiquidity
	}

	markets, err := t.bot.markets.List(ctx, market.ListFilter{
		Limit:        params.Limit,
		MinLiquidity: params.MinLiquidity,
		Category:     params.Category,
	})
	if err != nil {
		return nil, err
	}

	return tool.JSONOutput(map[string]interface{}{"markets": markets})
}

// marketDetailTool returns the full view of one market
type marketDetailTool struct {
	bot *Bot
}

func (t *marketDetailTool) Name() string { return "get_market_detail" }

func (t *marketDetailTool) Description() string {
	return `Get detailed information for a single market.
Returns: id, title, description, rules (resolution rules), price, volume, liquidity,
end_date, created_date, outcomes (YES/NO details).
Use this to understand market rules before betting.`
}

func (t *marketDetailTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"market_id": {
				"type": "string",
				"description": "Market ID"
			}
		},
		"required": ["market_id"]
	}`)
}

type marketIDParams struct {
	MarketID string `json:"market_id"`
}

func (t *marketDetailTool) Execute(ctx context.Context, input *tool.Input) (*tool.Output, error) {
	params, err := tool.ParamsTo[marketIDParams](input.Params)
	if err != nil {
		return nil, err
	}
	if params.MarketID == "" {
		return tool.ErrorOutput("market_id is required"), nil
	}

	detail, err := t.bot.markets.GetDetail(ctx, params.MarketID)
	if err != nil {
		return nil, err
	}

	return tool.JSONOutput(detail)
}

// researchResultTool reads the research cache
type researchResultTool struct {
	bot *Bot
}

func (t *researchResultTool) Name() string { return "get_research_result" }

func (t *researchResultTool) Description() string {
	return `Get cached research result for a market.
Returns: market_id, research_time, summary, estimated_probability, confidence, key_factors, sources.
Returns null if not researched yet.
FREE - Always check cache first before researching.`
}

func (t *researchResultTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"market_id": {
				"type": "string",
				"description": "Market ID"
			}
		},
		"required": ["market_id"]
	}`)
}

func (t *researchResultTool) Execute(ctx context.Context, input *tool.Input) (*tool.Output, error) {
	params, err := tool.ParamsTo[marketIDParams](input.Params)
	if err != nil {
		return nil, err
	}
	if params.MarketID == "" {
		return tool.ErrorOutput("market_id is required"), nil
	}

	result, err := t.bot.research.Store().Get(ctx, params.MarketID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &tool.Output{Content: "null"}, nil
	}

	return tool.JSONOutput(result)
}

// researchTool runs paid web research, capped per cycle
type researchTool struct {
	bot *Bot
}

func (t *researchTool) Name() string { return "research_market_and_save" }

func (t *researchTool) Description() string {
	return `Deep research a market using web search, analyze and save results.
Automatically searches the web and synthesizes findings.
Returns: summary, estimated_probability (your estimate), confidence (0-1), key_factors, sources.
COST: ~$0.05/call - Check cache with get_research_result first!
Maximum 5 research calls per cycle.`
}

func (t *researchTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"market_id": {
				"type": "string",
				"description": "Market ID"
			},
			"market_title": {
				"type": "string",
				"description": "Market title for search"
			},
			"focus": {
				"type": "string",
				"description": "Research focus, e.g., 'focus on recent polls', 'look for official statements'"
			}
		},
		"required": ["market_id", "market_title"]
	}`)
}

type researchParams struct {
	MarketID    string `json:"market_id"`
	MarketTitle string `json:"market_title"`
	Focus       string `json:"focus"`
}

func (t *researchTool) Execute(ctx context.Context, input *tool.Input) (*tool.Output, error) {
	params, err := tool.ParamsTo[researchParams](input.Params)
	if err != nil {
		return nil, err
	}
	if params.MarketID == "" || params.MarketTitle == "" {
		return tool.ErrorOutput("market_id and market_title are required"), nil
	}

	if !t.bot.takeResearchSlot() {
		return tool.ErrorOutput(fmt.Sprintf("Research limit (%d) reached this cycle", t.bot.cfg.MaxResearchPerCycle)), nil
	}

	// Resolution rules sharpen the research prompt; a failed lookup
	// just means researching from the title alone.
	rules := ""
	if detail, derr := t.bot.markets.GetDetail(ctx, params.MarketID); derr == nil {
		rules = detail.Rules
	}

	result, err := t.bot.research.ResearchAndSave(ctx, params.MarketID, params.MarketTitle, params.Focus, rules)
	if err != nil {
		return nil, err
	}

	t.bot.tracker.AddResearchCall()
	t.bot.metrics.ResearchCalls.Inc()

	return tool.JSONOutput(result)
}

// balanceTool reports the account's USDC balance
type balanceTool struct {
	bot *Bot
}

func (t *balanceTool) Name() string { return "get_balance" }

func (t *balanceTool) Description() string {
	return `Get current account balance.
Returns: available_usdc (available for betting), locked_usdc (in positions), total_usdc.`
}

func (t *balanceTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}, "required": []}`)
}

func (t *balanceTool) Execute(ctx context.Context, input *tool.Input) (*tool.Output, error) {
	if t.bot.cfg.DryRun {
		return tool.JSONOutput(map[string]interface{}{
			"available_usdc": 100.0,
			"locked_usdc":    0.0,
			"total_usdc":     100.0,
			"note":           "[DRY RUN] Simulated balance",
		})
	}

	balance, err := t.bot.account.GetBalance(ctx)
	if err != nil {
		return nil, err
	}

	t.bot.observeBalance(balance)

	return tool.JSONOutput(balance)
}

// positionsTool lists open positions
type positionsTool struct {
	bot *Bot
}

func (t *positionsTool) Name() string { return "get_my_positions" }

func (t *positionsTool) Description() string {
	return `Get all current positions.
Returns list of positions, each with: market_id, market_title, side (YES/NO), amount,
entry_price, current_price, unrealized_pnl, unrealized_pnl_pct.`
}

func (t *positionsTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}, "required": []}`)
}

func (t *positionsTool) Execute(ctx context.Context, input *tool.Input) (*tool.Output, error) {
	if t.bot.cfg.DryRun {
		return tool.JSONOutput(map[string]interface{}{
			"positions": []interface{}{},
			"note":      "[DRY RUN] Simulated",
		})
	}

	positions, err := t.bot.account.GetPositions(ctx)
	if err != nil {
		return nil, err
	}

	return tool.JSONOutput(map[string]interface{}{"positions": positions})
}

// placeBetTool executes a risk-gated bet
type placeBetTool struct {
	bot *Bot
}

func (t *placeBetTool) Name() string { return "place_bet" }

func (t *placeBetTool) Description() string {
	return `Place a bet on a market.
RISK CONTROLS:
  - Maximum single bet: $15
  - Maximum position per market: 25% of balance
  - Maximum daily betting: $30
  - Must have researched the market first
Returns: success, order_id, filled_amount, filled_price, message.`
}

func (t *placeBetTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"market_id": {
				"type": "string",
				"description": "Market ID"
			},
			"side": {
				"type": "string",
				"enum": ["YES", "NO"],
				"description": "Betting direction"
			},
			"amount": {
				"type": "number",
				"description": "Bet amount in USDC"
			}
		},
		"required": ["market_id", "side", "amount"]
	}`)
}

type placeBetParams struct {
	MarketID string  `json:"market_id"`
	Side     string  `json:"side"`
	Amount   float64 `json:"amount"`
}

func (t *placeBetTool) Execute(ctx context.Context, input *tool.Input) (*tool.Output, error) {
	params, err := tool.ParamsTo[placeBetParams](input.Params)
	if err != nil {
		return nil, err
	}
	if params.MarketID == "" {
		return tool.ErrorOutput("market_id is required"), nil
	}
	if params.Amount <= 0 {
		return tool.ErrorOutput("amount must be positive"), nil
	}

	return t.bot.executeBet(ctx, params.MarketID, strings.ToUpper(params.Side), decimal.NewFromFloat(params.Amount))
}

// executeBet runs the full bet flow: state lookup, research check,
// risk gate, then order submission. The daily ledger is only debited
// after the order actually goes through.
func (b *Bot) executeBet(ctx context.Context, marketID, side string, amount decimal.Decimal) (*tool.Output, error) {
	var balance risk.Balance
	var positions []risk.Position

	if b.cfg.DryRun {
		balance = risk.Balance{Total: decimal.NewFromInt(100), Available: decimal.NewFromInt(100)}
	} else {
		acct, err := b.account.GetBalance(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch balance: %w", err)
		}
		balance = risk.Balance{Total: acct.Total, Available: acct.Available}

		open, err := b.account.GetPositions(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch positions: %w", err)
		}
		for _, p := range open {
			positions = append(positions, risk.Position{MarketID: p.MarketID, CurrentValue: p.CurrentValue})
		}
	}

	research, err := b.research.Store().Get(ctx, marketID)
	if err != nil {
		return nil, err
	}
	researched := research != nil

	allowed, message := b.risk.CheckBet(amount, marketID, balance, positions, researched)
	if !allowed {
		b.metrics.BetsRejected.Inc()
		b.logger.Info().Str("market", marketID).Str("reason", message).Msg("bet rejected")
		return tool.JSONOutput(map[string]interface{}{
			"success": false,
			"message": message,
		})
	}

	if b.cfg.DryRun {
		b.logger.Info().Str("market", marketID).Str("side", side).Str("amount", amount.String()).Msg("dry-run bet")
		return tool.JSONOutput(map[string]interface{}{
			"success":       true,
			"order_id":      "DRY_RUN",
			"filled_amount": amount,
			"filled_price":  0.50,
			"message":       "[DRY RUN] Bet would be placed",
		})
	}

	detail, err := b.markets.GetDetail(ctx, marketID)
	if err != nil {
		return tool.JSONOutput(map[string]interface{}{
			"success": false,
			"message": "Market not found",
		})
	}
	if detail.Slug == "" {
		return tool.JSONOutput(map[string]interface{}{
			"success": false,
			"message": "Market slug not found",
		})
	}

	// YES is the first outcome token, NO the second
	outcome := "UP"
	if side == "NO" {
		outcome = "DOWN"
	}

	fill, err := b.trader.Buy(ctx, detail.Slug, outcome, amount, nil)
	if err != nil {
		return tool.JSONOutput(map[string]interface{}{
			"success": false,
			"message": fmt.Sprintf("Trade failed: %s", err),
		})
	}

	b.risk.RecordBet(amount)
	b.metrics.BetsPlaced.Inc()
	betAmount, _ := amount.Float64()
	b.metrics.BetAmount.Observe(betAmount)

	return tool.JSONOutput(map[string]interface{}{
		"success":       true,
		"order_id":      fill.OrderID,
		"filled_amount": amount,
		"filled_price":  fill.Price,
		"message":       "Bet placed successfully",
	})
}
