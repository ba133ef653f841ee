// Package promoserver exposes the promo pipeline as MCP tools.
package promoserver

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_promo/internal/engine"
	"github.com/anatolykoptev/go_promo/internal/engine/ledger"
	"github.com/anatolykoptev/go_promo/internal/engine/promo"
	"github.com/anatolykoptev/go_promo/internal/engine/scan"
)

// Services are the pipeline components the tools call into.
type Services struct {
	Scanner   *scan.Scanner
	Extractor *promo.Extractor
	Ledger    *ledger.Ledger
}

// RegisterTools registers promo_scan, promo_extract, active_promos,
// top_creators and promo_sweep on server.
func RegisterTools(server *mcp.Server, s Services) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "promo_scan",
		Description: "Search YouTube for recent videos mentioning affiliate domains, extract the sponsor, promo code and discount from each new video's description, and record them in the promo ledger. Returns counts and the promotions found in this run.",
	}, s.handleScan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "promo_extract",
		Description: "Extract the sponsoring brand, promo code and discount from a single video description without recording it. found=false when the text carries no promotion or the model call failed. Errors when no LLM is configured.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleExtract)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "active_promos",
		Description: "List unexpired promo codes from the ledger, newest first, with the creator that announced each one.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleActivePromos)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "top_creators",
		Description: "Rank creators by fitness score. A creator gains score every time one of their videos carries a promotion.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleTopCreators)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "promo_sweep",
		Description: "Delete promo rows whose expiry has passed. Creators and their scores are kept. The background sweeper runs this periodically.",
	}, s.handleSweep)
}

func (s Services) handleScan(ctx context.Context, _ *mcp.CallToolRequest, input engine.PromoScanInput) (*mcp.CallToolResult, *engine.ScanReport, error) {
	if s.Scanner == nil {
		return nil, nil, errors.New("scanner not configured")
	}
	if !s.Extractor.Enabled() {
		return nil, nil, engine.ErrLLMDisabled
	}
	domains := input.Domains
	if len(domains) == 0 {
		domains = engine.Cfg.Domains
	}
	recency := input.Recency
	if recency == "" {
		recency = engine.Cfg.Recency
	}

	var report *engine.ScanReport
	err := engine.TrackOperation(ctx, "promo_scan", 2*time.Minute, func(ctx context.Context) error {
		var err error
		report, err = s.Scanner.Scan(ctx, domains, recency)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, report, nil
}

func (s Services) handleExtract(ctx context.Context, _ *mcp.CallToolRequest, input engine.PromoExtractInput) (*mcp.CallToolResult, *engine.PromoExtractOutput, error) {
	if input.Description == "" {
		return nil, nil, errors.New("description is required")
	}
	if !s.Extractor.Enabled() {
		return nil, nil, engine.ErrLLMDisabled
	}
	rec := s.Extractor.Extract(ctx, input.Description)
	return nil, &engine.PromoExtractOutput{Found: rec != nil, Promo: rec}, nil
}

func (s Services) handleActivePromos(ctx context.Context, _ *mcp.CallToolRequest, input engine.ActivePromosInput) (*mcp.CallToolResult, *engine.ActivePromosOutput, error) {
	promos, err := s.Ledger.ActivePromos(ctx, input.Limit)
	if err != nil {
		return nil, nil, err
	}
	if promos == nil {
		promos = []engine.ActivePromo{}
	}
	return nil, &engine.ActivePromosOutput{Promos: promos, Total: len(promos)}, nil
}

func (s Services) handleTopCreators(ctx context.Context, _ *mcp.CallToolRequest, input engine.TopCreatorsInput) (*mcp.CallToolResult, *engine.TopCreatorsOutput, error) {
	creators, err := s.Ledger.TopCreators(ctx, input.Limit)
	if err != nil {
		return nil, nil, err
	}
	if creators == nil {
		creators = []engine.Creator{}
	}
	return nil, &engine.TopCreatorsOutput{Creators: creators, Total: len(creators)}, nil
}

func (s Services) handleSweep(ctx context.Context, _ *mcp.CallToolRequest, _ engine.SweepInput) (*mcp.CallToolResult, *engine.SweepOutput, error) {
	n, err := s.Ledger.Sweep(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, &engine.SweepOutput{Removed: n}, nil
}
