package api

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/constats/pkg/kit"
)

// RegisterMCPTools registers the matching and normalization tools on srv.
func RegisterMCPTools(srv *server.MCPServer, svc *Service, opts Options) {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	eps := newEndpoints(svc, opts.Metrics, opts)

	kit.RegisterMCPTool(srv, mcp.NewTool("match_commune",
		mcp.WithDescription("Resolve a French commune name to its INSEE code (alias, exact, close or similarity match)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Commune name as written in the report")),
	), eps.match, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		name, _ := req.GetArguments()["name"].(string)
		return &kit.MCPDecodeResult{Request: &matchReq{Name: name}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("match_batch",
		mcp.WithDescription("Resolve up to 100 commune names to INSEE codes."),
		mcp.WithString("names", mcp.Required(), mcp.Description("Semicolon-separated list of commune names")),
	), eps.batch, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		raw, _ := req.GetArguments()["names"].(string)
		return &kit.MCPDecodeResult{Request: &batchReq{Names: splitNames(raw)}}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("normalize_record",
		mcp.WithDescription("Derive the species category, refined conclusion (C_tech_new), marker style and month of a damage report."),
		mcp.WithString("elevage", mcp.Required(), mcp.Description("Livestock type, e.g. OVINS")),
		mcp.WithString("conclusion", mcp.Required(), mcp.Description("Technical conclusion")),
		mcp.WithString("indemnisation", mcp.Description("Indemnification flag (oui/non)")),
		mcp.WithString("date", mcp.Description("Report date, DD/MM/YYYY or YYYY-MM-DD")),
	), eps.normalize, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		r := &normalizeReq{}
		r.Species, _ = args["elevage"].(string)
		r.Conclusion, _ = args["conclusion"].(string)
		r.Indemnisation, _ = args["indemnisation"].(string)
		r.Date, _ = args["date"].(string)
		return &kit.MCPDecodeResult{Request: r}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("lookup_commune",
		mcp.WithDescription("Return the canonical name and department of an INSEE commune code."),
		mcp.WithString("code", mcp.Required(), mcp.Description("INSEE code, e.g. 21001")),
	), eps.commune, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		code, _ := req.GetArguments()["code"].(string)
		return &kit.MCPDecodeResult{Request: &communeReq{Code: code}}, nil
	})
}

// splitNames splits on ';' because commune names may contain commas.
func splitNames(raw string) []string {
	var names []string
	for _, n := range strings.Split(raw, ";") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
