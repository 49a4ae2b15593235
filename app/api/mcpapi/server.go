package mcpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"quietspot/app/model"
	"quietspot/app/service/extractor"
	"quietspot/app/service/recommend"
	"quietspot/app/util/geo"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

const (
	serverName    = "quietspot"
	serverVersion = "1.0.0"

	ToolExtractPreferences = "extract_preferences"
	ToolRecommendVenues    = "recommend_venues"
)

// Server exposes preference extraction and venue recommendation as MCP tools,
// so agents can use the same pipeline as the chat API without a session.
type Server struct {
	extractor *extractor.Service
	recommend *recommend.Service
	mcp       *server.MCPServer
	http      *server.StreamableHTTPServer
}

func New(di *do.Injector) (*Server, error) {
	return NewWithDeps(
		do.MustInvoke[*extractor.Service](di),
		do.MustInvoke[*recommend.Service](di),
	), nil
}

func NewWithDeps(ex *extractor.Service, rec *recommend.Service) *Server {
	s := &Server{
		extractor: ex,
		recommend: rec,
		mcp:       server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(ToolExtractPreferences,
		mcp.WithDescription("Extract venue preferences (category, location, purpose, atmosphere) from a Korean chat message"),
		mcp.WithString("text", mcp.Required(), mcp.Description("User message")),
	), s.extractPreferences)

	s.mcp.AddTool(mcp.NewTool(ToolRecommendVenues,
		mcp.WithDescription("Recommend up to 5 quiet venues for the given preferences"),
		mcp.WithString("category", mcp.Description("Venue category, e.g. 카페")),
		mcp.WithString("location", mcp.Description("Seoul district, e.g. 강남")),
		mcp.WithString("purpose", mcp.Description("One of work, study, rest, date")),
		mcp.WithString("atmosphere", mcp.Description("Comma separated atmosphere tags, e.g. quiet")),
		mcp.WithNumber("lat", mcp.Description("User latitude")),
		mcp.WithNumber("lng", mcp.Description("User longitude")),
	), s.recommendVenues)

	s.http = server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.http
}

func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

type extractResult struct {
	Preferences model.Preferences `json:"preferences"`
	Missing     []model.Field     `json:"missing"`
}

func (s *Server) extractPreferences(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	prefs := s.extractor.Extract(text)
	missing := prefs.Missing()
	if missing == nil {
		missing = []model.Field{}
	}

	return jsonResult(extractResult{Preferences: prefs, Missing: missing})
}

type recommendResult struct {
	Recommendations []model.Recommendation `json:"recommendations"`
	TotalCount      int                    `json:"totalCount"`
}

func (s *Server) recommendVenues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// free-form values are coerced onto the vocabulary like model output is
	prefs := s.extractor.Normalize(model.Preferences{
		Category:   request.GetString("category", ""),
		Location:   request.GetString("location", ""),
		Purpose:    model.Purpose(request.GetString("purpose", "")),
		Atmosphere: splitTags(request.GetString("atmosphere", "")),
	})

	var userLoc *geo.Point
	args := request.GetArguments()
	_, hasLat := args["lat"]
	_, hasLng := args["lng"]
	if hasLat && hasLng {
		userLoc = &geo.Point{
			Lat: request.GetFloat("lat", 0),
			Lng: request.GetFloat("lng", 0),
		}
	}

	recs := s.recommend.Recommend(ctx, prefs, userLoc)

	slog.Debug("MCP recommendation served",
		"category", prefs.Category,
		"location", prefs.Location,
		"count", len(recs),
	)

	return jsonResult(recommendResult{Recommendations: recs, TotalCount: len(recs)})
}

func jsonResult(value any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return mcp.NewToolResultError("failed to encode result"), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

func splitTags(raw string) []string {
	var tags []string

	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}
