// Package mcpserver exposes the blog over MCP (Model Context Protocol) on
// stdio so LLM clients can list posts, read rendered posts and learn the
// metadata format.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bloggen/internal/apperr"
	"github.com/starford/bloggen/internal/blog"
	"github.com/starford/bloggen/internal/ledger"
)

// MetadataFormatURI is the resource holding MetadataFormatContract.
const MetadataFormatURI = "bloggen://metadata-format"

// DeployHistory is the read side of the deploy ledger.
type DeployHistory interface {
	LastRun() (*ledger.Run, error)
}

// Server wraps the MCP server with blog tools.
type Server struct {
	mcp      *server.MCPServer
	blogs    *blog.Holder
	renderer blog.Renderer
	resolve  blog.URLResolver
	history  DeployHistory
}

// New creates an MCP server over the blog held by h. history may be nil,
// in which case the last_deploy tool is not registered.
func New(h *blog.Holder, renderer blog.Renderer, resolve blog.URLResolver, history DeployHistory) *Server {
	s := &Server{blogs: h, renderer: renderer, resolve: resolve, history: history}

	s.mcp = server.NewMCPServer(
		"bloggen",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List posts newest first with their metadata and page URL."),
		mcp.WithBoolean("include_drafts", mcp.Description("Also list unpublished posts")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read one post: its metadata and the rendered HTML body."),
		mcp.WithString("identity", mcp.Required(),
			mcp.Description("Post identity: the source path without extension (e.g. 2013/launch)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("get_metadata_contract",
		mcp.WithDescription("Returns the post source format: metadata block, blank line, Markdown body."),
	), s.getMetadataContract)

	if history != nil {
		s.mcp.AddTool(mcp.NewTool("last_deploy",
			mcp.WithDescription("Report the most recent deploy run from the deploy ledger."),
		), s.lastDeploy)
	}

	s.mcp.AddResource(
		mcp.NewResource(MetadataFormatURI, "Post Metadata Format",
			mcp.WithResourceDescription("Format every post source file must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMetadataFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type postInfo struct {
	Identity  string         `json:"identity"`
	Title     string         `json:"title"`
	Subtitle  string         `json:"subtitle,omitempty"`
	Date      time.Time      `json:"date"`
	Published bool           `json:"published"`
	URL       string         `json:"url"`
	Fields    map[string]any `json:"fields,omitempty"`
}

type postContent struct {
	postInfo
	HTML string `json:"html"`
}

func (s *Server) info(p *blog.Post) postInfo {
	return postInfo{
		Identity:  p.Identity(),
		Title:     p.Title(),
		Subtitle:  p.Subtitle(),
		Date:      p.Date(),
		Published: p.Published(),
		URL:       p.URL(s.resolve),
		Fields:    p.Meta().Fields,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts := s.blogs.Load().Posts(req.GetBool("include_drafts", false))
	out := make([]postInfo, len(posts))
	for i, p := range posts {
		out[i] = s.info(p)
	}
	return jsonResult(out)
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identity, err := req.RequireString("identity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.blogs.Load().GetOrNotFound(identity)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", identity)), nil
	}
	html, err := post.Render(s.renderer)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(postContent{postInfo: s.info(post), HTML: string(html)})
}

func (s *Server) getMetadataContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MetadataFormatContract), nil
}

func (s *Server) lastDeploy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.history.LastRun()
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText("no deploys recorded"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(run)
}

func (s *Server) readMetadataFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MetadataFormatURI,
			MIMEType: "text/markdown",
			Text:     MetadataFormatContract,
		},
	}, nil
}
