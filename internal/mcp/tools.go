package mcp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/bytemetrics/internal/analyzer"
	"github.com/mvp-joe/bytemetrics/internal/archive"
	"github.com/mvp-joe/bytemetrics/internal/classfile"
	"github.com/mvp-joe/bytemetrics/internal/config"
	"github.com/mvp-joe/bytemetrics/internal/hierarchy"
	"github.com/mvp-joe/bytemetrics/internal/resolver"
)

// Runner performs one analysis run over path, consulting classpath after
// the configured resolver entries.
type Runner interface {
	Run(ctx context.Context, path string, classpath []string) (*analyzer.Report, error)
}

// ConfigRunner runs analyses with a loaded configuration. It keeps one open
// classpath per distinct extra classpath for the server's lifetime, so
// repeated tool calls reuse cached ancestor bytes. Close releases them.
type ConfigRunner struct {
	Config *config.Config

	mu         sync.Mutex
	classpaths map[string]*resolver.Classpath
}

// NewConfigRunner creates a runner for cfg.
func NewConfigRunner(cfg *config.Config) *ConfigRunner {
	return &ConfigRunner{Config: cfg, classpaths: make(map[string]*resolver.Classpath)}
}

// Run implements Runner.
func (r *ConfigRunner) Run(ctx context.Context, path string, classpath []string) (*analyzer.Report, error) {
	filter, err := r.Config.Filter()
	if err != nil {
		return nil, err
	}
	cp, err := r.classpath(classpath)
	if err != nil {
		return nil, fmt.Errorf("failed to open classpath: %w", err)
	}

	return analyzer.Analyze(ctx, analyzer.Config{
		Path:     path,
		Filter:   filter,
		Resolver: cp,
		Options:  r.Config.MetricsOptions(),
	}, nil)
}

// classpath returns the session classpath for extra, opening it on first use.
func (r *ConfigRunner) classpath(extra []string) (*resolver.Classpath, error) {
	key := strings.Join(extra, string(os.PathListSeparator))

	r.mu.Lock()
	defer r.mu.Unlock()
	if cp, ok := r.classpaths[key]; ok {
		return cp, nil
	}
	if r.classpaths == nil {
		r.classpaths = make(map[string]*resolver.Classpath)
	}
	cp, err := r.Config.OpenClasspath(extra)
	if err != nil {
		return nil, err
	}
	r.classpaths[key] = cp
	return cp, nil
}

// Close releases every session classpath.
func (r *ConfigRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for key, cp := range r.classpaths {
		if err := cp.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.classpaths, key)
	}
	return errors.Join(errs...)
}

// AnalyzeRequest holds bytemetrics_analyze arguments.
type AnalyzeRequest struct {
	Path           string   `json:"path"`
	Classpath      []string `json:"classpath"`
	IncludeClasses bool     `json:"include_classes"`
}

// HierarchyRequest holds bytemetrics_hierarchy arguments.
type HierarchyRequest struct {
	Path      string   `json:"path"`
	Class     string   `json:"class"`
	Classpath []string `json:"classpath"`
}

// HierarchyResponse describes one class's place in the inheritance forest.
type HierarchyResponse struct {
	Class      string   `json:"class"`
	Depth      int      `json:"depth"`
	External   bool     `json:"external"`
	Ancestors  []string `json:"ancestors"`
	Subclasses []string `json:"subclasses"`
}

// AddAnalyzeTool registers the bytemetrics_analyze tool.
func AddAnalyzeTool(s *server.MCPServer, runner Runner) {
	tool := mcp.NewTool(
		"bytemetrics_analyze",
		mcp.WithDescription("Compute ABC complexity, average field count, inheritance depth, and average override count for the compiled classes in a jar, jmod, or class directory."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a .jar, .jmod, or directory of .class files")),
		mcp.WithArray("classpath",
			mcp.Description("Extra jars or directories used to resolve superclasses outside the batch")),
		mcp.WithBoolean("include_classes",
			mcp.Description("Include per-class fields, depth, and override counts (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createAnalyzeHandler(runner))
}

func createAnalyzeHandler(runner Runner) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req AnalyzeRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if req.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}

		report, err := runner.Run(ctx, req.Path, req.Classpath)
		if err != nil {
			if isUserError(err) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}

		if !req.IncludeClasses && report.Summary != nil {
			summary := *report.Summary
			summary.Classes = nil
			trimmed := *report
			trimmed.Summary = &summary
			report = &trimmed
		}
		return marshalToolResponse(report)
	}
}

// AddHierarchyTool registers the bytemetrics_hierarchy tool.
func AddHierarchyTool(s *server.MCPServer, runner Runner) {
	tool := mcp.NewTool(
		"bytemetrics_hierarchy",
		mcp.WithDescription("Show the superclass chain, inheritance depth, and subclasses of one class in a jar, jmod, or class directory."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a .jar, .jmod, or directory of .class files")),
		mcp.WithString("class",
			mcp.Required(),
			mcp.Description("Class name, dotted or internal form (e.g., 'com.acme.Service' or 'com/acme/Service')")),
		mcp.WithArray("classpath",
			mcp.Description("Extra jars or directories used to resolve superclasses outside the batch")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createHierarchyHandler(runner))
}

func createHierarchyHandler(runner Runner) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req HierarchyRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if req.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}
		if req.Class == "" {
			return mcp.NewToolResultError("class parameter is required"), nil
		}

		report, err := runner.Run(ctx, req.Path, req.Classpath)
		if err != nil {
			if isUserError(err) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}

		h, err := hierarchy.FromReport(report)
		if err != nil {
			return nil, err
		}

		name := classfile.InternalName(req.Class)
		ancestors, err := h.Ancestors(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("class %s not found in %s", name, report.Source)), nil
		}
		subclasses, err := h.Subclasses(name)
		if err != nil {
			return nil, err
		}

		resp := &HierarchyResponse{
			Class:      name,
			External:   h.IsExternal(name),
			Ancestors:  ancestors,
			Subclasses: subclasses,
		}
		for _, c := range report.Summary.Classes {
			if c.Name == name {
				resp.Depth = c.Depth
				break
			}
		}
		return marshalToolResponse(resp)
	}
}

// isUserError reports errors caused by the request rather than the server.
func isUserError(err error) bool {
	return errors.Is(err, archive.ErrUnsupported) || errors.Is(err, fs.ErrNotExist)
}
