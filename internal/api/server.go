package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cometweb/webaudit/internal/analyzer"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	appName    = "Web Page Performance Analyzer"
	appVersion = "1.0.0"
)

// Service runs one complete page analysis per call. The device profile is
// optional; empty means desktop.
type Service interface {
	Analyze(ctx context.Context, url, device string) (*analyzer.AnalysisResult, error)
}

// NewServer assembles the HTTP surface: the typed v1 API, the legacy
// analyze-url route, and the docs page.
func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(allowCORS)

	cfg := huma.DefaultConfig(appName+" API", appVersion)
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	// The pre-v1 route keeps its original contract: bare JSON body, plain-text
	// errors. New clients should use /api/v1/analyze.
	router.Post("/api/analyze-url", legacyAnalyzeHandler(svc))

	registerAnalyzeHandlers(api, svc)
	registerMetaHandlers(api)

	return router
}

func registerAnalyzeHandlers(api huma.API, svc Service) {
	type analyzeInput struct {
		Body struct {
			URL    string `json:"url" doc:"Absolute http(s) URL of the page to analyze"`
			Device string `json:"device,omitempty" enum:"desktop,mobile" doc:"Viewport emulation profile. Defaults to desktop."`
		}
	}
	type analyzeOutput struct {
		Body analyzer.AnalysisResult
	}
	huma.Register(api, huma.Operation{OperationID: "analyze-page", Method: http.MethodPost, Path: "/api/v1/analyze", Summary: "Analyze page performance", Tags: []string{"Analysis"}},
		func(ctx context.Context, input *analyzeInput) (*analyzeOutput, error) {
			result, err := svc.Analyze(ctx, input.Body.URL, input.Body.Device)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &analyzeOutput{}
			out.Body = *result
			return out, nil
		})
}

func registerMetaHandlers(api huma.API) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type infoOutput struct {
		Body struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			Status  string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "app-info", Method: http.MethodGet, Path: "/", Summary: "Application info", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*infoOutput, error) {
			out := &infoOutput{}
			out.Body.Name = appName
			out.Body.Version = appVersion
			out.Body.Status = "running"
			return out, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *analyzer.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case analyzer.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case analyzer.CodeNavTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case analyzer.CodeNavFailed, analyzer.CodeBrowserUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
