package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"mistletoe/internal/assign"
	"mistletoe/internal/engine"
	"mistletoe/internal/repo"
	"mistletoe/internal/token"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"infeasible_row"`
	Message string         `json:"message" example:"participant Ana cannot give to anyone (empty row 0)"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"participant\":\"Ana\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Mistletoe API.
func New(cfg Config) (http.Handler, error) {
	basePath := normalizeBasePath(cfg.BasePath)
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Mistletoe API", "0.3.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerLogin(group, cfg.Engine, cfg.Auth)
	registerExchanges(group, cfg.Engine)
	registerNames(group, cfg.Engine)
	registerMatrix(group, cfg.Engine)
	registerDraw(group, cfg.Engine)
	registerReveal(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerMe(group)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func normalizeBasePath(basePath string) string {
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimSuffix(basePath, "/")
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var rowErr *assign.InfeasibleRowError
	if errors.As(err, &rowErr) {
		return newAPIError(http.StatusUnprocessableEntity, "infeasible_row", err.Error(), map[string]any{
			"participant": rowErr.Name,
			"index":       rowErr.Index,
		})
	}
	var shapeErr *assign.ShapeError
	if errors.As(err, &shapeErr) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{
			"participants": shapeErr.Participants,
			"rows":         shapeErr.Rows,
		})
	}
	msg := err.Error()
	switch {
	case errors.Is(err, assign.ErrAssignmentNotFound):
		return newAPIError(http.StatusUnprocessableEntity, "assignment_not_found", msg, nil)
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, engine.ErrNotReady):
		return newAPIError(http.StatusConflict, "not_ready", msg, nil)
	case errors.Is(err, engine.ErrNotDrawn):
		return newAPIError(http.StatusConflict, "not_drawn", msg, nil)
	case errors.Is(err, engine.ErrInvalidCredentials):
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
	case errors.Is(err, engine.ErrAdminPasswordUnset):
		return newAPIError(http.StatusServiceUnavailable, "login_disabled", msg, nil)
	case errors.Is(err, engine.ErrTooFewNames),
		errors.Is(err, engine.ErrUnknownName),
		errors.Is(err, engine.ErrInvalidExchangeID):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case errors.Is(err, token.ErrEmptyVocabulary):
		return newAPIError(http.StatusInternalServerError, "internal_error", msg, nil)
	case strings.Contains(strings.ToLower(msg), "already exists"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	public := map[string]bool{
		path.Join(basePath, "health"):                         true,
		path.Join(basePath, "auth/login"):                     true,
		path.Join(basePath, "exchanges/{exchange_id}/roster"): true,
		path.Join(basePath, "exchanges/{exchange_id}/reveal"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if public[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Mistletoe API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Log in with POST /auth/login, then send Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerLogin(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange the admin password for a session token",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body LoginResponse `json:"body"`
	}, error) {
		if err := e.CheckAdminPassword(input.Body.Password); err != nil {
			authCfg.logger().Info("admin login refused")
			return nil, handleError(err)
		}
		ttl, err := e.Config.TokenTTL()
		if err != nil {
			return nil, handleError(err)
		}
		now := time.Now
		if e.Now != nil {
			now = e.Now
		}
		tok, expires, err := signToken(authCfg.JWTSecret, AdminActor, now(), ttl)
		if err != nil {
			return nil, newAPIError(http.StatusServiceUnavailable, "login_disabled", err.Error(), nil)
		}
		return &struct {
			Body LoginResponse `json:"body"`
		}{Body: LoginResponse{Token: tok, ExpiresAt: expires.UTC().Format(time.RFC3339)}}, nil
	})
}

type exchangePath struct {
	ExchangeID string `path:"exchange_id"`
}

func registerExchanges(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-exchange",
		Method:        http.MethodPost,
		Path:          "/exchanges",
		Summary:       "Create exchange",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateExchangeRequest `json:"body"`
	}) (*struct {
		Body ExchangeResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		desc := ""
		if input.Body.Description != nil {
			desc = *input.Body.Description
		}
		x, err := e.CreateExchange(ctx, input.Body.ID, desc, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExchangeResponse `json:"body"`
		}{Body: exchangeResponse(x)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-exchanges",
		Method:      http.MethodGet,
		Path:        "/exchanges",
		Summary:     "List exchanges",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ExchangeResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListExchanges(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ExchangeResponse `json:"body"`
		}{Body: mapExchanges(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-exchange",
		Method:      http.MethodGet,
		Path:        "/exchanges/{exchange_id}",
		Summary:     "Get exchange",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *exchangePath) (*struct {
		Body ExchangeResponse `json:"body"`
	}, error) {
		x, err := e.Repo.GetExchange(ctx, input.ExchangeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExchangeResponse `json:"body"`
		}{Body: exchangeResponse(x)}, nil
	})
}

func registerNames(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "set-names",
		Method:      http.MethodPut,
		Path:        "/exchanges/{exchange_id}/names",
		Summary:     "Replace the roster",
		Description: "Saving names discards the matrix and any drawn participants.",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ExchangeID string          `path:"exchange_id"`
		Body       SetNamesRequest `json:"body"`
	}) (*struct {
		Body NamesResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		names := append([]string{}, input.Body.Names...)
		if input.Body.Raw != "" {
			names = append(names, engine.ParseNames(input.Body.Raw)...)
		}
		saved, err := e.SetNames(ctx, input.ExchangeID, names, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NamesResponse `json:"body"`
		}{Body: NamesResponse{ExchangeID: input.ExchangeID, Names: saved}}, nil
	})

	getNames := func(ctx context.Context, input *exchangePath) (*struct {
		Body NamesResponse `json:"body"`
	}, error) {
		names, err := e.Names(ctx, input.ExchangeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NamesResponse `json:"body"`
		}{Body: NamesResponse{ExchangeID: input.ExchangeID, Names: names}}, nil
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-names",
		Method:      http.MethodGet,
		Path:        "/exchanges/{exchange_id}/names",
		Summary:     "Get the roster",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, getNames)
	huma.Register(api, huma.Operation{
		OperationID: "get-roster",
		Method:      http.MethodGet,
		Path:        "/exchanges/{exchange_id}/roster",
		Summary:     "Public roster for the reveal page",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, getNames)
}

func matrixResponse(exchangeID string, view engine.MatrixView) MatrixResponse {
	return MatrixResponse{ExchangeID: exchangeID, Names: view.Names, Matrix: view.Matrix, Saved: view.Saved}
}

func registerMatrix(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-matrix",
		Method:      http.MethodGet,
		Path:        "/exchanges/{exchange_id}/matrix",
		Summary:     "Get the compatibility matrix",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *exchangePath) (*struct {
		Body MatrixResponse `json:"body"`
	}, error) {
		view, err := e.Matrix(ctx, input.ExchangeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MatrixResponse `json:"body"`
		}{Body: matrixResponse(input.ExchangeID, view)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-matrix",
		Method:      http.MethodPut,
		Path:        "/exchanges/{exchange_id}/matrix",
		Summary:     "Replace the compatibility matrix",
		Description: "Row i column j true means participant i may give to participant j.",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ExchangeID string           `path:"exchange_id"`
		Body       SetMatrixRequest `json:"body"`
	}) (*struct {
		Body MatrixResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		view, err := e.SetMatrix(ctx, input.ExchangeID, input.Body.Matrix, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MatrixResponse `json:"body"`
		}{Body: matrixResponse(input.ExchangeID, view)}, nil
	})
}

func registerDraw(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "draw",
		Method:      http.MethodPost,
		Path:        "/exchanges/{exchange_id}/draw",
		Summary:     "Draw assignments and issue passwords",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ExchangeID string       `path:"exchange_id"`
		Body       *DrawRequest `json:"body,omitempty"`
	}) (*struct {
		Body DrawResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.DrawOptions{ActorID: actorID}
		if input.Body != nil {
			opts.MaxTries = input.Body.MaxTries
		}
		res, err := e.Draw(ctx, input.ExchangeID, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DrawResponse `json:"body"`
		}{Body: DrawResponse{
			ID:           res.Draw.ID,
			ExchangeID:   res.Draw.ExchangeID,
			CreatedAt:    res.Draw.CreatedAt,
			Participants: mapParticipants(res.Participants),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-participants",
		Method:      http.MethodGet,
		Path:        "/exchanges/{exchange_id}/participants",
		Summary:     "Current participant records",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *exchangePath) (*struct {
		Body []ParticipantResponse `json:"body"`
	}, error) {
		items, err := e.Participants(ctx, input.ExchangeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ParticipantResponse `json:"body"`
		}{Body: mapParticipants(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export",
		Method:      http.MethodGet,
		Path:        "/exchanges/{exchange_id}/export",
		Summary:     "Download {name: {password, target}}",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *exchangePath) (*struct {
		ContentDisposition string                        `header:"Content-Disposition"`
		Body               map[string]engine.ExportEntry `json:"body"`
	}, error) {
		doc, err := e.Export(ctx, input.ExchangeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentDisposition string                        `header:"Content-Disposition"`
			Body               map[string]engine.ExportEntry `json:"body"`
		}{
			ContentDisposition: fmt.Sprintf(`attachment; filename="%s-secret-santa.json"`, input.ExchangeID),
			Body:               doc,
		}, nil
	})
}

func registerReveal(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "reveal",
		Method:      http.MethodPost,
		Path:        "/exchanges/{exchange_id}/reveal",
		Summary:     "Reveal a participant's recipient",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ExchangeID string        `path:"exchange_id"`
		Body       RevealRequest `json:"body"`
	}) (*struct {
		Body RevealResponse `json:"body"`
	}, error) {
		target, err := e.Reveal(ctx, input.ExchangeID, input.Body.Name, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RevealResponse `json:"body"`
		}{Body: RevealResponse{Name: strings.TrimSpace(input.Body.Name), Target: target}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/exchanges/{exchange_id}/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ExchangeID string `path:"exchange_id"`
		Type       string `query:"type"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		if _, err := e.Repo.GetExchange(ctx, input.ExchangeID); err != nil {
			return nil, handleError(err)
		}
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.Repo.LatestEvents(ctx, limit+1, cursorID, input.ExchangeID, input.Type)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors: []int{
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{ActorID: principal.ActorID, Source: principal.Source}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
