package graphql

import (
	"encoding/json"
	"errors"
	"net/http"

	gql "github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	appLogger "github.com/fastygo/taskhub/pkg/logger"
)

type request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler executes GraphQL documents posted as JSON.
type Handler struct {
	schema  gql.Schema
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func NewHandler(schema gql.Schema, adapter *httpcontext.Adapter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return &Handler{schema: schema, adapter: adapter, logger: logger}
}

// @Summary Execute a GraphQL operation
// @Tags graphql
// @Router /api/graphql [post]
func (h *Handler) Serve(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.adapter.Attach(ctx)
	defer cancel()

	var req request
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Query == "" {
		h.write(ctx, http.StatusBadRequest, map[string]interface{}{
			"errors": []map[string]interface{}{{
				"message":    "request body must be a JSON object with a query",
				"extensions": map[string]interface{}{"code": "INVALID"},
			}},
		})
		return
	}

	result := gql.Do(gql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        stdCtx,
	})
	if result.HasErrors() {
		h.logErrors(appLogger.WithRequestID(stdCtx, h.logger), req.OperationName, result.Errors)
	}
	h.write(ctx, http.StatusOK, result)
}

// logErrors records the cause of every internal failure. Client errors
// are already described in the response.
func (h *Handler) logErrors(logger *zap.Logger, operation string, errs []gqlerrors.FormattedError) {
	for _, formatted := range errs {
		cause, ok := internalCause(formatted.OriginalError())
		if !ok {
			continue
		}
		logger.Error("graphql resolver failed",
			zap.String("operation", operation),
			zap.Any("path", formatted.Path),
			zap.Error(cause),
		)
	}
	logger.Debug("graphql operation returned errors",
		zap.String("operation", operation),
		zap.Int("errors", len(errs)),
	)
}

func internalCause(err error) (error, bool) {
	var located *gqlerrors.Error
	if errors.As(err, &located) {
		err = located.OriginalError
	}
	var coded *codedError
	if !errors.As(err, &coded) || coded.code != domain.ErrCodeInternal {
		return nil, false
	}
	return coded.cause, true
}

func (h *Handler) write(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encode graphql response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"errors":[{"message":"internal error"}]}`)
	}
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
