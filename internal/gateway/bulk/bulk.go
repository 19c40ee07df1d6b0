// Package bulk shapes executor outcomes into HTTP responses. Bulk requests always
// answer 200 with one positional result per input entry.
package bulk

import (
	"log/slog"
	"net/http"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	"github.com/allisson/resourcegateway/internal/httputil"
)

// Envelope is the bulk response body.
type Envelope struct {
	Results []domain.ActionResult `json:"results"`
}

// Summary counts the outcome of a request for logging.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Aggregate wraps results in the bulk envelope, keeping their order.
func Aggregate(results []domain.ActionResult) Envelope {
	if results == nil {
		results = []domain.ActionResult{}
	}
	return Envelope{Results: results}
}

// Summarize counts succeeded and failed results.
func Summarize(results []domain.ActionResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// LogValue groups the counts under one attribute.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", s.Total),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("failed", s.Failed),
	)
}

// Response returns the status code and body for an outcome.
//
//   - bulk: 200 with the results envelope
//   - DELETE verb: 204 without a body, or 400 with the failure message
//   - otherwise: 200 with the single result, failed or not
//
// A nil body means no content.
func Response(outcome *executor.Outcome, verb string) (int, any) {
	if outcome.Bulk {
		return http.StatusOK, Aggregate(outcome.Results)
	}
	if len(outcome.Results) == 0 {
		return http.StatusOK, Aggregate(nil)
	}

	result := outcome.Results[0]
	if verb == http.MethodDelete {
		if result.Success {
			return http.StatusNoContent, nil
		}
		return http.StatusBadRequest, httputil.ErrorResponse{
			Error: httputil.ErrorDetail{Kind: httputil.KindBadRequest, Message: result.Message},
		}
	}
	return http.StatusOK, result
}
