package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/ranking"
)

// maxRequestBodySize limits vote and tag request bodies.
const maxRequestBodySize = 1 << 16

// voteRequest is the JSON request body for voting on a paper.
type voteRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// tagRequest is the JSON request body for adding a user tag.
type tagRequest struct {
	Tag string `json:"tag" validate:"required,max=200"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// listPapers handles GET /api/v1/papers/{source}.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	source, err := domain.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	q := r.URL.Query()
	req := ranking.RankRequest{
		Source: source,
		Filters: ranking.Filters{
			Tags:     splitTags(q["tags"]),
			Venue:    strings.TrimSpace(q.Get("venue")),
			Category: strings.TrimSpace(q.Get("category")),
		},
	}

	var ok bool
	if req.Filters.Year, ok = parseIntParam(w, q, "year"); !ok {
		return
	}
	if req.Limit, ok = parseIntParam(w, q, "limit"); !ok {
		return
	}
	if req.Offset, ok = parseIntParam(w, q, "offset"); !ok {
		return
	}

	results, err := s.ranker.Rank(r.Context(), req)
	if err != nil {
		s.logError(r, err, "rank feed")
		writeDomainError(w, err)
		return
	}

	papers := make([]rankedPaperResponse, len(results))
	for i, res := range results {
		papers[i] = rankedResultToResponse(res)
	}
	writeJSON(w, http.StatusOK, listPapersResponse{
		Source: string(source),
		Papers: papers,
		Offset: req.Offset,
		Count:  len(papers),
	})
}

// votePaper handles POST /api/v1/papers/{id}/vote.
func (s *Server) votePaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePaperID(w, r)
	if !ok {
		return
	}

	var req voteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	direction, err := domain.ParseVoteDirection(req.Direction)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	found, err := s.papers.Vote(r.Context(), id, direction)
	if err != nil {
		s.logError(r, err, "vote")
		writeDomainError(w, err)
		return
	}
	if !found {
		s.metrics.RecordVote(string(direction), "not_found")
		writeError(w, http.StatusNotFound, "paper not found")
		return
	}

	s.metrics.RecordVote(string(direction), "success")
	writeJSON(w, http.StatusOK, voteResponse{Success: true})
}

// addTag handles POST /api/v1/papers/{id}/tags.
func (s *Server) addTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePaperID(w, r)
	if !ok {
		return
	}

	var req tagRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	tag, err := domain.ValidateTag(req.Tag)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.papers.AddUserTag(r.Context(), id, tag)
	if err != nil {
		s.logError(r, err, "add tag")
		writeDomainError(w, err)
		return
	}
	s.metrics.RecordTagMutation("add", string(result))

	var status int
	switch result {
	case domain.TagSuccess:
		s.tags.Invalidate()
		status = http.StatusCreated
	case domain.TagExists:
		status = http.StatusConflict
	case domain.TagFull:
		status = http.StatusUnprocessableEntity
	case domain.TagNotFound:
		status = http.StatusNotFound
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, status, tagMutationResponse{Result: string(result), Tag: tag})
}

// removeTag handles DELETE /api/v1/papers/{id}/tags/{tag}.
func (s *Server) removeTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePaperID(w, r)
	if !ok {
		return
	}

	raw, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "tag is not a valid path segment")
		return
	}
	tag, err := domain.ValidateTag(raw)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.papers.RemoveUserTag(r.Context(), id, tag)
	if err != nil {
		s.logError(r, err, "remove tag")
		writeDomainError(w, err)
		return
	}
	s.metrics.RecordTagMutation("remove", string(result))

	switch result {
	case domain.TagSuccess:
		s.tags.Invalidate()
		writeJSON(w, http.StatusOK, tagMutationResponse{Result: string(result), Tag: tag})
	case domain.TagNotFound, domain.TagAbsent:
		writeJSON(w, http.StatusNotFound, tagMutationResponse{Result: string(result), Tag: tag})
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// listTags handles GET /api/v1/tags.
func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.Get(r.Context())
	if err != nil {
		s.logError(r, err, "list tags")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listTagsResponse{Tags: tags, Count: len(tags)})
}

// decodeBody reads, decodes and validates a JSON request body, writing a
// 400 response on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) logError(r *http.Request, err error, op string) {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) {
		return
	}
	logger := observability.LoggerFromContext(r.Context(), s.logger)
	logger.Error().Err(err).Str("operation", op).Msg("request failed")
}

// writeDomainError maps domain errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parsePaperID parses the {id} path parameter, writing a 400 response if invalid.
// The parse error details are not included to avoid echoing potentially malicious input.
func parsePaperID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseIntParam reads an optional integer query parameter.
func parseIntParam(w http.ResponseWriter, q url.Values, name string) (int, bool) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return v, true
}

// splitTags flattens comma separated and repeated tags parameters.
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
