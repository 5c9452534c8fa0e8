package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-sync/internal/store"
	"github.com/albapepper/scoracle-sync/internal/syncer"
)

const (
	defaultPerPage = 50
	maxPerPage     = 500
	maxBodyBytes   = 1 << 20
)

func kindParam(r *http.Request) (store.Kind, error) {
	return store.ParseKind(chi.URLParam(r, "entity"))
}

func pageParams(q url.Values) (store.ListOptions, error) {
	opts := store.ListOptions{Page: 1, PerPage: defaultPerPage}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, invalid("page must be a positive integer")
		}
		opts.Page = n
	}
	if v := q.Get("perPage"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPerPage {
			return opts, invalid(fmt.Sprintf("perPage must be between 1 and %d", maxPerPage))
		}
		opts.PerPage = n
	}
	return opts, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, invalid(fmt.Sprintf("%s must be YYYY-MM-DD or RFC 3339", field))
	}
	return &t, nil
}

func int64Param(field, v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return nil, invalid(field + " must be a positive integer")
	}
	return &n, nil
}

// splitList splits a comma list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dateRange(from, to string) (*time.Time, *time.Time, error) {
	f, err := parseDate("from", from)
	if err != nil {
		return nil, nil, err
	}
	t, err := parseDate("to", to)
	if err != nil {
		return nil, nil, err
	}
	if f != nil && t != nil && t.Before(*f) {
		return nil, nil, invalid("to must not be before from")
	}
	return f, t, nil
}

func filterParams(q url.Values) (store.Filter, error) {
	f := store.Filter{
		ExternalID:        strings.TrimSpace(q.Get("externalId")),
		Search:            strings.TrimSpace(q.Get("search")),
		SeasonExternalIDs: splitList(q.Get("seasonId")),
	}
	var err error
	if f.CountryID, err = int64Param("countryId", q.Get("countryId")); err != nil {
		return f, err
	}
	if f.LeagueID, err = int64Param("leagueId", q.Get("leagueId")); err != nil {
		return f, err
	}
	if f.From, f.To, err = dateRange(q.Get("from"), q.Get("to")); err != nil {
		return f, err
	}
	return f, nil
}

// scopeParams reads a provider scope from the query string.
func scopeParams(kind store.Kind, q url.Values) (syncer.Scope, error) {
	from, to, err := dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		return syncer.Scope{}, err
	}
	return scopeFor(kind, strings.TrimSpace(q.Get("externalId")), splitList(q.Get("seasonId")), from, to), nil
}

func scopeFor(kind store.Kind, externalID string, seasons []string, from, to *time.Time) syncer.Scope {
	scope := syncer.Scope{ExternalID: externalID}
	switch kind {
	case store.KindFixtures:
		scope.SeasonExternalIDs = seasons
		scope.From, scope.To = from, to
	case store.KindTeams:
		scope.SeasonExternalIDs = seasons
	}
	return scope
}

// flexID accepts a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexID(n.String())
	return nil
}

// syncRequest is the body of every POST /sync endpoint.
type syncRequest struct {
	DryRun   bool   `json:"dryRun"`
	Async    bool   `json:"async"`
	SeasonID flexID `json:"seasonId"`
	From     string `json:"from"`
	To       string `json:"to"`

	from *time.Time
	to   *time.Time
}

// decodeSyncRequest reads an optional JSON body; an empty body is valid.
func decodeSyncRequest(r *http.Request) (syncRequest, error) {
	var req syncRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, invalid("invalid JSON body: " + err.Error())
	}
	var err error
	if req.from, req.to, err = dateRange(req.From, req.To); err != nil {
		return req, err
	}
	return req, nil
}

func (req syncRequest) seasons() []string {
	if req.SeasonID == "" {
		return nil
	}
	return []string{string(req.SeasonID)}
}
