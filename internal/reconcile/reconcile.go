// Package reconcile diffs database rows against provider records keyed by
// external id and classifies every key in the union into exactly one status.
//
// Unify is pure: it performs no I/O and never mutates its inputs.
package reconcile

import (
	"sort"
	"strings"
	"time"
)

// Status classifies one unified record.
type Status string

const (
	StatusOK          Status = "ok"
	StatusMissingInDB Status = "missing-in-db"
	StatusExtraInDB   Status = "extra-in-db"
	StatusMismatch    Status = "mismatch"
	StatusNew         Status = "new"
	StatusNoLeagues   Status = "no-leagues"
	StatusISOMissing  Status = "iso-missing"
)

// Statuses lists every status, primary ones first.
var Statuses = []Status{
	StatusOK, StatusMissingInDB, StatusExtraInDB, StatusMismatch,
	StatusNew, StatusNoLeagues, StatusISOMissing,
}

// Source says which side(s) a unified record was seen on.
type Source string

const (
	SourceDB       Source = "db"
	SourceProvider Source = "provider"
	SourceBoth     Source = "both"
)

// Field compares one attribute across both sides. Values are trimmed before
// comparison; Fold additionally compares case-insensitively.
type Field[D, P any] struct {
	Name     string
	DB       func(D) string
	Provider func(P) string
	Fold     bool
}

// Spec describes how to reconcile one entity kind.
type Spec[D, P any] struct {
	DBKey       func(D) string
	ProviderKey func(P) string
	Fields      []Field[D, P]

	// DBName and ProviderName give the display name used for ordering.
	DBName       func(D) string
	ProviderName func(P) string
	UpdatedAt    func(D) time.Time

	// Upcoming reports a provider-only record that has not started yet;
	// such records are "new" rather than "missing-in-db".
	Upcoming func(P) bool

	// Advisory is consulted only for records whose primary status is ok.
	Advisory func(u Unified[D, P]) (Status, bool)
}

// Unified is the merged view of one external id.
type Unified[D, P any] struct {
	ExternalID string     `json:"externalId"`
	Source     Source     `json:"source"`
	Status     Status     `json:"status"`
	Name       string     `json:"name"`
	Diff       []string   `json:"diff,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	DB         *D         `json:"db,omitempty"`
	Provider   *P         `json:"provider,omitempty"`
}

// Unify merges both sides into one record per external id, ordered by
// display name then external id. Records with a blank key are ignored; on
// duplicate keys within one side the last occurrence wins.
func Unify[D, P any](db []D, prov []P, spec Spec[D, P]) []Unified[D, P] {
	dbByKey := make(map[string]*D, len(db))
	for i := range db {
		if k := strings.TrimSpace(spec.DBKey(db[i])); k != "" {
			dbByKey[k] = &db[i]
		}
	}
	provByKey := make(map[string]*P, len(prov))
	for i := range prov {
		if k := strings.TrimSpace(spec.ProviderKey(prov[i])); k != "" {
			provByKey[k] = &prov[i]
		}
	}

	out := make([]Unified[D, P], 0, len(dbByKey)+len(provByKey))
	for key, d := range dbByKey {
		out = append(out, classify(key, d, provByKey[key], spec))
	}
	for key, p := range provByKey {
		if _, seen := dbByKey[key]; seen {
			continue
		}
		out = append(out, classify[D, P](key, nil, p, spec))
	}

	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}

func classify[D, P any](key string, d *D, p *P, spec Spec[D, P]) Unified[D, P] {
	u := Unified[D, P]{ExternalID: key, DB: d, Provider: p}

	switch {
	case d != nil && p != nil:
		u.Source = SourceBoth
		u.Name = strings.TrimSpace(spec.ProviderName(*p))
		u.Diff = diff(*d, *p, spec.Fields)
		if len(u.Diff) > 0 {
			u.Status = StatusMismatch
		} else {
			u.Status = StatusOK
		}
	case d != nil:
		u.Source = SourceDB
		u.Name = strings.TrimSpace(spec.DBName(*d))
		u.Status = StatusExtraInDB
	default:
		u.Source = SourceProvider
		u.Name = strings.TrimSpace(spec.ProviderName(*p))
		u.Status = StatusMissingInDB
		if spec.Upcoming != nil && spec.Upcoming(*p) {
			u.Status = StatusNew
		}
	}

	if d != nil && spec.UpdatedAt != nil {
		if t := spec.UpdatedAt(*d); !t.IsZero() {
			u.UpdatedAt = &t
		}
	}

	if u.Status == StatusOK && spec.Advisory != nil {
		if s, flagged := spec.Advisory(u); flagged {
			u.Status = s
		}
	}
	return u
}

func diff[D, P any](d D, p P, fields []Field[D, P]) []string {
	var out []string
	for _, f := range fields {
		if !Equal(f.DB(d), f.Provider(p), f.Fold) {
			out = append(out, f.Name)
		}
	}
	return out
}

// Equal compares two field values after trimming, case-folding when fold is set.
func Equal(a, b string, fold bool) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if fold {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// --------------------------------------------------------------------------
// Helpers over unified sets
// --------------------------------------------------------------------------

// Counts tallies records per status.
func Counts[D, P any](records []Unified[D, P]) map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, r := range records {
		out[r.Status]++
	}
	return out
}

// Filter keeps records whose status is one of statuses. No statuses keeps all.
func Filter[D, P any](records []Unified[D, P], statuses ...Status) []Unified[D, P] {
	if len(statuses) == 0 {
		return records
	}
	want := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := make([]Unified[D, P], 0, len(records))
	for _, r := range records {
		if want[r.Status] {
			out = append(out, r)
		}
	}
	return out
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, bool) {
	for _, known := range Statuses {
		if string(known) == s {
			return known, true
		}
	}
	return "", false
}

// View is a kind-agnostic copy of a unified record for presentation.
type View struct {
	ExternalID string     `json:"externalId"`
	Source     Source     `json:"source"`
	Status     Status     `json:"status"`
	Name       string     `json:"name"`
	Diff       []string   `json:"diff,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	DB         any        `json:"db,omitempty"`
	Provider   any        `json:"provider,omitempty"`
}

// Views erases the record types, keeping order.
func Views[D, P any](records []Unified[D, P]) []View {
	out := make([]View, 0, len(records))
	for _, r := range records {
		v := View{
			ExternalID: r.ExternalID,
			Source:     r.Source,
			Status:     r.Status,
			Name:       r.Name,
			Diff:       r.Diff,
			UpdatedAt:  r.UpdatedAt,
		}
		if r.DB != nil {
			v.DB = *r.DB
		}
		if r.Provider != nil {
			v.Provider = *r.Provider
		}
		out = append(out, v)
	}
	return out
}

// CountViews tallies views per status.
func CountViews(views []View) map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, v := range views {
		out[v.Status]++
	}
	return out
}
