// Package filter decides which news posts are worth announcing.
//
// A post is kept when its lowercased title contains at least one term
// (keywords, named series, followed series). An optional expression rule
// can then restrict the kept set further:
//
//	source == "reddit" && !(title contains "[Discussion]")
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"animebot/internal/news"
)

type Config struct {
	Keywords    []string
	SeriesTerms []string
	Rule        string
}

type Filter struct {
	terms   []string
	rule    string
	program *vm.Program
}

// New compiles cfg.Rule, if any.
func New(cfg Config) (*Filter, error) {
	f := &Filter{terms: normalize(append(append([]string(nil), cfg.Keywords...), cfg.SeriesTerms...))}
	if r := strings.TrimSpace(cfg.Rule); r != "" {
		program, err := expr.Compile(r, expr.Env(ruleEnv(news.Item{}, time.Time{})), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile filter rule: %w", err)
		}
		f.rule, f.program = r, program
	}
	return f, nil
}

// Terms returns the static match terms, lowercased.
func (f *Filter) Terms() []string { return append([]string(nil), f.terms...) }

// Match reports whether title contains any static term or any of extra.
func (f *Filter) Match(title string, extra ...string) bool {
	t := strings.ToLower(title)
	for _, k := range f.terms {
		if strings.Contains(t, k) {
			return true
		}
	}
	for _, k := range extra {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// Apply keeps the items that match and pass the rule. followed are extra
// terms (followed series names). Items whose rule evaluation fails are kept;
// the first such error is returned alongside the result.
func (f *Filter) Apply(items []news.Item, followed []string, now time.Time) ([]news.Item, error) {
	out := make([]news.Item, 0, len(items))
	var firstErr error
	for _, it := range items {
		if !f.Match(it.Title, followed...) {
			continue
		}
		if f.program != nil {
			res, err := expr.Run(f.program, ruleEnv(it, now))
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("filter rule %q: %w", f.rule, err)
				}
				out = append(out, it)
				continue
			}
			if ok, _ := res.(bool); !ok {
				continue
			}
		}
		out = append(out, it)
	}
	return out, firstErr
}

func ruleEnv(it news.Item, now time.Time) map[string]any {
	age := 0.0
	if !it.Created.IsZero() && !now.IsZero() {
		age = now.Sub(it.Created).Hours()
	}
	return map[string]any{
		"title":     it.Title,
		"url":       it.URL,
		"community": it.Community,
		"source":    string(it.Source),
		"age_hours": age,
	}
}

func normalize(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
