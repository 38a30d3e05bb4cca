package repository

import (
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// where accumulates AND-ed SQL conditions and their positional arguments.
// Each clause is a format string whose %[1]d verb is replaced by the
// placeholder index of its argument.
type where struct {
	conds []string
	args  []any
}

func newWhere(args ...any) *where {
	return &where{args: args}
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// likePattern escapes LIKE wildcards in a user search term.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func direction(o model.SortOrder, def model.SortOrder) string {
	if o == "" {
		o = def
	}
	if o == model.OrderDesc {
		return "DESC"
	}
	return "ASC"
}

// eventOrderBy maps a whitelisted sort key to its ORDER BY expression.
func eventOrderBy(sort model.EventSort, order model.SortOrder) string {
	dir := direction(order, model.OrderAsc)
	var expr string
	switch sort {
	case model.SortByTitle:
		expr = "lower(e.title) " + dir
	case model.SortByCreated:
		expr = "e.created_at " + dir
	case model.SortByRegistrations:
		expr = "active_count " + dir
	default:
		expr = "e.event_date " + dir + ", e.event_time " + dir
	}
	return " ORDER BY " + expr + ", e.id"
}

func activeStatuses() []string {
	out := make([]string, len(model.ActiveStatuses))
	for i, s := range model.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}
