package postgres

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// query accumulates WHERE conditions and their positional arguments.
type query struct {
	conds []string
	args  []interface{}
}

func (q *query) arg(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) where(cond string) {
	q.conds = append(q.conds, cond)
}

// scope compiles a resolved access scope into a predicate. Empty scopes
// must be short-circuited by the caller.
func (q *query) scope(s access.Scope) {
	rule := s.Rule
	switch rule.Type {
	case access.RuleAll:
	case access.RuleOwn:
		q.where(fmt.Sprintf("%s = %s", rule.Column, q.arg(s.Value)))
	case access.RuleVia:
		q.where(fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s = %s)",
			rule.Column, rule.ParentKey, rule.Parent.Table(), rule.ParentColumn, q.arg(s.Value)))
	case access.RuleWhere:
		q.where(fmt.Sprintf("%s = TRUE", rule.Column))
	default:
		q.where("FALSE")
	}
}

func (q *query) filters(filters []repository.Filter) {
	for _, f := range filters {
		switch f.Op {
		case repository.OpGte:
			q.where(fmt.Sprintf("%s >= %s", f.Column, q.arg(f.Value)))
		case repository.OpLte:
			q.where(fmt.Sprintf("%s <= %s", f.Column, q.arg(f.Value)))
		case repository.OpIn:
			ids, _ := f.Value.([]uuid.UUID)
			strs := make([]string, len(ids))
			for i, id := range ids {
				strs[i] = id.String()
			}
			q.where(fmt.Sprintf("%s = ANY(%s::uuid[])", f.Column, q.arg(pq.StringArray(strs))))
		default:
			q.where(fmt.Sprintf("%s = %s", f.Column, q.arg(f.Value)))
		}
	}
}

func (q *query) clause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

func orderBy(kind model.Kind, order *repository.Order) string {
	if order == nil || len(order.Columns) == 0 {
		return kind.OrderBy()
	}
	dir := "DESC"
	if order.Direction == repository.Asc {
		dir = "ASC"
	}
	parts := make([]string, len(order.Columns))
	for i, col := range order.Columns {
		parts[i] = col + " " + dir
	}
	return strings.Join(parts, ", ")
}

func selectList(row interface{}) string {
	return strings.Join(model.Columns(row), ", ")
}
