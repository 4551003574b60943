// Package query builds parameterized SQL filter queries from request
// parameters. It encapsulates the count+page search pattern shared by the
// domain repositories.
package query

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
)

// ParamType defines how a search parameter is matched against its column.
type ParamType int

const (
	ParamExact  ParamType = iota // exact equality (status, priority, ids)
	ParamDate                    // date equality with optional gt/lt/ge/le prefix
	ParamString                  // case-insensitive substring match
	ParamBool                    // "true"/"false" equality
)

// ParamConfig maps a search parameter name to its database column.
type ParamConfig struct {
	Type   ParamType
	Column string
}

// Builder accumulates WHERE clauses with positional arguments.
type Builder struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

// New creates a Builder for the given table and select column list.
func New(table, cols string) *Builder {
	return &Builder{table: table, cols: cols, idx: 1}
}

// Idx returns the next available positional parameter index.
func (q *Builder) Idx() int { return q.idx }

// Add appends a raw WHERE clause fragment (without leading "AND"). The
// fragment must reference positional parameters starting at Idx().
func (q *Builder) Add(clause string, args ...interface{}) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
}

// AddExact adds an equality clause.
func (q *Builder) AddExact(column, value string) {
	q.where += fmt.Sprintf(" AND %s = $%d", column, q.idx)
	q.args = append(q.args, value)
	q.idx++
}

// AddDate adds a date clause. The value may carry a gt/lt/ge/le prefix
// ("ge2026-03-01"); a bare value means equality.
func (q *Builder) AddDate(column, value string) {
	op := "="
	for prefix, sqlOp := range map[string]string{"gt": ">", "lt": "<", "ge": ">=", "le": "<="} {
		if strings.HasPrefix(value, prefix) {
			op = sqlOp
			value = value[len(prefix):]
			break
		}
	}
	q.where += fmt.Sprintf(" AND %s %s $%d", column, op, q.idx)
	q.args = append(q.args, value)
	q.idx++
}

// AddString adds a case-insensitive substring clause.
func (q *Builder) AddString(column, value string) {
	q.where += fmt.Sprintf(" AND %s ILIKE $%d", column, q.idx)
	q.args = append(q.args, "%"+value+"%")
	q.idx++
}

// AddBool adds a boolean equality clause. Values other than "true" are false.
func (q *Builder) AddBool(column, value string) {
	q.where += fmt.Sprintf(" AND %s = $%d", column, q.idx)
	q.args = append(q.args, value == "true")
	q.idx++
}

// ApplyParam applies a single search parameter using its config.
func (q *Builder) ApplyParam(config ParamConfig, value string) {
	switch config.Type {
	case ParamDate:
		q.AddDate(config.Column, value)
	case ParamString:
		q.AddString(config.Column, value)
	case ParamBool:
		q.AddBool(config.Column, value)
	default:
		q.AddExact(config.Column, value)
	}
}

// ApplyParams applies all parameters that appear in configs; unknown names
// are ignored.
func (q *Builder) ApplyParams(params map[string]string, configs map[string]ParamConfig) {
	for name, value := range params {
		if config, ok := configs[name]; ok {
			q.ApplyParam(config, value)
		}
	}
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (q *Builder) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

// ApplySort processes a sort parameter: a comma-separated list of param
// names, each optionally prefixed with - for DESC. Names not present in
// configs are skipped; an empty result falls back to defaultOrder.
func (q *Builder) ApplySort(sortParam, defaultOrder string, configs map[string]ParamConfig) {
	if sortParam == "" {
		q.orderBy = defaultOrder
		return
	}
	var parts []string
	for _, field := range strings.Split(sortParam, ",") {
		field = strings.TrimSpace(field)
		desc := false
		if strings.HasPrefix(field, "-") {
			desc = true
			field = field[1:]
		}
		if config, ok := configs[field]; ok {
			if desc {
				parts = append(parts, config.Column+" DESC")
			} else {
				parts = append(parts, config.Column+" ASC")
			}
		}
	}
	if len(parts) > 0 {
		q.orderBy = strings.Join(parts, ", ")
	} else {
		q.orderBy = defaultOrder
	}
}

// CountSQL returns the count query SQL.
func (q *Builder) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

// CountArgs returns the arguments for the count query.
func (q *Builder) CountArgs() []interface{} {
	return q.args
}

// DataSQL returns the page query SQL with ORDER BY and LIMIT/OFFSET.
func (q *Builder) DataSQL(limit, offset int) string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

// DataArgs returns the arguments for the page query (filter args + limit + offset).
func (q *Builder) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}

// ExtractParams collects single-valued query parameters from the request,
// skipping pagination parameters (those starting with "_", plus limit/offset)
// and tenant routing. The "sort" parameter passes through; repositories feed
// it to ApplySort rather than to a filter clause.
func ExtractParams(c echo.Context) map[string]string {
	params := map[string]string{}
	for k, v := range c.QueryParams() {
		if len(v) == 0 || strings.HasPrefix(k, "_") {
			continue
		}
		switch k {
		case "limit", "offset", "tenant_id":
			continue
		}
		params[k] = v[0]
	}
	return params
}
