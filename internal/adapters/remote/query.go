package remote

import (
	"fmt"
	"net/url"
	"strings"
)

// Query builds the filter portion of a resource URL using the store's
// operator syntax (column=op.value). The zero value selects everything.
type Query struct {
	params []string
}

// NewQuery returns a query selecting all columns.
func NewQuery() Query {
	return Query{}.Select("*")
}

func (q Query) add(key, value string) Query {
	q.params = append(q.params, key+"="+url.QueryEscape(value))
	return q
}

// Select restricts the returned columns.
func (q Query) Select(columns string) Query {
	return q.add("select", columns)
}

// Eq filters rows where column equals value.
func (q Query) Eq(column string, value interface{}) Query {
	return q.add(column, fmt.Sprintf("eq.%v", value))
}

// Neq filters rows where column does not equal value.
func (q Query) Neq(column string, value interface{}) Query {
	return q.add(column, fmt.Sprintf("neq.%v", value))
}

// Lt filters rows where column is strictly less than value.
func (q Query) Lt(column string, value interface{}) Query {
	return q.add(column, fmt.Sprintf("lt.%v", value))
}

// Lte filters rows where column is less than or equal to value.
func (q Query) Lte(column string, value interface{}) Query {
	return q.add(column, fmt.Sprintf("lte.%v", value))
}

// Gte filters rows where column is greater than or equal to value.
func (q Query) Gte(column string, value interface{}) Query {
	return q.add(column, fmt.Sprintf("gte.%v", value))
}

// Order sorts by column; desc reverses.
func (q Query) Order(column string, desc bool) Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	return q.add("order", column+"."+dir)
}

// Limit caps the number of returned rows.
func (q Query) Limit(n int) Query {
	return q.add("limit", fmt.Sprintf("%d", n))
}

// Encode renders the query string without a leading "?".
func (q Query) Encode() string {
	return strings.Join(q.params, "&")
}
