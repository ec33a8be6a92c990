package mapping

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// NamingStrategy derives table and column names from Go names.
type NamingStrategy interface {
	// TableName returns the table name of a struct type name.
	TableName(typeName string) string
	// ColumnName returns the column name of a struct field name.
	ColumnName(fieldName string) string
}

var rules = ruleset()

// acronyms are the initialisms kept in one piece by the naming rules.
var acronyms = []string{
	"ACL", "API", "ASCII", "AWS", "CPU", "CSS", "DNS", "EOF", "GB", "GUID",
	"HCL", "HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "KB", "LHS", "MAC",
	"MB", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP", "SQL", "SSH", "SSO",
	"TCP", "TLS", "TTL", "UDP", "UI", "UID", "URI", "URL", "UTF8", "UUID",
	"VM", "XML", "XMPP", "XSRF", "XSS",
}

func ruleset() *inflect.Ruleset {
	rules := inflect.NewDefaultRuleset()
	for _, w := range acronyms {
		rules.AddAcronym(w)
	}
	return rules
}

// snake converts the given struct or field name into a snake_case.
//
//	Username => username
//	FullName => full_name
//	HTTPCode => http_code
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is uppercase,
		// and previous is lowercase (cases like: "UserInfo"), or next letter is also
		// a lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

type snakeCase struct{}

func (snakeCase) TableName(name string) string {
	return snake(rules.Pluralize(name))
}

func (snakeCase) ColumnName(name string) string {
	return snake(name)
}

type singular struct{}

func (singular) TableName(name string) string {
	return snake(rules.Singularize(name))
}

func (singular) ColumnName(name string) string {
	return snake(name)
}

var (
	// SnakeCase maps type names to plural snake_case table names, and field
	// names to snake_case columns: UserAccount => user_accounts,
	// CreatedAt => created_at.
	SnakeCase NamingStrategy = snakeCase{}
	// Singular is like SnakeCase, but keeps table names singular.
	Singular NamingStrategy = singular{}
)

// NamingStrategyOf returns the naming strategy with the given name:
// "snake_case" (the default when name is empty) or "singular".
func NamingStrategyOf(name string) (NamingStrategy, bool) {
	switch name {
	case "", "snake_case":
		return SnakeCase, true
	case "singular":
		return Singular, true
	default:
		return nil, false
	}
}
