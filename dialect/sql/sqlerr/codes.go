package sqlerr

import (
	"strconv"

	"github.com/syssam/sqlbind/dialect"

	sqlite3 "modernc.org/sqlite/lib"
)

// class is the translation of one native code.
type class struct {
	kind       Kind
	constraint ConstraintType
}

// codeTable maps the native codes of one dialect.
type codeTable struct {
	codes map[string]class
	// primary, if set, maps an extended code to its primary code
	// (SQLite extended result codes).
	primary func(code string) (string, bool)
}

func (t *codeTable) lookup(code string) (class, bool) {
	if t == nil || code == "" {
		return class{}, false
	}
	if c, ok := t.codes[code]; ok {
		return c, true
	}
	if t.primary != nil {
		if p, ok := t.primary(code); ok {
			c, ok := t.codes[p]
			return c, ok
		}
	}
	return class{}, false
}

// group builds a code table from codes grouped by class.
func group(groups map[class][]string) map[string]class {
	m := make(map[string]class)
	for c, codes := range groups {
		for _, code := range codes {
			m[code] = c
		}
	}
	return m
}

var (
	unique     = class{ConstraintViolation, Unique}
	foreignKey = class{ConstraintViolation, ForeignKey}
	check      = class{ConstraintViolation, Check}
	notNull    = class{ConstraintViolation, NotNull}
	constraint = class{kind: ConstraintViolation}
	data       = class{kind: DataError}
	conn       = class{kind: Connectivity}
	auth       = class{kind: Authorization}
	timeout    = class{kind: Timeout}
	grammar    = class{kind: BadGrammar}
)

func itoa(codes ...int) []string {
	s := make([]string, len(codes))
	for i, c := range codes {
		s[i] = strconv.Itoa(c)
	}
	return s
}

// tables holds the code tables by dialect name.
var tables = map[string]*codeTable{
	// PostgreSQL reports SQLSTATE codes. Only codes that differ from
	// their SQLSTATE class are listed, the rest is resolved by class.
	dialect.Postgres: {codes: group(map[class][]string{
		auth:    {"42501"},
		timeout: {"57014", "55P03", "40P01", "40001"},
		conn:    {"57P01", "57P02", "57P03", "53300"},
	})},
	dialect.MySQL: {codes: group(map[class][]string{
		unique:     itoa(1062, 1586, 1022),
		foreignKey: itoa(1451, 1452, 1216, 1217),
		check:      itoa(3819),
		notNull:    itoa(1048, 1364),
		data:       itoa(1406, 1264, 1366, 1292, 1265, 1365),
		auth:       itoa(1044, 1045, 1142, 1143, 1227, 1370),
		timeout:    itoa(1205, 1213, 3024, 1317, 3572),
		conn:       itoa(1040, 1053, 1129, 1152, 1159, 1160, 1161, 2002, 2003, 2006, 2013),
		grammar:    itoa(1064, 1146, 1054, 1149, 1052),
	})},
	dialect.SQLite: {
		codes: group(map[class][]string{
			unique:     itoa(sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY),
			foreignKey: itoa(sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY),
			check:      itoa(sqlite3.SQLITE_CONSTRAINT_CHECK),
			notNull:    itoa(sqlite3.SQLITE_CONSTRAINT_NOTNULL),
			constraint: itoa(sqlite3.SQLITE_CONSTRAINT),
			data:       itoa(sqlite3.SQLITE_TOOBIG, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_RANGE),
			auth:       itoa(sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH, sqlite3.SQLITE_READONLY),
			timeout:    itoa(sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_INTERRUPT),
			conn:       itoa(sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR),
		}),
		// Extended result codes carry the primary code in the low byte.
		primary: func(code string) (string, bool) {
			n, err := strconv.Atoi(code)
			if err != nil || n <= 0xff {
				return "", false
			}
			return strconv.Itoa(n & 0xff), true
		},
	},
	// H2 error codes mostly equal their SQLSTATE.
	dialect.H2: {codes: group(map[class][]string{
		unique:     {"23505", "23001"},
		foreignKey: {"23506", "23503", "23002", "23003"},
		check:      {"23513", "23514"},
		notNull:    {"23502"},
		data:       {"22001", "22003", "22018", "22007"},
		auth:       {"28000", "90096"},
		timeout:    {"50200", "57014", "40001"},
		conn:       {"90067", "90013", "90020"},
	})},
	dialect.SQLServer: {codes: group(map[class][]string{
		unique:     itoa(2627, 2601),
		constraint: itoa(547),
		notNull:    itoa(515),
		data:       itoa(8152, 2628, 245, 8114, 8115, 220, 241),
		auth:       itoa(229, 230, 262, 297, 300, 18456),
		timeout:    itoa(1205, 1222, -2),
		conn:       itoa(233, 4060, 10053, 10054, 10060, 40197, 40501, 40613),
		grammar:    itoa(102, 156, 207, 208, 2812),
	})},
	// Oracle codes are the ORA-nnnnn numbers.
	dialect.Oracle: {codes: group(map[class][]string{
		unique:     itoa(1),
		foreignKey: itoa(2291, 2292),
		check:      itoa(2290),
		notNull:    itoa(1400, 1407),
		data:       itoa(12899, 1438, 1722, 1840, 1841, 1401),
		auth:       itoa(1031, 1017, 1045),
		timeout:    itoa(60, 51, 30006, 1013),
		conn:       itoa(3113, 3114, 3135, 12170, 12514, 12541, 12543),
		grammar:    itoa(900, 904, 933, 936, 942),
	})},
}

// sqlStates maps exact SQLSTATE values that refine their class.
var sqlStates = map[string]class{
	"23505": unique,
	"23503": foreignKey,
	"23514": check,
	"23502": notNull,
	"42501": auth,
	"40001": timeout,
	"40P01": timeout,
	"57014": timeout,
	"HYT00": timeout,
	"HYT01": timeout,
}

// sqlStateClasses maps the first two characters of a SQLSTATE.
var sqlStateClasses = map[string]class{
	"08": conn,
	"22": data,
	"23": constraint,
	"28": auth,
	"40": timeout,
	"42": grammar,
	"53": conn,
	"57": conn,
}

func lookupSQLState(state string) (class, bool) {
	if len(state) != 5 {
		return class{}, false
	}
	if c, ok := sqlStates[state]; ok {
		return c, true
	}
	c, ok := sqlStateClasses[state[:2]]
	return c, ok
}
