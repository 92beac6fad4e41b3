// Package typemap maps source column type codes to OpenAPI primitive types and formats.
//
// Two vocabularies are understood: JDBC type codes as stored by SQL Power Architect
// ("12", "4", "93", ...) and vendor type names as reported by live databases
// ("varchar(255)", "timestamp with time zone", "jsonb", ...).
package typemap

import (
	"strings"
)

// Invalid is the type reported for an unmapped code. It never reaches a projector.
const Invalid = "INVALID"

// Mapping is a target primitive type with an optional format
type Mapping struct {
	Type   string
	Format string
}

var (
	str       = Mapping{Type: "string"}
	integer   = Mapping{Type: "integer"}
	number    = Mapping{Type: "number"}
	boolean   = Mapping{Type: "boolean"}
	date      = Mapping{Type: "string", Format: "date"}
	dateTime  = Mapping{Type: "string", Format: "date-time"}
	timestamp = Mapping{Type: "string", Format: "timestamp"}
	binary    = Mapping{Type: "string", Format: "binary"}
	jsonValue = Mapping{Type: "string", Format: "json"}
	uuid      = Mapping{Type: "string", Format: "uuid"}
)

var jdbcCodes = map[string]Mapping{
	"1":    str,       // CHAR
	"12":   str,       // VARCHAR
	"-1":   str,       // LONGVARCHAR
	"-9":   str,       // NVARCHAR
	"-15":  str,       // NCHAR
	"2005": str,       // CLOB
	"4":    integer,   // INTEGER
	"-5":   integer,   // BIGINT
	"5":    integer,   // SMALLINT
	"-6":   integer,   // TINYINT
	"2":    number,    // NUMERIC
	"3":    number,    // DECIMAL
	"6":    number,    // FLOAT
	"7":    number,    // REAL
	"8":    number,    // DOUBLE
	"16":   boolean,   // BOOLEAN
	"-7":   boolean,   // BIT
	"91":   date,      // DATE
	"92":   dateTime,  // TIME
	"93":   timestamp, // TIMESTAMP
	"2000": jsonValue, // JAVA_OBJECT
	"-2":   binary,    // BINARY
	"-3":   binary,    // VARBINARY
	"-4":   binary,    // LONGVARBINARY
	"2004": binary,    // BLOB
}

var typeNames = map[string]Mapping{
	"text":                        str,
	"varchar":                     str,
	"character varying":           str,
	"char":                        str,
	"character":                   str,
	"nvarchar":                    str,
	"nchar":                       str,
	"ntext":                       str,
	"tinytext":                    str,
	"mediumtext":                  str,
	"longtext":                    str,
	"clob":                        str,
	"enum":                        str,
	"set":                         str,
	"citext":                      str,
	"boolean":                     boolean,
	"bool":                        boolean,
	"bit":                         boolean,
	"integer":                     integer,
	"int":                         integer,
	"int2":                        integer,
	"int4":                        integer,
	"int8":                        integer,
	"smallint":                    integer,
	"tinyint":                     integer,
	"mediumint":                   integer,
	"bigint":                      integer,
	"serial":                      integer,
	"bigserial":                   integer,
	"numeric":                     number,
	"decimal":                     number,
	"real":                        number,
	"float":                       number,
	"float4":                      number,
	"float8":                      number,
	"double":                      number,
	"double precision":            number,
	"money":                       number,
	"datetime":                    dateTime,
	"datetime2":                   dateTime,
	"datetimeoffset":              dateTime,
	"time":                        dateTime,
	"time without time zone":      dateTime,
	"time with time zone":         dateTime,
	"date":                        date,
	"timestamp":                   timestamp,
	"timestamp without time zone": timestamp,
	"timestamp with time zone":    timestamp,
	"timestamptz":                 timestamp,
	"json":                        jsonValue,
	"jsonb":                       jsonValue,
	"uuid":                        uuid,
	"uniqueidentifier":            uuid,
	"bytea":                       binary,
	"blob":                        binary,
	"binary":                      binary,
	"varbinary":                   binary,
	"image":                       binary,
}

// Map returns the target mapping for a source type code.
// The second result is false when the code is not supported; the mapping is then {Type: Invalid}.
func Map(code string) (Mapping, bool) {
	key := normalize(code)
	if m, ok := jdbcCodes[key]; ok {
		return m, true
	}
	if m, ok := typeNames[key]; ok {
		return m, true
	}
	return Mapping{Type: Invalid}, false
}

// normalize lowercases a type name and drops length/precision arguments and array markers
func normalize(code string) string {
	s := strings.ToLower(strings.TrimSpace(code))
	if i := strings.Index(s, "("); i >= 0 {
		rest := ""
		if j := strings.Index(s[i:], ")"); j >= 0 {
			rest = s[i+j+1:]
		}
		s = strings.TrimSpace(s[:i]) + rest
	}
	s = strings.TrimSuffix(s, "[]")
	s = strings.TrimSuffix(s, " unsigned")
	return strings.Join(strings.Fields(s), " ")
}
