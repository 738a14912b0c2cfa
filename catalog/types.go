package catalog

import (
	"fmt"
	"strings"
)

// Kind classifies the declared type of a field, column or argument.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindInteger
	KindLong
	KindDouble
	KindDecimal
	KindBoolean
	KindDate
	KindTime
	KindTimestamp
	KindBytes
	KindEntity
	KindValue
)

var kindNames = [...]string{
	KindUnknown:   "unknown",
	KindString:    "string",
	KindInteger:   "integer",
	KindLong:      "long",
	KindDouble:    "double",
	KindDecimal:   "decimal",
	KindBoolean:   "boolean",
	KindDate:      "date",
	KindTime:      "time",
	KindTimestamp: "timestamp",
	KindBytes:     "bytes",
	KindEntity:    "entity",
	KindValue:     "value",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Numeric reports whether values of k take part in arithmetic.
func (k Kind) Numeric() bool {
	switch k {
	case KindInteger, KindLong, KindDouble, KindDecimal:
		return true
	}
	return false
}

// Temporal reports whether k is a date or time kind.
func (k Kind) Temporal() bool {
	return k == KindDate || k == KindTime || k == KindTimestamp
}

// Type is a declared type. Name carries the entity or value class name
// for KindEntity and KindValue.
type Type struct {
	Kind Kind
	Name string
}

// Common scalar types.
var (
	Unknown   = Type{Kind: KindUnknown}
	String    = Type{Kind: KindString}
	Integer   = Type{Kind: KindInteger}
	Long      = Type{Kind: KindLong}
	Double    = Type{Kind: KindDouble}
	Decimal   = Type{Kind: KindDecimal}
	Boolean   = Type{Kind: KindBoolean}
	Date      = Type{Kind: KindDate}
	Time      = Type{Kind: KindTime}
	Timestamp = Type{Kind: KindTimestamp}
	Bytes     = Type{Kind: KindBytes}
)

// EntityType is the type of a reference to the named entity.
func EntityType(name string) Type { return Type{Kind: KindEntity, Name: name} }

// ValueType is the type of the named composite value class.
func ValueType(name string) Type { return Type{Kind: KindValue, Name: name} }

func (t Type) String() string {
	switch t.Kind {
	case KindEntity, KindValue:
		return t.Kind.String() + ":" + t.Name
	}
	return t.Kind.String()
}

// Scalar reports whether t maps to a single column.
func (t Type) Scalar() bool {
	return t.Kind != KindEntity && t.Kind != KindValue && t.Kind != KindUnknown
}

// Comparable reports whether values of t and u may be compared.
func (t Type) Comparable(u Type) bool {
	switch {
	case t.Kind.Numeric() && u.Kind.Numeric():
		return true
	case t.Kind.Temporal() && u.Kind.Temporal():
		return true
	case t.Kind == KindEntity || t.Kind == KindValue:
		return t == u
	}
	return t.Kind == u.Kind
}

// ParseType parses the textual form used in catalog documents and on the
// command line: a kind name, "entity:<Name>" or "value:<Name>".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if kind, name, ok := strings.Cut(s, ":"); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return Unknown, fmt.Errorf("catalog: type %q has an empty name", s)
		}
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "entity":
			return EntityType(name), nil
		case "value":
			return ValueType(name), nil
		}
		return Unknown, fmt.Errorf("catalog: unknown type %q", s)
	}
	switch strings.ToLower(s) {
	case "string", "varchar", "text":
		return String, nil
	case "integer", "int":
		return Integer, nil
	case "long", "bigint":
		return Long, nil
	case "double", "float":
		return Double, nil
	case "decimal", "numeric":
		return Decimal, nil
	case "boolean", "bool":
		return Boolean, nil
	case "date":
		return Date, nil
	case "time":
		return Time, nil
	case "timestamp", "datetime":
		return Timestamp, nil
	case "bytes", "blob":
		return Bytes, nil
	}
	return Unknown, fmt.Errorf("catalog: unknown type %q", s)
}

// SQLType is a JDBC-style SQL type code reported for every bound
// parameter.
type SQLType int

const (
	SQLOther     SQLType = 1111
	SQLVarchar   SQLType = 12
	SQLInteger   SQLType = 4
	SQLBigint    SQLType = -5
	SQLDouble    SQLType = 8
	SQLDecimal   SQLType = 3
	SQLBoolean   SQLType = 16
	SQLDate      SQLType = 91
	SQLTime      SQLType = 92
	SQLTimestamp SQLType = 93
	SQLBlob      SQLType = 2004
)

// SQLType returns the SQL type code for k.
func (k Kind) SQLType() SQLType {
	switch k {
	case KindString:
		return SQLVarchar
	case KindInteger:
		return SQLInteger
	case KindLong:
		return SQLBigint
	case KindDouble:
		return SQLDouble
	case KindDecimal:
		return SQLDecimal
	case KindBoolean:
		return SQLBoolean
	case KindDate:
		return SQLDate
	case KindTime:
		return SQLTime
	case KindTimestamp:
		return SQLTimestamp
	case KindBytes:
		return SQLBlob
	}
	return SQLOther
}

func (t SQLType) String() string {
	switch t {
	case SQLVarchar:
		return "VARCHAR"
	case SQLInteger:
		return "INTEGER"
	case SQLBigint:
		return "BIGINT"
	case SQLDouble:
		return "DOUBLE"
	case SQLDecimal:
		return "DECIMAL"
	case SQLBoolean:
		return "BOOLEAN"
	case SQLDate:
		return "DATE"
	case SQLTime:
		return "TIME"
	case SQLTimestamp:
		return "TIMESTAMP"
	case SQLBlob:
		return "BLOB"
	}
	return "OTHER"
}
