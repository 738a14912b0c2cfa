package compiler

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// hashLen is the length of the "_xxxxxxxx" tag appended to truncated or
// colliding aliases.
const hashLen = 9

// AliasManager assigns SQL table aliases to navigation paths. Equal paths
// get equal aliases, different paths get different aliases, and no alias
// exceeds the configured maximum length.
//
// An AliasManager is not safe for concurrent use; the compiler creates one
// per compilation.
type AliasManager struct {
	prefix    string
	suffix    string
	maxLength int

	aliases    map[string]string
	joinTables map[string]string
	owners     map[string]string
}

// NewAliasManager returns an AliasManager decorating aliases with prefix
// and suffix. A maxLength of zero means unlimited. A positive maxLength
// below MinAliasLength(prefix, suffix) is raised to that minimum, the
// shortest limit that still leaves room for a hash tag.
func NewAliasManager(prefix, suffix string, maxLength int) *AliasManager {
	if maxLength > 0 {
		maxLength = max(maxLength, MinAliasLength(prefix, suffix))
	}
	m := &AliasManager{prefix: prefix, suffix: suffix, maxLength: maxLength}
	m.Reset()
	return m
}

// MinAliasLength is the smallest usable length limit for aliases
// decorated with prefix and suffix: the decoration, one body character
// and the hash tag.
func MinAliasLength(prefix, suffix string) int {
	return len(prefix) + len(suffix) + 1 + hashLen
}

// MaxLength returns the effective length limit, zero when unlimited.
func (m *AliasManager) MaxLength() int { return m.maxLength }

// Reset forgets every assigned alias.
func (m *AliasManager) Reset() {
	m.aliases = make(map[string]string)
	m.joinTables = make(map[string]string)
	m.owners = make(map[string]string)
}

// Alias returns the alias of path.
func (m *AliasManager) Alias(path string) string {
	key := normalizePath(path)
	if a, ok := m.aliases[key]; ok {
		return a
	}
	a := m.assign(key, sanitize(key))
	m.aliases[key] = a
	return a
}

// JoinTableAlias returns the alias of the join table instance that links
// the relationship ending path to its parent.
func (m *AliasManager) JoinTableAlias(path string) string {
	key := normalizePath(path)
	if a, ok := m.joinTables[key]; ok {
		return a
	}
	a := m.assign(key+"#jt", sanitize(key)+"_jt")
	m.joinTables[key] = a
	return a
}

// Bind makes path resolve to alias. It is used when a declared variable
// ranges over path, so navigation through path reuses the variable's
// table instance.
func (m *AliasManager) Bind(path, alias string) {
	key := normalizePath(path)
	m.aliases[key] = alias
	if _, taken := m.owners[alias]; !taken {
		m.owners[alias] = key
	}
}

func (m *AliasManager) assign(owner, body string) string {
	alias := m.fit(owner, body, 0)
	for n := 1; ; n++ {
		if o, taken := m.owners[alias]; !taken || o == owner {
			break
		}
		alias = m.fit(owner, body, n)
	}
	m.owners[alias] = owner
	return alias
}

// fit decorates body and keeps it within the length limit. Attempt 0
// uses the plain body when it fits; later attempts always carry a hash
// tag, salted from attempt 2 on.
func (m *AliasManager) fit(owner, body string, attempt int) string {
	plain := m.prefix + body + m.suffix
	if attempt == 0 && (m.maxLength == 0 || len(plain) <= m.maxLength) {
		return plain
	}
	seed := owner
	if attempt > 1 {
		seed += "#" + strconv.Itoa(attempt)
	}
	tag := "_" + hash(seed)
	if m.maxLength > 0 {
		room := m.maxLength - len(m.prefix) - len(m.suffix) - len(tag)
		if room < 0 {
			room = 0
		}
		if len(body) > room {
			body = body[:room]
		}
	}
	return m.prefix + body + tag + m.suffix
}

func hash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// normalizePath trims every segment and lower-cases the identification
// variable, which is case insensitive in the query language.
func normalizePath(path string) string {
	segs := strings.Split(path, ".")
	for i := range segs {
		segs[i] = strings.TrimSpace(segs[i])
	}
	segs[0] = strings.ToLower(segs[0])
	return strings.Join(segs, ".")
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// sanitize reduces s to characters legal in an unquoted identifier.
func sanitize(s string) string {
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
