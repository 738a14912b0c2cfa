package opa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/wildfly/cmpql/nodes"
)

// ErrAccessDenied is returned when a policy yields no way to satisfy it.
var ErrAccessDenied = errors.New("opa: access denied")

// likeEscape is the ESCAPE character of the LIKE patterns built from
// startswith, endswith and contains.
const likeEscape = "!"

// Client communicates with an OPA server's Compile API.
type Client struct {
	baseURL    string
	policyPath string
	input      map[string]any
	httpClient *http.Client
}

// NewClient creates an OPA Client with the given base URL, policy path, and input.
// The policy path is normalized to include the "data." prefix if not already present.
func NewClient(baseURL, policyPath string, input map[string]any) *Client {
	if !strings.HasPrefix(policyPath, "data.") {
		policyPath = "data." + policyPath
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		policyPath: policyPath,
		input:      input,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) postJSON(ctx context.Context, path string, reqBody []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// --- Compile API ---

type compileRequest struct {
	Query    string   `json:"query"`
	Input    any      `json:"input,omitempty"`
	Unknowns []string `json:"unknowns"`
}

type compileResponse struct {
	Result struct {
		Queries [][]compileExpression `json:"queries"`
	} `json:"result"`
}

type compileExpression struct {
	Index int           `json:"index"`
	Terms []compileTerm `json:"terms"`
}

type compileTerm struct {
	Type  string
	Value any // string, int64, float64, bool, nil or []compileTerm
}

// UnmarshalJSON decodes Value according to Type.
func (ct *compileTerm) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ct.Type = raw.Type

	switch raw.Type {
	case "string", "var":
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("opa: %s term: %w", raw.Type, err)
		}
		ct.Value = s
	case "number":
		var f float64
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return fmt.Errorf("opa: number term: %w", err)
		}
		if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
			ct.Value = int64(f)
		} else {
			ct.Value = f
		}
	case "boolean":
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return fmt.Errorf("opa: boolean term: %w", err)
		}
		ct.Value = b
	case "null":
		ct.Value = nil
	case "ref":
		var terms []compileTerm
		if err := json.Unmarshal(raw.Value, &terms); err != nil {
			return fmt.Errorf("opa: ref term: %w", err)
		}
		ct.Value = terms
	default:
		return fmt.Errorf("opa: unknown term type %q", raw.Type)
	}
	return nil
}

// Compile asks the server for the residual policy over data.<entity> and
// translates it into conditions on the identification variable v.
// An unconditional allow yields no conditions; a policy that can never
// hold yields ErrAccessDenied.
func (c *Client) Compile(ctx context.Context, entity, v string) ([]nodes.Node, error) {
	resp, err := c.compile(ctx, c.input, "data."+entity)
	if err != nil {
		return nil, err
	}
	conds, err := translateQueries(resp.Result.Queries, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entity, err)
	}
	return conds, nil
}

func (c *Client) compile(ctx context.Context, input any, unknowns ...string) (*compileResponse, error) {
	data, err := json.Marshal(compileRequest{
		Query:    c.policyPath + " == true",
		Input:    input,
		Unknowns: unknowns,
	})
	if err != nil {
		return nil, fmt.Errorf("opa: encoding compile request: %w", err)
	}
	body, err := c.postJSON(ctx, "/v1/compile", data)
	if err != nil {
		return nil, fmt.Errorf("opa: compile request failed: %w", err)
	}
	var resp compileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("opa: parsing compile response: %w", err)
	}
	return &resp, nil
}

// DiscoverInputs compiles the policy with the whole input unknown and
// returns the sorted dot-paths of the input fields it references. Extra
// unknowns such as "data.Order" make rules over those documents
// contribute their inputs too.
func (c *Client) DiscoverInputs(ctx context.Context, dataUnknowns ...string) ([]string, error) {
	resp, err := c.compile(ctx, map[string]any{}, append([]string{"input"}, dataUnknowns...)...)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, query := range resp.Result.Queries {
		for _, expr := range query {
			for _, term := range expr.Terms {
				if path, ok := inputRefPath(term); ok {
					seen[path] = true
				}
			}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths, nil
}

// --- Translation ---

// refParts returns the elements of a ref term whose head is var head.
func refParts(term compileTerm, head string) ([]compileTerm, bool) {
	if term.Type != "ref" {
		return nil, false
	}
	parts, ok := term.Value.([]compileTerm)
	if !ok || len(parts) == 0 || parts[0].Type != "var" {
		return nil, false
	}
	name, ok := parts[0].Value.(string)
	return parts, ok && name == head
}

func isDataRef(term compileTerm) bool {
	_, ok := refParts(term, "data")
	return ok
}

func extractOperator(term compileTerm) (string, error) {
	if term.Type != "ref" {
		return "", fmt.Errorf("opa: operator term must be ref, got %s", term.Type)
	}
	parts, ok := term.Value.([]compileTerm)
	if !ok || len(parts) == 0 {
		return "", errors.New("opa: operator ref has no parts")
	}
	if parts[0].Type != "var" {
		return "", fmt.Errorf("opa: operator ref[0] must be var, got %s", parts[0].Type)
	}
	name, ok := parts[0].Value.(string)
	if !ok {
		return "", errors.New("opa: operator var value is not a string")
	}
	return name, nil
}

// extractField returns the field a data ref points at: the string
// elements after data.<entity>, joined into a path so embedded values
// ("address.city") survive.
func extractField(term compileTerm) (string, error) {
	parts, _ := refParts(term, "data")
	var segments []string
	for _, p := range parts[1:] {
		if p.Type != "string" {
			continue
		}
		if s, ok := p.Value.(string); ok {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return "", errors.New("opa: data ref does not name a field")
	}
	return strings.Join(segments[1:], "."), nil
}

func inputRefPath(term compileTerm) (string, bool) {
	parts, ok := refParts(term, "input")
	if !ok || len(parts) < 2 {
		return "", false
	}
	segments := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		s, ok := p.Value.(string)
		if p.Type != "string" || !ok {
			return "", false
		}
		segments = append(segments, s)
	}
	return strings.Join(segments, "."), true
}

func literal(val any) (nodes.Node, error) {
	switch x := val.(type) {
	case string:
		return nodes.Str(x), nil
	case int64:
		return nodes.Int(x), nil
	case float64:
		return nodes.Float(x), nil
	case bool:
		return nodes.Bool(x), nil
	}
	return nil, fmt.Errorf("opa: unsupported value %v (%T)", val, val)
}

func likePattern(op string, val any) (nodes.Node, error) {
	s, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("opa: %s requires string value, got %T", op, val)
	}
	s = escapeLike(s)
	switch op {
	case "startswith":
		s += "%"
	case "endswith":
		s = "%" + s
	default:
		s = "%" + s + "%"
	}
	return nodes.Str(s), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

// translateExpression converts one residual expression into a condition
// on variable v. OPA does not guarantee operand order, so the data ref is
// found by type.
func translateExpression(expr compileExpression, v string) (nodes.Node, error) {
	if len(expr.Terms) < 3 {
		return nil, fmt.Errorf("opa: expression has %d terms, need at least 3", len(expr.Terms))
	}
	op, err := extractOperator(expr.Terms[0])
	if err != nil {
		return nil, err
	}

	var field, val compileTerm
	switch {
	case isDataRef(expr.Terms[1]):
		field, val = expr.Terms[1], expr.Terms[2]
	case isDataRef(expr.Terms[2]):
		field, val = expr.Terms[2], expr.Terms[1]
	default:
		return nil, errors.New("opa: expression has no data ref term")
	}
	name, err := extractField(field)
	if err != nil {
		return nil, err
	}
	path := nodes.P(v + "." + name)

	switch op {
	case "startswith", "endswith", "contains":
		pattern, err := likePattern(op, val.Value)
		if err != nil {
			return nil, err
		}
		return &nodes.Like{Expr: path, Pattern: pattern, Escape: nodes.Str(likeEscape)}, nil
	}

	if val.Value == nil && val.Type == "null" {
		switch op {
		case "eq", "equal":
			return path.IsNull(), nil
		case "neq":
			return path.IsNotNull(), nil
		}
	}
	lit, err := literal(val.Value)
	if err != nil {
		return nil, err
	}
	switch op {
	case "eq", "equal":
		return path.Eq(lit), nil
	case "neq":
		return path.NotEq(lit), nil
	case "lt":
		return path.Lt(lit), nil
	case "lte":
		return path.LtEq(lit), nil
	case "gt":
		return path.Gt(lit), nil
	case "gte":
		return path.GtEq(lit), nil
	}
	return nil, fmt.Errorf("opa: unsupported operator %q", op)
}

// translateQueries converts a residual query set into conditions on v.
//
//   - no queries: access denied
//   - one empty query (or any empty query among several): unconditional allow
//   - one query: its expressions, ANDed by the caller
//   - several queries: each ANDed internally, then ORed together
func translateQueries(queries [][]compileExpression, v string) ([]nodes.Node, error) {
	if len(queries) == 0 {
		return nil, ErrAccessDenied
	}
	groups := make([]nodes.Node, 0, len(queries))
	for _, query := range queries {
		if len(query) == 0 {
			return nil, nil
		}
		conds := make([]nodes.Node, 0, len(query))
		for _, expr := range query {
			n, err := translateExpression(expr, v)
			if err != nil {
				return nil, err
			}
			conds = append(conds, n)
		}
		if len(queries) == 1 {
			return conds, nil
		}
		groups = append(groups, nodes.AndOf(conds...))
	}
	return []nodes.Node{nodes.Group(nodes.OrOf(groups...))}, nil
}
