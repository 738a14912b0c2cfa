package managers

import "github.com/wildfly/cmpql/nodes"

// JoinContext is returned by QueryManager.Join() and requires the new
// variable to be named via As() before continuing to build the query.
type JoinContext struct {
	manager *QueryManager
	path    *nodes.Path
}

// As declares IN(path) v and returns the QueryManager for continued
// method chaining.
func (jc *JoinContext) As(v string) *QueryManager {
	jc.manager.Query.From = append(jc.manager.Query.From, nodes.Collection(jc.path, v))
	return jc.manager
}
