package managers

import (
	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/plugins"
)

// treeManager holds the transformer pipeline of a manager.
type treeManager struct {
	transformers []plugins.Transformer
}

// addTransformer appends a transformer plugin to the pipeline.
func (tm *treeManager) addTransformer(t plugins.Transformer) {
	tm.transformers = append(tm.transformers, t)
}

// Transformers returns the registered transformer pipeline.
func (tm *treeManager) Transformers() []plugins.Transformer {
	return tm.transformers
}

func (tm *treeManager) apply(q *nodes.Query) (*nodes.Query, error) {
	return plugins.Apply(q, tm.transformers...)
}
