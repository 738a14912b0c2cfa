package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type document struct {
	Entities []entityDoc `yaml:"entities"`
}

type entityDoc struct {
	Name          string              `yaml:"name"`
	Table         string              `yaml:"table"`
	PrimaryKey    []string            `yaml:"primaryKey"`
	Fields        []fieldDoc          `yaml:"fields"`
	Relationships []relationshipDoc   `yaml:"relationships"`
	LoadGroups    map[string][]string `yaml:"loadGroups"`
}

type fieldDoc struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	Column  string      `yaml:"column"`
	Columns []columnDoc `yaml:"columns"`
}

type columnDoc struct {
	Name     string `yaml:"name"`
	Property string `yaml:"property"`
	Type     string `yaml:"type"`
}

type relationshipDoc struct {
	Name       string         `yaml:"name"`
	Target     string         `yaml:"target"`
	Many       bool           `yaml:"many"`
	ForeignKey *foreignKeyDoc `yaml:"foreignKey"`
	JoinTable  *joinTableDoc  `yaml:"joinTable"`
}

type foreignKeyDoc struct {
	Owner   string    `yaml:"owner"` // "source" or "target"
	Columns []pairDoc `yaml:"columns"`
}

type pairDoc struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type joinTableDoc struct {
	Table  string       `yaml:"table"`
	Source []joinColDoc `yaml:"source"`
	Target []joinColDoc `yaml:"target"`
}

type joinColDoc struct {
	Entity string `yaml:"entity"`
	Table  string `yaml:"table"`
}

// Load decodes a YAML catalog document and validates it.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	entities := make([]*Entity, 0, len(doc.Entities))
	for _, ed := range doc.Entities {
		e, err := ed.build()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return New(entities...)
}

// LoadFile reads a YAML catalog document from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

func (ed entityDoc) build() (*Entity, error) {
	e := &Entity{
		Name:       ed.Name,
		Table:      ed.Table,
		PrimaryKey: ed.PrimaryKey,
		LoadGroups: ed.LoadGroups,
	}
	for _, fd := range ed.Fields {
		t, err := ParseType(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("catalog: entity %s field %s: %w", ed.Name, fd.Name, err)
		}
		f := &Field{Name: fd.Name, Type: t}
		if fd.Column != "" {
			f.Columns = append(f.Columns, Column{Name: fd.Column, Kind: t.Kind})
		}
		for _, cd := range fd.Columns {
			col := Column{Name: cd.Name, Property: cd.Property, Kind: t.Kind}
			switch {
			case cd.Type != "":
				ct, err := ParseType(cd.Type)
				if err != nil {
					return nil, fmt.Errorf("catalog: entity %s field %s: %w", ed.Name, fd.Name, err)
				}
				col.Kind = ct.Kind
			case !t.Scalar():
				return nil, fmt.Errorf("catalog: entity %s field %s: column %s needs a type", ed.Name, fd.Name, cd.Name)
			}
			f.Columns = append(f.Columns, col)
		}
		if len(f.Columns) == 0 && t.Scalar() {
			f.Columns = []Column{{Name: fd.Name, Kind: t.Kind}}
		}
		e.Fields = append(e.Fields, f)
	}
	for _, rd := range ed.Relationships {
		r := &Relationship{Name: rd.Name, Target: rd.Target, Many: rd.Many}
		switch {
		case rd.ForeignKey != nil && rd.JoinTable != nil:
			return nil, fmt.Errorf("catalog: entity %s relationship %s: both foreignKey and joinTable given", ed.Name, rd.Name)
		case rd.JoinTable != nil:
			r.Style = JoinTable
			r.Table = rd.JoinTable.Table
			for _, jc := range rd.JoinTable.Source {
				r.SourceKeys = append(r.SourceKeys, KeyPair{From: jc.Entity, To: jc.Table})
			}
			for _, jc := range rd.JoinTable.Target {
				r.TargetKeys = append(r.TargetKeys, KeyPair{From: jc.Entity, To: jc.Table})
			}
		case rd.ForeignKey != nil:
			r.Style = ForeignKey
			switch rd.ForeignKey.Owner {
			case "source":
				r.OwnsKey = true
			case "target":
			case "":
				r.OwnsKey = !rd.Many
			default:
				return nil, fmt.Errorf("catalog: entity %s relationship %s: unknown owner %q", ed.Name, rd.Name, rd.ForeignKey.Owner)
			}
			for _, p := range rd.ForeignKey.Columns {
				r.Keys = append(r.Keys, KeyPair{From: p.Source, To: p.Target})
			}
		default:
			return nil, fmt.Errorf("catalog: entity %s relationship %s: no mapping", ed.Name, rd.Name)
		}
		e.Relationships = append(e.Relationships, r)
	}
	return e, nil
}
