package document

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/archviz/pkg/errors"
)

// Format is a document encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "unknown document type %q (want .toml, .yaml or .yml)", filepath.Ext(path))
}

// Document is the declarative form of a diagram.
type Document struct {
	Name      string            `toml:"name" yaml:"name" validate:"required,max=512"`
	Direction string            `toml:"direction" yaml:"direction" validate:"omitempty,direction"`
	Curve     string            `toml:"curve" yaml:"curve" validate:"omitempty,oneof=ortho curved spline polyline"`
	Filename  string            `toml:"filename" yaml:"filename" validate:"omitempty,filename"`
	Formats   []string          `toml:"formats" yaml:"formats" validate:"dive,format"`
	Show      bool              `toml:"show" yaml:"show"`
	GraphAttr map[string]string `toml:"graph_attr" yaml:"graph_attr" validate:"omitempty,dive,keys,attrkey,endkeys"`
	NodeAttr  map[string]string `toml:"node_attr" yaml:"node_attr" validate:"omitempty,dive,keys,attrkey,endkeys"`
	EdgeAttr  map[string]string `toml:"edge_attr" yaml:"edge_attr" validate:"omitempty,dive,keys,attrkey,endkeys"`
	Nodes     []Node            `toml:"nodes" yaml:"nodes" validate:"dive"`
	Clusters  []Cluster         `toml:"clusters" yaml:"clusters" validate:"dive"`
	Edges     []Edge            `toml:"edges" yaml:"edges" validate:"dive"`
}

// Node declares a leaf. Label defaults to ID.
type Node struct {
	ID       string            `toml:"id" yaml:"id" validate:"required"`
	Label    string            `toml:"label" yaml:"label" validate:"max=512"`
	Category string            `toml:"category" yaml:"category" validate:"required"`
	Icon     string            `toml:"icon" yaml:"icon" validate:"required"`
	Attrs    map[string]string `toml:"attrs" yaml:"attrs" validate:"omitempty,dive,keys,attrkey,endkeys"`
}

// Cluster declares a group. ID is only needed when edges refer to the
// cluster itself; Representative names a node inside it.
type Cluster struct {
	ID             string            `toml:"id" yaml:"id"`
	Label          string            `toml:"label" yaml:"label" validate:"required,max=512"`
	Direction      string            `toml:"direction" yaml:"direction" validate:"omitempty,direction"`
	Representative string            `toml:"representative" yaml:"representative"`
	Attrs          map[string]string `toml:"attrs" yaml:"attrs" validate:"omitempty,dive,keys,attrkey,endkeys"`
	Nodes          []Node            `toml:"nodes" yaml:"nodes" validate:"dive"`
	Clusters       []Cluster         `toml:"clusters" yaml:"clusters" validate:"dive"`
}

// Edge connects two ids.
type Edge struct {
	From      string            `toml:"from" yaml:"from" validate:"required"`
	To        string            `toml:"to" yaml:"to" validate:"required"`
	Label     string            `toml:"label" yaml:"label"`
	Style     string            `toml:"style" yaml:"style" validate:"omitempty,oneof=solid dashed dotted bold"`
	Color     string            `toml:"color" yaml:"color"`
	FontColor string            `toml:"font_color" yaml:"font_color"`
	Arrow     string            `toml:"arrow" yaml:"arrow" validate:"omitempty,oneof=forward back both none"`
	Attrs     map[string]string `toml:"attrs" yaml:"attrs" validate:"omitempty,dive,keys,attrkey,endkeys"`
}

// Parse decodes and validates a document. Unknown keys are rejected.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidDocument, err, "decode TOML")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errs.New(errs.ErrCodeInvalidDocument, "unknown key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidDocument, err, "decode YAML")
		}
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unknown document format %q", format)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses the document at path, choosing the encoding from
// the extension.
func Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.New(errs.ErrCodeFileNotFound, "document not found: %s", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidDocument, err, "read %s", path)
	}
	doc, err := Parse(data, format)
	if err != nil {
		return nil, errs.Wrap(errs.GetCode(err), err, "%s", path)
	}
	return doc, nil
}
