package document

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/archviz/pkg/diagram"
	errs "github.com/matzehuels/archviz/pkg/errors"
)

var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "direction", func(s string) bool {
		_, err := diagram.ParseDirection(s)
		return err == nil
	})
	mustRegister(v, "format", func(s string) bool {
		_, err := diagram.ParseFormat(s)
		return err == nil
	})
	mustRegister(v, "filename", func(s string) bool {
		return errs.ValidateFilename(s) == nil
	})
	mustRegister(v, "attrkey", func(s string) bool {
		return errs.ValidateAttrKey(s) == nil
	})
	return v
})

func mustRegister(v *validator.Validate, tag string, ok func(string) bool) {
	if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return ok(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Validate checks required fields and enumerations. It does not resolve
// ids or icons; [Document.Build] does that.
func (d *Document) Validate() error {
	err := validate().Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.ErrCodeInternal, err, "validate document")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errs.New(errs.ErrCodeInvalidDocument, "%s", strings.Join(msgs, "; "))
}

// fieldMessage renders e.g. "clusters[0].nodes[1].icon is required".
func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "direction":
		return fmt.Sprintf("%s must be TB, BT, LR or RL, got %q", field, fe.Value())
	case "format":
		return fmt.Sprintf("%s must be png, svg, jpg, pdf or dot, got %q", field, fe.Value())
	case "filename":
		return fmt.Sprintf("%s is not a valid file name: %q", field, fe.Value())
	case "attrkey":
		return fmt.Sprintf("%s: attribute name %q is not an identifier", field, fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// RejectAttrs fails with INVALID_INPUT when any graph, default, node,
// cluster or edge attribute uses one of names.
func (d *Document) RejectAttrs(names ...string) error {
	denied := func(where string, attrs map[string]string) error {
		for _, k := range slices.Sorted(maps.Keys(attrs)) {
			if slices.Contains(names, k) {
				return errs.New(errs.ErrCodeInvalidInput, "%s: attribute %q is not allowed", where, k)
			}
		}
		return nil
	}
	if err := denied("graph_attr", d.GraphAttr); err != nil {
		return err
	}
	if err := denied("node_attr", d.NodeAttr); err != nil {
		return err
	}
	if err := denied("edge_attr", d.EdgeAttr); err != nil {
		return err
	}
	var walk func(path string, nodes []Node, clusters []Cluster) error
	walk = func(path string, nodes []Node, clusters []Cluster) error {
		for i, n := range nodes {
			if err := denied(fmt.Sprintf("%snodes[%d]", path, i), n.Attrs); err != nil {
				return err
			}
		}
		for i, c := range clusters {
			p := fmt.Sprintf("%sclusters[%d]", path, i)
			if err := denied(p, c.Attrs); err != nil {
				return err
			}
			if err := walk(p+".", c.Nodes, c.Clusters); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("", d.Nodes, d.Clusters); err != nil {
		return err
	}
	for i, e := range d.Edges {
		if err := denied(fmt.Sprintf("edges[%d]", i), e.Attrs); err != nil {
			return err
		}
	}
	return nil
}
