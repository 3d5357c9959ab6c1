// Package selector composes Kubernetes field and label selectors from
// typed components. Each component renders to one fragment of either the
// field or the label selector string, and a Selector joins the fragments
// into the parameters the list API understands.
package selector

import (
	"fmt"
	"sort"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Keyword keys of the rendered selector map.
const (
	FieldKeyword = "field_selector"
	LabelKeyword = "label_selector"
)

// Component is one selector fragment. The constructors in this package are
// the only implementations.
type Component interface {
	component()
}

type nameComponent struct{ name string }

type nodeComponent struct{ node string }

type runningComponent struct{}

type labelComponent struct{ key, value string }

func (nameComponent) component()    {}
func (nodeComponent) component()    {}
func (runningComponent) component() {}
func (labelComponent) component()   {}

// Name matches an object by its metadata.name.
func Name(name string) Component {
	return nameComponent{name: name}
}

// Node matches pods scheduled on the given node.
func Node(node string) Component {
	return nodeComponent{node: node}
}

// Running matches pods that have not terminated. The fragment excludes the
// Failed and Succeeded phases rather than matching Running directly so that
// Pending pods are kept.
func Running() Component {
	return runningComponent{}
}

// Label matches objects carrying the given label.
func Label(key, value string) Component {
	return labelComponent{key: key, value: value}
}

func render(c Component) (keyword, fragment string) {
	switch c := c.(type) {
	case nameComponent:
		return FieldKeyword, fmt.Sprintf("metadata.name=%s", c.name)
	case nodeComponent:
		return FieldKeyword, fmt.Sprintf("spec.nodeName=%s", c.node)
	case runningComponent:
		return FieldKeyword, "status.phase!=Failed,status.phase!=Succeeded"
	case labelComponent:
		return LabelKeyword, fmt.Sprintf("%s=%s", c.key, c.value)
	}
	panic(fmt.Sprintf("selector: unknown component %T", c))
}

// Selector is an ordered sequence of components.
type Selector struct {
	components []Component
}

// New builds a selector from the given components, keeping their order.
func New(components ...Component) Selector {
	return Selector{components: components}
}

// FromLabels builds a selector with one Label component per map entry.
// Entries are added in sorted key order so the rendered selector is stable.
func FromLabels(labels map[string]string) Selector {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	components := make([]Component, 0, len(keys))
	for _, key := range keys {
		components = append(components, Label(key, labels[key]))
	}
	return New(components...)
}

// ToKeywords renders the selector as the keyword arguments of a list call.
// Fragments are grouped by keyword in their original relative order and
// joined with a comma. Keywords with no components are omitted.
func (s Selector) ToKeywords() map[string]string {
	fragments := map[string][]string{}
	for _, c := range s.components {
		keyword, fragment := render(c)
		fragments[keyword] = append(fragments[keyword], fragment)
	}

	keywords := make(map[string]string, len(fragments))
	for keyword, group := range fragments {
		keywords[keyword] = strings.Join(group, ",")
	}
	return keywords
}

// ListOptions bridges the selector onto client-go list parameters.
func (s Selector) ListOptions() metav1.ListOptions {
	keywords := s.ToKeywords()
	return metav1.ListOptions{
		FieldSelector: keywords[FieldKeyword],
		LabelSelector: keywords[LabelKeyword],
	}
}
