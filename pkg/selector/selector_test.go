package selector

import (
	"testing"
)

func TestToKeywords_Empty(t *testing.T) {
	keywords := New().ToKeywords()
	if len(keywords) != 0 {
		t.Fatalf("expected empty map, got %v", keywords)
	}
}

func TestToKeywords_NameOnly(t *testing.T) {
	keywords := New(Name("foo")).ToKeywords()

	if len(keywords) != 1 {
		t.Fatalf("expected a single keyword, got %v", keywords)
	}
	if keywords[FieldKeyword] != "metadata.name=foo" {
		t.Fatalf("unexpected field selector: %q", keywords[FieldKeyword])
	}
}

func TestToKeywords_NodeOnly(t *testing.T) {
	keywords := New(Node("worker-1")).ToKeywords()

	if keywords[FieldKeyword] != "spec.nodeName=worker-1" {
		t.Fatalf("unexpected field selector: %q", keywords[FieldKeyword])
	}
}

func TestToKeywords_MixedKinds(t *testing.T) {
	keywords := New(Name("foo"), Running(), Label("app", "web")).ToKeywords()

	wantField := "metadata.name=foo,status.phase!=Failed,status.phase!=Succeeded"
	if keywords[FieldKeyword] != wantField {
		t.Fatalf("expected field selector %q, got %q", wantField, keywords[FieldKeyword])
	}
	if keywords[LabelKeyword] != "app=web" {
		t.Fatalf("expected label selector %q, got %q", "app=web", keywords[LabelKeyword])
	}
}

func TestToKeywords_PreservesComponentOrder(t *testing.T) {
	keywords := New(Node("worker-1"), Name("foo")).ToKeywords()

	want := "spec.nodeName=worker-1,metadata.name=foo"
	if keywords[FieldKeyword] != want {
		t.Fatalf("expected field selector %q, got %q", want, keywords[FieldKeyword])
	}
}

func TestToKeywords_OmitsEmptyKinds(t *testing.T) {
	keywords := New(Label("app", "web")).ToKeywords()

	if _, ok := keywords[FieldKeyword]; ok {
		t.Fatalf("expected no field selector entry, got %v", keywords)
	}
	if keywords[LabelKeyword] != "app=web" {
		t.Fatalf("unexpected label selector: %q", keywords[LabelKeyword])
	}
}

func TestFromLabels_SortedKeyOrder(t *testing.T) {
	keywords := FromLabels(map[string]string{
		"tier": "frontend",
		"app":  "web",
	}).ToKeywords()

	want := "app=web,tier=frontend"
	if keywords[LabelKeyword] != want {
		t.Fatalf("expected label selector %q, got %q", want, keywords[LabelKeyword])
	}
}

func TestListOptions(t *testing.T) {
	opts := New(Node("worker-1"), Running(), Label("app", "web")).ListOptions()

	wantField := "spec.nodeName=worker-1,status.phase!=Failed,status.phase!=Succeeded"
	if opts.FieldSelector != wantField {
		t.Fatalf("expected field selector %q, got %q", wantField, opts.FieldSelector)
	}
	if opts.LabelSelector != "app=web" {
		t.Fatalf("expected label selector %q, got %q", "app=web", opts.LabelSelector)
	}
}

func TestListOptions_EmptySelector(t *testing.T) {
	opts := New().ListOptions()

	if opts.FieldSelector != "" || opts.LabelSelector != "" {
		t.Fatalf("expected empty list options, got %+v", opts)
	}
}
