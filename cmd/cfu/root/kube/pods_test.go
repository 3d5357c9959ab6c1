package kube

import (
	"testing"

	"github.com/google/cloud-forensics-utls/pkg/selector"
)

func TestBuildSelector_AllFilters(t *testing.T) {
	sel, err := buildSelector("webserver-7f9", "ip-10-0-1-17.ec2.internal", true, []string{"app=webserver"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keywords := sel.ToKeywords()

	wantField := "metadata.name=webserver-7f9,spec.nodeName=ip-10-0-1-17.ec2.internal,status.phase!=Failed,status.phase!=Succeeded"
	if got := keywords[selector.FieldKeyword]; got != wantField {
		t.Errorf("field selector = %q, want %q", got, wantField)
	}

	if got := keywords[selector.LabelKeyword]; got != "app=webserver" {
		t.Errorf("label selector = %q, want %q", got, "app=webserver")
	}
}

func TestBuildSelector_NoFilters(t *testing.T) {
	sel, err := buildSelector("", "", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if keywords := sel.ToKeywords(); len(keywords) != 0 {
		t.Errorf("expected no selector keywords, got %v", keywords)
	}
}

func TestBuildSelector_LabelValueMayBeEmpty(t *testing.T) {
	sel, err := buildSelector("", "", false, []string{"quarantine="})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := sel.ToKeywords()[selector.LabelKeyword]; got != "quarantine=" {
		t.Errorf("label selector = %q, want %q", got, "quarantine=")
	}
}

func TestBuildSelector_RejectsMalformedLabel(t *testing.T) {
	if _, err := buildSelector("", "", false, []string{"app"}); err == nil {
		t.Error("expected an error for a label without =")
	}
	if _, err := buildSelector("", "", false, []string{"=web"}); err == nil {
		t.Error("expected an error for a label without a key")
	}
}
