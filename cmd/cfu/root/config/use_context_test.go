package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func setupContexts(t *testing.T, contexts map[string]interface{}) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set(contextsConfigKey, contexts)
}

func TestLoadContextValues(t *testing.T) {
	setupContexts(t, map[string]interface{}{
		"acme-prod": map[string]interface{}{
			"region":          "us-east-1",
			"assume-role":     "arn:aws:iam::123456789012:role/ir-responder",
			"evidence-bucket": "acme-ir-evidence",
		},
	})

	values, err := loadContextValues("acme-prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if values["region"] != "us-east-1" {
		t.Fatalf("expected region to be loaded, got %q", values["region"])
	}
	if values["evidence-bucket"] != "acme-ir-evidence" {
		t.Fatalf("expected evidence bucket to be loaded, got %q", values["evidence-bucket"])
	}
	if _, ok := values["case"]; ok {
		t.Fatalf("expected omitted keys to stay absent, got %+v", values)
	}
}

func TestLoadContextValues_NoContexts(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := loadContextValues("acme-prod")
	if err == nil {
		t.Fatal("expected error when no contexts are defined")
	}
}

func TestLoadContextValues_UnknownListsAvailable(t *testing.T) {
	setupContexts(t, map[string]interface{}{
		"acme-prod":    map[string]interface{}{"region": "us-east-1"},
		"acme-staging": map[string]interface{}{"region": "eu-west-1"},
	})

	_, err := loadContextValues("ghost")
	if err == nil {
		t.Fatal("expected error for unknown context")
	}
	if !strings.Contains(err.Error(), "acme-prod") || !strings.Contains(err.Error(), "acme-staging") {
		t.Fatalf("expected available contexts in error, got: %v", err)
	}
}

func TestLoadContextValues_RejectsNonStringValue(t *testing.T) {
	setupContexts(t, map[string]interface{}{
		"acme-prod": map[string]interface{}{"region": 42},
	})

	_, err := loadContextValues("acme-prod")
	if err == nil {
		t.Fatal("expected error for non-string value")
	}
}

func TestRequiredContextKeysMissing(t *testing.T) {
	missing := requiredContextKeysMissing(map[string]string{
		"region": "  ",
	}, requiredContextConfigKeys)

	if len(missing) != 1 || missing[0] != "region" {
		t.Fatalf("expected region to be reported missing, got %v", missing)
	}
}

func TestNormalizeStringMap_InterfaceKeys(t *testing.T) {
	normalized, ok := normalizeStringMap(map[interface{}]interface{}{
		"region": "us-east-1",
	})
	if !ok {
		t.Fatal("expected map with interface keys to normalize")
	}
	if normalized["region"] != "us-east-1" {
		t.Fatalf("unexpected normalized map: %+v", normalized)
	}
}

func TestNormalizeStringMap_RejectsNonStringKeys(t *testing.T) {
	if _, ok := normalizeStringMap(map[interface{}]interface{}{42: "x"}); ok {
		t.Fatal("expected map with non-string keys to be rejected")
	}
}
