package manifest

import (
	"bytes"

	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

type kustomization struct {
	APIVersion string               `yaml:"apiVersion"`
	Kind       string               `yaml:"kind"`
	Resources  []string             `yaml:"resources"`
	Labels     []kustomizationLabel `yaml:"labels"`
}

type kustomizationLabel struct {
	Pairs labelPairs `yaml:"pairs"`
}

// labelPairs is a struct rather than a map so the emitted key order is fixed.
type labelPairs struct {
	Name      string `yaml:"app.kubernetes.io/name"`
	ManagedBy string `yaml:"app.kubernetes.io/managed-by"`
}

// encodeKustomization builds the kustomization document listing every other
// emitted resource, in emission order.
func encodeKustomization(appName string, resources []string) ([]byte, error) {
	doc := kustomization{
		APIVersion: "kustomize.config.k8s.io/v1beta1",
		Kind:       "Kustomization",
		Resources:  resources,
		Labels: []kustomizationLabel{
			{Pairs: labelPairs{Name: appName, ManagedBy: managedBy}},
		},
	}
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeObject marshals a typed Kubernetes object. The JSON-path marshal in
// sigs.k8s.io/yaml gives stable struct field order and sorted map keys,
// which is what makes the output byte-reproducible.
func encodeObject(obj any) ([]byte, error) {
	return k8syaml.Marshal(obj)
}
