package middleware

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// unknownService is reported when no source yields a service name
const unknownService = "unknown-service"

// serviceAccountNamespaceFile is mounted into every pod by Kubernetes
const serviceAccountNamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

// detectServiceInfo resolves the service name and namespace.
// Name: OTEL_SERVICE_NAME, then the pod name without its replicaset and pod hashes
// ("user-75c98b4b9c-kdv2n" -> "user"), then fallback.
// Namespace: OTEL_RESOURCE_ATTRIBUTES service.namespace, the mounted service account, POD_NAMESPACE, "default".
func detectServiceInfo(fallback string) (serviceName, namespace string) {
	// OTEL_SERVICE_NAME is the standard override and wins over any detection
	serviceName = os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		// POD_NAME comes from the Downward API; without it the hostname is the pod name
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName, _ = os.Hostname()
		}
		serviceName = serviceFromPodName(podName)
	}
	if serviceName == "" {
		serviceName = fallback
	}
	if serviceName == "" {
		serviceName = unknownService
	}

	return serviceName, detectNamespace()
}

// serviceFromPodName strips the two trailing hash segments of a Deployment pod name.
// Pods are named <deployment>-<replicaset hash>-<pod hash>, so
// "user-service-abc123-xyz45" -> "user-service". Names with fewer than
// three segments (a laptop hostname) are not pod names and yield "".
func serviceFromPodName(podName string) string {
	parts := strings.Split(podName, "-")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "-")
}

// detectNamespace checks, in order: service.namespace in OTEL_RESOURCE_ATTRIBUTES,
// the service account mount, POD_NAMESPACE.
func detectNamespace() string {
	// OTEL_RESOURCE_ATTRIBUTES is a comma-separated key=value list
	for _, attr := range strings.Split(os.Getenv("OTEL_RESOURCE_ATTRIBUTES"), ",") {
		if k, v, ok := strings.Cut(attr, "="); ok && k == "service.namespace" {
			return v
		}
	}
	if data, err := os.ReadFile(serviceAccountNamespaceFile); err == nil {
		return strings.TrimSpace(string(data))
	}
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" {
		return ns
	}
	return "default"
}

// CreateResource builds the OpenTelemetry resource for this process.
// On detector failure it returns a minimal resource together with the error.
func CreateResource(ctx context.Context, fallbackName string) (*resource.Resource, error) {
	serviceName, namespace := detectServiceInfo(fallbackName)

	res, err := resource.New(
		ctx,
		resource.WithFromEnv(),   // OTEL_RESOURCE_ATTRIBUTES / OTEL_SERVICE_NAME
		resource.WithProcess(),   // pid, executable, runtime
		resource.WithOS(),        // os.type, os.description
		resource.WithContainer(), // container.id from cgroup, when containerized
		resource.WithHost(),      // host.name
		// applied last, so detected name and namespace override the env detector
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceNamespaceKey.String(namespace),
		),
	)
	if err != nil {
		// Some detectors fail outside a container; keep tracing alive with a minimal resource.
		return resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceNamespaceKey.String(namespace),
		), fmt.Errorf("resource detection partial failure (using fallback): %w", err)
	}

	return res, nil
}

// GetServiceName extracts service name from a resource
func GetServiceName(res *resource.Resource) string {
	if res == nil {
		return unknownService
	}
	if v, ok := res.Set().Value(semconv.ServiceNameKey); ok && v.AsString() != "" {
		return v.AsString()
	}
	return unknownService
}
