package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/allisson/resourcegateway/internal/gateway/openapi"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
)

// RunValidateRegistry loads a collection table, checks that the OpenAPI document
// generated from it is valid and prints a summary. An empty path validates the
// embedded table. With format "openapi" the document itself is printed.
func RunValidateRegistry(
	ctx context.Context,
	logger *slog.Logger,
	writer io.Writer,
	path string,
	baseURL string,
	format string,
) error {
	var (
		reg *registry.Registry
		err error
	)
	if path == "" {
		reg, err = registry.Default()
	} else {
		reg, err = registry.LoadFile(path)
	}
	if err != nil {
		return fmt.Errorf("invalid registry: %w", err)
	}

	doc := openapi.Generate(reg, baseURL)
	if err := validateDocument(ctx, doc); err != nil {
		return fmt.Errorf("invalid openapi document: %w", err)
	}

	collections := reg.Collections()
	names := make([]string, 0, len(collections))
	for _, desc := range collections {
		names = append(names, desc.Name)
	}

	switch format {
	case "openapi":
		if err := writeJSON(writer, doc); err != nil {
			return err
		}
	case "json":
		if err := writeJSON(writer, map[string]any{
			"name":        reg.Name(),
			"version":     reg.Version(),
			"collections": names,
			"paths":       doc.Paths.Len(),
		}); err != nil {
			return err
		}
	default:
		_, _ = fmt.Fprintf(writer, "Registry:    %s %s\n", reg.Name(), reg.Version())
		_, _ = fmt.Fprintf(writer, "Collections: %d\n", len(names))
		_, _ = fmt.Fprintf(writer, "Paths:       %d\n", doc.Paths.Len())
		_, _ = fmt.Fprintf(writer, "Status: VALID\n")
	}

	logger.Info("registry validated",
		slog.String("path", path),
		slog.Int("collections", len(names)),
	)
	return nil
}

// validateDocument reloads the generated document so that its component references
// are resolved before validation.
func validateDocument(ctx context.Context, doc *openapi3.T) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loaded, err := loader.LoadFromData(data)
	if err != nil {
		return err
	}
	return loaded.Validate(ctx)
}
