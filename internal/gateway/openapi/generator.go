// Package openapi generates an OpenAPI 3 document describing the collections of a
// registry.
package openapi

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
)

const (
	errorRef      = "#/components/schemas/ErrorResponse"
	resultRef     = "#/components/schemas/ActionResult"
	bulkRef       = "#/components/schemas/BulkResults"
	collectionRef = "#/components/schemas/CollectionList"
	resourceRef   = "#/components/schemas/Resource"
)

// Generate builds the document for every collection of reg. baseURL is advertised
// as the only server.
func Generate(reg *registry.Registry, baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       reg.Name(),
			Description: "Policy-driven REST resource gateway.",
			Version:     reg.Version(),
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = sharedSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"basicAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{Type: "http", Scheme: "basic"},
		},
		"authToken": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{Type: "apiKey", In: "header", Name: "X-Auth-Token"},
		},
		"systemToken": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{Type: "apiKey", In: "header", Name: "X-MIQ-Token"},
		},
	}
	doc.Components = &components
	doc.Security = openapi3.SecurityRequirements{
		{"basicAuth": {}},
		{"authToken": {}},
		{"systemToken": {}},
	}

	doc.Paths = openapi3.NewPaths()
	doc.Paths.Set("/", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"entrypoint"},
			Summary:     "API entry point",
			OperationID: "get_entrypoint",
			Responses:   newResponses("200", "Entry point", objectSchema()),
		},
	})

	for _, desc := range reg.Collections() {
		if desc.SubcollectionOnly {
			continue
		}
		addCollectionPaths(doc, desc, "/"+desc.Name, nil, domain.ScopeCollection, domain.ScopeResource)

		for _, name := range desc.Subcollections {
			sub, err := reg.Subcollection(desc, name)
			if err != nil {
				continue
			}
			prefix := fmt.Sprintf("/%s/{id}/%s", desc.Name, sub.Name)
			addCollectionPaths(doc, sub, prefix, desc, domain.ScopeSubcollection, domain.ScopeSubresource)
		}
	}

	return doc
}

func addCollectionPaths(
	doc *openapi3.T,
	desc *registry.Descriptor,
	path string,
	parent *registry.Descriptor,
	collectionScope, resourceScope domain.Scope,
) {
	tag := desc.Name
	opID := desc.Name
	idParam := "id"
	var pathParams openapi3.Parameters
	if parent != nil {
		tag = parent.Name
		opID = parent.Name + "_" + desc.Name
		idParam = "subresource_id"
		pathParams = openapi3.Parameters{pathParameter("id", parent.Name)}
	}

	item := &openapi3.PathItem{Parameters: pathParams}
	if _, ok := desc.Action(collectionScope, domain.ActionRead); ok {
		item.Get = &openapi3.Operation{
			Tags:        []string{tag},
			Summary:     fmt.Sprintf("List %s", desc.Name),
			OperationID: "list_" + opID,
			Parameters:  listQueryParameters(),
			Responses:   newResponses("200", fmt.Sprintf("List of %s", desc.Name), openapi3.NewSchemaRef(collectionRef, nil)),
		}
	}
	if actions := actionNames(desc, collectionScope); len(actions) > 0 {
		item.Post = &openapi3.Operation{
			Tags:        []string{tag},
			Summary:     fmt.Sprintf("Run an action on %s", desc.Name),
			Description: "Supported actions: " + strings.Join(actions, ", ") + ". Send resources for bulk requests.",
			OperationID: "post_" + opID,
			RequestBody: actionBody(actions),
			Responses: newResponses("200", "Action results", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					OneOf: openapi3.SchemaRefs{
						openapi3.NewSchemaRef(resultRef, nil),
						openapi3.NewSchemaRef(bulkRef, nil),
					},
				},
			}),
		}
	}
	if item.Get != nil || item.Post != nil {
		doc.Paths.Set(path, item)
	}

	resourcePath := fmt.Sprintf("%s/{%s}", path, idParam)
	resourceItem := &openapi3.PathItem{
		Parameters: append(append(openapi3.Parameters{}, pathParams...), pathParameter(idParam, desc.Name)),
	}
	if _, ok := desc.Action(resourceScope, domain.ActionRead); ok {
		resourceItem.Get = &openapi3.Operation{
			Tags:        []string{tag},
			Summary:     fmt.Sprintf("Show one of %s", desc.Name),
			OperationID: "show_" + opID,
			Parameters:  attributeParameters(),
			Responses:   newResponses("200", "Resource", openapi3.NewSchemaRef(resourceRef, nil)),
		}
	}
	if actions := actionNames(desc, resourceScope); len(actions) > 0 {
		resourceItem.Post = &openapi3.Operation{
			Tags:        []string{tag},
			Summary:     fmt.Sprintf("Run an action on one of %s", desc.Name),
			Description: "Supported actions: " + strings.Join(actions, ", ") + ".",
			OperationID: "post_" + opID + "_resource",
			RequestBody: actionBody(actions),
			Responses:   newResponses("200", "Action result", openapi3.NewSchemaRef(resultRef, nil)),
		}
	}
	if spec, ok := desc.Action(resourceScope, domain.ActionEdit); ok {
		editBody := &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Required: true,
			Content:  openapi3.NewContentWithJSONSchema(editableSchema(desc)),
		}}
		if spec.AllowsVerb("put") {
			resourceItem.Put = &openapi3.Operation{
				Tags:        []string{tag},
				Summary:     fmt.Sprintf("Edit one of %s", desc.Name),
				OperationID: "put_" + opID,
				RequestBody: editBody,
				Responses:   newResponses("200", "Action result", openapi3.NewSchemaRef(resultRef, nil)),
			}
		}
		if spec.AllowsVerb("patch") {
			resourceItem.Patch = &openapi3.Operation{
				Tags:        []string{tag},
				Summary:     fmt.Sprintf("Patch one of %s", desc.Name),
				OperationID: "patch_" + opID,
				RequestBody: &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
					Required: true,
					Content:  openapi3.NewContentWithJSONSchema(patchSchema()),
				}},
				Responses: newResponses("200", "Action result", openapi3.NewSchemaRef(resultRef, nil)),
			}
		}
	}
	if spec, ok := desc.Action(resourceScope, domain.ActionDelete); ok && spec.AllowsVerb("delete") {
		responses := newResponses("204", "Deleted", nil)
		resourceItem.Delete = &openapi3.Operation{
			Tags:        []string{tag},
			Summary:     fmt.Sprintf("Delete one of %s", desc.Name),
			OperationID: "delete_" + opID,
			Responses:   responses,
		}
	}
	if resourceItem.Get != nil || resourceItem.Post != nil || resourceItem.Delete != nil {
		doc.Paths.Set(resourcePath, resourceItem)
	}
}

// actionNames lists the POST-able actions at scope.
func actionNames(desc *registry.Descriptor, scope domain.Scope) []string {
	var names []string
	for _, spec := range desc.ActionsAt(scope) {
		if spec.AllowsVerb("post") {
			names = append(names, spec.Name)
		}
	}
	return names
}

func actionBody(actions []string) *openapi3.RequestBodyRef {
	enum := make([]any, len(actions))
	for i, a := range actions {
		enum[i] = a
	}
	action := openapi3.NewStringSchema()
	action.Enum = enum

	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: "The action to run and its payload.",
			Content: openapi3.NewContentWithJSONSchema(&openapi3.Schema{
				Type: &openapi3.Types{"object"},
				Properties: openapi3.Schemas{
					"action": &openapi3.SchemaRef{Value: action},
					"resources": &openapi3.SchemaRef{Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: objectSchema().Value},
					}},
				},
				AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(true)},
			}),
		},
	}
}

func editableSchema(desc *registry.Descriptor) *openapi3.Schema {
	props := make(openapi3.Schemas, len(desc.Editable))
	for _, attr := range desc.Editable {
		props[attr] = &openapi3.SchemaRef{Value: &openapi3.Schema{}}
	}
	return &openapi3.Schema{
		Type:                 &openapi3.Types{"object"},
		Properties:           props,
		AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(false)},
	}
}

func patchSchema() *openapi3.Schema {
	op := openapi3.NewStringSchema()
	op.Enum = []any{"edit", "add", "remove"}
	return &openapi3.Schema{
		Type: &openapi3.Types{"array"},
		Items: &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"action": &openapi3.SchemaRef{Value: op},
				"path":   &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"value":  &openapi3.SchemaRef{Value: &openapi3.Schema{}},
			},
			Required: []string{"action", "path"},
		}},
	}
}

func sharedSchemas() openapi3.Schemas {
	str := func() *openapi3.SchemaRef { return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()} }
	integer := func() *openapi3.SchemaRef { return &openapi3.SchemaRef{Value: openapi3.NewIntegerSchema()} }

	return openapi3.Schemas{
		"ErrorResponse": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"kind":    str(),
						"message": str(),
					},
				}},
			},
		}},
		"ActionResult": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success":   &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()},
				"message":   str(),
				"href":      str(),
				"task_id":   str(),
				"task_href": str(),
			},
		}},
		"BulkResults": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"results": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: openapi3.NewSchemaRef(resultRef, nil),
				}},
			},
		}},
		"Resource": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":   str(),
				"href": str(),
			},
			AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(true)},
		}},
		"CollectionList": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"name":     str(),
				"count":    integer(),
				"subcount": integer(),
				"pages":    integer(),
				"resources": &openapi3.SchemaRef{Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: openapi3.NewSchemaRef(resourceRef, nil),
				}},
			},
		}},
	}
}

func pathParameter(name, collection string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter(name).
			WithDescription(fmt.Sprintf("Id of a %s resource.", collection)).
			WithSchema(openapi3.NewStringSchema()),
	}
}

func listQueryParameters() openapi3.Parameters {
	params := openapi3.Parameters{
		queryParameter("expand", "Set to \"resources\" to render full resources instead of hrefs.", openapi3.NewStringSchema()),
		queryParameter("filter[]", "Filter expression, e.g. \"name='default'\" or \"or id>5\". Repeatable.", openapi3.NewStringSchema()),
		queryParameter("sort_by", "Comma-separated attributes to sort by.", openapi3.NewStringSchema()),
		queryParameter("sort_order", "asc or desc, positional to sort_by.", openapi3.NewStringSchema()),
		queryParameter("offset", "Number of resources to skip.", openapi3.NewIntegerSchema()),
		queryParameter("limit", "Maximum number of resources to return.", openapi3.NewIntegerSchema()),
	}
	return append(params, attributeParameters()...)
}

func attributeParameters() openapi3.Parameters {
	return openapi3.Parameters{
		queryParameter("attributes", "Comma-separated attributes to render.", openapi3.NewStringSchema()),
	}
}

func queryParameter(name, description string, schema *openapi3.Schema) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter(name).WithDescription(description).WithSchema(schema),
	}
}

// newResponses builds a success response plus the standard error responses. A nil
// schema describes a response without a body.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	success := &openapi3.Response{Description: &description}
	if schema != nil {
		success.Content = openapi3.NewContentWithJSONSchemaRef(schema)
	}
	responses.Set(statusCode, &openapi3.ResponseRef{Value: success})

	errorSchema := openapi3.NewSchemaRef(errorRef, nil)
	for _, e := range []struct{ code, description string }{
		{"400", "Bad request"},
		{"401", "Unauthorized"},
		{"403", "Forbidden"},
		{"404", "Not found"},
		{"500", "Internal server error"},
	} {
		desc := e.description
		responses.Set(e.code, &openapi3.ResponseRef{Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorSchema),
		}})
	}
	return responses
}

func objectSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
}

func boolPtr(b bool) *bool { return &b }
