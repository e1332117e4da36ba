package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Generator builds an OpenAPI 3.0 document from the routes registered on an
// echo instance. Only routes under prefix are described.
type Generator struct {
	routes  func() []*echo.Route
	version string
	baseURL string
	prefix  string
}

// NewGenerator creates a generator. routes is usually e.Routes.
func NewGenerator(routes func() []*echo.Route, version, baseURL, prefix string) *Generator {
	return &Generator{routes: routes, version: version, baseURL: baseURL, prefix: prefix}
}

var documentedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// GenerateSpec produces the OpenAPI document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	routes := g.routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	paths := make(map[string]interface{})
	tagSet := make(map[string]bool)
	for _, r := range routes {
		if !documentedMethods[r.Method] || !strings.HasPrefix(r.Path, g.prefix+"/") || strings.HasSuffix(r.Path, "*") {
			continue
		}
		rel := strings.TrimPrefix(r.Path, g.prefix)
		tag := resourceTag(rel)
		tagSet[tag] = true

		oasPath, params := convertPath(r.Path)
		item, _ := paths[oasPath].(map[string]interface{})
		if item == nil {
			item = make(map[string]interface{})
			paths[oasPath] = item
		}

		op := map[string]interface{}{
			"operationId": operationID(r.Method, rel),
			"tags":        []string{tag},
			"responses":   buildResponses(r.Method),
		}
		if len(params) > 0 {
			op["parameters"] = params
		}
		if r.Method == http.MethodGet && len(params) == 0 {
			op["parameters"] = pageParameters()
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			op["requestBody"] = map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]string{"type": "object"},
					},
				},
			}
		}
		item[strings.ToLower(r.Method)] = op
	}

	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	tagList := make([]map[string]string, 0, len(tags))
	for _, t := range tags {
		tagList = append(tagList, map[string]string{"name": t})
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Clinic API",
			"version":     g.version,
			"description": "Doctor schedules, appointment booking and billing.",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"tags":  tagList,
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Envelope": buildEnvelopeSchema(),
				"Error":    buildErrorSchema(),
			},
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"security": []map[string][]string{{"bearerAuth": {}}},
	}
}

// resourceTag names the first path segment, e.g. "/billing/:id" -> "billing".
func resourceTag(rel string) string {
	seg := strings.TrimPrefix(rel, "/")
	if i := strings.Index(seg, "/"); i >= 0 {
		seg = seg[:i]
	}
	return seg
}

// convertPath rewrites echo ":param" segments to "{param}" and returns the
// matching path parameter definitions.
func convertPath(path string) (string, []map[string]interface{}) {
	segs := strings.Split(path, "/")
	var params []map[string]interface{}
	for i, s := range segs {
		if !strings.HasPrefix(s, ":") {
			continue
		}
		name := s[1:]
		segs[i] = "{" + name + "}"
		schema := map[string]string{"type": "string"}
		if name == "id" {
			schema["format"] = "uuid"
		}
		params = append(params, map[string]interface{}{
			"name": name, "in": "path", "required": true, "schema": schema,
		})
	}
	return strings.Join(segs, "/"), params
}

func operationID(method, rel string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '-' }) {
		if strings.HasPrefix(s, ":") {
			s = "By" + strings.ToUpper(s[1:2]) + s[2:]
		}
		b.WriteString(strings.ToUpper(s[:1]) + s[1:])
	}
	return b.String()
}

func pageParameters() []map[string]interface{} {
	return []map[string]interface{}{
		{"name": "page", "in": "query", "schema": map[string]interface{}{"type": "integer", "minimum": 1}},
		{"name": "page_size", "in": "query", "schema": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 100}},
	}
}

func buildResponses(method string) map[string]interface{} {
	ok := map[string]interface{}{
		"description": "Success",
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": "#/components/schemas/Envelope"},
			},
		},
	}
	failure := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"description": desc,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]string{"$ref": "#/components/schemas/Error"},
				},
			},
		}
	}

	resp := map[string]interface{}{
		"401": failure("Not authenticated"),
		"403": failure("Forbidden"),
		"422": failure("Validation failed"),
	}
	switch method {
	case http.MethodPost:
		resp["201"] = ok
		resp["409"] = failure("Conflict")
	case http.MethodDelete:
		resp["204"] = map[string]interface{}{"description": "Deleted"}
		resp["404"] = failure("Not found")
		resp["409"] = failure("Conflict")
	case http.MethodPut, http.MethodPatch:
		resp["200"] = ok
		resp["404"] = failure("Not found")
		resp["409"] = failure("Conflict")
	default:
		resp["200"] = ok
		resp["404"] = failure("Not found")
	}
	return resp
}

func buildEnvelopeSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"ok", "data"},
		"properties": map[string]interface{}{
			"ok":   map[string]string{"type": "boolean"},
			"data": map[string]interface{}{},
			"meta": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"page":      map[string]string{"type": "integer"},
					"page_size": map[string]string{"type": "integer"},
					"total":     map[string]string{"type": "integer"},
				},
			},
		},
	}
}

func buildErrorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"ok", "error"},
		"properties": map[string]interface{}{
			"ok": map[string]string{"type": "boolean"},
			"error": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"message": map[string]string{"type": "string"},
					"code":    map[string]string{"type": "string"},
					"status":  map[string]string{"type": "integer"},
					"details": map[string]string{"type": "object"},
				},
			},
		},
	}
}

// RegisterRoutes registers GET /openapi.json.
func (g *Generator) RegisterRoutes(e *echo.Echo) {
	e.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}
