// Package docs embeds the OpenAPI specification and serves it alongside a
// Swagger UI page, gated by config.EnableDocs (spec.md §6).
package docs

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// SpecYAML returns the embedded OpenAPI document as YAML.
func SpecYAML() []byte { return openapiYAML }

// SpecJSON converts the embedded OpenAPI document to JSON.
func SpecJSON() ([]byte, error) {
	var spec interface{}
	if err := yaml.Unmarshal(openapiYAML, &spec); err != nil {
		return nil, err
	}
	return json.Marshal(spec)
}

// SpecHandler serves /openapi.json.
func SpecHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, err := SpecJSON()
		if err != nil {
			http.Error(w, "failed to render openapi spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	}
}

// UIHandler serves /docs, a Swagger UI page pointed at /openapi.json.
func UIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(swaggerUIPage))
	}
}

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>imgproxy API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: "/openapi.json",
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis],
                layout: "BaseLayout"
            });
        };
    </script>
</body>
</html>`
