// Package docs holds the OpenAPI spec registered with swaggo. Regenerate
// with `swag init -g cmd/tstated/main.go` after API changes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Daemon status",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/v1/cpus": {
            "get": {
                "produces": ["application/json"],
                "summary": "Per-CPU compensation slots",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/v1/transitions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Notify a power transition",
                "responses": {
                    "202": {"description": "Accepted"},
                    "400": {"description": "Bad Request"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "tstated API",
	Description:      "HTTP API for the per-CPU throttle-state compensation daemon.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
