// Package docs registers the OpenAPI description served at
// /swagger/doc.json. Kept by hand; update it when routes change.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Service liveness, readiness and last run timestamp",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/rankings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Ranked institutions with scores and sub-scores",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "maximum rows to return (default 50, cap 500)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "no completed analysis run yet"}
                }
            }
        },
        "/rankings/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "One institution with its full score breakdown",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "institution id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "id is not an integer"},
                    "404": {"description": "unknown institution"},
                    "503": {"description": "no completed analysis run yet"}
                }
            }
        },
        "/sweetspot": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Institutions meeting both sweet-spot cutoffs, with thresholds",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "no completed analysis run yet"}
                }
            }
        },
        "/value": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Institutions ordered by blended value score",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "maximum rows to return (default 50, cap 500)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "no completed analysis run yet"}
                }
            }
        },
        "/thresholds": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Sweet-spot cutoffs derived from the current run",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "no completed analysis run yet"}
                }
            }
        },
        "/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Summary statistics and error counts for the current run",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "no completed analysis run yet"}
                }
            }
        },
        "/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Re-fetch the dataset and recompute all scores",
                "responses": {
                    "200": {"description": "new run published"},
                    "409": {"description": "a refresh is already running"},
                    "503": {"description": "dataset empty or upstream unavailable"}
                }
            }
        },
        "/export/rankings.csv": {
            "get": {
                "produces": ["text/csv"],
                "tags": ["analysis"],
                "summary": "Complete analysis table as a CSV attachment",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "no completed analysis run yet"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "University Value-o-Meter API",
	Description:      "Quality scores, rankings, sweet-spot flags and value scores for US universities, derived from College Scorecard data.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
