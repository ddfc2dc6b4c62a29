// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

// Package docs registers the relay's OpenAPI 2.0 description with swag so
// http-swagger can serve it at /swagger/doc.json. Keep it in step with the
// @-annotations on the handlers in internal/api.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "description": "Plain-text status line. WebSocket handshakes sent to / are upgraded like /ws.",
                "produces": ["text/plain"],
                "tags": ["Core"],
                "summary": "Relay status",
                "responses": {
                    "200": {"description": "Servidor de WebSocket funcionando", "schema": {"type": "string"}}
                }
            }
        },
        "/alertas": {
            "get": {
                "description": "Every buffered alert, oldest first, as a bare JSON array.",
                "produces": ["application/json"],
                "tags": ["Alerts"],
                "summary": "History dump",
                "responses": {
                    "200": {"description": "Buffered alerts", "schema": {"type": "array", "items": {"$ref": "#/definitions/alert.Alert"}}},
                    "503": {"description": "Relay hub not available", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "description": "Upgrades to a relay session. The server greets with a connection message and, when history is non-empty, a history primer.",
                "tags": ["Core"],
                "summary": "WebSocket session",
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "403": {"description": "Origin not allowed"}
                }
            }
        },
        "/api/v1/alerts": {
            "get": {
                "description": "Buffered alerts, oldest first. limit returns only the newest N.",
                "produces": ["application/json"],
                "tags": ["Alerts"],
                "summary": "List buffered alerts",
                "parameters": [
                    {"type": "integer", "minimum": 0, "maximum": 10000, "description": "Newest N alerts (0 = all)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Alerts", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Invalid limit", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "503": {"description": "Relay hub not available", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/api/v1/metrics": {
            "get": {
                "description": "Sessions by kind, history occupancy, and uptime.",
                "produces": ["application/json"],
                "tags": ["Diagnostics"],
                "summary": "Relay snapshot",
                "responses": {
                    "200": {"description": "Snapshot", "schema": {"$ref": "#/definitions/api.RelayMetrics"}},
                    "503": {"description": "Relay hub not available", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/api/v1/health/live": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "Process is serving", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/api/v1/health/ready": {
            "get": {
                "description": "Ready while the hub event loop answers queries. Exporter connection state is reported but does not affect readiness.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "503": {"description": "Not ready", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["Diagnostics"],
                "summary": "Prometheus exposition",
                "responses": {
                    "200": {"description": "Metrics"}
                }
            }
        }
    },
    "definitions": {
        "alert.Alert": {
            "type": "object",
            "additionalProperties": true,
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string"},
                "confianza": {"type": "number", "minimum": 0, "maximum": 1},
                "fecha": {"type": "string"},
                "hora": {"type": "string"},
                "ubicacion": {"description": "Free text or {latitude, longitude, direccion}"},
                "recibida": {"type": "string", "format": "date-time"}
            }
        },
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data": {},
                "metadata": {"$ref": "#/definitions/api.Metadata"},
                "error": {"$ref": "#/definitions/validation.APIError"}
            }
        },
        "api.Metadata": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string", "format": "date-time"},
                "request_id": {"type": "string"},
                "count": {"type": "integer"}
            }
        },
        "api.RelayMetrics": {
            "type": "object",
            "properties": {
                "sessions_by_kind": {"type": "object", "additionalProperties": {"type": "integer"}},
                "total_sessions": {"type": "integer"},
                "history_size": {"type": "integer"},
                "history_capacity": {"type": "integer"},
                "started_at": {"type": "string", "format": "date-time"},
                "uptime_seconds": {"type": "number"}
            }
        },
        "validation.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Alertrelay API",
	Description:      "Real-time security alert relay hub: WebSocket sessions plus HTTP diagnostics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
