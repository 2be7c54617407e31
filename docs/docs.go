// Package docs registers the OpenAPI description served at /swagger.
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
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/auth/sign-up": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register an operator",
                "parameters": [{"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Issue a bearer token",
                "parameters": [{"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/runs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List runs",
                "parameters": [
                    {"enum": ["PENDING", "ACTIVE", "COMPLETED", "ABORTED"], "type": "string", "description": "Run status", "name": "status", "in": "query"},
                    {"type": "integer", "description": "Max runs, newest first", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "count, runs"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Validates the profile and queues the run; it becomes ACTIVE at the next control tick.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Start a run",
                "parameters": [{"description": "Run definition", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.StartRunRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Run"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "409": {"description": "Conflict"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/v1/runs/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run",
                "parameters": [{"type": "integer", "description": "Run id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Run"}}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/runs/{id}/readings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List readings of a run",
                "parameters": [
                    {"type": "integer", "description": "Run id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "description": "End of range", "name": "to", "in": "query"},
                    {"type": "string", "description": "Sensor id", "name": "sensor", "in": "query"},
                    {"type": "integer", "description": "Max readings", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "count, readings"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/controller/stop": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "The run ends ABORTED with a STOP event at the next control tick.",
                "produces": ["application/json"],
                "tags": ["controller"],
                "summary": "Stop the active run",
                "responses": {"200": {"description": "status, controller"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/v1/controller/abort": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["controller"],
                "summary": "Abort the active run",
                "parameters": [{"description": "Abort reason", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/handlers.AbortRequest"}}],
                "responses": {"200": {"description": "status, reason, controller"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/v1/controller/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["controller"],
                "summary": "Controller status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Status"}}}
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List event log",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"enum": ["START", "STOP", "ABORT", "LEVEL_CHANGE", "HOLD", "COMPLETED", "ERROR", "ALERT"], "type": "string", "name": "type", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}}
            }
        }
    },
    "definitions": {
        "handlers.authCredentials": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {"password": {"type": "string"}, "username": {"type": "string"}}
        },
        "handlers.StartRunRequest": {
            "type": "object",
            "required": ["mode"],
            "properties": {
                "name": {"type": "string", "example": "lager-2026-03"},
                "mode": {"type": "string", "example": "GRADUAL"},
                "levels": {"type": "array", "items": {"$ref": "#/definitions/models.Level"}}
            }
        },
        "handlers.AbortRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string", "example": "lid open"}}
        },
        "models.Level": {
            "type": "object",
            "properties": {"target_temp_c": {"type": "number"}, "duration_sec": {"type": "integer"}}
        },
        "models.Run": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "mode": {"type": "string"},
                "levels": {"type": "array", "items": {"$ref": "#/definitions/models.Level"}},
                "status": {"type": "string"},
                "state": {"type": "string"},
                "current_level": {"type": "integer"},
                "heater_on": {"type": "boolean"},
                "current_temp_c": {"type": "number"},
                "reason": {"type": "string"},
                "started_at": {"type": "string"},
                "level_started_at": {"type": "string"},
                "ended_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "service.Status": {
            "type": "object",
            "properties": {
                "run": {"$ref": "#/definitions/models.Run"},
                "active": {"type": "boolean"},
                "heater_on": {"type": "boolean"},
                "target_c": {"type": "number"},
                "remaining_sec": {"type": "integer"},
                "at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Fermenter controller API",
	Description:      "Run control, status and history of the fermentation temperature controller.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
